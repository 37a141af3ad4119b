// Package config loads the funnel bot configuration: the shared core
// sections plus database, storage and funnel settings.
package config

import (
	"fmt"
	"strings"
	"time"

	coreconfig "github.com/m3rciful/funnelbot/core/config"
	coredatabase "github.com/m3rciful/funnelbot/core/database"
)

const (
	// StoragePostgres keeps users in PostgreSQL.
	StoragePostgres = "postgres"
	// StorageMemory keeps users in process memory; records are lost on restart.
	StorageMemory = "memory"
)

// StorageConfig selects the user store.
type StorageConfig struct {
	Driver string `yaml:"driver" envconfig:"STORAGE_DRIVER"`
}

// FunnelConfig holds the funnel settings.
type FunnelConfig struct {
	// ChannelID is the channel users must join: numeric id or @username.
	ChannelID      string        `yaml:"channel_id" envconfig:"CHAT_ID"`
	ChannelURL     string        `yaml:"channel_url" envconfig:"CHANNEL_URL"`
	OperatorChatID int64         `yaml:"operator_chat_id" envconfig:"OPERATOR_CHAT_ID"`
	GuidePath      string        `yaml:"guide_path" envconfig:"GUIDE_PATH"`
	PlannerPath    string        `yaml:"planner_path" envconfig:"PLANNER_PATH"`
	ReminderDelay  time.Duration `yaml:"reminder_delay" envconfig:"REMINDER_DELAY"`
	// FallbackReply defaults to true when unset.
	FallbackReply *bool `yaml:"fallback_reply" envconfig:"FALLBACK_REPLY"`
}

// Config is the full bot configuration.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Database coredatabase.Config `yaml:"database"`
	Storage  StorageConfig       `yaml:"storage"`
	Funnel   FunnelConfig        `yaml:"funnel"`
}

// CoreConfig exposes the shared core sections.
func (c *Config) CoreConfig() *coreconfig.Config {
	if c == nil {
		return nil
	}
	return &c.Config
}

// FallbackEnabled reports whether failed updates get a generic reply.
func (c *Config) FallbackEnabled() bool {
	return c.Funnel.FallbackReply == nil || *c.Funnel.FallbackReply
}

// Load reads the YAML file at path (optional), overlays the environment and
// validates the result.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.LoadInto(path, &cfg); err != nil {
		return nil, err
	}
	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates cfg and applies defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	if err := coreconfig.Normalize(&cfg.Config); err != nil {
		return err
	}

	f := &cfg.Funnel
	f.ChannelID = strings.TrimSpace(f.ChannelID)
	if f.ChannelID == "" {
		return fmt.Errorf("funnel.channel_id (CHAT_ID) is required")
	}
	if f.OperatorChatID == 0 {
		return fmt.Errorf("funnel.operator_chat_id (OPERATOR_CHAT_ID) is required")
	}
	if strings.TrimSpace(f.GuidePath) == "" || strings.TrimSpace(f.PlannerPath) == "" {
		return fmt.Errorf("funnel.guide_path and funnel.planner_path are required")
	}
	if f.ReminderDelay < 0 {
		return fmt.Errorf("funnel.reminder_delay must be >= 0")
	}
	if f.ReminderDelay == 0 {
		f.ReminderDelay = time.Hour
	}

	driver := strings.ToLower(strings.TrimSpace(cfg.Storage.Driver))
	if driver == "" {
		driver = StoragePostgres
	}
	switch driver {
	case StoragePostgres:
		if strings.TrimSpace(cfg.Database.URL) == "" && strings.TrimSpace(cfg.Database.Host) == "" {
			return fmt.Errorf("database.url (DATABASE_URL) or database.host is required for the postgres storage driver")
		}
	case StorageMemory:
	default:
		return fmt.Errorf("invalid storage.driver %q; allowed: postgres, memory", cfg.Storage.Driver)
	}
	cfg.Storage.Driver = driver
	return nil
}
