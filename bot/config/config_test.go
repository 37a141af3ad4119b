package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	coreconfig "github.com/m3rciful/funnelbot/core/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		Config:  coreconfig.Config{Telegram: coreconfig.TelegramConfig{Token: "t"}},
		Storage: StorageConfig{Driver: "Memory"},
		Funnel: FunnelConfig{
			ChannelID:      " @thedreamersguide ",
			OperatorChatID: 777,
			GuidePath:      "guide.pdf",
			PlannerPath:    "planner.png",
		},
	}
}

func TestNormalizeDefaults(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, Normalize(&cfg))
	assert.Equal(t, StorageMemory, cfg.Storage.Driver)
	assert.Equal(t, "@thedreamersguide", cfg.Funnel.ChannelID)
	assert.Equal(t, time.Hour, cfg.Funnel.ReminderDelay)
	assert.True(t, cfg.FallbackEnabled())
	assert.Equal(t, coreconfig.RunModeLongpoll, cfg.CoreConfig().Telegram.RunMode)
}

func TestNormalizeRejects(t *testing.T) {
	tests := map[string]func(c *Config){
		"missing token":    func(c *Config) { c.Telegram.Token = "" },
		"missing channel":  func(c *Config) { c.Funnel.ChannelID = "  " },
		"missing operator": func(c *Config) { c.Funnel.OperatorChatID = 0 },
		"missing planner":  func(c *Config) { c.Funnel.PlannerPath = "" },
		"negative delay":   func(c *Config) { c.Funnel.ReminderDelay = -time.Second },
		"unknown driver":   func(c *Config) { c.Storage.Driver = "mongo" },
		"postgres without dsn": func(c *Config) {
			c.Storage.Driver = ""
		},
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := validConfig()
			mutate(&cfg)
			assert.Error(t, Normalize(&cfg))
		})
	}
}

func TestLoadFromYAMLAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := `telegram:
  token: yaml-token
  run_mode: polling
database:
  host: localhost
  port: "5432"
  name: funnel
funnel:
  channel_id: "@thedreamersguide"
  operator_chat_id: 777
  guide_path: guide.pdf
  planner_path: planner.png
  reminder_delay: 90m
  fallback_reply: false
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))
	t.Setenv("OPERATOR_CHAT_ID", "888")
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/funnel?sslmode=disable")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "yaml-token", cfg.Telegram.Token)
	assert.Equal(t, int64(888), cfg.Funnel.OperatorChatID)
	assert.Equal(t, 90*time.Minute, cfg.Funnel.ReminderDelay)
	assert.False(t, cfg.FallbackEnabled())
	assert.Equal(t, StoragePostgres, cfg.Storage.Driver)
	assert.Equal(t, "postgres://u:p@db:5432/funnel?sslmode=disable", cfg.Database.URLString())
}

func TestLoadFromEnvOnly(t *testing.T) {
	t.Setenv("BOT_TOKEN", "env-token")
	t.Setenv("CHAT_ID", "-1001234567890")
	t.Setenv("OPERATOR_CHAT_ID", "777")
	t.Setenv("GUIDE_PATH", "guide.pdf")
	t.Setenv("PLANNER_PATH", "planner.png")
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("REMINDER_DELAY", "2h")
	t.Setenv("FALLBACK_REPLY", "true")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "-1001234567890", cfg.Funnel.ChannelID)
	assert.Equal(t, 2*time.Hour, cfg.Funnel.ReminderDelay)
	assert.True(t, cfg.FallbackEnabled())
}
