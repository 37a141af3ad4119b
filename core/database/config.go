package database

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config holds database connection settings. URL takes precedence over the
// discrete fields when set.
type Config struct {
	URL            string `yaml:"url" envconfig:"DATABASE_URL"`
	Host           string `yaml:"host" envconfig:"DB_HOST"`
	Port           string `yaml:"port" envconfig:"DB_PORT"`
	User           string `yaml:"user" envconfig:"DB_USER"`
	Password       string `yaml:"password" envconfig:"DB_PASSWORD"`
	Name           string `yaml:"name" envconfig:"DB_NAME"`
	SSLMode        string `yaml:"sslmode" envconfig:"DB_SSLMODE"`
	MaxConnections int    `yaml:"max_connections" envconfig:"DB_MAX_CONNECTIONS"`
	MigrationsDir  string `yaml:"migrations_dir" envconfig:"DB_MIGRATIONS_DIR"`
	// WaitSeconds bounds how long Connect waits for the server; 0 means 30s.
	WaitSeconds int `yaml:"wait_seconds" envconfig:"DB_WAIT_SECONDS"`
}

func (c Config) wait() time.Duration {
	if c.WaitSeconds > 0 {
		return time.Duration(c.WaitSeconds) * time.Second
	}
	return defaultWait
}

// URLString returns the connection string in postgres:// form, which both
// lib/pq and golang-migrate accept.
func (c Config) URLString() string {
	if u := strings.TrimSpace(c.URL); u != "" {
		return u
	}
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%s", c.Host, c.Port),
		Path:     "/" + c.Name,
		RawQuery: url.Values{"sslmode": {sslMode}}.Encode(),
	}
	return u.String()
}

// Target describes the database for log lines without leaking credentials.
func (c Config) Target() (host, port, name string) {
	raw := strings.TrimSpace(c.URL)
	if raw == "" {
		return c.Host, c.Port, c.Name
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", ""
	}
	return u.Hostname(), u.Port(), strings.TrimPrefix(u.Path, "/")
}
