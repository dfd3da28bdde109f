// Package config loads the vellum CLI configuration from the environment.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/syssam/vellum/dialect"
)

// Prefix is prepended to every environment variable name.
const Prefix = "VELLUM_"

// Config represents the CLI configuration.
type Config struct {
	Database DatabaseConfig
	Paging   PagingConfig
	Logging  LoggingConfig
}

// DatabaseConfig represents the connection settings.
type DatabaseConfig struct {
	Dialect       string        `env:"DIALECT"        envDefault:"sqlite"`
	Driver        string        `env:"DRIVER"`                              // database/sql driver name, derived from the dialect when empty
	DSN           string        `env:"DSN"            envDefault:"file:vellum.db"`
	Schema        string        `env:"SCHEMA"`                              // default schema, provider default when empty
	SlowThreshold time.Duration `env:"SLOW_THRESHOLD" envDefault:"200ms"`
	Validate      bool          `env:"VALIDATE"       envDefault:"true"`
}

// PagingConfig represents pagination defaults.
type PagingConfig struct {
	Size int `env:"PAGE_SIZE" envDefault:"50"`
}

// LoggingConfig represents logging configuration.
type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL"  envDefault:"warn"` // debug, info, warn, error
	Format string `env:"LOG_FORMAT" envDefault:"text"` // text, json
}

var drivers = map[string]string{
	dialect.Postgres:  "postgres",
	dialect.MySQL:     "mysql",
	dialect.SQLite:    "sqlite",
	dialect.SQLServer: "sqlserver",
	dialect.Oracle:    "oracle",
}

// Load reads the configuration from the environment and validates it.
func Load() (*Config, error) {
	return LoadEnv(nil)
}

// LoadEnv is like Load but reads from environ when it is not nil.
func LoadEnv(environ map[string]string) (*Config, error) {
	cfg := &Config{}
	opts := env.Options{Prefix: Prefix}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("config: parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate normalizes the dialect name, fills the driver name and checks
// the remaining settings.
func (c *Config) Validate() error {
	d, err := dialect.Normalize(c.Database.Dialect)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	c.Database.Dialect = d
	if c.Database.Driver == "" {
		c.Database.Driver = drivers[d]
	}
	if c.Database.SlowThreshold < 0 {
		return fmt.Errorf("config: negative slow query threshold %s", c.Database.SlowThreshold)
	}
	if c.Paging.Size < 1 {
		return fmt.Errorf("config: page size must be positive, got %d", c.Paging.Size)
	}
	if _, err := c.Logging.level(); err != nil {
		return err
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("config: invalid log format %q (valid: text, json)", c.Logging.Format)
	}
	return nil
}

func (l LoggingConfig) level() (slog.Level, error) {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("config: invalid log level %q (valid: debug, info, warn, error)", l.Level)
}

// SlogLevel returns the configured slog level, or slog.LevelWarn when the
// configuration has not been validated.
func (l LoggingConfig) SlogLevel() slog.Level {
	lvl, err := l.level()
	if err != nil {
		return slog.LevelWarn
	}
	return lvl
}

// JSON reports whether logs are written as JSON.
func (l LoggingConfig) JSON() bool {
	return strings.EqualFold(l.Format, "json")
}
