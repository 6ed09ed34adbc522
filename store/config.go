package store

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config holds run-store configuration.
type Config struct {
	// Path is the SQLite database file. ":memory:" keeps the store in memory.
	Path string `yaml:"path" mapstructure:"path"`

	// MaxRetries is the number of open attempts before giving up.
	MaxRetries int `yaml:"max_retries" mapstructure:"max_retries"`

	// RetryBackoff is the initial delay between open attempts (e.g. "500ms").
	RetryBackoff string `yaml:"retry_backoff" mapstructure:"retry_backoff"`

	// LogLevel controls query logging: silent, error, warn, info.
	LogLevel string `yaml:"log_level" mapstructure:"log_level"`

	// SlowQueryThreshold is the duration above which queries are logged as slow (e.g. "200ms").
	SlowQueryThreshold string `yaml:"slow_query_threshold" mapstructure:"slow_query_threshold"`
}

// ApplyDefaults sets sensible defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Path == "" {
		c.Path = defaultPath()
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.RetryBackoff == "" {
		c.RetryBackoff = "500ms"
	}
	if c.LogLevel == "" {
		c.LogLevel = "warn"
	}
	if c.SlowQueryThreshold == "" {
		c.SlowQueryThreshold = "200ms"
	}
}

// Validate checks that required fields are present and parseable.
func (c *Config) Validate() error {
	if c.Path == "" {
		return fmt.Errorf("store path is required")
	}
	if c.MaxRetries <= 0 {
		return fmt.Errorf("max_retries must be > 0")
	}
	if _, err := time.ParseDuration(c.RetryBackoff); err != nil {
		return fmt.Errorf("invalid retry_backoff %q: %w", c.RetryBackoff, err)
	}
	switch c.LogLevel {
	case "silent", "error", "warn", "info":
	default:
		return fmt.Errorf("log_level must be one of [silent, error, warn, info] (got: %s)", c.LogLevel)
	}
	if _, err := time.ParseDuration(c.SlowQueryThreshold); err != nil {
		return fmt.Errorf("invalid slow_query_threshold %q: %w", c.SlowQueryThreshold, err)
	}
	return nil
}

// defaultPath puts the store under the user's flowkit directory, falling
// back to the working directory when no home is available.
func defaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "flowkit.db"
	}
	return filepath.Join(home, ".flowkit", "flowkit.db")
}
