// Package config loads the ASI server's TOML configuration, adapted from
// the companion app's config package but trimmed to the knobs this service
// needs: the HTTP server, the bigram store connection, and the recognized
// format list.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the ASI server's configuration.
type Config struct {
	Server ServerConfig `toml:"server"`
	Store  StoreConfig  `toml:"store"`
	App    AppConfig    `toml:"app"`
}

// ServerConfig contains HTTP listener and rate-limiting settings.
type ServerConfig struct {
	Port            int    `toml:"port"`
	ReadTimeout     string `toml:"read_timeout"`
	WriteTimeout    string `toml:"write_timeout"`
	RateLimitPerSec int    `toml:"rate_limit_per_sec"`
	RateLimitBurst  int    `toml:"rate_limit_burst"`
}

// StoreConfig contains bigram store connection settings.
type StoreConfig struct {
	DBPath      string   `toml:"db_path"`
	AutoMigrate bool     `toml:"auto_migrate"`
	Formats     []string `toml:"formats"`
}

// AppConfig contains general application settings.
type AppConfig struct {
	DebugMode bool `toml:"debug_mode"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     "15s",
			WriteTimeout:    "60s",
			RateLimitPerSec: 10,
			RateLimitBurst:  20,
		},
		Store: StoreConfig{
			DBPath:      "./asi.db",
			AutoMigrate: true,
			Formats:     []string{"standard", "pioneer", "modern", "legacy", "vintage", "pauper"},
		},
		App: AppConfig{
			DebugMode: false,
		},
	}
}

// Load reads the configuration from the given TOML file path. If the file
// does not exist, it returns the default configuration.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	return config, nil
}

// Save writes the configuration to the given TOML file path.
func (c *Config) Save(path string) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate validates the configuration values.
func (c *Config) Validate() error {
	if _, err := time.ParseDuration(c.Server.ReadTimeout); err != nil {
		return fmt.Errorf("invalid read timeout %q: %w", c.Server.ReadTimeout, err)
	}
	if _, err := time.ParseDuration(c.Server.WriteTimeout); err != nil {
		return fmt.Errorf("invalid write timeout %q: %w", c.Server.WriteTimeout, err)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if len(c.Store.Formats) == 0 {
		return fmt.Errorf("at least one format must be configured")
	}
	if c.Server.RateLimitPerSec <= 0 {
		return fmt.Errorf("rate limit per second must be positive: %d", c.Server.RateLimitPerSec)
	}
	return nil
}

// ReadTimeoutDuration returns the configured read timeout as a duration.
func (c *Config) ReadTimeoutDuration() (time.Duration, error) {
	return time.ParseDuration(c.Server.ReadTimeout)
}

// WriteTimeoutDuration returns the configured write timeout as a duration.
func (c *Config) WriteTimeoutDuration() (time.Duration, error) {
	return time.ParseDuration(c.Server.WriteTimeout)
}
