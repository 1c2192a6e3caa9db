package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete tasktickr configuration
type Config struct {
	Store   StoreConfig   `mapstructure:"store"`
	Price   PriceConfig   `mapstructure:"price"`
	Engine  EngineConfig  `mapstructure:"engine"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// StoreConfig controls where and how board state is persisted
type StoreConfig struct {
	// Path is the SQLite database file. If empty, the default path under
	// the user data directory is used. Supports ~ for home expansion.
	Path string `mapstructure:"path"`
	// CallTimeoutMs bounds each store call in milliseconds
	CallTimeoutMs int `mapstructure:"call_timeout_ms"`
}

// PriceConfig controls the shared price mechanics
type PriceConfig struct {
	// Starting is the seed price written when the database is first
	// created (default: "10.00"). Ignored for existing databases.
	Starting string `mapstructure:"starting"`
	// BonusPercent is the fraction of the current price awarded per
	// completion (default: 0.05 for 5%)
	BonusPercent float64 `mapstructure:"bonus_percent"`
}

// EngineConfig controls reconciler behavior
type EngineConfig struct {
	// ConflictRetries is how many times a completion write is retried
	// after losing a price-write race (default: 3)
	ConflictRetries int `mapstructure:"conflict_retries"`
}

// LoggingConfig controls debug logging behavior
type LoggingConfig struct {
	// Enabled controls whether debug logging is enabled (default: true)
	Enabled bool `mapstructure:"enabled"`
	// Level is the log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level"`
}

// CallTimeout returns the store call timeout as a time.Duration
func (s *StoreConfig) CallTimeout() time.Duration {
	return time.Duration(s.CallTimeoutMs) * time.Millisecond
}

// ResolvePath returns the resolved database file path. If Path is empty,
// it returns the default file under the user data directory. A leading ~
// expands to the user's home directory.
func (s *StoreConfig) ResolvePath() string {
	if s.Path == "" {
		return filepath.Join(DataDir(), "tasktickr.db")
	}

	path := s.Path
	if len(path) >= 2 && path[:2] == "~/" {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[2:])
		}
	}
	return path
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			Path:          "", // Empty means use default: <data dir>/tasktickr.db
			CallTimeoutMs: 5000,
		},
		Price: PriceConfig{
			Starting:     "10.00",
			BonusPercent: 0.05,
		},
		Engine: EngineConfig{
			ConflictRetries: 3,
		},
		Logging: LoggingConfig{
			Enabled: true,
			Level:   "info",
		},
	}
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// Store defaults
	viper.SetDefault("store.path", defaults.Store.Path)
	viper.SetDefault("store.call_timeout_ms", defaults.Store.CallTimeoutMs)

	// Price defaults
	viper.SetDefault("price.starting", defaults.Price.Starting)
	viper.SetDefault("price.bonus_percent", defaults.Price.BonusPercent)

	// Engine defaults
	viper.SetDefault("engine.conflict_retries", defaults.Engine.ConflictRetries)

	// Logging defaults
	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration (convenience function)
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		// Fall back to defaults if unmarshaling fails
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "tasktickr")
	}
	// Fall back to ~/.config/tasktickr
	home, err := os.UserHomeDir()
	if err != nil {
		return ".tasktickr"
	}
	return filepath.Join(home, ".config", "tasktickr")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// DataDir returns the path to the user's data directory
func DataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "tasktickr")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".tasktickr"
	}
	return filepath.Join(home, ".local", "share", "tasktickr")
}
