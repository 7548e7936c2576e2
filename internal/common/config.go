package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for Tidemark.
type Config struct {
	Provider ProviderConfig `toml:"provider"`
	Storage  StorageConfig  `toml:"storage"`
	Sync     SyncConfig     `toml:"sync"`
	Logging  LoggingConfig  `toml:"logging"`
}

// ProviderConfig holds EODHD API configuration.
type ProviderConfig struct {
	BaseURL   string `toml:"base_url"`
	APIKey    string `toml:"api_key"`
	RateLimit int    `toml:"rate_limit"` // requests per second
	PoolSize  int    `toml:"pool_size"`  // max concurrent in-flight calls
	Retries   int    `toml:"retries"`    // extra attempts after a timeout
	Timeout   string `toml:"timeout"`
}

// GetTimeout parses and returns the per-request timeout duration.
func (c *ProviderConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// StorageConfig holds the path of the BadgerHold data directory.
type StorageConfig struct {
	Path string `toml:"path"`
}

// SyncConfig holds synchronization tuning.
type SyncConfig struct {
	// BulkWindowDays is the largest common fetch window, in days, still
	// served by the per-exchange bulk endpoint instead of per-instrument
	// history calls.
	BulkWindowDays int `toml:"bulk_window_days"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `toml:"level"`
}

// NewDefaultConfig returns a Config with sensible defaults.
func NewDefaultConfig() *Config {
	return &Config{
		Provider: ProviderConfig{
			BaseURL:   "https://eodhd.com/api",
			RateLimit: 10,
			PoolSize:  8,
			Retries:   3,
			Timeout:   "30s",
		},
		Storage: StorageConfig{
			Path: "data/tidemark",
		},
		Sync: SyncConfig{
			BulkWindowDays: 5,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides.
// Later files override earlier ones; missing files are skipped.
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config.
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("TIDEMARK_API_KEY"); v != "" {
		config.Provider.APIKey = v
	}
	if v := os.Getenv("EODHD_API_KEY"); v != "" && config.Provider.APIKey == "" {
		config.Provider.APIKey = v
	}
	if v := os.Getenv("TIDEMARK_BASE_URL"); v != "" {
		config.Provider.BaseURL = v
	}
	if v := os.Getenv("TIDEMARK_DATA_PATH"); v != "" {
		config.Storage.Path = v
	}
	if v := os.Getenv("TIDEMARK_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
	if v := os.Getenv("TIDEMARK_POOL_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.Provider.PoolSize = n
		}
	}
}
