package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/bulkget/bulkget/internal/service/fetcher"
)

// Config represents the entire application configuration
type Config struct {
	Download DownloadConfig `mapstructure:"download"`
	History  HistoryConfig  `mapstructure:"history"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// DownloadConfig contains batch download settings
type DownloadConfig struct {
	Directory        string            `mapstructure:"directory"`
	Concurrency      int               `mapstructure:"concurrency"`
	Retries          int               `mapstructure:"retries"`
	Resume           bool              `mapstructure:"resume"`
	Headers          map[string]string `mapstructure:"headers"`
	Proxy            string            `mapstructure:"proxy"`
	BufferSizeKB     int               `mapstructure:"buffer_size_kb"`
	ProgressInterval string            `mapstructure:"progress_interval"`
}

// HistoryConfig contains the download history database settings
type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load loads configuration from the specified YAML file. An empty path loads
// defaults and environment variables only.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("download.directory", ".")
	v.SetDefault("download.concurrency", 32)
	v.SetDefault("download.retries", 0)
	v.SetDefault("download.resume", true)
	v.SetDefault("download.proxy", "")
	v.SetDefault("download.buffer_size_kb", 256)
	v.SetDefault("download.progress_interval", "10s")
	v.SetDefault("history.enabled", true)
	v.SetDefault("history.path", "")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	// Environment variables override file values, e.g. BULKGET_DOWNLOAD_RETRIES
	v.SetEnvPrefix("bulkget")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Download.Concurrency < 1 || c.Download.Concurrency > fetcher.MaxConcurrency {
		return fmt.Errorf("download.concurrency must be between 1 and %d", fetcher.MaxConcurrency)
	}
	if c.Download.Retries < 0 {
		return fmt.Errorf("download.retries must be non-negative")
	}
	if c.Download.BufferSizeKB <= 0 {
		return fmt.Errorf("download.buffer_size_kb must be positive")
	}
	if _, err := time.ParseDuration(c.Download.ProgressInterval); err != nil {
		return fmt.Errorf("invalid download.progress_interval: %w", err)
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging.level: %s", c.Logging.Level)
	}

	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("invalid logging.format: %s", c.Logging.Format)
	}

	return nil
}

// GetProgressInterval returns the progress interval as time.Duration
func (c *DownloadConfig) GetProgressInterval() time.Duration {
	d, _ := time.ParseDuration(c.ProgressInterval)
	if d == 0 {
		return 10 * time.Second
	}
	return d
}

// GetBufferSize returns the streaming buffer size in bytes
func (c *DownloadConfig) GetBufferSize() int {
	if c.BufferSizeKB <= 0 {
		return 256 * 1024
	}
	return c.BufferSizeKB * 1024
}
