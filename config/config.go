package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Logging   LoggingConfig   `mapstructure:"logging"`
	Provider  ProviderConfig  `mapstructure:"provider"`
	Worker    WorkerConfig    `mapstructure:"worker"`
	Validator ValidatorConfig `mapstructure:"validator"`
	Sanitizer SanitizerConfig `mapstructure:"sanitizer"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Mode  string `mapstructure:"mode"`
	Level string `mapstructure:"level"`
}

// ProviderConfig holds the tool provider connection configuration
type ProviderConfig struct {
	Command           string            `mapstructure:"command"`
	Args              []string          `mapstructure:"args"`
	Env               map[string]string `mapstructure:"env"`
	ConnectTimeoutSec int               `mapstructure:"connect_timeout_sec"`
	PingTimeoutSec    int               `mapstructure:"ping_timeout_sec"`
}

// WorkerConfig holds the request loop and execution configuration
type WorkerConfig struct {
	SettleDelayMs     int `mapstructure:"settle_delay_ms"`
	ExecuteTimeoutSec int `mapstructure:"execute_timeout_sec"`
}

// ValidatorConfig holds the code validation policy configuration.
// Deny and Warn extend the built-in policy; setting ReplaceBuiltin
// discards the built-in rules entirely.
type ValidatorConfig struct {
	MaxCodeBytes   int    `mapstructure:"max_code_bytes"`
	ReplaceBuiltin bool   `mapstructure:"replace_builtin"`
	Deny           []Rule `mapstructure:"deny"`
	Warn           []Rule `mapstructure:"warn"`
}

// Rule is a single validation pattern with its user-facing message
type Rule struct {
	Pattern string `mapstructure:"pattern"`
	Message string `mapstructure:"message"`
}

// SanitizerConfig holds the error sanitizer configuration
type SanitizerConfig struct {
	Patterns    []string `mapstructure:"patterns"`
	Replacement string   `mapstructure:"replacement"`
}

// CatalogConfig holds the static tool catalog configuration
type CatalogConfig struct {
	Path string `mapstructure:"path"`
}

// New loads and validates the application configuration
func New() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Set default values
	viper.SetDefault("logging.mode", "production")
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("provider.command", "")
	viper.SetDefault("provider.connect_timeout_sec", 30)
	viper.SetDefault("provider.ping_timeout_sec", 5)
	viper.SetDefault("worker.settle_delay_ms", 100)
	viper.SetDefault("worker.execute_timeout_sec", 0)
	viper.SetDefault("validator.max_code_bytes", 65536)
	viper.SetDefault("validator.replace_builtin", false)
	viper.SetDefault("sanitizer.replacement", "[redacted]")
	viper.SetDefault("catalog.path", "")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// If config file not found, continue with defaults
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Validate configuration
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation error: %w", err)
	}

	return &config, nil
}

// validate ensures the configuration is valid
func (c *Config) validate() error {
	if c.Logging.Mode != "production" && c.Logging.Mode != "development" {
		return fmt.Errorf("invalid logging.mode: %s, must be 'production' or 'development'", c.Logging.Mode)
	}

	if c.Provider.ConnectTimeoutSec <= 0 {
		return fmt.Errorf("provider.connect_timeout_sec must be positive, got: %d", c.Provider.ConnectTimeoutSec)
	}

	if c.Provider.PingTimeoutSec <= 0 {
		return fmt.Errorf("provider.ping_timeout_sec must be positive, got: %d", c.Provider.PingTimeoutSec)
	}

	if c.Worker.SettleDelayMs < 0 {
		return fmt.Errorf("worker.settle_delay_ms must not be negative, got: %d", c.Worker.SettleDelayMs)
	}

	if c.Worker.ExecuteTimeoutSec < 0 {
		return fmt.Errorf("worker.execute_timeout_sec must not be negative, got: %d", c.Worker.ExecuteTimeoutSec)
	}

	if c.Validator.MaxCodeBytes <= 0 {
		return fmt.Errorf("validator.max_code_bytes must be positive, got: %d", c.Validator.MaxCodeBytes)
	}

	return nil
}

// GetSettleDelay returns the post-execution settle delay as a duration
func (c *Config) GetSettleDelay() time.Duration {
	return time.Duration(c.Worker.SettleDelayMs) * time.Millisecond
}

// GetExecuteTimeout returns the snippet execution timeout as a duration.
// Zero means no timeout.
func (c *Config) GetExecuteTimeout() time.Duration {
	return time.Duration(c.Worker.ExecuteTimeoutSec) * time.Second
}

// GetConnectTimeout returns the provider connect timeout as a duration
func (c *Config) GetConnectTimeout() time.Duration {
	return time.Duration(c.Provider.ConnectTimeoutSec) * time.Second
}

// GetPingTimeout returns the provider health probe timeout as a duration
func (c *Config) GetPingTimeout() time.Duration {
	return time.Duration(c.Provider.PingTimeoutSec) * time.Second
}
