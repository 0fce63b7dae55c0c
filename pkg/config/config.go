package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete davtree configuration.
//
// This structure captures all configurable aspects of the davtree engine
// including:
//   - Logging configuration
//   - Server-wide settings (ops HTTP endpoint, shutdown)
//   - Tree store selection and configuration (store-specific)
//   - Content store selection and configuration (store-specific)
//   - Lock, quota and notification behavior
//
// Configuration sources (in order of precedence):
//  1. Environment variables (DAVTREE_*)
//  2. Configuration file (YAML or TOML)
//  3. Default values (lowest priority)
//
// Store Configuration Pattern:
// Each store implementation defines its own configuration type and factory
// function. The Config struct contains type-specific sections (e.g.
// store.badger, content.s3) and only the section matching the selected
// type is used.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging"`

	// Server contains server-wide settings
	Server ServerConfig `mapstructure:"server"`

	// Store specifies the tree store type and type-specific configuration
	Store StoreConfig `mapstructure:"store"`

	// Content specifies the content store type and type-specific configuration
	Content ContentConfig `mapstructure:"content"`

	// Locks controls lock token behavior
	Locks LocksConfig `mapstructure:"locks"`

	// Quota controls storage quota enforcement
	Quota QuotaConfig `mapstructure:"quota"`

	// Notifications controls the change notification sink
	Notifications NotificationsConfig `mapstructure:"notifications"`

	// Metrics controls Prometheus metrics collection
	Metrics MetricsConfig `mapstructure:"metrics"`

	// GC controls orphaned-content garbage collection
	GC GCConfig `mapstructure:"gc"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required"`
}

// ServerConfig contains server-wide settings.
type ServerConfig struct {
	// ListenAddress is the ops HTTP endpoint (health, metrics)
	ListenAddress string `mapstructure:"listen_address" validate:"required"`

	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0"`
}

// StoreConfig specifies tree store configuration.
//
// The Type field determines which store implementation is used.
// Only the corresponding type-specific configuration section is used.
type StoreConfig struct {
	// Type specifies which tree store implementation to use
	// Valid values: memory, badger
	Type string `mapstructure:"type" validate:"required,oneof=memory badger"`

	// Memory contains memory-specific configuration
	// Only used when Type = "memory"
	Memory map[string]any `mapstructure:"memory"`

	// Badger contains BadgerDB-specific configuration
	// Only used when Type = "badger"
	Badger map[string]any `mapstructure:"badger"`
}

// ContentConfig specifies content store configuration.
//
// The Type field determines which store implementation is used.
// Only the corresponding type-specific configuration section is used.
type ContentConfig struct {
	// Type specifies which content store implementation to use
	// Valid values: memory, s3
	Type string `mapstructure:"type" validate:"required,oneof=memory s3"`

	// Memory contains memory-specific configuration
	// Only used when Type = "memory"
	Memory map[string]any `mapstructure:"memory"`

	// S3 contains S3-specific configuration
	// Only used when Type = "s3"
	S3 map[string]any `mapstructure:"s3"`
}

// LocksConfig controls lock token behavior.
type LocksConfig struct {
	// DefaultTTL is the lifetime of a lock when the caller does not ask
	// for one.
	DefaultTTL time.Duration `mapstructure:"default_ttl" validate:"required,gt=0"`

	// MaxTTL caps the lifetime a caller may request.
	MaxTTL time.Duration `mapstructure:"max_ttl" validate:"required,gt=0"`
}

// QuotaConfig controls storage quota enforcement.
type QuotaConfig struct {
	// TotalBytes is the configured storage capacity. Zero disables
	// enforcement.
	TotalBytes uint64 `mapstructure:"total_bytes"`
}

// NotificationsConfig controls the change notification sink.
type NotificationsConfig struct {
	// Sink selects the notification delivery mechanism
	// Valid values: log, channel, none
	Sink string `mapstructure:"sink" validate:"required,oneof=log channel none"`

	// BufferSize is the channel sink's buffer capacity
	// Only used when Sink = "channel"
	BufferSize int `mapstructure:"buffer_size" validate:"gte=0"`
}

// MetricsConfig controls Prometheus metrics collection.
type MetricsConfig struct {
	// Enabled turns metrics collection on
	Enabled bool `mapstructure:"enabled"`
}

// GCConfig controls orphaned-content garbage collection.
type GCConfig struct {
	// Enabled turns background garbage collection on
	Enabled bool `mapstructure:"enabled"`

	// Interval is how often collection runs
	Interval time.Duration `mapstructure:"interval" validate:"required,gt=0"`

	// DryRun logs what would be deleted without deleting
	DryRun bool `mapstructure:"dry_run"`

	// DeletesPerSecond throttles orphan deletion; zero means unthrottled
	DeletesPerSecond uint `mapstructure:"deletes_per_second"`
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (DAVTREE_*)
//  2. Configuration file
//  3. Default values
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: Configuration loading or validation error
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Environment variables use the DAVTREE_ prefix with underscores.
	// Example: DAVTREE_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("DAVTREE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default location: $XDG_CONFIG_HOME/davtree/config.{yaml,toml}
		configDir := getConfigDir()
		v.AddConfigPath(configDir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found is acceptable - use defaults
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to
// current directory (.) if the home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "davtree")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "davtree")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}
