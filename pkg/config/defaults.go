package config

import (
	"strings"
	"time"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// This function is called after loading configuration from file and
// environment variables to fill in any missing values with sensible
// defaults.
//
// Default Strategy:
//   - Zero values (0, "", false, nil) are replaced with defaults
//   - Explicit values are preserved
//   - Store-specific defaults are handled by store implementations
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyServerDefaults(&cfg.Server)
	applyStoreDefaults(&cfg.Store)
	applyContentDefaults(&cfg.Content)
	applyLocksDefaults(&cfg.Locks)
	applyNotificationsDefaults(&cfg.Notifications)
	applyGCDefaults(&cfg.GC)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize log level to uppercase for consistent internal representation
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applyServerDefaults sets server defaults.
func applyServerDefaults(cfg *ServerConfig) {
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = ":8080"
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
}

// applyStoreDefaults sets tree store defaults.
func applyStoreDefaults(cfg *StoreConfig) {
	if cfg.Type == "" {
		cfg.Type = "memory"
	}

	if cfg.Memory == nil {
		cfg.Memory = make(map[string]any)
	}
	if cfg.Badger == nil {
		cfg.Badger = make(map[string]any)
	}

	if _, ok := cfg.Badger["path"]; !ok {
		cfg.Badger["path"] = "/var/lib/davtree/store"
	}
}

// applyContentDefaults sets content store defaults.
func applyContentDefaults(cfg *ContentConfig) {
	if cfg.Type == "" {
		cfg.Type = "memory"
	}

	if cfg.Memory == nil {
		cfg.Memory = make(map[string]any)
	}
	if cfg.S3 == nil {
		cfg.S3 = make(map[string]any)
	}
}

// applyLocksDefaults sets lock defaults.
func applyLocksDefaults(cfg *LocksConfig) {
	if cfg.DefaultTTL == 0 {
		cfg.DefaultTTL = 10 * time.Minute
	}
	if cfg.MaxTTL == 0 {
		cfg.MaxTTL = time.Hour
	}
}

// applyNotificationsDefaults sets notification defaults.
func applyNotificationsDefaults(cfg *NotificationsConfig) {
	if cfg.Sink == "" {
		cfg.Sink = "log"
	}
	if cfg.BufferSize == 0 {
		cfg.BufferSize = 64
	}
}

// applyGCDefaults sets garbage collection defaults.
func applyGCDefaults(cfg *GCConfig) {
	if cfg.Interval == 0 {
		cfg.Interval = 24 * time.Hour
	}
}

// GetDefaultConfig returns a configuration with all defaults applied.
//
// Useful for tests and for generating a starter config file.
func GetDefaultConfig() *Config {
	cfg := &Config{
		Store: StoreConfig{
			Memory: make(map[string]any),
			Badger: make(map[string]any),
		},
		Content: ContentConfig{
			Memory: make(map[string]any),
			S3:     make(map[string]any),
		},
	}
	ApplyDefaults(cfg)
	return cfg
}
