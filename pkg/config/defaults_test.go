package config

import (
	"testing"
	"time"
)

func TestApplyDefaults_EmptyConfig(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected default log level INFO, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Output != "stdout" {
		t.Errorf("Expected default log output stdout, got %q", cfg.Logging.Output)
	}
	if cfg.Server.ListenAddress != ":8080" {
		t.Errorf("Expected default listen address :8080, got %q", cfg.Server.ListenAddress)
	}
	if cfg.Server.ShutdownTimeout != 30*time.Second {
		t.Errorf("Expected default shutdown timeout 30s, got %s", cfg.Server.ShutdownTimeout)
	}
	if cfg.Store.Type != "memory" {
		t.Errorf("Expected default store type memory, got %q", cfg.Store.Type)
	}
	if cfg.Content.Type != "memory" {
		t.Errorf("Expected default content type memory, got %q", cfg.Content.Type)
	}
	if cfg.Locks.DefaultTTL != 10*time.Minute {
		t.Errorf("Expected default lock TTL 10m, got %s", cfg.Locks.DefaultTTL)
	}
	if cfg.Locks.MaxTTL != time.Hour {
		t.Errorf("Expected default max lock TTL 1h, got %s", cfg.Locks.MaxTTL)
	}
	if cfg.Notifications.Sink != "log" {
		t.Errorf("Expected default notification sink log, got %q", cfg.Notifications.Sink)
	}
	if cfg.Notifications.BufferSize != 64 {
		t.Errorf("Expected default notification buffer 64, got %d", cfg.Notifications.BufferSize)
	}
}

func TestApplyDefaults_NormalizesLogLevel(t *testing.T) {
	cfg := &Config{}
	cfg.Logging.Level = "debug"
	ApplyDefaults(cfg)

	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("Expected log level normalized to DEBUG, got %q", cfg.Logging.Level)
	}
}

func TestApplyDefaults_PreservesExplicitValues(t *testing.T) {
	cfg := &Config{}
	cfg.Store.Type = "badger"
	cfg.Server.ShutdownTimeout = 5 * time.Second
	cfg.Locks.DefaultTTL = time.Minute
	ApplyDefaults(cfg)

	if cfg.Store.Type != "badger" {
		t.Errorf("Expected explicit store type preserved, got %q", cfg.Store.Type)
	}
	if cfg.Server.ShutdownTimeout != 5*time.Second {
		t.Errorf("Expected explicit shutdown timeout preserved, got %s", cfg.Server.ShutdownTimeout)
	}
	if cfg.Locks.DefaultTTL != time.Minute {
		t.Errorf("Expected explicit lock TTL preserved, got %s", cfg.Locks.DefaultTTL)
	}
}

func TestApplyDefaults_BadgerPath(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	path, ok := cfg.Store.Badger["path"].(string)
	if !ok || path == "" {
		t.Errorf("Expected a default badger path, got %v", cfg.Store.Badger["path"])
	}
}

func TestGetDefaultConfig_IsValid(t *testing.T) {
	cfg := GetDefaultConfig()

	if err := Validate(cfg); err != nil {
		t.Errorf("GetDefaultConfig should produce a valid config, got: %v", err)
	}
}
