package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_NoConfigFile(t *testing.T) {
	// Point the default search path at an empty directory so a developer's
	// real config file cannot leak into the test.
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load with no config file should fall back to defaults, got: %v", err)
	}

	if cfg.Store.Type != "memory" {
		t.Errorf("Expected default store type memory, got %q", cfg.Store.Type)
	}
	if cfg.Content.Type != "memory" {
		t.Errorf("Expected default content type memory, got %q", cfg.Content.Type)
	}
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
logging:
  level: debug
server:
  listen_address: "127.0.0.1:9090"
  shutdown_timeout: 10s
store:
  type: badger
  badger:
    path: /tmp/davtree-test-store
locks:
  default_ttl: 2m
  max_ttl: 20m
notifications:
  sink: channel
  buffer_size: 128
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("Expected log level DEBUG, got %q", cfg.Logging.Level)
	}
	if cfg.Server.ListenAddress != "127.0.0.1:9090" {
		t.Errorf("Expected listen address 127.0.0.1:9090, got %q", cfg.Server.ListenAddress)
	}
	if cfg.Server.ShutdownTimeout != 10*time.Second {
		t.Errorf("Expected shutdown timeout 10s, got %s", cfg.Server.ShutdownTimeout)
	}
	if cfg.Store.Type != "badger" {
		t.Errorf("Expected store type badger, got %q", cfg.Store.Type)
	}
	if got := cfg.Store.Badger["path"]; got != "/tmp/davtree-test-store" {
		t.Errorf("Expected badger path from file, got %v", got)
	}
	if cfg.Locks.DefaultTTL != 2*time.Minute {
		t.Errorf("Expected lock default TTL 2m, got %s", cfg.Locks.DefaultTTL)
	}
	if cfg.Notifications.Sink != "channel" {
		t.Errorf("Expected channel sink, got %q", cfg.Notifications.Sink)
	}
	if cfg.Notifications.BufferSize != 128 {
		t.Errorf("Expected buffer size 128, got %d", cfg.Notifications.BufferSize)
	}
}

func TestLoad_InvalidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("store:\n  type: [broken"), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("Expected error for malformed config file")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("store:\n  type: cassandra\n"), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("Expected validation error for unknown store type")
	}
}
