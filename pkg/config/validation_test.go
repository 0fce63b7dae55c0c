package config

import (
	"strings"
	"testing"
	"time"
)

func TestValidate_ValidConfig(t *testing.T) {
	cfg := GetDefaultConfig()

	err := Validate(cfg)
	if err != nil {
		t.Errorf("Expected valid config to pass validation, got error: %v", err)
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Level = "INVALID"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for invalid log level")
	}
	if !strings.Contains(err.Error(), "oneof") {
		t.Errorf("Expected 'oneof' validation error, got: %v", err)
	}
}

func TestValidate_InvalidStoreType(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Store.Type = "postgres"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for unknown store type")
	}
}

func TestValidate_InvalidContentType(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Content.Type = "invalid"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for invalid content type")
	}
}

func TestValidate_InvalidNotificationSink(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Notifications.Sink = "webhook"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for unknown notification sink")
	}
}

func TestValidate_LockTTLOrdering(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Locks.DefaultTTL = time.Hour
	cfg.Locks.MaxTTL = time.Minute

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for max_ttl < default_ttl")
	}
	if !strings.Contains(err.Error(), "max_ttl") {
		t.Errorf("Expected 'max_ttl' error, got: %v", err)
	}
}

func TestValidate_BadgerRequiresPath(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Store.Type = "badger"
	cfg.Store.Badger["path"] = ""

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for missing badger path")
	}
}

func TestValidate_S3RequiresBucketAndRegion(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Content.Type = "s3"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for missing S3 bucket")
	}
	if !strings.Contains(err.Error(), "bucket") {
		t.Errorf("Expected 'bucket' error, got: %v", err)
	}

	cfg.Content.S3["bucket"] = "davtree-content"
	err = Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for missing S3 region")
	}
	if !strings.Contains(err.Error(), "region") {
		t.Errorf("Expected 'region' error, got: %v", err)
	}

	cfg.Content.S3["region"] = "eu-west-1"
	if err := Validate(cfg); err != nil {
		t.Errorf("Expected valid S3 config to pass, got: %v", err)
	}
}

func TestValidate_ZeroShutdownTimeout(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Server.ShutdownTimeout = 0

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for zero shutdown timeout")
	}
}

func TestValidate_ZeroGCInterval(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.GC.Interval = 0

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for zero gc interval")
	}
}
