package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate validates the configuration using struct tags and custom rules.
//
// This function uses go-playground/validator for declarative validation
// via struct tags, with additional custom validation for complex rules
// that cannot be expressed in tags.
//
// Note: Log level normalization is handled in ApplyDefaults, not here.
// Validation accepts both uppercase and lowercase log levels.
//
// Returns an error describing validation failures.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	if err := validateCustomRules(cfg); err != nil {
		return err
	}

	return nil
}

// validateCustomRules performs custom validation beyond struct tags.
func validateCustomRules(cfg *Config) error {
	if cfg.Locks.MaxTTL < cfg.Locks.DefaultTTL {
		return fmt.Errorf("locks: max_ttl (%s) must not be shorter than default_ttl (%s)",
			cfg.Locks.MaxTTL, cfg.Locks.DefaultTTL)
	}

	if cfg.Store.Type == "badger" {
		path, _ := cfg.Store.Badger["path"].(string)
		if path == "" {
			return fmt.Errorf("store.badger: path is required")
		}
	}

	if cfg.Content.Type == "s3" {
		bucket, _ := cfg.Content.S3["bucket"].(string)
		if bucket == "" {
			return fmt.Errorf("content.s3: bucket is required")
		}
		region, _ := cfg.Content.S3["region"].(string)
		if region == "" {
			return fmt.Errorf("content.s3: region is required")
		}
	}

	return nil
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		// Return the first validation error with context
		if len(validationErrs) > 0 {
			e := validationErrs[0]
			return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
				e.Namespace(), e.Tag(), e.Value())
		}
	}
	return err
}
