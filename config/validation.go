package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ConfigRequirements defines required configuration for each environment
type ConfigRequirements struct {
	RequireSessionSecret bool
	RequireDBPassword    bool
}

var requirements = map[Environment]ConfigRequirements{
	Development: {},
	Test:        {},
	CI:          {RequireSessionSecret: true},
	Production:  {RequireSessionSecret: true, RequireDBPassword: true},
}

var allowedValues = map[string][]string{
	"DB_DRIVER":        {"postgres", "sqlite"},
	"SESSION_BACKEND":  {"memory", "redis"},
	"GUARD_MODE":       {GuardLegacy, GuardStrict},
	"STORAGE_PROVIDER": {"local", "s3"},
}

// ValidateConfig checks if the configuration meets the requirements for the current environment
func ValidateConfig(cfg *Config) error {
	env := GetEnvironment()
	reqs := requirements[env]

	var errs []string
	add := func(field, msg string) {
		errs = append(errs, ValidationError{Field: field, Message: msg}.Error())
	}

	if cfg.ServerPort == "" {
		add("SERVER_PORT", "is required")
	}

	enumValues := map[string]string{
		"DB_DRIVER":        cfg.DBDriver,
		"SESSION_BACKEND":  cfg.SessionBackend,
		"GUARD_MODE":       cfg.GuardMode,
		"STORAGE_PROVIDER": cfg.StorageProvider,
	}
	for field, value := range enumValues {
		if !contains(allowedValues[field], value) {
			add(field, fmt.Sprintf("must be one of %s, got %q", strings.Join(allowedValues[field], ", "), value))
		}
	}

	if cfg.DBDriver == "sqlite" && cfg.DBPath == "" {
		add("DB_PATH", "is required for the sqlite driver")
	}
	if cfg.DBDriver == "postgres" && reqs.RequireDBPassword && cfg.DBPassword == "" {
		add("db_password", "secret is required")
	}
	if reqs.RequireSessionSecret && cfg.SessionSecret == "" {
		add("session_secret", "secret is required")
	}
	if cfg.SessionTTL <= 0 {
		add("SESSION_TTL", "must be positive")
	}
	if cfg.StorageProvider == "s3" && cfg.S3BucketName == "" {
		add("S3_BUCKET_NAME", "is required for the s3 storage provider")
	}
	if cfg.RateLimitEnabled && (cfg.RateLimitCreatePerHour <= 0 || cfg.RateLimitModifyPerHour <= 0) {
		add("RATE_LIMIT_*", "limits must be positive when rate limiting is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n%s", strings.Join(errs, "\n"))
	}

	return nil
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
