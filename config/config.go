package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Guard modes for the authorization middleware.
const (
	GuardLegacy = "legacy"
	GuardStrict = "strict"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	ServerPort     string
	ServerHost     string
	AllowedOrigins []string

	// Database configuration
	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	DBPath     string

	// Redis configuration
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	RedisURL      string

	// Session configuration
	SessionBackend      string
	SessionSecret       string
	SessionTTL          time.Duration
	SessionCookieSecure bool

	// GuardMode selects legacy or strict authorization coverage
	GuardMode string

	// Upload storage
	UploadDir       string
	StorageProvider string
	S3BucketName    string
	AWSRegion       string

	// Rate limiting
	RateLimitEnabled       bool
	RateLimitCreatePerHour int
	RateLimitModifyPerHour int

	// Logging
	LogLevel  string
	LogFormat string
}

var defaults = map[string]interface{}{
	"SERVER_HOST":                "0.0.0.0",
	"SERVER_PORT":                "3001",
	"ALLOWED_ORIGINS":            "",
	"DB_DRIVER":                  "sqlite",
	"DB_HOST":                    "localhost",
	"DB_PORT":                    "5432",
	"DB_USER":                    "postgres",
	"DB_NAME":                    "recipebox",
	"DB_SSL_MODE":                "disable",
	"DB_PATH":                    "recipebox.db",
	"REDIS_HOST":                 "localhost",
	"REDIS_PORT":                 "6379",
	"REDIS_DB":                   0,
	"SESSION_BACKEND":            "memory",
	"SESSION_TTL":                "24h",
	"SESSION_COOKIE_SECURE":      false,
	"GUARD_MODE":                 GuardLegacy,
	"UPLOAD_DIR":                 "public/uploads",
	"STORAGE_PROVIDER":           "local",
	"S3_BUCKET_NAME":             "recipebox-uploads",
	"RATE_LIMIT_ENABLED":         false,
	"RATE_LIMIT_CREATE_PER_HOUR": 20,
	"RATE_LIMIT_MODIFY_PER_HOUR": 60,
	"LOG_LEVEL":                  "info",
	"LOG_FORMAT":                 "json",
}

// LoadConfig creates a new Config instance with values from environment variables or secrets
func LoadConfig() (*Config, error) {
	env := GetEnvironment()
	cfg := fromViper(newViper())

	// Load sensitive values based on environment
	switch env {
	case CI:
		if err := loadCIConfig(cfg); err != nil {
			return nil, fmt.Errorf("failed to load CI configuration: %w", err)
		}
	case Development, Test:
		loadDevConfig(cfg)
	case Production:
		loadProdConfig(cfg)
	default:
		return nil, fmt.Errorf("unknown environment: %s", env)
	}

	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	return v
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		ServerPort:             v.GetString("SERVER_PORT"),
		ServerHost:             v.GetString("SERVER_HOST"),
		AllowedOrigins:         splitList(v.GetString("ALLOWED_ORIGINS")),
		DBDriver:               strings.ToLower(v.GetString("DB_DRIVER")),
		DBHost:                 v.GetString("DB_HOST"),
		DBPort:                 v.GetString("DB_PORT"),
		DBUser:                 v.GetString("DB_USER"),
		DBPassword:             v.GetString("DB_PASSWORD"),
		DBName:                 v.GetString("DB_NAME"),
		DBSSLMode:              v.GetString("DB_SSL_MODE"),
		DBPath:                 v.GetString("DB_PATH"),
		RedisHost:              v.GetString("REDIS_HOST"),
		RedisPort:              v.GetString("REDIS_PORT"),
		RedisPassword:          v.GetString("REDIS_PASSWORD"),
		RedisDB:                v.GetInt("REDIS_DB"),
		RedisURL:               v.GetString("REDIS_URL"),
		SessionBackend:         strings.ToLower(v.GetString("SESSION_BACKEND")),
		SessionSecret:          v.GetString("SESSION_SECRET"),
		SessionTTL:             v.GetDuration("SESSION_TTL"),
		SessionCookieSecure:    v.GetBool("SESSION_COOKIE_SECURE"),
		GuardMode:              strings.ToLower(v.GetString("GUARD_MODE")),
		UploadDir:              v.GetString("UPLOAD_DIR"),
		StorageProvider:        strings.ToLower(v.GetString("STORAGE_PROVIDER")),
		S3BucketName:           v.GetString("S3_BUCKET_NAME"),
		AWSRegion:              v.GetString("AWS_REGION"),
		RateLimitEnabled:       v.GetBool("RATE_LIMIT_ENABLED"),
		RateLimitCreatePerHour: v.GetInt("RATE_LIMIT_CREATE_PER_HOUR"),
		RateLimitModifyPerHour: v.GetInt("RATE_LIMIT_MODIFY_PER_HOUR"),
		LogLevel:               v.GetString("LOG_LEVEL"),
		LogFormat:              v.GetString("LOG_FORMAT"),
	}
}

// loadCIConfig loads sensitive values for CI from TEST_* environment variables
func loadCIConfig(cfg *Config) error {
	if pw := os.Getenv("TEST_DB_PASSWORD"); pw != "" {
		cfg.DBPassword = pw
	}
	if cfg.DBDriver == "postgres" && cfg.DBPassword == "" {
		return fmt.Errorf("TEST_DB_PASSWORD environment variable is required in CI environment")
	}
	if secret := os.Getenv("TEST_SESSION_SECRET"); secret != "" {
		cfg.SessionSecret = secret
	}
	if pw := os.Getenv("TEST_REDIS_PASSWORD"); pw != "" {
		cfg.RedisPassword = pw
	}
	if url := os.Getenv("TEST_REDIS_URL"); url != "" {
		cfg.RedisURL = url
	}
	return nil
}

// loadDevConfig overlays docker secrets when present and falls back to a fixed
// development session secret.
func loadDevConfig(cfg *Config) {
	overlaySecrets(cfg)
	if cfg.SessionSecret == "" {
		cfg.SessionSecret = "recipebox-development-secret"
	}
}

// loadProdConfig loads sensitive values for production from docker secrets only
func loadProdConfig(cfg *Config) {
	cfg.DBPassword = ""
	cfg.SessionSecret = ""
	cfg.RedisPassword = ""
	overlaySecrets(cfg)
}

func overlaySecrets(cfg *Config) {
	if v := readSecret("db_password"); v != "" {
		cfg.DBPassword = v
	}
	if v := readSecret("session_secret"); v != "" {
		cfg.SessionSecret = v
	}
	if v := readSecret("redis_password"); v != "" {
		cfg.RedisPassword = v
	}
	if v := readSecret("redis_url"); v != "" {
		cfg.RedisURL = v
	}
}

// readSecret reads a Docker secret from the secrets directory
func readSecret(name string) string {
	secretsDir := os.Getenv("SECRETS_DIR")
	if secretsDir == "" {
		secretsDir = "/run/secrets"
	}
	secretPath := filepath.Join(secretsDir, name)
	if data, err := os.ReadFile(secretPath); err == nil {
		return strings.TrimSpace(string(data))
	}
	return ""
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Addr returns the host:port the HTTP server listens on
func (c *Config) Addr() string {
	return c.ServerHost + ":" + c.ServerPort
}

// PostgresDSN builds the lib/pq connection string
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode,
	)
}
