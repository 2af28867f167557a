package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the tenant service
type Config struct {
	// Server
	Port     string `env:"PORT" default:"9600"`
	Host     string `env:"HOST" default:"0.0.0.0"`
	LogLevel string `env:"LOG_LEVEL" default:"info"`

	// Database
	DatabaseURL     string `env:"DATABASE_URL" required:"true"`
	DatabaseSSLMode string `env:"DB_SSL_MODE" default:"require"`

	// Tokens
	JWTSecret string        `env:"JWT_SECRET" required:"true"`
	JWTIssuer string        `env:"JWT_ISSUER" default:"tenant-service"`
	TokenTTL  time.Duration `env:"TOKEN_TTL" default:"1h"`

	// Login disambiguation
	ChallengeTTL time.Duration `env:"CHALLENGE_TTL" default:"5m"`

	// Scheduler
	SchedulerInterval time.Duration `env:"SCHEDULER_INTERVAL" default:"1m"`

	// Features
	EnableScheduler bool `env:"ENABLE_SCHEDULER" default:"true"`
	EnableDebug     bool `env:"ENABLE_DEBUG" default:"false"`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	config := &Config{}

	// Server configuration
	config.Port = getEnvOrDefault("PORT", "9600")
	config.Host = getEnvOrDefault("HOST", "0.0.0.0")
	config.LogLevel = getEnvOrDefault("LOG_LEVEL", "info")

	// Database configuration
	config.DatabaseURL = os.Getenv("DATABASE_URL")
	if config.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	config.DatabaseSSLMode = getEnvOrDefault("DB_SSL_MODE", "require")

	// Token configuration
	config.JWTSecret = os.Getenv("JWT_SECRET")
	if config.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	config.JWTIssuer = getEnvOrDefault("JWT_ISSUER", "tenant-service")

	var err error
	tokenTTLStr := getEnvOrDefault("TOKEN_TTL", "1h")
	config.TokenTTL, err = time.ParseDuration(tokenTTLStr)
	if err != nil {
		return nil, fmt.Errorf("invalid TOKEN_TTL: %w", err)
	}

	challengeTTLStr := getEnvOrDefault("CHALLENGE_TTL", "5m")
	config.ChallengeTTL, err = time.ParseDuration(challengeTTLStr)
	if err != nil {
		return nil, fmt.Errorf("invalid CHALLENGE_TTL: %w", err)
	}

	schedulerIntervalStr := getEnvOrDefault("SCHEDULER_INTERVAL", "1m")
	config.SchedulerInterval, err = time.ParseDuration(schedulerIntervalStr)
	if err != nil {
		return nil, fmt.Errorf("invalid SCHEDULER_INTERVAL: %w", err)
	}

	// Feature flags
	config.EnableScheduler = getBoolEnv("ENABLE_SCHEDULER", true)
	config.EnableDebug = getBoolEnv("ENABLE_DEBUG", false)

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate port
	port, err := strconv.ParseInt(c.Port, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid port: %s", c.Port)
	}
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535: %s", c.Port)
	}

	// Validate log level
	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, strings.ToLower(c.LogLevel)) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}

	// Secrets shorter than 32 bytes are trivially brute-forced for HS256
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT secret must be at least 32 bytes, got: %d", len(c.JWTSecret))
	}

	if c.TokenTTL < time.Minute {
		return fmt.Errorf("token TTL must be at least 1 minute, got: %v", c.TokenTTL)
	}

	if c.ChallengeTTL < 30*time.Second {
		return fmt.Errorf("challenge TTL must be at least 30 seconds, got: %v", c.ChallengeTTL)
	}

	if c.SchedulerInterval < time.Second {
		return fmt.Errorf("scheduler interval must be at least 1 second, got: %v", c.SchedulerInterval)
	}

	return nil
}

// DSN returns the database URL with the configured sslmode applied. A
// URL that already carries an sslmode wins over DB_SSL_MODE.
func (c *Config) DSN() string {
	if c.DatabaseSSLMode == "" || strings.Contains(c.DatabaseURL, "sslmode=") {
		return c.DatabaseURL
	}
	sep := "?"
	if strings.Contains(c.DatabaseURL, "?") {
		sep = "&"
	}
	return c.DatabaseURL + sep + "sslmode=" + c.DatabaseSSLMode
}

// Helper functions

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
