package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/teamplane/teamplane/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// Auth configuration
	Auth AuthConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// AuthConfig holds credential signing settings
type AuthConfig struct {
	AccessSecret  string
	RefreshSecret string
	Issuer        string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool
	AuditEnabled   bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("TEAMPLANE_HOST", "0.0.0.0"),
			Port:            getEnv("TEAMPLANE_PORT", "8080"),
			ReadTimeout:     getEnvDuration("TEAMPLANE_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("TEAMPLANE_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getEnvDuration("TEAMPLANE_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("TEAMPLANE_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			URL:             getEnv("TEAMPLANE_POSTGRES_URL", ""),
			MaxOpenConns:    getEnvInt("TEAMPLANE_POSTGRES_MAX_CONNS", 25),
			MaxIdleConns:    getEnvInt("TEAMPLANE_POSTGRES_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("TEAMPLANE_POSTGRES_CONN_LIFETIME", 5*time.Minute),
		},
		Auth: AuthConfig{
			AccessSecret:  getEnv("TEAMPLANE_ACCESS_SECRET", ""),
			RefreshSecret: getEnv("TEAMPLANE_REFRESH_SECRET", ""),
			Issuer:        getEnv("TEAMPLANE_TOKEN_ISSUER", "teamplane"),
			AccessTTL:     getEnvDuration("TEAMPLANE_ACCESS_TTL", 15*time.Minute),
			RefreshTTL:    getEnvDuration("TEAMPLANE_REFRESH_TTL", 7*24*time.Hour),
		},
		Observability: ObservabilityConfig{
			LogLevel:       observability.ParseLogLevel(getEnv("TEAMPLANE_LOG_LEVEL", "info")),
			MetricsEnabled: getEnvBool("TEAMPLANE_METRICS_ENABLED", true),
			AuditEnabled:   getEnvBool("TEAMPLANE_AUDIT_ENABLED", true),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	if c.Database.URL == "" {
		return fmt.Errorf("postgres URL is required")
	}

	if c.Auth.AccessSecret == "" {
		return fmt.Errorf("access token secret is required")
	}
	if c.Auth.RefreshSecret == "" {
		return fmt.Errorf("refresh token secret is required")
	}
	if c.Auth.AccessSecret == c.Auth.RefreshSecret {
		return fmt.Errorf("access and refresh secrets must be different")
	}
	if c.Auth.AccessTTL <= 0 || c.Auth.RefreshTTL <= 0 {
		return fmt.Errorf("token lifetimes must be positive")
	}
	if c.Auth.AccessTTL >= c.Auth.RefreshTTL {
		return fmt.Errorf("access token lifetime must be shorter than refresh lifetime")
	}

	return nil
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
