// Package config provides configuration management for the scan gateway
// application. It loads configuration from environment variables and .env
// files.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Scan      ScanConfig
	RateLimit RateLimitConfig
	Logging   LoggingConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port string
	Host string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Postgres PostgresConfig
	Redis    RedisConfig
}

// PostgresConfig holds Postgres configuration
type PostgresConfig struct {
	Host           string
	Port           string
	Database       string
	User           string
	Password       string
	MaxConnections int
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host           string
	Port           string
	Password       string
	DB             int
	MaxConnections int
}

// ScanConfig holds scan pipeline configuration
type ScanConfig struct {
	// FormOpenFallbackDelay bounds how long a deferred send-form open waits
	// for the client's transition-settled signal before opening anyway.
	FormOpenFallbackDelay time.Duration
	// MaxPayloadBytes rejects oversized scan payloads before classification.
	MaxPayloadBytes int
	// DraftTTL is how long an untouched send draft survives in Redis.
	DraftTTL time.Duration
	// HistoryPageSize is the default page size for scan history queries.
	HistoryPageSize int
}

// RateLimitConfig holds rate limiting configuration (requests per second)
type RateLimitConfig struct {
	FreeTier int
	PaidTier int
	// QuotaFreeTier and QuotaPaidTier are per-session scan allowances per
	// quota window; they gate scans rather than raw requests.
	QuotaFreeTier int
	QuotaPaidTier int
	QuotaWindow   time.Duration
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// LoadConfig loads configuration from .env file and environment variables
func LoadConfig() (*Config, error) {
	// Load .env file (optional in production)
	if err := godotenv.Load(); err != nil {
		// .env file is optional - environment variables can be set directly
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	config := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			Postgres: PostgresConfig{
				Host:           getEnv("POSTGRES_HOST", "localhost"),
				Port:           getEnv("POSTGRES_PORT", "5432"),
				Database:       getEnv("POSTGRES_DB", "scan_gateway"),
				User:           getEnv("POSTGRES_USER", "gateway"),
				Password:       getEnv("POSTGRES_PASSWORD", ""),
				MaxConnections: getEnvAsInt("POSTGRES_MAX_CONNECTIONS", 50),
			},
			Redis: RedisConfig{
				Host:           getEnv("REDIS_HOST", "localhost"),
				Port:           getEnv("REDIS_PORT", "6379"),
				Password:       getEnv("REDIS_PASSWORD", ""),
				DB:             getEnvAsInt("REDIS_DB", 0),
				MaxConnections: getEnvAsInt("REDIS_MAX_CONNECTIONS", 50),
			},
		},
		Scan: ScanConfig{
			FormOpenFallbackDelay: getEnvAsDuration("SCAN_FORM_OPEN_FALLBACK_DELAY", 100*time.Millisecond),
			MaxPayloadBytes:       getEnvAsInt("SCAN_MAX_PAYLOAD_BYTES", 4096),
			DraftTTL:              getEnvAsDuration("SCAN_DRAFT_TTL", 30*time.Minute),
			HistoryPageSize:       getEnvAsInt("SCAN_HISTORY_PAGE_SIZE", 50),
		},
		RateLimit: RateLimitConfig{
			FreeTier:      getEnvAsInt("RATE_LIMIT_FREE_TIER", 10),
			PaidTier:      getEnvAsInt("RATE_LIMIT_PAID_TIER", 100),
			QuotaFreeTier: getEnvAsInt("SCAN_QUOTA_FREE_TIER", 60),
			QuotaPaidTier: getEnvAsInt("SCAN_QUOTA_PAID_TIER", 600),
			QuotaWindow:   getEnvAsDuration("SCAN_QUOTA_WINDOW", time.Minute),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	return config, nil
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer with a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration gets an environment variable as a duration with a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
