// Package config handles application configuration.
//
// Go Pattern: Configuration via environment variables with sensible defaults.
// In Go, we typically use structs to hold configuration, and a function to
// load values from environment variables. Both binaries call godotenv first,
// so a local .env file feeds the same variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Ledger backends.
const (
	LedgerCSV      = "csv"
	LedgerPostgres = "postgres"
)

const defaultJWTSecret = "dev-jwt-secret-change-in-production"

// Config holds all application configuration.
type Config struct {
	// Server settings
	Port    string
	GinMode string // "debug", "release", or "test"

	// YouTube Data API
	YouTubeAPIKey     string // default credential; X-YouTube-API-Key overrides per request
	DefaultRegion     string
	DailyQuotaLimit   int
	RequestsPerSecond int // outbound pacing per client

	// Usage ledger
	LedgerBackend string // "csv" or "postgres"
	UsageLogPath  string
	DatabaseURL   string

	// Caches. An empty RedisURL keeps everything in process memory.
	RedisURL        string
	ChannelCacheTTL time.Duration
	ResultCacheTTL  time.Duration
	CacheMaxEntries int

	// Report files written by the worker pool
	ExportDir string

	// Auth
	JWTSecret   string
	AdminAPIKey string // plain text or a bcrypt hash

	// Owner override (bypass rate limits for personal use)
	OwnerActorID string

	// Worker settings
	WorkerCount  int
	JobQueueSize int

	// Rate limiting
	DefaultRateLimit int // Requests per hour per actor

	// CORS
	AllowedOrigins []string
}

// Load reads configuration from environment variables with sensible defaults.
//
// Go Pattern: Functions that can fail return (value, error). The caller
// decides whether a bad config is fatal.
func Load() (*Config, error) {
	cfg := &Config{
		Port:    getEnv("PORT", "8080"),
		GinMode: getEnv("GIN_MODE", "debug"),

		YouTubeAPIKey:     getEnv("YOUTUBE_API_KEY", ""),
		DefaultRegion:     getEnv("DEFAULT_REGION", "US"),
		DailyQuotaLimit:   getEnvInt("DAILY_QUOTA_LIMIT", 10000),
		RequestsPerSecond: getEnvInt("YOUTUBE_REQUESTS_PER_SECOND", 5),

		LedgerBackend: getEnv("LEDGER_BACKEND", LedgerCSV),
		UsageLogPath:  getEnv("USAGE_LOG_PATH", "usage_log.csv"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),

		RedisURL:        getEnv("REDIS_URL", ""),
		ChannelCacheTTL: time.Duration(getEnvInt("CHANNEL_CACHE_TTL_MINUTES", 60)) * time.Minute,
		ResultCacheTTL:  time.Duration(getEnvInt("RESULT_CACHE_TTL_MINUTES", 60)) * time.Minute,
		CacheMaxEntries: getEnvInt("CACHE_MAX_ENTRIES", 1000),

		ExportDir: getEnv("EXPORT_DIR", "exports"),

		JWTSecret:   getEnv("JWT_SECRET", defaultJWTSecret),
		AdminAPIKey: getEnv("ADMIN_API_KEY", ""),

		OwnerActorID: getEnv("OWNER_ACTOR_ID", ""),

		WorkerCount:  getEnvInt("WORKER_COUNT", 2),
		JobQueueSize: getEnvInt("JOB_QUEUE_SIZE", 20),

		DefaultRateLimit: getEnvInt("DEFAULT_RATE_LIMIT", 120),

		// CORS: in production, set this to your frontend URL
		AllowedOrigins: []string{
			getEnv("CORS_ORIGIN", "http://localhost:5173"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects combinations the server cannot run with.
func (c *Config) Validate() error {
	switch c.LedgerBackend {
	case LedgerCSV:
	case LedgerPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("LEDGER_BACKEND=postgres requires DATABASE_URL")
		}
	default:
		return fmt.Errorf("unknown LEDGER_BACKEND %q (want %q or %q)", c.LedgerBackend, LedgerCSV, LedgerPostgres)
	}

	if c.DailyQuotaLimit <= 0 {
		return fmt.Errorf("DAILY_QUOTA_LIMIT must be positive")
	}

	// Security: in release mode, refuse to start with the default secret.
	if c.GinMode == "release" && c.JWTSecret == defaultJWTSecret {
		return fmt.Errorf("JWT_SECRET must be set in production; refusing to start with default secret")
	}

	// Security: the usage log export is admin-only.
	if c.GinMode == "release" && c.AdminAPIKey == "" {
		return fmt.Errorf("ADMIN_API_KEY must be set in production; this protects the usage log")
	}
	return nil
}

// getEnv reads an environment variable with a fallback default.
// Go Pattern: Small helper functions are idiomatic. Go favors simple,
// composable functions over complex frameworks.
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// getEnvInt reads an integer environment variable with a fallback.
func getEnvInt(key string, fallback int) int {
	str := getEnv(key, "")
	if str == "" {
		return fallback
	}
	val, err := strconv.Atoi(str)
	if err != nil {
		return fallback
	}
	return val
}
