// Package config handles application configuration.
//
// Go Pattern: Configuration via environment variables with sensible defaults.
// In Go, we typically use structs to hold configuration, and a function to
// load values from environment variables. Go keeps it explicit: no magic
// config files, no reflection-driven binding.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// AI execution modes.
const (
	AIModeRemote = "remote" // Gemini generateContent endpoint
	AIModeLocal  = "local"  // Local inference server (seq2seq + extractive QA)
)

// PDF extraction strategies. Exactly one is active per process.
const (
	PDFStrategyStructured = "structured"
	PDFStrategyRegex      = "regex"
	PDFStrategyDelegated  = "delegated"
)

const defaultJWTSecret = "dev-jwt-secret-change-in-production"

// Config holds all application configuration.
type Config struct {
	// Server settings
	Port    string
	GinMode string // "debug", "release", or "test"
	LogMode string // "development" or "production"

	// Database settings
	DatabaseDriver string // "sqlite" or "postgres"
	DatabaseURL    string

	// Gemini settings
	GeminiAPIKey  string
	GeminiModel   string
	GeminiBaseURL string
	AITimeout     time.Duration

	// AIMode selects how summaries and answers are produced.
	AIMode                string
	LocalModelURL         string
	LocalModelFallbackURL string

	// PDF extraction
	PDFStrategy   string
	PDFServiceURL string // Only used by the delegated strategy

	// Summary cache (Redis when set, in-process otherwise)
	RedisURL        string
	SummaryCacheTTL time.Duration

	// Session tokens
	JWTSecret string

	// Worker settings
	WorkerCount  int // Number of background summarization goroutines
	JobQueueSize int // Size of the in-memory job queue buffer

	// Rate limiting
	DefaultRateLimit int // Requests per hour per session

	// Uploads
	MaxUploadMB int

	// CORS
	AllowedOrigins []string
}

// Load reads configuration from environment variables with sensible defaults.
//
// Go Pattern: Functions that can fail return (value, error). The caller
// MUST handle the error.
func Load() (*Config, error) {
	cfg := &Config{
		Port:    getEnv("PORT", "8080"),
		GinMode: getEnv("GIN_MODE", "debug"),
		LogMode: getEnv("LOG_MODE", "development"),

		// SQLite is the zero-setup default; point at Postgres in production.
		DatabaseDriver: getEnv("DATABASE_DRIVER", "sqlite"),
		DatabaseURL:    getEnv("DATABASE_URL", "file:learnsmart.db?_pragma=busy_timeout(5000)"),

		GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),
		GeminiModel:   getEnv("GEMINI_MODEL", "gemini-1.5-flash-latest"),
		GeminiBaseURL: getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		AITimeout:     getEnvDuration("AI_TIMEOUT", 60*time.Second),

		AIMode:                strings.ToLower(getEnv("AI_MODE", AIModeRemote)),
		LocalModelURL:         getEnv("LOCAL_MODEL_URL", "http://localhost:8000"),
		LocalModelFallbackURL: getEnv("LOCAL_MODEL_FALLBACK_URL", ""),

		PDFStrategy:   strings.ToLower(getEnv("PDF_STRATEGY", PDFStrategyStructured)),
		PDFServiceURL: getEnv("PDF_SERVICE_URL", "http://localhost:5000/extract-pdf"),

		RedisURL:        getEnv("REDIS_URL", ""),
		SummaryCacheTTL: getEnvDuration("SUMMARY_CACHE_TTL", 24*time.Hour),

		JWTSecret: getEnv("JWT_SECRET", defaultJWTSecret),

		WorkerCount:  getEnvInt("WORKER_COUNT", 3),
		JobQueueSize: getEnvInt("JOB_QUEUE_SIZE", 100),

		DefaultRateLimit: getEnvInt("DEFAULT_RATE_LIMIT", 300),

		MaxUploadMB: getEnvInt("MAX_UPLOAD_MB", 50),

		// CORS — in production, set this to your frontend URL
		AllowedOrigins: splitOrigins(getEnv("CORS_ORIGIN", "http://localhost:5173")),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that enumerated settings hold known values.
func (c *Config) Validate() error {
	switch c.DatabaseDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q; use sqlite or postgres", c.DatabaseDriver)
	}

	switch c.AIMode {
	case AIModeRemote, AIModeLocal:
	default:
		return fmt.Errorf("unsupported AI_MODE %q; use remote or local", c.AIMode)
	}

	switch c.PDFStrategy {
	case PDFStrategyStructured, PDFStrategyRegex:
	case PDFStrategyDelegated:
		if c.PDFServiceURL == "" {
			return fmt.Errorf("PDF_SERVICE_URL is required when PDF_STRATEGY=delegated")
		}
	default:
		return fmt.Errorf("unsupported PDF_STRATEGY %q; use structured, regex or delegated", c.PDFStrategy)
	}

	if c.WorkerCount < 1 {
		return fmt.Errorf("WORKER_COUNT must be at least 1")
	}
	if c.JobQueueSize < 1 {
		return fmt.Errorf("JOB_QUEUE_SIZE must be at least 1")
	}
	if c.MaxUploadMB < 1 {
		return fmt.Errorf("MAX_UPLOAD_MB must be at least 1")
	}

	// Security: JWT secret MUST be set in production mode.
	if c.GinMode == "release" && c.JWTSecret == defaultJWTSecret {
		return fmt.Errorf("JWT_SECRET must be set in production; refusing to start with default secret")
	}

	return nil
}

// MaxUploadBytes returns the upload limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

// getEnv reads an environment variable with a fallback default.
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

// getEnvDuration reads a duration like "30s" or "24h".
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	str := getEnv(key, "")
	if str == "" {
		return fallback
	}
	val, err := time.ParseDuration(str)
	if err != nil {
		return fallback
	}
	return val
}

func splitOrigins(raw string) []string {
	var out []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
