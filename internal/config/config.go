package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Host         string
	Port         int
	LogLevel     string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Model
	CategoryKeywordsPath string // optional YAML keyword table
	MaxFeatures          int
	SmoothingAlpha       float64

	// Persistence
	CorpusDBPath string // empty disables the corpus store

	// Request limits
	MaxConcurrency     int
	MaxHistoryRecords  int
	MaxMonthsAhead     int
	MaxBatchSize       int
	MaxRetrainExamples int

	// Cache
	CacheTTL        time.Duration
	CacheMaxEntries int

	// HTTP
	CORSAllowedOrigins []string

	// Auth
	RetrainJWTSecret string // empty leaves /retrain open

	// Observability
	OTLPEndpoint string // empty disables trace export
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Host:         getEnv("HOST", "0.0.0.0"),
		Port:         getEnvInt("PORT", 5000),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		ReadTimeout:  getEnvDuration("READ_TIMEOUT", 10*time.Second),
		WriteTimeout: getEnvDuration("WRITE_TIMEOUT", 30*time.Second),

		CategoryKeywordsPath: getEnv("CATEGORY_KEYWORDS_PATH", ""),
		MaxFeatures:          getEnvInt("MAX_FEATURES", 1000),
		SmoothingAlpha:       getEnvFloat("SMOOTHING_ALPHA", 0.1),

		CorpusDBPath: getEnv("CORPUS_DB_PATH", ""),

		MaxConcurrency:     getEnvInt("MAX_CONCURRENCY", 50),
		MaxHistoryRecords:  getEnvInt("MAX_HISTORY_RECORDS", 10000),
		MaxMonthsAhead:     getEnvInt("MAX_MONTHS_AHEAD", 24),
		MaxBatchSize:       getEnvInt("MAX_BATCH_SIZE", 500),
		MaxRetrainExamples: getEnvInt("MAX_RETRAIN_EXAMPLES", 5000),

		CacheTTL:        getEnvDuration("CACHE_TTL", 5*time.Minute),
		CacheMaxEntries: getEnvInt("CACHE_MAX_ENTRIES", 10000),

		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),

		RetrainJWTSecret: getEnv("RETRAIN_JWT_SECRET", ""),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

// getEnvList splits a comma-separated value, dropping empty items.
func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
