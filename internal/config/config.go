// Package config handles application configuration from environment variables
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Oracle modes select which scoring backend the server wires up.
const (
	OracleModel  = "model"  // decision-forest artifact loaded from MODEL_PATH
	OracleRules  = "rules"  // built-in heuristic rule oracle, no artifact needed
	OracleRemote = "remote" // HTTP inference service at SCORER_URL
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Port     string
	Env      string // "development", "staging", "production"
	LogLevel string

	// Storage. Mongo takes precedence, then Postgres, then in-memory.
	DatabaseURL string // PostgreSQL connection string (optional)
	MongoURL    string // MongoDB connection string (optional)
	MongoDB     string // MongoDB database name

	// Scoring oracle
	OracleMode string // "model", "rules", or "remote"
	ModelPath  string // path to the decision-forest artifact
	ScorerURL  string // remote inference endpoint (required for "remote")

	// HTTP hardening
	RateLimitRPM   int
	AllowedOrigins []string

	// Tracing
	OTLPEndpoint string // OTLP gRPC collector; empty disables tracing
}

// Defaults
const (
	DefaultPort      = "8080"
	DefaultEnv       = "development"
	DefaultLogLevel  = "info"
	DefaultMongoDB   = "fraud_detection"
	DefaultModelPath = "fraud_model.json"
	DefaultRateRPM   = 120
)

// Load reads configuration from environment variables
// It loads .env file if present (for local development)
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	cfg := &Config{
		Port:           getEnv("PORT", DefaultPort),
		Env:            getEnv("ENV", DefaultEnv),
		LogLevel:       getEnv("LOG_LEVEL", DefaultLogLevel),
		DatabaseURL:    os.Getenv("DATABASE_URL"), // Optional, in-memory if not set
		MongoURL:       os.Getenv("MONGO_URL"),
		MongoDB:        getEnv("MONGO_DATABASE", DefaultMongoDB),
		OracleMode:     getEnv("ORACLE_MODE", OracleModel),
		ModelPath:      getEnv("MODEL_PATH", DefaultModelPath),
		ScorerURL:      os.Getenv("SCORER_URL"),
		RateLimitRPM:   int(getEnvInt64("RATE_LIMIT_RPM", DefaultRateRPM)),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "*")),
		OTLPEndpoint:   os.Getenv("OTLP_ENDPOINT"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the configuration is internally consistent
func (c *Config) Validate() error {
	switch c.OracleMode {
	case OracleModel, OracleRules, OracleRemote:
	default:
		return fmt.Errorf("ORACLE_MODE must be one of %q, %q, %q", OracleModel, OracleRules, OracleRemote)
	}

	if c.OracleMode == OracleModel && c.ModelPath == "" {
		return fmt.Errorf("MODEL_PATH is required when ORACLE_MODE=%s", OracleModel)
	}

	if c.OracleMode == OracleRemote && c.ScorerURL == "" {
		return fmt.Errorf("SCORER_URL is required when ORACLE_MODE=%s", OracleRemote)
	}

	if c.DatabaseURL != "" && c.MongoURL != "" {
		return fmt.Errorf("set either DATABASE_URL or MONGO_URL, not both")
	}

	if c.RateLimitRPM <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPM must be positive")
	}

	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
