// Package config handles loading and validation of application configuration
// from environment variables. Supports .env files via godotenv.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// TrustPolicy carries the thresholds and penalties of the trust engine.
// It is passed explicitly to service constructors; nothing in the engine
// reads ambient process-wide state.
type TrustPolicy struct {
	// CodeTTL is the verification-code validity window from session creation.
	CodeTTL time.Duration

	// InitialScore is the reputation score assigned to a fresh record.
	InitialScore int

	// ReportPenalty is subtracted from the score per report below the flag threshold.
	ReportPenalty int

	// FlagPenalty is subtracted once the report count reaches FlagThreshold.
	FlagPenalty int

	// FlagThreshold is the report count at which a user is flagged for review.
	FlagThreshold int
}

// DefaultTrustPolicy returns the production policy values.
func DefaultTrustPolicy() TrustPolicy {
	return TrustPolicy{
		CodeTTL:       30 * time.Minute,
		InitialScore:  100,
		ReportPenalty: 10,
		FlagPenalty:   50,
		FlagThreshold: 5,
	}
}

// Config holds all application configuration
type Config struct {
	// Server settings
	Port        int
	Environment string // "development" | "staging" | "production"

	// Storage
	DatabaseURL  string
	StoreBackend string // "postgres" | "memory"

	// Security
	JWTSecret      string
	AllowedOrigins []string
	RateLimitRPM   int

	// Redis (rate limiting)
	RedisURL string

	// RTC media provider (channel join tokens)
	RTCAppID    string
	RTCSecret   string
	RTCTokenTTL time.Duration

	// Trust engine policy
	Trust TrustPolicy
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (development)
	_ = godotenv.Load()

	cfg := &Config{
		Port:        getEnvInt("PORT", 8080),
		Environment: getEnv("ENVIRONMENT", "development"),

		DatabaseURL:  getEnv("DATABASE_URL", ""),
		StoreBackend: getEnv("STORE_BACKEND", "postgres"),

		JWTSecret:      getEnv("JWT_SECRET", "dev-secret-change-in-production"),
		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "http://localhost:8081,http://localhost:19006"), ","),
		RateLimitRPM:   getEnvInt("RATE_LIMIT_RPM", 60),

		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379"),

		RTCAppID:    getEnv("RTC_APP_ID", ""),
		RTCSecret:   getEnv("RTC_APP_CERTIFICATE", ""),
		RTCTokenTTL: time.Duration(getEnvInt("RTC_TOKEN_TTL_SECONDS", 3600)) * time.Second,

		Trust: TrustPolicy{
			CodeTTL:       time.Duration(getEnvInt("CODE_TTL_MINUTES", 30)) * time.Minute,
			InitialScore:  getEnvInt("REPUTATION_INITIAL_SCORE", 100),
			ReportPenalty: getEnvInt("REPORT_PENALTY", 10),
			FlagPenalty:   getEnvInt("REPORT_FLAG_PENALTY", 50),
			FlagThreshold: getEnvInt("REPORT_FLAG_THRESHOLD", 5),
		},
	}

	switch cfg.StoreBackend {
	case "postgres", "memory":
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}

	// Validate required fields in production
	if cfg.Environment == "production" {
		if cfg.StoreBackend == "postgres" && cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required in production")
		}
		if cfg.JWTSecret == "dev-secret-change-in-production" {
			return nil, fmt.Errorf("JWT_SECRET must be set in production")
		}
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return fallback
}
