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

const (
	devEncryptionKey = "dev-encryption-key-change-in-production"
	devJWTSecret     = "dev-secret-change-in-production"
)

// Storage drivers accepted in STORAGE_DRIVER.
const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Port        int
	Environment string // "development" | "staging" | "production"

	// Storage
	StorageDriver string
	DatabaseURL   string
	MongoURI      string
	MongoDatabase string

	// Redis backs the pseudonym registry when set
	RedisURL string

	// Security
	EncryptionKey  string
	JWTSecret      string
	AllowedOrigins []string
	RateLimitRPM   int

	// Generative model
	GeminiAPIKey  string
	GeminiModel   string
	GeminiBaseURL string
	ModelTimeout  time.Duration
	MaxAudioBytes int64

	// Authority notification
	AMQPURL        string
	NotifyQueue    string
	AuthorityEmail string

	// Media object store
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (development)
	_ = godotenv.Load()

	cfg := &Config{
		Port:        getEnvInt("PORT", 8080),
		Environment: getEnv("ENVIRONMENT", "development"),

		StorageDriver: strings.ToLower(getEnv("STORAGE_DRIVER", DriverPostgres)),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		MongoURI:      getEnv("MONGO_URI", ""),
		MongoDatabase: getEnv("MONGO_DATABASE", "incidents"),

		RedisURL: getEnv("REDIS_URL", ""),

		EncryptionKey:  getEnv("ENCRYPTION_KEY", devEncryptionKey),
		JWTSecret:      getEnv("JWT_SECRET", devJWTSecret),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000")),
		RateLimitRPM:   getEnvInt("RATE_LIMIT_RPM", 60),

		GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),
		GeminiModel:   getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		GeminiBaseURL: getEnv("GEMINI_BASE_URL", ""),
		ModelTimeout:  getEnvDuration("MODEL_TIMEOUT", 20*time.Second),
		MaxAudioBytes: int64(getEnvInt("MAX_AUDIO_BYTES", 10<<20)),

		AMQPURL:        getEnv("AMQP_URL", ""),
		NotifyQueue:    getEnv("NOTIFY_QUEUE", "authority-notifications"),
		AuthorityEmail: getEnv("AUTHORITY_EMAIL", "authorities@example.org"),

		MinioEndpoint:  getEnv("MINIO_ENDPOINT", ""),
		MinioAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: getEnv("MINIO_SECRET_KEY", ""),
		MinioBucket:    getEnv("MINIO_BUCKET", "incident-media"),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", false),
	}

	switch cfg.StorageDriver {
	case DriverPostgres, DriverMongo, DriverMemory:
	default:
		return nil, fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.StorageDriver)
	}
	if cfg.StorageDriver == DriverPostgres && cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required for the postgres driver")
	}
	if cfg.StorageDriver == DriverMongo && cfg.MongoURI == "" {
		return nil, fmt.Errorf("MONGO_URI is required for the mongo driver")
	}
	if cfg.MaxAudioBytes <= 0 {
		return nil, fmt.Errorf("MAX_AUDIO_BYTES must be positive")
	}

	// Validate required fields in production
	if cfg.IsProduction() {
		if cfg.StorageDriver == DriverMemory {
			return nil, fmt.Errorf("the memory storage driver cannot be used in production")
		}
		if cfg.EncryptionKey == devEncryptionKey {
			return nil, fmt.Errorf("ENCRYPTION_KEY must be set in production")
		}
		if cfg.JWTSecret == devJWTSecret {
			return nil, fmt.Errorf("JWT_SECRET must be set in production")
		}
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is required in production")
		}
	}

	return cfg, nil
}

// IsProduction reports whether the production checks apply.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
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

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return fallback
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
