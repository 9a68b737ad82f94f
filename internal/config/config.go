package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const devJWTSecret = "dev-secret-change-me"

type Config struct {
	Port           string
	GinMode        string
	StoreDriver    string
	MongoURI       string
	MongoDB        string
	JWTSecret      string
	JWTTTL         time.Duration
	UploadDir      string
	MaxUploadBytes int64
	CORSOrigins    []string
	RedisURL       string
	CacheTTL       time.Duration
	LogLevel       string
}

// Load reads .env when present and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{
		Port:        getEnv("PORT", "5000"),
		GinMode:     getEnv("GIN_MODE", "release"),
		StoreDriver: getEnv("STORE_DRIVER", "mongo"),
		MongoURI:    getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:     getEnv("MONGO_DB", "storefront"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		UploadDir:   getEnv("UPLOAD_DIR", "uploads"),
		CORSOrigins: splitList(getEnv("CORS_ORIGINS", "*")),
		RedisURL:    os.Getenv("REDIS_URL"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
	}

	var err error
	if cfg.JWTTTL, err = getEnvAsDuration("JWT_TTL", 7*24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.CacheTTL, err = getEnvAsDuration("CACHE_TTL", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.MaxUploadBytes, err = getEnvAsInt64("MAX_UPLOAD_BYTES", 5<<20); err != nil {
		return nil, err
	}

	switch cfg.StoreDriver {
	case "mongo", "memory":
	default:
		return nil, fmt.Errorf("STORE_DRIVER must be mongo or memory, got %q", cfg.StoreDriver)
	}

	if cfg.JWTSecret == "" {
		if cfg.GinMode != "debug" && cfg.GinMode != "test" {
			return nil, errors.New("JWT_SECRET is required")
		}
		cfg.JWTSecret = devJWTSecret
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) (int64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", key, value)
	}
	return n, nil
}

func getEnvAsDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s must be a positive duration, got %q", key, value)
	}
	return d, nil
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
