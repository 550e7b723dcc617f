package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"

	devJWTSecret = "dev-secret-change-in-production"
)

// Config holds runtime configuration sourced from env vars. It is loaded once
// at startup and never mutated afterwards.
type Config struct {
	AppEnv      string
	LogLevel    slog.Level
	ServerPort  string
	StoreDriver string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	JWTSecret  string
	SessionTTL time.Duration
	BcryptCost int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	CORSOrigins []string
}

// Load reads an optional .env file and then the environment.
func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:        strings.ToLower(fallback(os.Getenv("APP_ENV"), "development")),
		ServerPort:    fallback(os.Getenv("SERVER_PORT"), "5000"),
		StoreDriver:   strings.ToLower(fallback(os.Getenv("STORE_DRIVER"), StoreMemory)),
		DBHost:        fallback(os.Getenv("DB_HOST"), "localhost"),
		DBPort:        fallback(os.Getenv("DB_PORT"), "5432"),
		DBUser:        fallback(os.Getenv("DB_USER"), "postgres"),
		DBPassword:    os.Getenv("DB_PASSWORD"),
		DBName:        fallback(os.Getenv("DB_NAME"), "demo_bank"),
		DBSSLMode:     fallback(os.Getenv("DB_SSLMODE"), "disable"),
		JWTSecret:     strings.TrimSpace(os.Getenv("JWT_SECRET")),
		SessionTTL:    24 * time.Hour,
		BcryptCost:    bcrypt.DefaultCost,
		RedisAddr:     strings.TrimSpace(os.Getenv("REDIS_ADDR")),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		CORSOrigins:   parseCSV(fallback(os.Getenv("CORS_ALLOWED_ORIGINS"), "*")),
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(fallback(os.Getenv("LOG_LEVEL"), "info"))); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	if v := strings.TrimSpace(os.Getenv("SESSION_TTL")); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil || ttl <= 0 {
			return nil, fmt.Errorf("invalid SESSION_TTL %q", v)
		}
		cfg.SessionTTL = ttl
	}

	if v := strings.TrimSpace(os.Getenv("BCRYPT_COST")); v != "" {
		cost, err := strconv.Atoi(v)
		if err != nil || cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
			return nil, fmt.Errorf("invalid BCRYPT_COST %q", v)
		}
		cfg.BcryptCost = cost
	}

	if v := strings.TrimSpace(os.Getenv("REDIS_DB")); v != "" {
		db, err := strconv.Atoi(v)
		if err != nil || db < 0 {
			return nil, fmt.Errorf("invalid REDIS_DB %q", v)
		}
		cfg.RedisDB = db
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the cross-field rules and fills the development JWT secret.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case StoreMemory, StorePostgres:
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q", c.StoreDriver)
	}

	if c.JWTSecret == "" {
		if c.IsProduction() {
			return errors.New("JWT_SECRET is required in production")
		}
		c.JWTSecret = devJWTSecret
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// GetDBConnectionString returns the lib/pq connection string.
func (c *Config) GetDBConnectionString() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}

func fallback(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return strings.TrimSpace(value)
}

func parseCSV(input string) []string {
	parts := strings.Split(input, ",")
	var out []string
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
