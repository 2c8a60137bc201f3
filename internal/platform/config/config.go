// Package config loads process configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

type Config struct {
	AppEnv    string `env:"APP_ENV" default:"development"`
	Port      string `env:"PORT" default:"8080"`
	AppURL    string `env:"APP_URL" default:"http://localhost:8080"`
	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`

	StorageBackend   string `env:"STORAGE_BACKEND" default:"memory"`
	StorageNamespace string `env:"STORAGE_NAMESPACE"`
	RedisURL         string `env:"REDIS_URL"`
	DatabaseURL      string `env:"DATABASE_URL"`

	PersistTimeout time.Duration `env:"PERSIST_TIMEOUT" default:"2s"`

	RateLimitPerSecond float64 `env:"RATE_LIMIT_PER_SECOND" default:"20"`
	RateLimitBurst     int     `env:"RATE_LIMIT_BURST" default:"40"`
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	switch cfg.StorageBackend {
	case BackendMemory:
	case BackendRedis:
		if cfg.RedisURL == "" {
			return errors.New("REDIS_URL is required for STORAGE_BACKEND=redis")
		}
	case BackendPostgres:
		if cfg.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for STORAGE_BACKEND=postgres")
		}
	default:
		return fmt.Errorf("STORAGE_BACKEND must be one of memory, redis, postgres, got %q", cfg.StorageBackend)
	}

	if _, err := url.ParseRequestURI(cfg.AppURL); err != nil {
		return fmt.Errorf("APP_URL must be an absolute URL: %w", err)
	}
	if cfg.PersistTimeout <= 0 {
		return errors.New("PERSIST_TIMEOUT must be positive")
	}
	if cfg.RateLimitPerSecond <= 0 || cfg.RateLimitBurst < 1 {
		return errors.New("RATE_LIMIT_PER_SECOND and RATE_LIMIT_BURST must be positive")
	}

	if cfg.IsProduction() && cfg.DatabaseURL != "" {
		if err := validateSSLMode(cfg.DatabaseURL); err != nil {
			return err
		}
	}

	return nil
}

// validateSSLMode rejects connection strings that may fall back to plaintext.
func validateSSLMode(databaseURL string) error {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return fmt.Errorf("DATABASE_URL is not a valid URL: %w", err)
	}

	mode := strings.ToLower(u.Query().Get("sslmode"))
	if mode == "disable" || mode == "allow" {
		return fmt.Errorf("DATABASE_URL uses sslmode=%s which is not allowed in production", mode)
	}
	return nil
}
