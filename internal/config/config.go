package config

import (
	"fmt"
	"os"
	"time"
)

type Config struct {
	DBFile      string
	APIAddr     string
	BaseURL     string
	AuthSecret  string
	TokenExpiry time.Duration
}

func Load() (*Config, error) {
	tokenExpiry, err := time.ParseDuration(getEnv("TOKEN_EXPIRY", "24h"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DBFile:      getEnv("KRUZHOK_DB", "kruzhok.db"),
		APIAddr:     getEnv("API_ADDR", ":8080"),
		BaseURL:     getEnv("BASE_URL", "http://localhost:8080"),
		AuthSecret:  os.Getenv("AUTH_SECRET"),
		TokenExpiry: tokenExpiry,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.AuthSecret == "" {
		return fmt.Errorf("AUTH_SECRET is required")
	}

	if c.TokenExpiry <= 0 {
		return fmt.Errorf("TOKEN_EXPIRY must be greater than 0")
	}

	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
