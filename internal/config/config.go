// Package config loads runtime configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds every tunable the server reads at startup.
type Config struct {
	Port     string
	LogLevel string
	BaseURL  string

	// Empty means the in-memory store.
	DatabaseURL string

	// Path for persisting the trained model. Empty disables persistence.
	ModelPath string

	// Synthetic data generated at startup when the store is empty.
	SeedEvents int
	SeedRatio  float64

	GitHubClientID     string
	GitHubClientSecret string

	// Domain for automatic TLS. Empty serves plain HTTP.
	TLSDomain string

	Production bool
}

// Load reads .env (if present) and the environment.
func Load() Config {
	godotenv.Load()

	cfg := Config{
		Port:               envOr("PORT", "8080"),
		LogLevel:           os.Getenv("LOG_LEVEL"),
		BaseURL:            envOr("ARGUS_BASE_URL", "http://localhost:8080"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		ModelPath:          os.Getenv("ARGUS_MODEL_PATH"),
		SeedEvents:         envInt("ARGUS_SEED_EVENTS", 1000),
		SeedRatio:          envFloat("ARGUS_SEED_RATIO", 0.3),
		GitHubClientID:     os.Getenv("GITHUB_CLIENT_ID"),
		GitHubClientSecret: os.Getenv("GITHUB_CLIENT_SECRET"),
		TLSDomain:          os.Getenv("ARGUS_TLS_DOMAIN"),
		Production:         os.Getenv("ARGUS_ENV") == "production",
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}
