package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime settings, read once from the environment at startup.
type Config struct {
	Port        string
	DatabaseURL string

	GeminiAPIKey  string
	GeminiAPIBase string
	GeminiModel   string

	ModelTimeout    time.Duration
	ModelMaxRetries int

	SessionIdleTTL time.Duration
}

// BatchConfig holds settings for the session-summary batch job.
type BatchConfig struct {
	DatabaseURL  string
	OpenAIAPIKey string
	Window       time.Duration
	Interval     time.Duration
}

func Load() (Config, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return Config{}, fmt.Errorf("GEMINI_API_KEY is not set")
	}

	return Config{
		Port:            envOrDefault("PORT", "8080"),
		DatabaseURL:     databaseURL(),
		GeminiAPIKey:    apiKey,
		GeminiAPIBase:   envOrDefault("GEMINI_API_BASE", "https://generativelanguage.googleapis.com/v1beta"),
		GeminiModel:     envOrDefault("GEMINI_MODEL", "gemini-2.0-flash"),
		ModelTimeout:    time.Duration(envIntOrDefault("MODEL_TIMEOUT_SECONDS", 30)) * time.Second,
		ModelMaxRetries: envIntOrDefault("MODEL_MAX_RETRIES", 2),
		SessionIdleTTL:  time.Duration(envIntOrDefault("SESSION_IDLE_TTL_MINUTES", 30)) * time.Minute,
	}, nil
}

func LoadBatch() (BatchConfig, error) {
	openaiKey := os.Getenv("OPENAI_API_KEY")
	if openaiKey == "" {
		return BatchConfig{}, fmt.Errorf("OPENAI_API_KEY is not set")
	}

	return BatchConfig{
		DatabaseURL:  databaseURL(),
		OpenAIAPIKey: openaiKey,
		Window:       time.Duration(envIntOrDefault("BATCH_WINDOW_HOURS", 3)) * time.Hour,
		Interval:     time.Duration(envIntOrDefault("BATCH_INTERVAL_MINUTES", 10)) * time.Minute,
	}, nil
}

// databaseURL builds a lib/pq connection string from the individual DB_*
// variables, unless DATABASE_URL overrides the whole thing.
func databaseURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		envOrDefault("DB_HOST", "localhost"),
		envOrDefault("DB_PORT", "5432"),
		envOrDefault("DB_USER", "postgres"),
		envOrDefault("DB_PASSWORD", ""),
		envOrDefault("DB_NAME", "rakk_gears"),
		envOrDefault("DB_SSLMODE", "disable"),
	)
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOrDefault(key string, fallback int) int {
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
