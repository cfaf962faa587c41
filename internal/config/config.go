package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the finance assistant service.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string

	AllowAnyOrigin bool

	DatabaseURL string
	RedisURL    string

	BackendMode          string
	OpenAIAPIKey         string
	OpenAIModel          string
	OpenAIEmbeddingModel string
	BackendTimeout       time.Duration

	IndexVectorsPath  string
	IndexMetadataPath string
	RetrievalTopK     int
	RetrievalMinScore float64

	FXAPIBaseURL string
	FXTimeout    time.Duration
	FXCacheTTL   time.Duration

	HistoryWindow int
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:         envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace: envOrDefault("APP_METRICS_NAMESPACE", "wealthnav"),
		AllowAnyOrigin:   false,
		DatabaseURL:      envTrimmed("DATABASE_URL"),
		RedisURL:         envTrimmed("REDIS_URL"),
		// "auto" picks openai when a key is present and falls back to offline templates
		// otherwise. Absence of the key is a supported configuration, not an error.
		BackendMode:          envOrDefault("BACKEND_MODE", "auto"),
		OpenAIAPIKey:         envTrimmed("OPENAI_API_KEY"),
		OpenAIModel:          envOrDefault("OPENAI_MODEL", "gpt-4.1-mini"),
		OpenAIEmbeddingModel: envOrDefault("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),
		BackendTimeout:       20 * time.Second,
		IndexVectorsPath:     envOrDefault("INDEX_VECTORS_PATH", "data/index_vectors.json"),
		IndexMetadataPath:    envOrDefault("INDEX_METADATA_PATH", "data/index_chunks.jsonl"),
		RetrievalTopK:        5,
		RetrievalMinScore:    0.25,
		FXAPIBaseURL:         envOrDefault("FX_API_BASE_URL", "https://api.frankfurter.app"),
		FXTimeout:            4 * time.Second,
		FXCacheTTL:           5 * time.Minute,
		HistoryWindow:        5,
		ShutdownTimeout:      15 * time.Second,
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.BackendTimeout, err = durationFromEnv("BACKEND_TIMEOUT", cfg.BackendTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.FXTimeout, err = durationFromEnv("FX_TIMEOUT", cfg.FXTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.FXCacheTTL, err = durationFromEnv("FX_CACHE_TTL", cfg.FXCacheTTL)
	if err != nil {
		return Config{}, err
	}
	cfg.RetrievalTopK, err = intFromEnv("RETRIEVAL_TOP_K", cfg.RetrievalTopK)
	if err != nil {
		return Config{}, err
	}
	cfg.RetrievalMinScore, err = floatFromEnv("RETRIEVAL_MIN_SCORE", cfg.RetrievalMinScore)
	if err != nil {
		return Config{}, err
	}
	cfg.HistoryWindow, err = intFromEnv("HISTORY_WINDOW", cfg.HistoryWindow)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}

	mode := strings.ToLower(strings.TrimSpace(cfg.BackendMode))
	switch mode {
	case "auto", "openai", "mock", "off":
		cfg.BackendMode = mode
	default:
		return Config{}, fmt.Errorf("BACKEND_MODE must be auto, openai, mock or off, got %q", cfg.BackendMode)
	}
	if cfg.BackendMode == "openai" && cfg.OpenAIAPIKey == "" {
		return Config{}, fmt.Errorf("BACKEND_MODE=openai requires OPENAI_API_KEY")
	}
	if cfg.RetrievalTopK < 1 || cfg.RetrievalTopK > 16 {
		return Config{}, fmt.Errorf("RETRIEVAL_TOP_K must be between 1 and 16")
	}
	if cfg.RetrievalMinScore < 0 || cfg.RetrievalMinScore > 1 {
		return Config{}, fmt.Errorf("RETRIEVAL_MIN_SCORE must be between 0 and 1")
	}
	if cfg.HistoryWindow < 0 {
		return Config{}, fmt.Errorf("HISTORY_WINDOW must be >= 0")
	}
	if cfg.BackendTimeout <= 0 {
		return Config{}, fmt.Errorf("BACKEND_TIMEOUT must be positive")
	}
	if cfg.FXTimeout <= 0 {
		return Config{}, fmt.Errorf("FX_TIMEOUT must be positive")
	}
	if cfg.FXCacheTTL <= 0 {
		return Config{}, fmt.Errorf("FX_CACHE_TTL must be positive")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func envTrimmed(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := envTrimmed(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := envTrimmed(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func floatFromEnv(key string, fallback float64) (float64, error) {
	v := envTrimmed(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return f, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(envTrimmed(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
