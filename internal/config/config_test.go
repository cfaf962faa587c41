package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	setCoreEnvEmpty(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.BackendMode != "auto" {
		t.Fatalf("BackendMode = %q, want %q", cfg.BackendMode, "auto")
	}
	if cfg.OpenAIAPIKey != "" {
		t.Fatalf("OpenAIAPIKey = %q, want empty default", cfg.OpenAIAPIKey)
	}
	if cfg.RetrievalTopK != 5 {
		t.Fatalf("RetrievalTopK = %d, want 5", cfg.RetrievalTopK)
	}
	if cfg.HistoryWindow != 5 {
		t.Fatalf("HistoryWindow = %d, want 5", cfg.HistoryWindow)
	}
}

func TestLoadMissingKeyIsNotFatal(t *testing.T) {
	// Absence of the generation credential must be a supported configuration.
	setCoreEnvEmpty(t)
	t.Setenv("BACKEND_MODE", "auto")

	if _, err := Load(); err != nil {
		t.Fatalf("Load() error = %v, want nil without OPENAI_API_KEY", err)
	}
}

func TestLoadOpenAIModeRequiresKey(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("BACKEND_MODE", "openai")

	if _, err := Load(); err == nil {
		t.Fatalf("Load() error = nil, want error for openai mode without key")
	}
}

func TestLoadRejectsBadTopK(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("RETRIEVAL_TOP_K", "0")

	if _, err := Load(); err == nil {
		t.Fatalf("Load() error = nil, want range error")
	}
}

func TestLoadRejectsBadBackendMode(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("BACKEND_MODE", "graph")

	if _, err := Load(); err == nil {
		t.Fatalf("Load() error = nil, want mode error")
	}
}

func setCoreEnvEmpty(t *testing.T) {
	t.Helper()
	keys := []string{
		"APP_BIND_ADDR",
		"APP_SHUTDOWN_TIMEOUT",
		"APP_METRICS_NAMESPACE",
		"APP_ALLOW_ANY_ORIGIN",
		"DATABASE_URL",
		"REDIS_URL",
		"BACKEND_MODE",
		"OPENAI_API_KEY",
		"OPENAI_MODEL",
		"OPENAI_EMBEDDING_MODEL",
		"BACKEND_TIMEOUT",
		"INDEX_VECTORS_PATH",
		"INDEX_METADATA_PATH",
		"RETRIEVAL_TOP_K",
		"RETRIEVAL_MIN_SCORE",
		"FX_API_BASE_URL",
		"FX_TIMEOUT",
		"FX_CACHE_TTL",
		"HISTORY_WINDOW",
	}
	for _, key := range keys {
		t.Setenv(key, "")
	}
}
