package app

import (
	"context"
	"testing"
	"time"

	"github.com/sajjadurrahman1/Wealth-Navigator/internal/config"
)

func TestBuildOffline(t *testing.T) {
	cfg := config.Config{
		BindAddr:          "127.0.0.1:0",
		ShutdownTimeout:   5 * time.Second,
		MetricsNamespace:  "app_build_test",
		BackendMode:       "off",
		IndexVectorsPath:  "no/such/vectors.json",
		IndexMetadataPath: "no/such/chunks.jsonl",
		FXAPIBaseURL:      "http://127.0.0.1:1",
		FXTimeout:         time.Second,
		FXCacheTTL:        time.Minute,
		RetrievalTopK:     5,
		HistoryWindow:     5,
	}

	result, err := Build(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer func() {
		if err := result.Cleanup(); err != nil {
			t.Errorf("Cleanup: %v", err)
		}
	}()

	if result.API == nil || result.Orchestrator == nil {
		t.Fatal("Build returned incomplete result")
	}
	if result.BackendOnline {
		t.Fatal("BackendOnline = true in off mode")
	}
	if result.StoreBackend != "memory" {
		t.Fatalf("StoreBackend = %q, want memory", result.StoreBackend)
	}
	if result.IndexWarning != nil {
		t.Fatalf("IndexWarning = %v, want nil for a missing artifact", result.IndexWarning)
	}
	if result.IndexChunks != 0 {
		t.Fatalf("IndexChunks = %d, want 0", result.IndexChunks)
	}
	caps := result.Orchestrator.Capabilities()
	if caps.Generation || caps.Retrieval {
		t.Fatalf("Capabilities = %+v, want offline", caps)
	}
}

func TestBuildRejectsBadBackendMode(t *testing.T) {
	cfg := config.Config{
		MetricsNamespace: "app_build_badmode_test",
		BackendMode:      "carrier-pigeon",
	}
	if _, err := Build(context.Background(), cfg); err == nil {
		t.Fatal("expected error for unsupported backend mode")
	}
}
