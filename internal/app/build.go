package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/sajjadurrahman1/Wealth-Navigator/internal/assistant"
	"github.com/sajjadurrahman1/Wealth-Navigator/internal/config"
	"github.com/sajjadurrahman1/Wealth-Navigator/internal/fx"
	"github.com/sajjadurrahman1/Wealth-Navigator/internal/genai"
	"github.com/sajjadurrahman1/Wealth-Navigator/internal/httpapi"
	"github.com/sajjadurrahman1/Wealth-Navigator/internal/observability"
	"github.com/sajjadurrahman1/Wealth-Navigator/internal/prefs"
	"github.com/sajjadurrahman1/Wealth-Navigator/internal/retrieval"
	"github.com/sajjadurrahman1/Wealth-Navigator/internal/store"
)

type BuildResult struct {
	Config       config.Config
	API          *httpapi.Server
	Orchestrator *assistant.Orchestrator
	Metrics      *observability.Metrics

	// StoreBackend and BackendOnline describe the resolved wiring for
	// startup logging.
	StoreBackend  string
	BackendOnline bool
	IndexChunks   int
	IndexWarning  error

	// Cleanup should be called on shutdown to release external resources.
	Cleanup func() error
}

func Build(ctx context.Context, cfg config.Config) (*BuildResult, error) {
	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	conversationStore, err := store.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("conversation store init failed: %w", err)
	}

	prefStore, err := prefs.NewStore(ctx, cfg.RedisURL)
	if err != nil {
		_ = conversationStore.Close()
		return nil, fmt.Errorf("preference store init failed: %w", err)
	}

	backendCfg := genai.Config{
		Mode:           cfg.BackendMode,
		APIKey:         cfg.OpenAIAPIKey,
		Model:          cfg.OpenAIModel,
		EmbeddingModel: cfg.OpenAIEmbeddingModel,
	}
	backend, err := genai.NewBackend(backendCfg)
	if err != nil {
		_ = prefStore.Close()
		_ = conversationStore.Close()
		return nil, fmt.Errorf("generation backend init failed: %w", err)
	}
	var embedder genai.Embedder
	if backend != nil {
		embedder = genai.NewEmbedder(backendCfg)
	}

	// A broken index artifact is a degraded start, not a failed one: the
	// warning is surfaced for logging and retrieval reports misses.
	index, indexErr := retrieval.Load(cfg.IndexVectorsPath, cfg.IndexMetadataPath)

	rates := fx.NewLookup(cfg.FXAPIBaseURL, cfg.FXTimeout, cfg.FXCacheTTL)

	orchestrator := assistant.New(
		conversationStore,
		index,
		backend,
		embedder,
		rates,
		metrics,
		assistant.Options{
			RetrievalTopK:     cfg.RetrievalTopK,
			RetrievalMinScore: cfg.RetrievalMinScore,
			BackendTimeout:    cfg.BackendTimeout,
			HistoryWindow:     cfg.HistoryWindow,
		},
	)

	api := httpapi.New(cfg, conversationStore, prefStore, orchestrator, metrics, index.Len())

	cleanup := func() error {
		var errs []string
		if err := prefStore.Close(); err != nil {
			errs = append(errs, err.Error())
		}
		if err := conversationStore.Close(); err != nil {
			errs = append(errs, err.Error())
		}
		if len(errs) > 0 {
			return fmt.Errorf("%s", strings.Join(errs, "; "))
		}
		return nil
	}

	storeBackend := "memory"
	if strings.TrimSpace(cfg.DatabaseURL) != "" {
		storeBackend = "postgres"
	}

	return &BuildResult{
		Config:        cfg,
		API:           api,
		Orchestrator:  orchestrator,
		Metrics:       metrics,
		StoreBackend:  storeBackend,
		BackendOnline: backend != nil,
		IndexChunks:   index.Len(),
		IndexWarning:  indexErr,
		Cleanup:       cleanup,
	}, nil
}
