// Package genai bridges the orchestrator with the remote text-completion
// service. The backend is treated as untrusted text: it is never relied on for
// numeric facts or citations, and its failures degrade to offline templates.
package genai

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrBackendUnavailable wraps any transport or provider failure of the
// generation backend. The orchestrator converts it into the offline path.
var ErrBackendUnavailable = errors.New("generation backend unavailable")

// Turn is one prior conversational turn included in the history window.
type Turn struct {
	Role string
	Text string
}

// Request is the normalized completion request.
type Request struct {
	System    string
	History   []Turn
	Grounding string
	UserText  string
}

// Backend produces free text for a request.
type Backend interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Embedder maps text to a query vector. Treated as a pure function.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Config controls backend construction.
type Config struct {
	Mode           string
	APIKey         string
	Model          string
	EmbeddingModel string
}

// NewBackend builds a backend for the configured mode. The returned Backend is
// nil in "off" mode and in "auto" mode without a credential: a supported
// offline configuration, not an error.
func NewBackend(cfg Config) (Backend, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = "auto"
	}

	switch mode {
	case "auto":
		if strings.TrimSpace(cfg.APIKey) == "" {
			return nil, nil
		}
		return NewOpenAIBackend(cfg.APIKey, cfg.Model), nil
	case "openai":
		if strings.TrimSpace(cfg.APIKey) == "" {
			return nil, errors.New("openai backend requires an API key")
		}
		return NewOpenAIBackend(cfg.APIKey, cfg.Model), nil
	case "mock":
		return NewMockBackend(), nil
	case "off":
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported backend mode %q", cfg.Mode)
	}
}

// NewEmbedder builds the matching embedder: OpenAI when a credential exists,
// deterministic local embedding otherwise so retrieval still works offline.
func NewEmbedder(cfg Config) Embedder {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "mock" || strings.TrimSpace(cfg.APIKey) == "" {
		return NewMockEmbedder(64)
	}
	return NewOpenAIEmbedder(cfg.APIKey, cfg.EmbeddingModel)
}
