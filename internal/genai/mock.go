package genai

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
)

// MockBackend provides deterministic local replies for tests and mock mode.
type MockBackend struct {
	// Reply overrides the canned response when set. Err forces a failure.
	Reply string
	Err   error
}

func NewMockBackend() *MockBackend { return &MockBackend{} }

func (b *MockBackend) Complete(ctx context.Context, req Request) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}
	if b.Err != nil {
		return "", b.Err
	}
	if b.Reply != "" {
		return b.Reply, nil
	}

	base := strings.TrimSpace(req.UserText)
	if base == "" {
		base = "your finances"
	}
	if strings.TrimSpace(req.Grounding) != "" {
		return fmt.Sprintf("Based on the provided material: a short note about %s.", base), nil
	}
	return fmt.Sprintf("A short note about %s.", base), nil
}

// MockEmbedder maps text deterministically onto a fixed-dimension vector so
// retrieval behaves reproducibly without a remote embedding service.
type MockEmbedder struct {
	dim int
}

func NewMockEmbedder(dim int) *MockEmbedder {
	if dim <= 0 {
		dim = 64
	}
	return &MockEmbedder{dim: dim}
}

func (e *MockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, e.dim)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(word))
		vec[int(h.Sum32())%e.dim] += 1
	}
	return vec, nil
}
