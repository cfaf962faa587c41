package genai

import (
	"context"
	"testing"
)

func TestNewBackendModes(t *testing.T) {
	b, err := NewBackend(Config{Mode: "off"})
	if err != nil {
		t.Fatalf("NewBackend(off) error = %v", err)
	}
	if b != nil {
		t.Fatalf("NewBackend(off) = %T, want nil backend", b)
	}

	b, err = NewBackend(Config{Mode: "auto"})
	if err != nil {
		t.Fatalf("NewBackend(auto, no key) error = %v", err)
	}
	if b != nil {
		t.Fatalf("NewBackend(auto, no key) = %T, want nil for offline mode", b)
	}

	b, err = NewBackend(Config{Mode: "mock"})
	if err != nil {
		t.Fatalf("NewBackend(mock) error = %v", err)
	}
	if _, ok := b.(*MockBackend); !ok {
		t.Fatalf("NewBackend(mock) = %T, want *MockBackend", b)
	}

	if _, err := NewBackend(Config{Mode: "openai"}); err == nil {
		t.Fatalf("NewBackend(openai, no key) error = nil, want error")
	}
	if _, err := NewBackend(Config{Mode: "carrier-pigeon"}); err == nil {
		t.Fatalf("NewBackend(bad mode) error = nil, want error")
	}
}

func TestMockBackendDeterministic(t *testing.T) {
	b := NewMockBackend()
	first, err := b.Complete(context.Background(), Request{UserText: "emergency funds"})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	second, err := b.Complete(context.Background(), Request{UserText: "emergency funds"})
	if err != nil {
		t.Fatalf("Complete() second error = %v", err)
	}
	if first != second {
		t.Fatalf("mock replies differ: %q vs %q", first, second)
	}
}

func TestMockBackendHonorsCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewMockBackend().Complete(ctx, Request{UserText: "x"}); err == nil {
		t.Fatalf("Complete() with cancelled ctx error = nil, want ctx error")
	}
}

func TestMockEmbedderStable(t *testing.T) {
	e := NewMockEmbedder(32)
	a, err := e.Embed(context.Background(), "tax brackets in germany")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	b, err := e.Embed(context.Background(), "tax brackets in germany")
	if err != nil {
		t.Fatalf("Embed() second error = %v", err)
	}
	if len(a) != 32 {
		t.Fatalf("len(vec) = %d, want 32", len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("embedding not deterministic at dim %d", i)
		}
	}
}
