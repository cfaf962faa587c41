package prefs

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	value     string
	expiresAt time.Time // zero means no expiry
}

// InMemoryStore keeps preferences in-process with lazy TTL expiry.
type InMemoryStore struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

func (s *InMemoryStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return "", ErrNotFound
	}
	if !e.expiresAt.IsZero() && !s.now().Before(e.expiresAt) {
		delete(s.entries, key)
		return "", ErrNotFound
	}
	return e.value, nil
}

func (s *InMemoryStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	e := entry{value: value}
	if ttl > 0 {
		e.expiresAt = s.now().Add(ttl)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = e
	return nil
}

func (s *InMemoryStore) Close() error { return nil }
