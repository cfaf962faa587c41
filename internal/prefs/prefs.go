// Package prefs stores long-lived user preferences as key/value pairs with an
// optional TTL. Expiry is lazy: expired entries are dropped when read, there is
// no background sweep. Concurrent writes to the same key resolve last-writer-wins.
package prefs

import (
	"context"
	"errors"
	"strings"
	"time"
)

var ErrNotFound = errors.New("preference not found")

// Store persists user preferences.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Close() error
}

// NewStore creates a redis-backed store when configured, otherwise in-memory.
func NewStore(ctx context.Context, redisURL string) (Store, error) {
	if strings.TrimSpace(redisURL) == "" {
		return NewInMemoryStore(), nil
	}
	return NewRedisStore(ctx, redisURL)
}
