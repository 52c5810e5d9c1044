package core

import (
	"context"
	"time"
)

// Cache[T] is a TTL key-value cache. The revocation cache stores bool
// values: true pins a token as revoked.
type Cache[T any] interface {
	// Get returns the cached value, or ErrCacheMiss when the key is absent
	// or expired.
	Get(ctx context.Context, key string) (T, error)

	// Set stores value, replacing any existing entry.
	Set(ctx context.Context, key string, value T, ttl time.Duration) error

	// MSet stores every value, replacing existing entries.
	MSet(ctx context.Context, values map[string]T, ttl time.Duration) error

	Close() error
	Health(ctx context.Context) error

	// GetWithFetch returns the cached value or, on a miss, the value loaded
	// by fetchFunc. The loaded value is stored only while the key is still
	// absent: an entry written by Set or MSet during the fetch is kept and
	// returned instead.
	GetWithFetch(
		ctx context.Context,
		key string,
		ttl time.Duration,
		fetchFunc func(ctx context.Context, key string) (T, error),
	) (T, error)
}
