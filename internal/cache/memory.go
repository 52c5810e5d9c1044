package cache

import (
	"context"
	"sync"
	"time"

	"github.com/go-authgate/codegrant/internal/core"
)

type cacheItem[T any] struct {
	value     T
	expiresAt time.Time
}

// Compile-time interface check.
var _ core.Cache[struct{}] = (*MemoryCache[struct{}])(nil)

// sweepEvery is the number of writes between scans for expired entries.
const sweepEvery = 1024

// MemoryCache implements core.Cache with in-memory storage.
// Expired entries are hidden on Get and removed by a periodic sweep on write.
// Suitable for single-instance deployments.
type MemoryCache[T any] struct {
	mu     sync.RWMutex
	items  map[string]cacheItem[T]
	writes int
}

// NewMemoryCache creates a new memory cache instance.
func NewMemoryCache[T any]() *MemoryCache[T] {
	return &MemoryCache[T]{
		items: make(map[string]cacheItem[T]),
	}
}

// Get retrieves a value from cache.
func (m *MemoryCache[T]) Get(ctx context.Context, key string) (T, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	item, exists := m.items[key]
	if !exists || time.Now().After(item.expiresAt) {
		var zero T
		return zero, ErrCacheMiss
	}

	return item.value, nil
}

// Set stores a value in cache with TTL.
func (m *MemoryCache[T]) Set(ctx context.Context, key string, value T, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items[key] = cacheItem[T]{
		value:     value,
		expiresAt: time.Now().Add(ttl),
	}
	m.afterWrite(1)

	return nil
}

// MSet stores multiple values in cache with TTL.
func (m *MemoryCache[T]) MSet(ctx context.Context, values map[string]T, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	expiresAt := time.Now().Add(ttl)
	for key, value := range values {
		m.items[key] = cacheItem[T]{
			value:     value,
			expiresAt: expiresAt,
		}
	}
	m.afterWrite(len(values))

	return nil
}

// afterWrite must be called with mu held for writing.
func (m *MemoryCache[T]) afterWrite(n int) {
	m.writes += n
	if m.writes < sweepEvery {
		return
	}
	m.writes = 0
	now := time.Now()
	for key, item := range m.items {
		if now.After(item.expiresAt) {
			delete(m.items, key)
		}
	}
}

// Len returns the number of stored entries, expired ones included.
func (m *MemoryCache[T]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

// Close cleans up resources.
func (m *MemoryCache[T]) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items = make(map[string]cacheItem[T])
	return nil
}

// Health checks if the cache is healthy (always true for memory cache).
func (m *MemoryCache[T]) Health(ctx context.Context) error {
	return nil
}

// GetWithFetch loads a missing key through fetchFunc. The fill happens
// under the write lock and never replaces an entry stored while fetchFunc
// ran, so a concurrent revocation survives a stale "not revoked" read.
// Concurrent misses may each call fetchFunc.
func (m *MemoryCache[T]) GetWithFetch(
	ctx context.Context,
	key string,
	ttl time.Duration,
	fetchFunc func(ctx context.Context, key string) (T, error),
) (T, error) {
	if value, err := m.Get(ctx, key); err == nil {
		return value, nil
	}
	value, err := fetchFunc(ctx, key)
	if err != nil {
		var zero T
		return zero, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if item, ok := m.items[key]; ok && time.Now().Before(item.expiresAt) {
		return item.value, nil
	}
	m.items[key] = cacheItem[T]{value: value, expiresAt: time.Now().Add(ttl)}
	m.afterWrite(1)
	return value, nil
}
