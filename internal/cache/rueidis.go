package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-authgate/codegrant/internal/core"

	"github.com/redis/rueidis"
)

var _ core.Cache[struct{}] = (*RueidisCache[struct{}])(nil)

// RueidisCache stores JSON encoded values in Redis so that every instance
// sharing the database sees the same revocations.
type RueidisCache[T any] struct {
	client rueidis.Client
	prefix string
}

// NewRueidisCache connects to addr and pings it before returning.
func NewRueidisCache[T any](
	ctx context.Context,
	addr, password string,
	db int,
	prefix string,
) (*RueidisCache[T], error) {
	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  []string{addr},
		Password:     password,
		SelectDB:     db,
		DisableCache: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create redis client: %w", err)
	}
	c := &RueidisCache[T]{client: client, prefix: prefix}
	if err := c.Health(ctx); err != nil {
		client.Close()
		return nil, err
	}
	return c, nil
}

func (r *RueidisCache[T]) Get(ctx context.Context, key string) (T, error) {
	var value T
	str, err := r.client.Do(ctx, r.client.B().Get().Key(r.prefix+key).Build()).ToString()
	switch {
	case rueidis.IsRedisNil(err):
		return value, ErrCacheMiss
	case err != nil:
		return value, unavailable(err)
	}
	if err := json.Unmarshal([]byte(str), &value); err != nil {
		return value, fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	return value, nil
}

func (r *RueidisCache[T]) Set(ctx context.Context, key string, value T, ttl time.Duration) error {
	return r.MSet(ctx, map[string]T{key: value}, ttl)
}

// MSet pipelines one SET EX per value.
func (r *RueidisCache[T]) MSet(ctx context.Context, values map[string]T, ttl time.Duration) error {
	cmds := make(rueidis.Commands, 0, len(values))
	for key, value := range values {
		encoded, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
		cmds = append(cmds, r.client.B().Set().
			Key(r.prefix+key).
			Value(string(encoded)).
			Ex(ttl).
			Build())
	}
	for _, resp := range r.client.DoMulti(ctx, cmds...) {
		if err := resp.Error(); err != nil {
			return unavailable(err)
		}
	}
	return nil
}

func (r *RueidisCache[T]) Close() error {
	r.client.Close()
	return nil
}

func (r *RueidisCache[T]) Health(ctx context.Context) error {
	if err := r.client.Do(ctx, r.client.B().Ping().Build()).Error(); err != nil {
		return unavailable(err)
	}
	return nil
}

// GetWithFetch fills a miss with SET NX so that a value pinned by another
// instance while fetchFunc ran is never overwritten. When the fill loses,
// the pinned value is returned. A failed fill still returns the fetched
// value: the store is authoritative.
func (r *RueidisCache[T]) GetWithFetch(
	ctx context.Context,
	key string,
	ttl time.Duration,
	fetchFunc func(ctx context.Context, key string) (T, error),
) (T, error) {
	if value, err := r.Get(ctx, key); err == nil {
		return value, nil
	}
	value, err := fetchFunc(ctx, key)
	if err != nil {
		var zero T
		return zero, err
	}

	encoded, err := json.Marshal(value)
	if err != nil {
		return value, nil
	}
	err = r.client.Do(ctx, r.client.B().Set().
		Key(r.prefix+key).
		Value(string(encoded)).
		Nx().
		Ex(ttl).
		Build()).Error()
	if rueidis.IsRedisNil(err) {
		if pinned, getErr := r.Get(ctx, key); getErr == nil {
			return pinned, nil
		}
	}
	return value, nil
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
}
