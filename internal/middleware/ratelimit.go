package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-authgate/codegrant/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	limiterRedis "github.com/ulule/limiter/v3/drivers/store/redis"
	"pkt.systems/pslog"
)

const rateLimitPrefix = "codegrant:ratelimit"

// RateLimitConfig holds the configuration for rate limiting with store support
type RateLimitConfig struct {
	RequestsPerMinute int
	CleanupInterval   time.Duration // memory store only

	// StoreType is config.RateLimitStoreMemory or config.RateLimitStoreRedis
	StoreType string

	// RedisClient is shared with other components; required for the redis store
	RedisClient *redis.Client

	Logger pslog.Logger
}

// NewRateLimiter creates a per-client-IP rate limiter with the configured
// store backend.
func NewRateLimiter(cfg RateLimitConfig) (gin.HandlerFunc, error) {
	if cfg.RequestsPerMinute <= 0 {
		return nil, fmt.Errorf("invalid rate limit: %d requests per minute", cfg.RequestsPerMinute)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = pslog.NoopLogger()
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = limiter.DefaultCleanUpInterval
	}

	rate := limiter.Rate{
		Period: time.Minute,
		Limit:  int64(cfg.RequestsPerMinute),
	}

	var store limiter.Store
	switch cfg.StoreType {
	case config.RateLimitStoreRedis:
		if cfg.RedisClient == nil {
			return nil, errors.New("redis rate limit store requires a redis client")
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := cfg.RedisClient.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}

		var err error
		store, err = limiterRedis.NewStoreWithOptions(cfg.RedisClient, limiter.StoreOptions{
			Prefix: rateLimitPrefix,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create Redis store: %w", err)
		}
	default:
		store = memory.NewStoreWithOptions(limiter.StoreOptions{
			Prefix:          rateLimitPrefix,
			CleanUpInterval: cfg.CleanupInterval,
		})
	}

	instance := limiter.New(store, rate)

	return mgin.NewMiddleware(instance,
		mgin.WithLimitReachedHandler(func(c *gin.Context) {
			logger.Warn("ratelimit.exceeded",
				"client_ip", c.ClientIP(),
				"path", c.FullPath(),
				"limit", cfg.RequestsPerMinute,
			)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":             "rate_limit_exceeded",
				"error_description": "Too many requests. Please try again later.",
			})
		}),
		mgin.WithErrorHandler(func(c *gin.Context, err error) {
			// Fail open.
			logger.Error("ratelimit.store_error", "error", err)
			c.Next()
		}),
	), nil
}

// NewMemoryRateLimiter creates an in-memory rate limiter (single instance)
func NewMemoryRateLimiter(requestsPerMinute int) (gin.HandlerFunc, error) {
	return NewRateLimiter(RateLimitConfig{
		RequestsPerMinute: requestsPerMinute,
		StoreType:         config.RateLimitStoreMemory,
	})
}
