package bootstrap

import (
	"fmt"

	"github.com/go-authgate/codegrant/internal/config"
	"github.com/go-authgate/codegrant/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"pkt.systems/pslog"
)

// setupTokenRateLimiter returns the middleware limiting the token endpoint,
// or a pass-through handler when rate limiting is disabled.
func setupTokenRateLimiter(
	cfg *config.Config,
	redisClient *redis.Client,
	logger pslog.Logger,
) (gin.HandlerFunc, error) {
	if !cfg.EnableRateLimit {
		logger.Info("ratelimit.disabled")
		return func(c *gin.Context) { c.Next() }, nil
	}

	limiter, err := middleware.NewRateLimiter(middleware.RateLimitConfig{
		RequestsPerMinute: cfg.TokenRateLimit,
		StoreType:         cfg.RateLimitStore,
		RedisClient:       redisClient,
		Logger:            logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create token rate limiter: %w", err)
	}
	logger.Info("ratelimit.enabled",
		"store", cfg.RateLimitStore,
		"requests_per_minute", cfg.TokenRateLimit,
	)
	return limiter, nil
}
