package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/go-authgate/codegrant/internal/cache"
	"github.com/go-authgate/codegrant/internal/config"
	"github.com/go-authgate/codegrant/internal/core"
	"github.com/go-authgate/codegrant/internal/metrics"

	"pkt.systems/pslog"
)

const (
	cacheInitTimeout         = 5 * time.Second
	revocationCacheKeyPrefix = "codegrant:revocation:"
)

// initializeMetrics initializes Prometheus metrics
func initializeMetrics(cfg *config.Config, logger pslog.Logger) core.Recorder {
	recorder := metrics.Init(cfg.MetricsEnabled)
	if cfg.MetricsEnabled {
		logger.Info("metrics.enabled")
	} else {
		logger.Info("metrics.disabled")
	}
	return recorder
}

// initializeRevocationCache initializes the revocation cache based on configuration
func initializeRevocationCache(
	ctx context.Context,
	cfg *config.Config,
	logger pslog.Logger,
) (core.Cache[bool], error) {
	switch cfg.RevocationCacheType {
	case config.RevocationCacheRedis:
		ctx, cancel := context.WithTimeout(ctx, cacheInitTimeout)
		defer cancel()

		c, err := cache.NewRueidisCache[bool](
			ctx,
			cfg.RedisAddr,
			cfg.RedisPassword,
			cfg.RedisDB,
			revocationCacheKeyPrefix,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize redis revocation cache: %w", err)
		}
		logger.Info("cache.revocation.ready",
			"type", cfg.RevocationCacheType,
			"addr", cfg.RedisAddr,
			"db", cfg.RedisDB,
			"ttl", cfg.RevocationCacheTTL,
		)
		return c, nil

	default: // memory
		logger.Info("cache.revocation.ready",
			"type", config.RevocationCacheMemory,
			"ttl", cfg.RevocationCacheTTL,
		)
		return cache.NewMemoryCache[bool](), nil
	}
}
