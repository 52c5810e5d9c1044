package bootstrap

import (
	"context"
	"net/http"

	"github.com/go-authgate/codegrant/internal/config"
	"github.com/go-authgate/codegrant/internal/core"
	"github.com/go-authgate/codegrant/internal/services"
	"github.com/go-authgate/codegrant/internal/store"
	"github.com/go-authgate/codegrant/internal/token"

	"github.com/appleboy/graceful"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"pkt.systems/pslog"
)

// Application holds all initialized components
type Application struct {
	Config *config.Config
	Logger pslog.Logger

	// Core infrastructure
	DB                   *store.Store
	MetricsRecorder      core.Recorder
	RevocationCache      core.Cache[bool]
	RateLimitRedisClient *redis.Client
	Codec                *token.Codec

	// Services
	Registry             *services.SessionRegistry
	AuthorizationService *services.AuthorizationService
	ResourceGuard        *services.ResourceGuard
	Hooks                *services.HookDispatcher

	// HTTP
	HandlerSet handlerSet
	Router     *gin.Engine
	Server     *http.Server
}

// Run initializes and starts the application. Extra hooks are fired around
// every authorization decision in addition to the logging hook.
func Run(ctx context.Context, cfg *config.Config, logger pslog.Logger, hooks ...core.EventHook) error {
	app := &Application{
		Config: cfg,
		Logger: logger,
	}

	// Phase 1: Validate configuration
	if err := validateConfiguration(cfg); err != nil {
		return err
	}
	warnInsecureDefaults(cfg, logger)

	// Phase 2: Initialize infrastructure
	if err := app.initializeInfrastructure(ctx); err != nil {
		app.closeInfrastructure()
		return err
	}

	// Phase 3: Initialize business layer
	if err := app.initializeBusinessLayer(hooks); err != nil {
		app.closeInfrastructure()
		return err
	}

	// Phase 4: Initialize HTTP layer
	if err := app.initializeHTTPLayer(); err != nil {
		app.closeInfrastructure()
		return err
	}

	// Phase 5: Start server with graceful shutdown
	app.startWithGracefulShutdown()

	return nil
}

// initializeInfrastructure sets up signing keys, database, metrics, cache, and Redis
func (app *Application) initializeInfrastructure(ctx context.Context) error {
	var err error

	app.Codec, err = initializeCodec(app.Config, app.Logger)
	if err != nil {
		return err
	}

	// Metrics
	app.MetricsRecorder = initializeMetrics(app.Config, app.Logger)

	// Database
	app.DB, err = initializeDatabase(app.Config, app.Logger, app.MetricsRecorder)
	if err != nil {
		return err
	}

	// Revocation cache
	app.RevocationCache, err = initializeRevocationCache(ctx, app.Config, app.Logger)
	if err != nil {
		return err
	}

	// Redis (for rate limiting)
	app.RateLimitRedisClient, err = initializeRateLimitRedisClient(ctx, app.Config, app.Logger)
	if err != nil {
		return err
	}

	return nil
}

// initializeBusinessLayer sets up services
func (app *Application) initializeBusinessLayer(hooks []core.EventHook) error {
	registry, authorizationService, guard, dispatcher, err := initializeServices(
		app.Config,
		app.DB,
		app.Codec,
		app.RevocationCache,
		app.Logger,
		app.MetricsRecorder,
		hooks,
	)
	if err != nil {
		return err
	}
	app.Registry = registry
	app.AuthorizationService = authorizationService
	app.ResourceGuard = guard
	app.Hooks = dispatcher
	return nil
}

// initializeHTTPLayer sets up handlers, router, and server
func (app *Application) initializeHTTPLayer() error {
	app.HandlerSet = initializeHandlers(
		app.Config,
		app.DB,
		app.AuthorizationService,
		app.ResourceGuard,
		app.Hooks,
		app.Logger,
		app.MetricsRecorder,
	)

	var err error
	app.Router, err = setupRouter(
		app.Config,
		app.DB,
		app.RevocationCache,
		app.HandlerSet,
		app.ResourceGuard,
		app.MetricsRecorder,
		app.RateLimitRedisClient,
		app.Logger,
	)
	if err != nil {
		return err
	}

	app.Server = createHTTPServer(app.Config, app.Router)
	return nil
}

// startWithGracefulShutdown starts the server and handles graceful shutdown
func (app *Application) startWithGracefulShutdown() {
	m := graceful.NewManager()

	// Add jobs
	addServerRunningJob(m, app.Server, app.Logger)
	addCleanupJob(m, app.Config, app.DB, app.Logger)
	addShutdownJob(m, app)

	// Wait for graceful shutdown
	<-m.Done()
}

// closeInfrastructure releases Redis, cache and database connections.
func (app *Application) closeInfrastructure() {
	if app.RateLimitRedisClient != nil {
		if err := app.RateLimitRedisClient.Close(); err != nil {
			app.Logger.Error("redis.close_failed", "error", err)
		}
	}
	if app.RevocationCache != nil {
		if err := app.RevocationCache.Close(); err != nil {
			app.Logger.Error("cache.close_failed", "error", err)
		}
	}
	if app.DB != nil {
		if err := app.DB.Close(); err != nil {
			app.Logger.Error("database.close_failed", "error", err)
		}
	}
}
