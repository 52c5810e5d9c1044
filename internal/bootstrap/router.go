package bootstrap

import (
	"net/http"

	"github.com/go-authgate/codegrant/internal/config"
	"github.com/go-authgate/codegrant/internal/core"
	"github.com/go-authgate/codegrant/internal/handlers"
	"github.com/go-authgate/codegrant/internal/metrics"
	"github.com/go-authgate/codegrant/internal/middleware"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"pkt.systems/pslog"
)

const sessionName = "codegrant_session"

// setupRouter configures the Gin router with all routes and middleware
func setupRouter(
	cfg *config.Config,
	db handlers.HealthChecker,
	revocationCache handlers.HealthChecker,
	h handlerSet,
	validator middleware.TokenValidator,
	recorder core.Recorder,
	rateLimitRedisClient *redis.Client,
	logger pslog.Logger,
) (*gin.Engine, error) {
	setupGinMode(cfg)
	r := gin.New()

	r.Use(metrics.HTTPMetricsMiddleware(recorder))
	r.Use(gin.Recovery())

	setupSessionMiddleware(r, cfg)

	r.GET("/healthz", handlers.Healthz(db, revocationCache))
	setupMetricsEndpoint(r, cfg, logger)

	tokenLimiter, err := setupTokenRateLimiter(cfg, rateLimitRedisClient, logger)
	if err != nil {
		return nil, err
	}

	setupAllRoutes(r, h, validator, tokenLimiter, logger)

	logger.Info("server.routes.ready",
		"addr", cfg.ServerAddr,
		"authorize_url", cfg.BaseURL+"/authorize",
		"token_url", cfg.BaseURL+"/token",
	)
	return r, nil
}

// setupSessionMiddleware configures the owner session cookie shared with the
// host application's login flow
func setupSessionMiddleware(r *gin.Engine, cfg *config.Config) {
	sessionStore := cookie.NewStore([]byte(cfg.SessionSecret))
	sessionStore.Options(sessions.Options{
		Path:     "/",
		MaxAge:   cfg.SessionMaxAge,
		HttpOnly: true,
		Secure:   cfg.IsProduction,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(sessionName, sessionStore))
}

// setupMetricsEndpoint configures the Prometheus metrics endpoint
func setupMetricsEndpoint(r *gin.Engine, cfg *config.Config, logger pslog.Logger) {
	switch {
	case !cfg.MetricsEnabled:
		return
	case cfg.MetricsToken != "":
		logger.Info("metrics.endpoint", "path", "/metrics", "auth", "bearer")
	default:
		logger.Info("metrics.endpoint", "path", "/metrics", "auth", "none")
	}
	r.GET("/metrics", middleware.MetricsAuth(cfg.MetricsToken), gin.WrapH(promhttp.Handler()))
}

// setupAllRoutes configures all application routes
func setupAllRoutes(
	r *gin.Engine,
	h handlerSet,
	validator middleware.TokenValidator,
	tokenLimiter gin.HandlerFunc,
	logger pslog.Logger,
) {
	// Legacy entry point
	r.GET("/oauth", h.authorization.RedirectLegacy)

	// Authorization endpoint (browser, requires owner session + CSRF)
	authorize := r.Group("/authorize")
	authorize.Use(middleware.CSRF(logger))
	{
		authorize.GET("", h.authorization.Authorize)
		authorize.POST("", h.authorization.Authorize)
	}

	// Token endpoints (client authenticated)
	r.POST("/token", tokenLimiter, h.token.Token)
	r.POST("/accessToken", tokenLimiter, h.token.Token)
	r.POST("/revoke", tokenLimiter, h.token.Revoke)

	// Protected resource
	r.GET("/me", middleware.BearerAuth(validator), h.token.Me)
}

// setupGinMode sets Gin mode based on environment configuration
func setupGinMode(cfg *config.Config) {
	gin.SetMode(ginModeMap[cfg.IsProduction])
}

var ginModeMap = map[bool]string{
	true:  gin.ReleaseMode,
	false: gin.DebugMode,
}
