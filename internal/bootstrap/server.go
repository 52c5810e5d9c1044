package bootstrap

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-authgate/codegrant/internal/config"
	"github.com/go-authgate/codegrant/internal/store"

	"github.com/appleboy/graceful"
	"pkt.systems/pslog"
)

// createHTTPServer creates the HTTP server instance
func createHTTPServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

// addServerRunningJob adds the HTTP server running job
func addServerRunningJob(m *graceful.Manager, srv *http.Server, logger pslog.Logger) {
	m.AddRunningJob(func(ctx context.Context) error {
		go func() {
			logger.Info("server.listen", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Fatal("server.listen_failed", "error", err)
			}
		}()
		<-ctx.Done()
		return nil
	})
}

// addShutdownJob drains the HTTP server, then waits for in-flight hooks and
// releases storage. Steps run in order within a single job.
func addShutdownJob(m *graceful.Manager, app *Application) {
	m.AddShutdownJob(func() error {
		logger := app.Logger
		logger.Info("server.shutdown.start")

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		serverErr := app.Server.Shutdown(ctx)
		if serverErr != nil {
			logger.Error("server.shutdown.forced", "error", serverErr)
		}

		hookCtx, hookCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer hookCancel()
		if err := app.Hooks.Wait(hookCtx); err != nil {
			logger.Warn("hooks.shutdown.timeout", "error", err)
		}

		app.closeInfrastructure()
		logger.Info("server.shutdown.done")
		return serverErr
	})
}

// addCleanupJob periodically deletes expired codes and tokens
func addCleanupJob(
	m *graceful.Manager,
	cfg *config.Config,
	db *store.Store,
	logger pslog.Logger,
) {
	if cfg.CleanupInterval <= 0 {
		return
	}

	m.AddRunningJob(func(ctx context.Context) error {
		ticker := time.NewTicker(cfg.CleanupInterval)
		defer ticker.Stop()

		// Run cleanup immediately on startup
		runCleanup(ctx, db, logger)

		for {
			select {
			case <-ticker.C:
				runCleanup(ctx, db, logger)
			case <-ctx.Done():
				return nil
			}
		}
	})
}

func runCleanup(ctx context.Context, db *store.Store, logger pslog.Logger) {
	res, err := db.DeleteExpired(ctx)
	if err != nil {
		logger.Warn("cleanup.failed", "error", err)
		return
	}
	if res.AuthorizationCodes+res.AccessTokens+res.RefreshTokens > 0 {
		logger.Info("cleanup.done",
			"authorization_codes", res.AuthorizationCodes,
			"access_tokens", res.AccessTokens,
			"refresh_tokens", res.RefreshTokens,
		)
	}
}
