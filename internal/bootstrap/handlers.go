package bootstrap

import (
	"github.com/go-authgate/codegrant/internal/config"
	"github.com/go-authgate/codegrant/internal/core"
	"github.com/go-authgate/codegrant/internal/handlers"
	"github.com/go-authgate/codegrant/internal/services"

	"pkt.systems/pslog"
)

// handlerSet holds all HTTP handlers
type handlerSet struct {
	authorization *handlers.AuthorizationHandler
	token         *handlers.TokenHandler
}

// initializeHandlers creates all HTTP handlers
func initializeHandlers(
	cfg *config.Config,
	users core.UserStore,
	authorizationService *services.AuthorizationService,
	guard *services.ResourceGuard,
	hooks *services.HookDispatcher,
	logger pslog.Logger,
	recorder core.Recorder,
) handlerSet {
	session := handlers.NewCookieAuthSession(users, cfg.DefaultOwnerModel, cfg.LoginURL, logger)
	return handlerSet{
		authorization: handlers.NewAuthorizationHandler(
			authorizationService,
			hooks,
			session,
			cfg,
			logger,
			recorder,
		),
		token: handlers.NewTokenHandler(authorizationService, guard, logger),
	}
}
