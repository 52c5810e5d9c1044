package bootstrap

import (
	"fmt"

	"github.com/go-authgate/codegrant/internal/config"
	"github.com/go-authgate/codegrant/internal/core"
	"github.com/go-authgate/codegrant/internal/services"
	"github.com/go-authgate/codegrant/internal/store"
	"github.com/go-authgate/codegrant/internal/token"

	"pkt.systems/pslog"
)

// initializeServices creates all business logic services
func initializeServices(
	cfg *config.Config,
	db *store.Store,
	codec *token.Codec,
	revocationCache core.Cache[bool],
	logger pslog.Logger,
	recorder core.Recorder,
	hooks []core.EventHook,
) (
	*services.SessionRegistry,
	*services.AuthorizationService,
	*services.ResourceGuard,
	*services.HookDispatcher,
	error,
) {
	registry := services.NewSessionRegistry(
		db,
		revocationCache,
		cfg.RevocationCacheTTL,
		cfg.AccessTokenExpiration,
		logger,
		recorder,
	)
	authorizationService := services.NewAuthorizationService(db, codec, registry, cfg, logger, recorder)
	guard := services.NewResourceGuard(codec, registry, db, logger, recorder)

	allHooks := append([]core.EventHook{services.LoggingHook{Logger: logger}}, hooks...)
	if cfg.WebhookURL != "" {
		webhook, err := services.NewWebhookHook(services.WebhookOptions{
			URL:        cfg.WebhookURL,
			AuthMode:   cfg.WebhookAuthMode,
			Secret:     cfg.WebhookSecret,
			Timeout:    cfg.HookTimeout,
			MaxRetries: cfg.WebhookMaxRetries,
		}, logger)
		if err != nil {
			return nil, nil, nil, nil, fmt.Errorf("webhook: %w", err)
		}
		allHooks = append(allHooks, webhook)
		logger.Info("webhook.enabled", "url", cfg.WebhookURL, "auth_mode", cfg.WebhookAuthMode)
	}
	dispatcher := services.NewHookDispatcher(cfg.HookTimeout, logger, allHooks...)

	return registry, authorizationService, guard, dispatcher, nil
}
