package bootstrap

import (
	"errors"
	"fmt"

	"github.com/go-authgate/codegrant/internal/config"

	"pkt.systems/pslog"
)

const defaultSessionSecret = "session-secret-change-in-production"

// validateConfiguration validates all configuration settings
func validateConfiguration(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := validateDatabaseConfig(cfg); err != nil {
		return fmt.Errorf("invalid database configuration: %w", err)
	}
	if cfg.IsProduction && cfg.SessionSecret == defaultSessionSecret {
		return errors.New("SESSION_SECRET must be changed in production")
	}
	return nil
}

// validateDatabaseConfig checks that the selected driver has what it needs
func validateDatabaseConfig(cfg *config.Config) error {
	switch cfg.DatabaseDriver {
	case "sqlite":
	case "postgres":
		if cfg.DatabaseDSN == "" {
			return errors.New("DATABASE_DSN is required when DATABASE_DRIVER=postgres")
		}
	default:
		return fmt.Errorf(
			"invalid DATABASE_DRIVER: %s (must be: sqlite, postgres)",
			cfg.DatabaseDriver,
		)
	}
	return nil
}

// warnInsecureDefaults logs settings that are acceptable in development only
func warnInsecureDefaults(cfg *config.Config, logger pslog.Logger) {
	if cfg.SessionSecret == defaultSessionSecret {
		logger.Warn("config.session_secret.default")
	}
	if cfg.PrivateKeyPath == "" {
		logger.Warn("config.signing_key.ephemeral",
			"hint", "set PRIVATE_KEY_PATH and PUBLIC_KEY_PATH to keep tokens valid across restarts",
		)
	}
	if cfg.MetricsEnabled && cfg.MetricsToken == "" && cfg.IsProduction {
		logger.Warn("config.metrics.unauthenticated")
	}
	if cfg.AllowOwnerOverride {
		logger.Warn("config.owner_override.enabled")
	}
}
