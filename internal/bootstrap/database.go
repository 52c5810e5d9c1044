package bootstrap

import (
	"fmt"

	"github.com/go-authgate/codegrant/internal/config"
	"github.com/go-authgate/codegrant/internal/core"
	"github.com/go-authgate/codegrant/internal/store"

	"pkt.systems/pslog"
)

// initializeDatabase creates and initializes the database connection
func initializeDatabase(
	cfg *config.Config,
	logger pslog.Logger,
	recorder core.Recorder,
) (*store.Store, error) {
	db, err := store.New(
		cfg.DatabaseDriver,
		cfg.DatabaseDSN,
		cfg,
		store.WithLogger(logger),
		store.WithRecorder(recorder),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	logger.Info("database.ready", "driver", cfg.DatabaseDriver)
	return db, nil
}
