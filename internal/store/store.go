package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/go-authgate/codegrant/internal/config"
	"github.com/go-authgate/codegrant/internal/core"
	"github.com/go-authgate/codegrant/internal/models"
	"github.com/go-authgate/codegrant/internal/retry"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"pkt.systems/pslog"
)

const (
	defaultStorageTimeout = 3 * time.Second
	defaultRetryDelay     = 100 * time.Millisecond
)

type Store struct {
	db         *gorm.DB
	logger     pslog.Logger
	metrics    core.Recorder
	timeout    time.Duration
	retryDelay time.Duration
	ownerModel string
}

// Option configures a Store
type Option func(*Store)

// WithLogger sets the structured logger used for storage events
func WithLogger(l pslog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRecorder sets the metrics recorder used to count storage errors
func WithRecorder(m core.Recorder) Option {
	return func(s *Store) {
		s.metrics = m
	}
}

func New(driverName, dsn string, cfg *config.Config, opts ...Option) (*Store, error) {
	dialector, err := GetDialector(driverName, dsn)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	if driverName == "sqlite" {
		// SQLite allows a single writer; ":memory:" databases are also per-connection.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	// Auto migrate
	if err := db.AutoMigrate(
		&models.User{},
		&models.OAuthClient{},
		&models.AuthorizationCode{},
		&models.Session{},
		&models.AccessToken{},
		&models.RefreshToken{},
	); err != nil {
		return nil, err
	}

	store := &Store{
		db:         db,
		logger:     pslog.NoopLogger(),
		timeout:    defaultStorageTimeout,
		retryDelay: defaultRetryDelay,
		ownerModel: "Users",
	}
	if cfg != nil {
		if cfg.StorageTimeout > 0 {
			store.timeout = cfg.StorageTimeout
		}
		if cfg.StorageRetryDelay > 0 {
			store.retryDelay = cfg.StorageRetryDelay
		}
		if cfg.DefaultOwnerModel != "" {
			store.ownerModel = cfg.DefaultOwnerModel
		}
	}
	for _, opt := range opts {
		opt(store)
	}

	// Seed default data
	if err := store.seedData(context.Background(), cfg); err != nil {
		store.logger.Warn("store.seed.failed", "error", err)
	}

	return store, nil
}

func (s *Store) seedData(ctx context.Context, cfg *config.Config) error {
	var userCount int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Count(&userCount).Error; err != nil {
		return err
	}
	if userCount == 0 {
		user := &models.User{
			ID:       uuid.New().String(),
			Username: "admin",
			Email:    "admin@localhost",
			FullName: "Administrator",
		}
		if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
			return err
		}
		s.logger.Info("store.seed.user", "username", user.Username, "owner_id", user.ID)
	}

	var clientCount int64
	if err := s.db.WithContext(ctx).Model(&models.OAuthClient{}).Count(&clientCount).Error; err != nil {
		return err
	}
	if clientCount > 0 {
		return nil
	}

	scopes := "read write"
	baseURL := "http://localhost:8080"
	if cfg != nil {
		if len(cfg.AllowedScopes) > 0 {
			scopes = strings.Join(cfg.AllowedScopes, " ")
		}
		if cfg.BaseURL != "" {
			baseURL = strings.TrimRight(cfg.BaseURL, "/")
		}
	}

	client := &models.OAuthClient{
		ClientID:     uuid.New().String(),
		ClientName:   "CodeGrant Default Client",
		Scopes:       scopes,
		GrantTypes:   models.GrantTypeAuthorizationCode + " " + models.GrantTypeRefreshToken,
		RedirectURIs: models.StringArray{baseURL + "/callback"},
		IsActive:     true,
	}
	secret, err := client.GenerateClientSecret(ctx)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Create(client).Error; err != nil {
		return err
	}
	s.logger.Info("store.seed.client",
		"client_id", client.ClientID,
		"client_secret", secret,
		"redirect_uri", client.RedirectURIs[0],
	)
	return nil
}

// run executes fn under the storage timeout, retrying transient failures once.
func (s *Store) run(ctx context.Context, op string, fn func(db *gorm.DB) error) error {
	err := retry.Do(ctx, func(ctx context.Context) error {
		return s.exec(ctx, fn)
	},
		retry.WithMaxRetries(1),
		retry.WithInitialRetryDelay(s.retryDelay),
		retry.WithRetryable(isTransient),
	)
	return s.translate(op, err)
}

// runOnce executes fn under the storage timeout without retrying. Conditional
// writes use it: a retry after a lost commit acknowledgement would report
// the row as already consumed.
func (s *Store) runOnce(ctx context.Context, op string, fn func(db *gorm.DB) error) error {
	return s.translate(op, s.exec(ctx, fn))
}

func (s *Store) exec(ctx context.Context, fn func(db *gorm.DB) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return fn(s.db.WithContext(ctx))
}

func (s *Store) translate(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound), errors.Is(err, ErrRecordNotFound):
		return ErrRecordNotFound
	case errors.Is(err, ErrAuthCodeAlreadyUsed), errors.Is(err, ErrTokenAlreadyRevoked):
		return err
	case isTransient(err):
		s.logger.Warn("store.unavailable", "op", op, "error", err)
		if s.metrics != nil {
			s.metrics.RecordStorageError(op)
		}
		return fmt.Errorf("%s: %w: %w", op, ErrStorageUnavailable, err)
	default:
		if s.metrics != nil {
			s.metrics.RecordStorageError(op)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
}

// isTransient reports whether err looks like a timeout or a lost connection.
func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// Health checks the database connection
func (s *Store) Health(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	return nil
}

// Close releases the underlying connection pool
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
