package services

import (
	"context"
	"crypto/rsa"
	"net/url"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/go-authgate/codegrant/internal/cache"
	"github.com/go-authgate/codegrant/internal/config"
	"github.com/go-authgate/codegrant/internal/core"
	"github.com/go-authgate/codegrant/internal/metrics"
	"github.com/go-authgate/codegrant/internal/models"
	"github.com/go-authgate/codegrant/internal/store"
	"github.com/go-authgate/codegrant/internal/token"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"pkt.systems/pslog"
)

const (
	testClientID    = "c1"
	testRedirectURI = "https://app/cb"
	testOwnerModel  = "Users"
	testOwnerID     = "u1"
)

var (
	testKeyOnce sync.Once
	testKey     *rsa.PrivateKey
)

func testPrivateKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	testKeyOnce.Do(func() {
		k, err := token.GenerateKeyPair(token.DefaultKeyBits)
		require.NoError(t, err)
		testKey = k
	})
	return testKey
}

type testEnv struct {
	cfg      *config.Config
	store    *store.Store
	db       *gorm.DB // second connection for inspecting rows
	codec    *token.Codec
	registry *SessionRegistry
	svc      *AuthorizationService
	guard    *ResourceGuard
	client   *models.OAuthClient
	secret   string
}

func getTestConfig() *config.Config {
	return &config.Config{
		BaseURL:                   "http://localhost:8080",
		AllowedScopes:             []string{"read", "write"},
		AuthCodeExpiration:        10 * time.Minute,
		AccessTokenExpiration:     time.Hour,
		RefreshTokenExpiration:    24 * time.Hour,
		EnableRefreshTokens:       true,
		RequireExactRedirectMatch: true,
		DefaultOwnerModel:         testOwnerModel,
		StorageTimeout:            5 * time.Second,
		StorageRetryDelay:         10 * time.Millisecond,
		RevocationCacheTTL:        2 * time.Second,
		HookTimeout:               time.Second,
	}
}

// setupTestEnv wires the services over a fresh in-memory store holding
// client c1 (redirect https://app/cb, scopes read write) and owner u1.
func setupTestEnv(t *testing.T, opts ...func(*config.Config)) *testEnv {
	t.Helper()

	cfg := getTestConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return setupTestEnvWithCache(t, cfg, cache.NewMemoryCache[bool]())
}

func setupTestEnvWithCache(t *testing.T, cfg *config.Config, c core.Cache[bool]) *testEnv {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "codegrant.db") + "?_busy_timeout=5000"
	s, err := store.New("sqlite", dsn, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	ctx := context.Background()
	client := &models.OAuthClient{
		ClientID:     testClientID,
		ClientName:   "Test App",
		Scopes:       "read write",
		GrantTypes:   "authorization_code refresh_token",
		RedirectURIs: models.StringArray{testRedirectURI},
		IsActive:     true,
	}
	secret, err := client.GenerateClientSecret(ctx)
	require.NoError(t, err)
	require.NoError(t, s.CreateClient(ctx, client))
	require.NoError(t, s.CreateUser(ctx, &models.User{
		ID:       testOwnerID,
		Username: "alice",
		Email:    "alice@example.com",
		FullName: "Alice",
	}))

	m := metrics.NewNoopMetrics()
	logger := pslog.NoopLogger()
	codec := token.NewCodec(testPrivateKey(t), nil, cfg.BaseURL)
	registry := NewSessionRegistry(s, c, cfg.RevocationCacheTTL, cfg.AccessTokenExpiration, logger, m)

	return &testEnv{
		cfg:      cfg,
		store:    s,
		db:       db,
		codec:    codec,
		registry: registry,
		svc:      NewAuthorizationService(s, codec, registry, cfg, logger, m),
		guard:    NewResourceGuard(codec, registry, s, logger, m),
		client:   client,
		secret:   secret,
	}
}

func (e *testEnv) begin(t *testing.T, scope, state string) *AuthorizationRequest {
	t.Helper()
	req, err := e.svc.BeginAuthorization(context.Background(), AuthorizeParams{
		ResponseType: "code",
		ClientID:     testClientID,
		RedirectURI:  testRedirectURI,
		Scope:        scope,
		State:        state,
	})
	require.NoError(t, err)
	return req
}

// approveCode runs the authorization step for u1 and returns the code from
// the redirect.
func (e *testEnv) approveCode(t *testing.T, scope string) string {
	t.Helper()
	redirect, err := e.svc.Approve(context.Background(), e.begin(t, scope, "xyz"), testOwnerModel, testOwnerID)
	require.NoError(t, err)

	u, err := url.Parse(redirect)
	require.NoError(t, err)
	code := u.Query().Get("code")
	require.NotEmpty(t, code)
	return code
}

func (e *testEnv) exchange(t *testing.T, code string) *TokenResponse {
	t.Helper()
	resp, err := e.svc.ExchangeCode(context.Background(), ExchangeParams{
		Code:         code,
		ClientID:     testClientID,
		ClientSecret: e.secret,
		RedirectURI:  testRedirectURI,
	})
	require.NoError(t, err)
	return resp
}

// issueTokens runs the full grant for u1 and returns the token response.
func (e *testEnv) issueTokens(t *testing.T, scope string) *TokenResponse {
	t.Helper()
	return e.exchange(t, e.approveCode(t, scope))
}
