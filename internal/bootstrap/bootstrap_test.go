package bootstrap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-authgate/codegrant/internal/config"
	"github.com/go-authgate/codegrant/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pkt.systems/pslog"
)

func testConfig() *config.Config {
	return &config.Config{
		ServerAddr:             ":0",
		BaseURL:                "http://localhost:8080",
		AllowedScopes:          []string{"read", "write"},
		AuthCodeExpiration:     10 * time.Minute,
		AccessTokenExpiration:  time.Hour,
		RefreshTokenExpiration: 24 * time.Hour,
		EnableRefreshTokens:    true,
		DefaultOwnerModel:      "Users",
		SessionSecret:          "test-session-secret",
		SessionMaxAge:          3600,
		LoginURL:               "/login",
		DatabaseDriver:         "sqlite",
		DatabaseDSN:            ":memory:",
		StorageTimeout:         time.Second,
		StorageRetryDelay:      10 * time.Millisecond,
		RevocationCacheType:    config.RevocationCacheMemory,
		RevocationCacheTTL:     2 * time.Second,
		RateLimitStore:         config.RateLimitStoreMemory,
		EnableRateLimit:        true,
		TokenRateLimit:         2,
		HookTimeout:            time.Second,
		MetricsEnabled:         false,
	}
}

func TestValidateConfiguration(t *testing.T) {
	assert.NoError(t, validateConfiguration(testConfig()))

	cfg := testConfig()
	cfg.DatabaseDriver = "mysql"
	err := validateConfiguration(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid DATABASE_DRIVER")

	cfg = testConfig()
	cfg.DatabaseDriver = "postgres"
	cfg.DatabaseDSN = ""
	err = validateConfiguration(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_DSN is required")

	cfg = testConfig()
	cfg.IsProduction = true
	cfg.SessionSecret = defaultSessionSecret
	err = validateConfiguration(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SESSION_SECRET")

	cfg = testConfig()
	cfg.RevocationCacheTTL = time.Minute
	err = validateConfiguration(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REVOCATION_CACHE_TTL")
}

func TestInitializeMetrics(t *testing.T) {
	for _, enabled := range []bool{true, false} {
		cfg := &config.Config{MetricsEnabled: enabled}
		m := initializeMetrics(cfg, pslog.NoopLogger())
		require.NotNil(t, m)
	}
}

func TestInitializeRevocationCacheMemory(t *testing.T) {
	c, err := initializeRevocationCache(context.Background(), testConfig(), pslog.NoopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	require.NoError(t, c.Set(context.Background(), "revoked:abc", true, time.Minute))
	v, err := c.Get(context.Background(), "revoked:abc")
	require.NoError(t, err)
	assert.True(t, v)
}

func TestInitializeRevocationCacheRedisUnreachable(t *testing.T) {
	cfg := testConfig()
	cfg.RevocationCacheType = config.RevocationCacheRedis
	cfg.RedisAddr = "127.0.0.1:1"

	_, err := initializeRevocationCache(context.Background(), cfg, pslog.NoopLogger())
	assert.Error(t, err)
}

func TestInitializeRateLimitRedisClientSkipped(t *testing.T) {
	cfg := testConfig()
	client, err := initializeRateLimitRedisClient(context.Background(), cfg, pslog.NoopLogger())
	require.NoError(t, err)
	assert.Nil(t, client)

	cfg.EnableRateLimit = false
	cfg.RateLimitStore = config.RateLimitStoreRedis
	client, err = initializeRateLimitRedisClient(context.Background(), cfg, pslog.NoopLogger())
	require.NoError(t, err)
	assert.Nil(t, client)
}

func TestInitializeCodecEphemeral(t *testing.T) {
	codec, err := initializeCodec(testConfig(), pslog.NoopLogger())
	require.NoError(t, err)
	assert.NotEmpty(t, codec.KeyID())
}

func TestInitializeCodecMissingKeyFile(t *testing.T) {
	cfg := testConfig()
	cfg.PrivateKeyPath = "/nonexistent/private.pem"
	cfg.PublicKeyPath = "/nonexistent/public.pem"

	_, err := initializeCodec(cfg, pslog.NoopLogger())
	assert.Error(t, err)
}

func TestInitializeServicesWebhook(t *testing.T) {
	cfg := testConfig()
	app := &Application{Config: cfg, Logger: pslog.NoopLogger()}
	require.NoError(t, app.initializeInfrastructure(context.Background()))
	t.Cleanup(app.closeInfrastructure)

	cfg.WebhookURL = "https://hooks.example.com/decisions"
	cfg.WebhookAuthMode = "hmac"
	cfg.WebhookSecret = "s3cret"
	require.NoError(t, app.initializeBusinessLayer(nil))
	assert.NotNil(t, app.Hooks)

	cfg.WebhookSecret = ""
	err := app.initializeBusinessLayer(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "webhook")
}

// newTestRouter wires the application the same way Run does, without
// starting the HTTP server.
func newTestRouter(t *testing.T, cfg *config.Config) *gin.Engine {
	t.Helper()
	logger := pslog.NoopLogger()
	app := &Application{Config: cfg, Logger: logger}
	require.NoError(t, app.initializeInfrastructure(context.Background()))
	t.Cleanup(app.closeInfrastructure)

	require.NoError(t, app.initializeBusinessLayer(nil))
	require.NoError(t, app.initializeHTTPLayer())
	gin.SetMode(gin.TestMode)
	return app.Router
}

func TestSetupRouter(t *testing.T) {
	cfg := testConfig()
	cfg.TokenRateLimit = 60
	r := newTestRouter(t, cfg)

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
	}{
		{"health check", http.MethodGet, "/healthz", http.StatusOK},
		{"legacy entry point", http.MethodGet, "/oauth?client_id=x", http.StatusMovedPermanently},
		{"authorize requires login", http.MethodGet, "/authorize?client_id=x", http.StatusFound},
		{"authorize POST requires csrf", http.MethodPost, "/authorize", http.StatusForbidden},
		{"token without grant", http.MethodPost, "/token", http.StatusBadRequest},
		{"accessToken alias", http.MethodPost, "/accessToken", http.StatusBadRequest},
		{"revoke without client", http.MethodPost, "/revoke", http.StatusUnauthorized},
		{"me without token", http.MethodGet, "/me", http.StatusUnauthorized},
		{"metrics disabled", http.MethodGet, "/metrics", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestSetupRouter_TokenRateLimit(t *testing.T) {
	r := newTestRouter(t, testConfig())

	codes := make([]int, 0, 3)
	for range 3 {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/token", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusBadRequest, http.StatusBadRequest, http.StatusTooManyRequests}, codes)
}

func TestSetupMetricsEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics.Init(true)

	cfg := testConfig()
	cfg.MetricsEnabled = true
	cfg.MetricsToken = "secret"

	r := gin.New()
	setupMetricsEndpoint(r, cfg, pslog.NoopLogger())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.Header.Set("Authorization", "Bearer secret")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
