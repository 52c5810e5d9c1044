package handlers

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-authgate/codegrant/internal/cache"
	"github.com/go-authgate/codegrant/internal/config"
	"github.com/go-authgate/codegrant/internal/core"
	"github.com/go-authgate/codegrant/internal/metrics"
	"github.com/go-authgate/codegrant/internal/middleware"
	"github.com/go-authgate/codegrant/internal/models"
	"github.com/go-authgate/codegrant/internal/services"
	"github.com/go-authgate/codegrant/internal/store"
	"github.com/go-authgate/codegrant/internal/token"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"pkt.systems/pslog"
)

const (
	testClientID    = "c1"
	testRedirectURI = "https://app/cb"
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

type testServer struct {
	cfg    *config.Config
	store  *store.Store
	svc    *services.AuthorizationService
	hooks  *services.HookDispatcher
	router *gin.Engine
	secret string
}

// setupTestServer wires the full HTTP surface over an in-memory store holding
// client c1 and owner u1. The session cookie is replaced by the login helper
// route POST /test-login.
func setupTestServer(
	t *testing.T,
	hooks []core.EventHook,
	opts ...func(*config.Config),
) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		BaseURL:                "http://localhost:8080",
		AllowedScopes:          []string{"read", "write"},
		AuthCodeExpiration:     10 * time.Minute,
		AccessTokenExpiration:  time.Hour,
		RefreshTokenExpiration: 24 * time.Hour,
		EnableRefreshTokens:    true,
		DefaultOwnerModel:      "Users",
		LoginURL:               "/login",
		StorageTimeout:         5 * time.Second,
		StorageRetryDelay:      10 * time.Millisecond,
		RevocationCacheTTL:     2 * time.Second,
		HookTimeout:            time.Second,

		RequireExactRedirectMatch: true,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	s, err := store.New("sqlite", ":memory:", cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

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
	}))

	m := metrics.NewNoopMetrics()
	logger := pslog.NoopLogger()
	revocations := cache.NewMemoryCache[bool]()
	codec := token.NewCodec(testPrivateKey(t), nil, cfg.BaseURL)
	registry := services.NewSessionRegistry(
		s, revocations, cfg.RevocationCacheTTL, cfg.AccessTokenExpiration, logger, m,
	)
	svc := services.NewAuthorizationService(s, codec, registry, cfg, logger, m)
	guard := services.NewResourceGuard(codec, registry, s, logger, m)
	dispatcher := services.NewHookDispatcher(cfg.HookTimeout, logger, hooks...)

	authHandler := NewAuthorizationHandler(
		svc,
		dispatcher,
		NewCookieAuthSession(s, cfg.DefaultOwnerModel, cfg.LoginURL, logger),
		cfg,
		logger,
		m,
	)
	tokenHandler := NewTokenHandler(svc, guard, logger)

	r := gin.New()
	r.Use(sessions.Sessions("test_session", cookie.NewStore([]byte("test-secret"))))
	r.POST("/test-login", func(c *gin.Context) {
		sess := sessions.Default(c)
		sess.Set(SessionUserID, c.PostForm("user_id"))
		require.NoError(t, sess.Save())
		c.Status(http.StatusNoContent)
	})
	r.GET("/oauth", authHandler.RedirectLegacy)
	r.GET("/authorize", authHandler.Authorize)
	r.POST("/authorize", authHandler.Authorize)
	r.POST("/token", tokenHandler.Token)
	r.POST("/accessToken", tokenHandler.Token)
	r.POST("/revoke", tokenHandler.Revoke)
	r.GET("/me", middleware.BearerAuth(guard), tokenHandler.Me)
	r.GET("/healthz", Healthz(s, revocations))

	return &testServer{
		cfg:    cfg,
		store:  s,
		svc:    svc,
		hooks:  dispatcher,
		router: r,
		secret: secret,
	}
}

// login returns the session cookies of a browser logged in as userID.
func (ts *testServer) login(t *testing.T, userID string) []*http.Cookie {
	t.Helper()
	w := ts.postForm("/test-login", url.Values{"user_id": {userID}}, nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)
	return cookies
}

func (ts *testServer) get(path string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func (ts *testServer) postForm(
	path string,
	form url.Values,
	cookies []*http.Cookie,
	mutate ...func(*http.Request),
) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	for _, m := range mutate {
		m(req)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func authorizeQuery(scope, state string) string {
	q := url.Values{
		"response_type": {"code"},
		"client_id":     {testClientID},
		"redirect_uri":  {testRedirectURI},
	}
	if scope != "" {
		q.Set("scope", scope)
	}
	if state != "" {
		q.Set("state", state)
	}
	return q.Encode()
}

// approve runs POST /authorize with authorization=Approve and returns the
// redirect location.
func (ts *testServer) approve(t *testing.T, cookies []*http.Cookie, scope string) *url.URL {
	t.Helper()
	w := ts.postForm("/authorize?"+authorizeQuery(scope, "xyz"), url.Values{
		"authorization": {"Approve"},
	}, cookies)
	require.Equal(t, http.StatusFound, w.Code, w.Body.String())
	loc, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	return loc
}

func (ts *testServer) exchangeCode(t *testing.T, code string) map[string]any {
	t.Helper()
	w := ts.postForm("/token", url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"redirect_uri":  {testRedirectURI},
		"client_id":     {testClientID},
		"client_secret": {ts.secret},
	}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return decodeJSON(t, w)
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}
