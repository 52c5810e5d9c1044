package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-authgate/codegrant/internal/services"
	"github.com/go-authgate/codegrant/internal/store"
	"github.com/go-authgate/codegrant/internal/token"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type stubValidator struct {
	id  *services.Identity
	err error
}

func (s stubValidator) ValidateHTTPRequest(context.Context, *http.Request) (*services.Identity, error) {
	return s.id, s.err
}

func setupBearerRouter(v TokenValidator, opts ...BearerAuthOption) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", BearerAuth(v, opts...), func(c *gin.Context) {
		id, ok := GetIdentity(c)
		if !ok {
			c.JSON(http.StatusOK, gin.H{"anonymous": true})
			return
		}
		c.JSON(http.StatusOK, gin.H{"owner_id": id.OwnerID})
	})
	return r
}

func TestBearerAuth(t *testing.T) {
	tests := []struct {
		name       string
		validator  stubValidator
		opts       []BearerAuthOption
		wantStatus int
		wantBody   string
		wantHeader string
	}{
		{
			name:       "valid token",
			validator:  stubValidator{id: &services.Identity{OwnerID: "u1"}},
			wantStatus: http.StatusOK,
			wantBody:   `"owner_id":"u1"`,
		},
		{
			name:       "missing token",
			validator:  stubValidator{err: services.ErrMissingToken},
			wantStatus: http.StatusUnauthorized,
			wantBody:   "invalid_request",
			wantHeader: `Bearer realm="codegrant"`,
		},
		{
			name:       "invalid token",
			validator:  stubValidator{err: fmt.Errorf("%w: bad signature", token.ErrInvalidToken)},
			wantStatus: http.StatusUnauthorized,
			wantBody:   "invalid_token",
			wantHeader: `Bearer realm="codegrant", error="invalid_token", error_description="The access token is invalid"`,
		},
		{
			name:       "expired token",
			validator:  stubValidator{err: token.ErrExpiredToken},
			wantStatus: http.StatusUnauthorized,
			wantBody:   "The access token expired",
		},
		{
			name:       "revoked token",
			validator:  stubValidator{err: services.ErrRevokedToken},
			wantStatus: http.StatusUnauthorized,
			wantBody:   "The access token was revoked",
		},
		{
			name:       "storage unavailable",
			validator:  stubValidator{err: fmt.Errorf("is_token_revoked: %w", store.ErrStorageUnavailable)},
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   `"message"`,
		},
		{
			name:       "unexpected error",
			validator:  stubValidator{err: errors.New("boom")},
			wantStatus: http.StatusInternalServerError,
			wantBody:   "server_error",
		},
		{
			name:       "continue without token",
			validator:  stubValidator{err: services.ErrMissingToken},
			opts:       []BearerAuthOption{WithContinue()},
			wantStatus: http.StatusOK,
			wantBody:   `"anonymous":true`,
		},
		{
			name:       "continue with revoked token",
			validator:  stubValidator{err: services.ErrRevokedToken},
			opts:       []BearerAuthOption{WithContinue()},
			wantStatus: http.StatusOK,
			wantBody:   `"anonymous":true`,
		},
		{
			name:       "continue still fails on storage errors",
			validator:  stubValidator{err: store.ErrStorageUnavailable},
			opts:       []BearerAuthOption{WithContinue()},
			wantStatus: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := setupBearerRouter(tt.validator, tt.opts...)
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantBody != "" {
				assert.Contains(t, w.Body.String(), tt.wantBody)
			}
			if tt.wantHeader != "" {
				assert.Equal(t, tt.wantHeader, w.Header().Get("WWW-Authenticate"))
			}
		})
	}
}

func TestGetIdentity_NotSet(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	id, ok := GetIdentity(c)
	assert.False(t, ok)
	assert.Nil(t, id)

	c.Set(identityKey, "not an identity")
	_, ok = GetIdentity(c)
	assert.False(t, ok)
}
