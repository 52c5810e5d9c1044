package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-authgate/codegrant/internal/services"
	"github.com/go-authgate/codegrant/internal/store"
	"github.com/go-authgate/codegrant/internal/token"

	"github.com/gin-gonic/gin"
)

const (
	identityKey = "identity"
	bearerRealm = `Bearer realm="codegrant"`
)

// TokenValidator validates the access token carried by a request.
type TokenValidator interface {
	ValidateHTTPRequest(ctx context.Context, r *http.Request) (*services.Identity, error)
}

type bearerAuthOptions struct {
	passThrough bool
}

// BearerAuthOption configures BearerAuth
type BearerAuthOption func(*bearerAuthOptions)

// WithContinue lets requests without a valid token reach the handler with no
// identity set instead of rejecting them.
func WithContinue() BearerAuthOption {
	return func(o *bearerAuthOptions) {
		o.passThrough = true
	}
}

// BearerAuth is a middleware that requires a valid access token (RFC 6750).
// The identity is available to handlers through GetIdentity.
func BearerAuth(v TokenValidator, opts ...BearerAuthOption) gin.HandlerFunc {
	var o bearerAuthOptions
	for _, opt := range opts {
		opt(&o)
	}

	return func(c *gin.Context) {
		id, err := v.ValidateHTTPRequest(c.Request.Context(), c.Request)
		if err == nil {
			c.Set(identityKey, id)
			c.Next()
			return
		}

		switch {
		case errors.Is(err, store.ErrStorageUnavailable):
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"message": "storage temporarily unavailable",
			})
		case o.passThrough && isTokenError(err):
			c.Next()
		case errors.Is(err, services.ErrMissingToken):
			c.Header("WWW-Authenticate", bearerRealm)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":             "invalid_request",
				"error_description": "Bearer token required",
			})
		case isTokenError(err):
			description := tokenErrorDescription(err)
			c.Header("WWW-Authenticate",
				bearerRealm+`, error="invalid_token", error_description="`+description+`"`)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":             "invalid_token",
				"error_description": description,
			})
		default:
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error":             "server_error",
				"error_description": "token validation failed",
			})
		}
	}
}

// GetIdentity returns the identity set by BearerAuth.
func GetIdentity(c *gin.Context) (*services.Identity, bool) {
	v, exists := c.Get(identityKey)
	if !exists {
		return nil, false
	}
	id, ok := v.(*services.Identity)
	return id, ok
}

func isTokenError(err error) bool {
	return errors.Is(err, services.ErrMissingToken) ||
		errors.Is(err, token.ErrInvalidToken) ||
		errors.Is(err, token.ErrExpiredToken) ||
		errors.Is(err, services.ErrRevokedToken)
}

func tokenErrorDescription(err error) string {
	switch {
	case errors.Is(err, token.ErrExpiredToken):
		return "The access token expired"
	case errors.Is(err, services.ErrRevokedToken):
		return "The access token was revoked"
	default:
		return "The access token is invalid"
	}
}
