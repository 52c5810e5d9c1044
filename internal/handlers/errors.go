package handlers

import (
	"errors"
	"net/http"

	"github.com/go-authgate/codegrant/internal/services"
	"github.com/go-authgate/codegrant/internal/store"
	"github.com/go-authgate/codegrant/internal/token"

	"github.com/gin-gonic/gin"
)

const clientRealm = `Basic realm="codegrant"`

type oauthErrorMapping struct {
	target      error
	status      int
	code        string
	description string // empty: use the error text
}

// oauthErrorTable is checked in order; the first match wins.
var oauthErrorTable = []oauthErrorMapping{
	{services.ErrInvalidRequest, http.StatusBadRequest, "invalid_request", ""},
	{services.ErrInvalidClient, http.StatusUnauthorized, "invalid_client", "Client authentication failed"},
	{services.ErrUnauthorizedClient, http.StatusBadRequest, "unauthorized_client", ""},
	{services.ErrInvalidRedirectURI, http.StatusBadRequest, "invalid_request", ""},
	{services.ErrUnsupportedResponseType, http.StatusBadRequest, "unsupported_response_type", ""},
	{services.ErrInvalidScope, http.StatusBadRequest, "invalid_scope", ""},
	{services.ErrInvalidGrant, http.StatusBadRequest, "invalid_grant", "The provided grant is invalid, expired or revoked"},
	{services.ErrUnsupportedGrantType, http.StatusBadRequest, "unsupported_grant_type", ""},
	{services.ErrAccessDenied, http.StatusForbidden, "access_denied", ""},
	{token.ErrExpiredToken, http.StatusUnauthorized, "invalid_token", "The access token expired"},
	{token.ErrInvalidToken, http.StatusUnauthorized, "invalid_token", "The access token is invalid"},
	{services.ErrRevokedToken, http.StatusUnauthorized, "invalid_token", "The access token was revoked"},
	{services.ErrMissingToken, http.StatusUnauthorized, "invalid_request", "Bearer token required"},
}

// oauthError maps a service error onto an RFC 6749 §5.2 error response.
func oauthError(err error) (int, gin.H) {
	if errors.Is(err, store.ErrStorageUnavailable) {
		return http.StatusServiceUnavailable, gin.H{"message": "storage temporarily unavailable"}
	}
	for _, m := range oauthErrorTable {
		if !errors.Is(err, m.target) {
			continue
		}
		description := m.description
		if description == "" {
			description = err.Error()
		}
		return m.status, gin.H{
			"error":             m.code,
			"error_description": description,
		}
	}
	return http.StatusInternalServerError, gin.H{
		"error":             "server_error",
		"error_description": "An internal error occurred",
	}
}

// oauthErrorCode returns the RFC 6749 error code for err.
func oauthErrorCode(err error) string {
	for _, m := range oauthErrorTable {
		if errors.Is(err, m.target) {
			return m.code
		}
	}
	return "server_error"
}

func respondError(c *gin.Context, err error) {
	status, body := oauthError(err)
	if errors.Is(err, services.ErrInvalidClient) {
		c.Header("WWW-Authenticate", clientRealm)
	}
	c.JSON(status, body)
}
