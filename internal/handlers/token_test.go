package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"testing"

	"github.com/go-authgate/codegrant/internal/services"
	"github.com/go-authgate/codegrant/internal/store"
	"github.com/go-authgate/codegrant/internal/token"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToken_AuthorizationCodeGrant(t *testing.T) {
	ts := setupTestServer(t, nil)
	loc := ts.approve(t, ts.login(t, testOwnerID), "read")

	w := ts.postForm("/token", url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {loc.Query().Get("code")},
		"redirect_uri":  {testRedirectURI},
		"client_id":     {testClientID},
		"client_secret": {ts.secret},
	}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))

	body := decodeJSON(t, w)
	assert.NotEmpty(t, body["access_token"])
	assert.NotEmpty(t, body["refresh_token"])
	assert.Equal(t, "bearer", body["token_type"])
	assert.InDelta(t, 3600, body["expires_in"], 1)
	assert.Equal(t, "read", body["scope"])

	// Second exchange of the same code fails
	w = ts.postForm("/token", url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {loc.Query().Get("code")},
		"redirect_uri":  {testRedirectURI},
		"client_id":     {testClientID},
		"client_secret": {ts.secret},
	}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_grant", decodeJSON(t, w)["error"])
}

func TestToken_BasicAuthOnAccessTokenAlias(t *testing.T) {
	ts := setupTestServer(t, nil)
	loc := ts.approve(t, ts.login(t, testOwnerID), "read write")

	w := ts.postForm("/accessToken", url.Values{
		"grant_type":   {"authorization_code"},
		"code":         {loc.Query().Get("code")},
		"redirect_uri": {testRedirectURI},
	}, nil, func(r *http.Request) {
		r.SetBasicAuth(testClientID, ts.secret)
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "read write", decodeJSON(t, w)["scope"])
}

func TestToken_RefreshGrant(t *testing.T) {
	ts := setupTestServer(t, nil)
	loc := ts.approve(t, ts.login(t, testOwnerID), "read write")
	issued := ts.exchangeCode(t, loc.Query().Get("code"))

	refresh := func(refreshToken string) (int, map[string]any) {
		w := ts.postForm("/token", url.Values{
			"grant_type":    {"refresh_token"},
			"refresh_token": {refreshToken},
			"scope":         {"read"},
			"client_id":     {testClientID},
			"client_secret": {ts.secret},
		}, nil)
		return w.Code, decodeJSON(t, w)
	}

	code, body := refresh(issued["refresh_token"].(string))
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "read", body["scope"])
	assert.NotEqual(t, issued["access_token"], body["access_token"])

	// The rotated refresh token is single use
	code, body = refresh(issued["refresh_token"].(string))
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "invalid_grant", body["error"])
}

func TestToken_Errors(t *testing.T) {
	ts := setupTestServer(t, nil)

	tests := []struct {
		name       string
		form       url.Values
		wantStatus int
		wantError  string
	}{
		{
			name:       "missing grant_type",
			form:       url.Values{"client_id": {testClientID}},
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid_request",
		},
		{
			name:       "unsupported grant_type",
			form:       url.Values{"grant_type": {"password"}},
			wantStatus: http.StatusBadRequest,
			wantError:  "unsupported_grant_type",
		},
		{
			name: "wrong client secret",
			form: url.Values{
				"grant_type":    {"authorization_code"},
				"code":          {"abc"},
				"redirect_uri":  {testRedirectURI},
				"client_id":     {testClientID},
				"client_secret": {"wrong"},
			},
			wantStatus: http.StatusUnauthorized,
			wantError:  "invalid_client",
		},
		{
			name: "unknown code",
			form: url.Values{
				"grant_type":   {"authorization_code"},
				"code":         {"does-not-exist"},
				"redirect_uri": {testRedirectURI},
				"client_id":    {testClientID},
			},
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid_grant",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.form.Has("client_id") && !tt.form.Has("client_secret") {
				tt.form.Set("client_secret", ts.secret)
			}
			w := ts.postForm("/token", tt.form, nil)
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantError, decodeJSON(t, w)["error"])
			if tt.wantStatus == http.StatusUnauthorized {
				assert.Equal(t, clientRealm, w.Header().Get("WWW-Authenticate"))
			}
		})
	}
}

func TestRevoke(t *testing.T) {
	ts := setupTestServer(t, nil)
	loc := ts.approve(t, ts.login(t, testOwnerID), "read")
	issued := ts.exchangeCode(t, loc.Query().Get("code"))
	mePath := "/me?access_token=" + url.QueryEscape(issued["access_token"].(string))

	require.Equal(t, http.StatusOK, ts.get(mePath, nil).Code)

	revoke := func(tok, secret string) int {
		return ts.postForm("/revoke", url.Values{
			"token":         {tok},
			"client_id":     {testClientID},
			"client_secret": {secret},
		}, nil).Code
	}

	assert.Equal(t, http.StatusUnauthorized, revoke(issued["refresh_token"].(string), "wrong"))
	assert.Equal(t, http.StatusOK, ts.get(mePath, nil).Code)

	// Revoking the refresh token revokes the whole session
	assert.Equal(t, http.StatusOK, revoke(issued["refresh_token"].(string), ts.secret))
	w := ts.get(mePath, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "invalid_token", decodeJSON(t, w)["error"])

	// Unknown tokens are not an error
	assert.Equal(t, http.StatusOK, revoke("not-a-token", ts.secret))
}

func TestMe(t *testing.T) {
	ts := setupTestServer(t, nil)
	loc := ts.approve(t, ts.login(t, testOwnerID), "read")
	issued := ts.exchangeCode(t, loc.Query().Get("code"))

	w := ts.get("/me?access_token="+url.QueryEscape(issued["access_token"].(string)), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decodeJSON(t, w)
	identity, ok := body["identity"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, testOwnerID, identity["owner_id"])
	assert.Equal(t, "Users", identity["owner_model"])
	assert.Equal(t, testClientID, identity["client_id"])
	assert.Equal(t, []any{"read"}, identity["scopes"])

	owner, ok := body["owner"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "alice", owner["username"])

	w = ts.get("/me", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHealthz(t *testing.T) {
	ts := setupTestServer(t, nil)

	w := ts.get("/healthz", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", decodeJSON(t, w)["status"])

	require.NoError(t, ts.store.Close())
	w = ts.get("/healthz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "disconnected", decodeJSON(t, w)["database"])
}

func TestOAuthError(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
		wantCode   string
	}{
		{services.ErrInvalidRequest, http.StatusBadRequest, "invalid_request"},
		{services.ErrInvalidClient, http.StatusUnauthorized, "invalid_client"},
		{services.ErrUnauthorizedClient, http.StatusBadRequest, "unauthorized_client"},
		{services.ErrInvalidRedirectURI, http.StatusBadRequest, "invalid_request"},
		{services.ErrUnsupportedResponseType, http.StatusBadRequest, "unsupported_response_type"},
		{services.ErrInvalidScope, http.StatusBadRequest, "invalid_scope"},
		{fmt.Errorf("%w: code expired", services.ErrInvalidGrant), http.StatusBadRequest, "invalid_grant"},
		{services.ErrUnsupportedGrantType, http.StatusBadRequest, "unsupported_grant_type"},
		{services.ErrAccessDenied, http.StatusForbidden, "access_denied"},
		{token.ErrExpiredToken, http.StatusUnauthorized, "invalid_token"},
		{services.ErrRevokedToken, http.StatusUnauthorized, "invalid_token"},
		{context.Canceled, http.StatusInternalServerError, "server_error"},
	}

	for _, tt := range tests {
		t.Run(tt.wantCode+"/"+tt.err.Error(), func(t *testing.T) {
			status, body := oauthError(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantCode, body["error"])
			assert.NotEmpty(t, body["error_description"])
		})
	}

	// Storage failures never surface as OAuth errors
	status, body := oauthError(fmt.Errorf("get_client: %w: timeout", store.ErrStorageUnavailable))
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.NotContains(t, body, "error")
	assert.Contains(t, body, "message")
}
