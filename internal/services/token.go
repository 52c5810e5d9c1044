package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-authgate/codegrant/internal/core"
	"github.com/go-authgate/codegrant/internal/models"
	"github.com/go-authgate/codegrant/internal/store"
	"github.com/go-authgate/codegrant/internal/token"

	"github.com/google/uuid"
)

// ExchangeParams are the token endpoint parameters of the
// authorization_code grant.
type ExchangeParams struct {
	Code         string
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

// RefreshParams are the token endpoint parameters of the refresh_token grant.
type RefreshParams struct {
	RefreshToken string
	ClientID     string
	ClientSecret string
	Scope        string
}

// TokenRequest is a raw token endpoint request of any grant type.
type TokenRequest struct {
	GrantType    string
	Code         string
	RedirectURI  string
	RefreshToken string
	Scope        string
	ClientID     string
	ClientSecret string
}

// TokenResponse is the successful token endpoint response (RFC 6749 §5.1).
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Scope        string `json:"scope,omitempty"`
}

type mintedTokens struct {
	access   *models.AccessToken
	refresh  *models.RefreshToken
	response *TokenResponse
}

// ExchangeGrant dispatches a token endpoint request on its grant_type.
func (s *AuthorizationService) ExchangeGrant(
	ctx context.Context,
	req TokenRequest,
) (*TokenResponse, error) {
	switch req.GrantType {
	case "":
		return nil, fmt.Errorf("%w: grant_type is required", ErrInvalidRequest)
	case models.GrantTypeAuthorizationCode:
		return s.ExchangeCode(ctx, ExchangeParams{
			Code:         req.Code,
			ClientID:     req.ClientID,
			ClientSecret: req.ClientSecret,
			RedirectURI:  req.RedirectURI,
		})
	case models.GrantTypeRefreshToken:
		if !s.config.EnableRefreshTokens {
			return nil, ErrUnsupportedGrantType
		}
		return s.Refresh(ctx, RefreshParams{
			RefreshToken: req.RefreshToken,
			ClientID:     req.ClientID,
			ClientSecret: req.ClientSecret,
			Scope:        req.Scope,
		})
	default:
		return nil, ErrUnsupportedGrantType
	}
}

// ExchangeCode consumes an authorization code and issues tokens for it.
// A code is accepted at most once, including under concurrent exchanges.
func (s *AuthorizationService) ExchangeCode(
	ctx context.Context,
	p ExchangeParams,
) (*TokenResponse, error) {
	resp, err := s.exchangeCode(ctx, p)
	s.metrics.RecordCodeExchange(exchangeResult(err))
	return resp, err
}

func (s *AuthorizationService) exchangeCode(
	ctx context.Context,
	p ExchangeParams,
) (*TokenResponse, error) {
	client, err := s.authenticateClient(ctx, p.ClientID, p.ClientSecret)
	if err != nil {
		return nil, err
	}
	if !client.AllowsGrantType(models.GrantTypeAuthorizationCode) {
		return nil, ErrUnauthorizedClient
	}
	if p.Code == "" {
		return nil, fmt.Errorf("%w: code is required", ErrInvalidRequest)
	}
	if p.RedirectURI == "" {
		return nil, fmt.Errorf("%w: redirect_uri is required", ErrInvalidRequest)
	}

	record, err := s.store.GetAuthorizationCodeByHash(ctx, token.Hash(p.Code))
	if errors.Is(err, store.ErrRecordNotFound) {
		return nil, ErrInvalidGrant
	}
	if err != nil {
		return nil, err
	}

	switch {
	case record.IsUsed():
		s.logger.Warn("grant.code.replayed",
			"client_id", client.ClientID,
			"code_prefix", record.CodePrefix,
		)
		return nil, ErrInvalidGrant
	case record.IsExpired():
		return nil, ErrInvalidGrant
	case record.ClientID != client.ClientID:
		// Don't reveal the code exists for another client
		return nil, ErrInvalidGrant
	case record.RedirectURI != p.RedirectURI:
		return nil, ErrInvalidGrant
	}

	scopes := strings.Fields(record.Scopes)
	if !scopesAreCovered(s.allowedScopes(client), scopes) {
		return nil, ErrInvalidScope
	}

	// The code is consumed, the session upserted and the tokens stored in
	// one transaction; WHERE used_at IS NULL lets one concurrent request win.
	var minted *mintedTokens
	_, err = s.store.ExchangeAuthorizationCode(ctx, record,
		func(sess *models.Session) (*models.AccessToken, *models.RefreshToken, error) {
			m, err := s.mintTokens(
				client, sess.ID, record.OwnerModel, record.OwnerID, scopes,
				models.GrantTypeAuthorizationCode,
			)
			if err != nil {
				return nil, nil, err
			}
			minted = m
			return m.access, m.refresh, nil
		})
	if err != nil {
		if errors.Is(err, store.ErrAuthCodeAlreadyUsed) {
			s.logger.Warn("grant.code.replayed",
				"client_id", client.ClientID,
				"code_prefix", record.CodePrefix,
			)
			return nil, ErrInvalidGrant
		}
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}

	s.logger.Info("grant.code.exchanged",
		"client_id", client.ClientID,
		"owner_model", record.OwnerModel,
		"owner_id", record.OwnerID,
		"code_prefix", record.CodePrefix,
		"token_id", minted.access.ID,
		"scope", record.Scopes,
	)
	return minted.response, nil
}

// Refresh rotates a refresh token: the presented refresh token and its access
// token are revoked and a new pair is issued with the same or narrower scope.
func (s *AuthorizationService) Refresh(
	ctx context.Context,
	p RefreshParams,
) (*TokenResponse, error) {
	resp, err := s.refresh(ctx, p)
	s.metrics.RecordTokenRefresh(err == nil)
	return resp, err
}

func (s *AuthorizationService) refresh(
	ctx context.Context,
	p RefreshParams,
) (*TokenResponse, error) {
	client, err := s.authenticateClient(ctx, p.ClientID, p.ClientSecret)
	if err != nil {
		return nil, err
	}
	if !client.AllowsGrantType(models.GrantTypeRefreshToken) {
		return nil, ErrUnauthorizedClient
	}
	if p.RefreshToken == "" {
		return nil, fmt.Errorf("%w: refresh_token is required", ErrInvalidRequest)
	}

	claims, err := s.codec.Decode(p.RefreshToken)
	if err != nil {
		return nil, ErrInvalidGrant
	}
	if claims.Category != core.TokenCategoryRefresh || claims.ClientID != client.ClientID {
		return nil, ErrInvalidGrant
	}

	old, err := s.store.GetRefreshTokenByID(ctx, claims.ID)
	if errors.Is(err, store.ErrRecordNotFound) {
		return nil, ErrInvalidGrant
	}
	if err != nil {
		return nil, err
	}
	if old.TokenHash != token.Hash(p.RefreshToken) || old.IsRevoked() || old.IsExpired() {
		return nil, ErrInvalidGrant
	}

	oldAccess, err := s.store.GetAccessTokenByID(ctx, old.AccessTokenID)
	if errors.Is(err, store.ErrRecordNotFound) {
		return nil, ErrInvalidGrant
	}
	if err != nil {
		return nil, err
	}

	// The new scope must not exceed the original grant
	scopes := strings.Fields(oldAccess.Scopes)
	if p.Scope != "" {
		requested := parseScopes(p.Scope)
		if !scopesAreCovered(scopes, requested) {
			return nil, ErrInvalidScope
		}
		scopes = requested
	}

	minted, err := s.mintTokens(
		client, oldAccess.SessionID, oldAccess.OwnerModel, oldAccess.OwnerID, scopes,
		models.GrantTypeRefreshToken,
	)
	if err != nil {
		return nil, err
	}

	if err := s.store.RotateRefreshToken(ctx, old, minted.access, minted.refresh); err != nil {
		if errors.Is(err, store.ErrTokenAlreadyRevoked) {
			return nil, ErrInvalidGrant
		}
		return nil, fmt.Errorf("failed to rotate refresh token: %w", err)
	}
	s.registry.MarkRevoked(ctx, old.ID, old.AccessTokenID)
	s.metrics.RecordTokenRevoked(core.TokenCategoryRefresh, "rotation", 1)

	s.logger.Info("grant.token.refreshed",
		"client_id", client.ClientID,
		"owner_model", oldAccess.OwnerModel,
		"owner_id", oldAccess.OwnerID,
		"old_token_id", oldAccess.ID,
		"token_id", minted.access.ID,
	)
	return minted.response, nil
}

// RevokeToken revokes every token of the session the presented token belongs
// to. Unknown, malformed and foreign tokens are ignored (RFC 7009 §2.2).
func (s *AuthorizationService) RevokeToken(
	ctx context.Context,
	clientID, clientSecret, tokenString string,
) error {
	client, err := s.authenticateClient(ctx, clientID, clientSecret)
	if err != nil {
		return err
	}
	if tokenString == "" {
		return fmt.Errorf("%w: token is required", ErrInvalidRequest)
	}

	claims, err := s.codec.Decode(tokenString)
	if err != nil {
		s.logger.Debug("grant.revoke.ignored", "client_id", client.ClientID, "error", err)
		return nil
	}
	if claims.ClientID != client.ClientID {
		s.logger.Debug("grant.revoke.ignored", "client_id", client.ClientID, "reason", "foreign token")
		return nil
	}

	_, err = s.registry.RevokeAll(ctx, claims.OwnerModel, claims.OwnerID, claims.ClientID, "client_request")
	return err
}

func (s *AuthorizationService) authenticateClient(
	ctx context.Context,
	clientID, clientSecret string,
) (*models.OAuthClient, error) {
	if clientID == "" || clientSecret == "" {
		return nil, ErrInvalidClient
	}
	client, err := s.store.GetClient(ctx, clientID)
	if errors.Is(err, store.ErrRecordNotFound) {
		return nil, ErrInvalidClient
	}
	if err != nil {
		return nil, err
	}
	if !client.IsActive || !client.ValidateClientSecret([]byte(clientSecret)) {
		return nil, ErrInvalidClient
	}
	return client, nil
}

// mintTokens signs a new access token, and a refresh token when enabled for
// the client, without persisting them.
func (s *AuthorizationService) mintTokens(
	client *models.OAuthClient,
	sessionID uint,
	ownerModel, ownerID string,
	scopes []string,
	grantType string,
) (*mintedTokens, error) {
	start := time.Now()
	now := start.Truncate(time.Second)

	accessClaims := core.TokenClaims{
		ID:         uuid.New().String(),
		Category:   core.TokenCategoryAccess,
		ClientID:   client.ClientID,
		OwnerModel: ownerModel,
		OwnerID:    ownerID,
		Scopes:     scopes,
		IssuedAt:   now,
		ExpiresAt:  now.Add(s.config.AccessTokenExpiration),
	}
	accessToken, err := s.codec.Encode(accessClaims)
	if err != nil {
		return nil, err
	}

	minted := &mintedTokens{
		access: &models.AccessToken{
			ID:         accessClaims.ID,
			TokenHash:  token.Hash(accessToken),
			SessionID:  sessionID,
			ClientID:   client.ClientID,
			OwnerModel: ownerModel,
			OwnerID:    ownerID,
			Scopes:     joinScopes(scopes),
			IssuedAt:   accessClaims.IssuedAt,
			ExpiresAt:  accessClaims.ExpiresAt,
		},
		response: &TokenResponse{
			AccessToken: accessToken,
			TokenType:   token.TokenTypeBearer,
			ExpiresIn:   int64(s.config.AccessTokenExpiration.Seconds()),
			Scope:       joinScopes(scopes),
		},
	}
	s.metrics.RecordTokenIssued(core.TokenCategoryAccess, grantType, time.Since(start))

	if !s.config.EnableRefreshTokens || !client.AllowsGrantType(models.GrantTypeRefreshToken) {
		return minted, nil
	}

	refreshStart := time.Now()
	refreshClaims := accessClaims
	refreshClaims.ID = uuid.New().String()
	refreshClaims.Category = core.TokenCategoryRefresh
	refreshClaims.ExpiresAt = now.Add(s.config.RefreshTokenExpiration)
	refreshToken, err := s.codec.Encode(refreshClaims)
	if err != nil {
		return nil, err
	}
	minted.refresh = &models.RefreshToken{
		ID:            refreshClaims.ID,
		TokenHash:     token.Hash(refreshToken),
		AccessTokenID: accessClaims.ID,
		ExpiresAt:     refreshClaims.ExpiresAt,
	}
	minted.response.RefreshToken = refreshToken
	s.metrics.RecordTokenIssued(core.TokenCategoryRefresh, grantType, time.Since(refreshStart))

	return minted, nil
}

// exchangeResult is the metrics label for a code exchange outcome.
func exchangeResult(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrInvalidGrant):
		return "invalid_grant"
	case errors.Is(err, ErrInvalidClient), errors.Is(err, ErrUnauthorizedClient):
		return "invalid_client"
	case errors.Is(err, ErrInvalidRequest), errors.Is(err, ErrInvalidScope):
		return "invalid_request"
	default:
		return "error"
	}
}
