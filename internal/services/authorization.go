package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/go-authgate/codegrant/internal/config"
	"github.com/go-authgate/codegrant/internal/core"
	"github.com/go-authgate/codegrant/internal/models"
	"github.com/go-authgate/codegrant/internal/store"
	"github.com/go-authgate/codegrant/internal/token"

	"github.com/google/uuid"
	"pkt.systems/pslog"
)

// maxStateLength bounds the opaque state echoed back to the client.
const maxStateLength = 1024

// AuthorizeParams are the raw query parameters of an authorization request.
type AuthorizeParams struct {
	ResponseType string
	ClientID     string
	RedirectURI  string
	Scope        string
	State        string
}

// AuthorizationRequest holds validated parameters for an authorization request
type AuthorizationRequest struct {
	Client       *models.OAuthClient `json:"-"`
	ClientID     string              `json:"client_id"`
	ClientName   string              `json:"client_name"`
	RedirectURI  string              `json:"redirect_uri"`
	ResponseType string              `json:"response_type"`
	Scopes       []string            `json:"scopes"`
	State        string              `json:"state,omitempty"`
}

// Scope returns the requested scopes as a space separated string.
func (r *AuthorizationRequest) Scope() string {
	return joinScopes(r.Scopes)
}

// AuthorizationService implements the authorization code grant: request
// validation, owner approval, code exchange and refresh.
type AuthorizationService struct {
	store    *store.Store
	codec    core.TokenCodec
	registry *SessionRegistry
	config   *config.Config
	logger   pslog.Logger
	metrics  core.Recorder
}

func NewAuthorizationService(
	s *store.Store,
	codec core.TokenCodec,
	registry *SessionRegistry,
	cfg *config.Config,
	logger pslog.Logger,
	m core.Recorder,
) *AuthorizationService {
	if logger == nil {
		logger = pslog.NoopLogger()
	}
	return &AuthorizationService{
		store:    s,
		codec:    codec,
		registry: registry,
		config:   cfg,
		logger:   logger,
		metrics:  m,
	}
}

// BeginAuthorization validates an incoming authorization request.
// When the failure happens after the redirect URI was verified, the returned
// request is non-nil so that the error can be delivered to the client.
func (s *AuthorizationService) BeginAuthorization(
	ctx context.Context,
	p AuthorizeParams,
) (*AuthorizationRequest, error) {
	if p.ClientID == "" {
		return nil, fmt.Errorf("%w: client_id is required", ErrInvalidRequest)
	}
	if p.RedirectURI == "" {
		return nil, fmt.Errorf("%w: redirect_uri is required", ErrInvalidRequest)
	}

	// 1. Client must exist and be active
	client, err := s.store.GetClient(ctx, p.ClientID)
	if errors.Is(err, store.ErrRecordNotFound) {
		return nil, ErrInvalidClient
	}
	if err != nil {
		return nil, err
	}
	if !client.IsActive {
		return nil, ErrInvalidClient
	}
	if !client.AllowsGrantType(models.GrantTypeAuthorizationCode) {
		return nil, ErrUnauthorizedClient
	}

	// 2. redirect_uri must match one of the registered URIs
	if !s.isValidRedirectURI(client, p.RedirectURI) {
		return nil, ErrInvalidRedirectURI
	}

	req := &AuthorizationRequest{
		Client:       client,
		ClientID:     client.ClientID,
		ClientName:   client.ClientName,
		RedirectURI:  p.RedirectURI,
		ResponseType: p.ResponseType,
		State:        p.State,
	}

	// From here on errors are reported to the client via redirect.
	if len(p.State) > maxStateLength {
		req.State = ""
		return req, fmt.Errorf("%w: state exceeds %d bytes", ErrInvalidRequest, maxStateLength)
	}

	// 3. response_type must be "code"
	if p.ResponseType != "code" {
		return req, ErrUnsupportedResponseType
	}

	// 4. Scope must be a subset of the client's and the server's scopes
	allowed := s.allowedScopes(client)
	requested := parseScopes(p.Scope)
	if len(requested) == 0 {
		requested = allowed // Default to all client scopes
	}
	if len(requested) == 0 || !scopesAreCovered(allowed, requested) {
		return req, ErrInvalidScope
	}
	req.Scopes = requested

	return req, nil
}

// HasActiveGrant reports whether the owner already holds a live access token
// for the client.
func (s *AuthorizationService) HasActiveGrant(
	ctx context.Context,
	ownerModel, ownerID, clientID string,
) (bool, error) {
	count, err := s.registry.FindActive(ctx, ownerModel, ownerID, clientID)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// CanAutoApprove reports whether the request may skip the approval prompt:
// an active grant must exist and, unless scope widening is allowed, the
// previously granted scopes must cover the requested ones.
func (s *AuthorizationService) CanAutoApprove(
	ctx context.Context,
	req *AuthorizationRequest,
	ownerModel, ownerID string,
) (bool, error) {
	active, err := s.HasActiveGrant(ctx, ownerModel, ownerID, req.ClientID)
	if err != nil || !active {
		return false, err
	}
	if s.config.ConsentAllowScopeWidening {
		return true, nil
	}
	granted, err := s.registry.GrantedScopes(ctx, ownerModel, ownerID, req.ClientID)
	if err != nil {
		return false, err
	}
	return scopesAreCovered(granted, req.Scopes), nil
}

// Approve mints an authorization code for the owner and returns the client
// redirect URI carrying the code and the original state.
func (s *AuthorizationService) Approve(
	ctx context.Context,
	req *AuthorizationRequest,
	ownerModel, ownerID string,
) (string, error) {
	if req == nil || ownerID == "" {
		return "", ErrInvalidRequest
	}
	if ownerModel == "" {
		ownerModel = s.config.DefaultOwnerModel
	}

	plain, hash, err := token.NewAuthorizationCode()
	if err != nil {
		s.metrics.RecordAuthorizationCodeIssued(false)
		return "", err
	}

	if _, err := s.registry.RecordGrant(ctx, ownerModel, ownerID, req.ClientID); err != nil {
		s.metrics.RecordAuthorizationCodeIssued(false)
		return "", fmt.Errorf("failed to record session: %w", err)
	}

	record := &models.AuthorizationCode{
		UUID:        uuid.New().String(),
		CodeHash:    hash,
		CodePrefix:  plain[:8],
		ClientID:    req.ClientID,
		OwnerModel:  ownerModel,
		OwnerID:     ownerID,
		RedirectURI: req.RedirectURI,
		Scopes:      req.Scope(),
		ExpiresAt:   time.Now().Add(s.config.AuthCodeExpiration),
	}
	if err := s.store.CreateAuthorizationCode(ctx, record); err != nil {
		s.metrics.RecordAuthorizationCodeIssued(false)
		return "", fmt.Errorf("failed to save authorization code: %w", err)
	}
	s.metrics.RecordAuthorizationCodeIssued(true)

	s.logger.Info("grant.code.issued",
		"client_id", req.ClientID,
		"owner_model", ownerModel,
		"owner_id", ownerID,
		"code_prefix", record.CodePrefix,
		"scope", record.Scopes,
	)

	params := url.Values{"code": {plain}}
	if req.State != "" {
		params.Set("state", req.State)
	}
	return appendQuery(req.RedirectURI, params)
}

// Deny builds the redirect reporting that the owner refused the request.
func (s *AuthorizationService) Deny(req *AuthorizationRequest) string {
	params := url.Values{
		"error":   {"access_denied"},
		"message": {ErrAccessDenied.Error()},
	}
	if req.State != "" {
		params.Set("state", req.State)
	}
	redirect, err := appendQuery(req.RedirectURI, params)
	if err != nil {
		// The URI was validated against the client registration.
		return req.RedirectURI
	}
	return redirect
}

// ErrorRedirect builds the redirect reporting a validation error to the client.
func ErrorRedirect(req *AuthorizationRequest, code, description string) (string, error) {
	params := url.Values{"error": {code}}
	if description != "" {
		params.Set("error_description", description)
	}
	if req.State != "" {
		params.Set("state", req.State)
	}
	return appendQuery(req.RedirectURI, params)
}

func appendQuery(rawURL string, params url.Values) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidRedirectURI, err)
	}
	q := u.Query()
	for k, vs := range params {
		for _, v := range vs {
			q.Set(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// allowedScopes is the intersection of the client's scopes and the
// server-wide allowed scopes, in client order.
func (s *AuthorizationService) allowedScopes(client *models.OAuthClient) []string {
	var out []string
	for _, sc := range client.ScopeList() {
		if slices.Contains(s.config.AllowedScopes, sc) && !slices.Contains(out, sc) {
			out = append(out, sc)
		}
	}
	return out
}

// isValidRedirectURI accepts an exact registered match, including native
// app schemes such as com.example.app:/callback. The relaxed comparison
// only applies to absolute URIs with a host.
func (s *AuthorizationService) isValidRedirectURI(client *models.OAuthClient, uri string) bool {
	candidate, err := url.Parse(uri)
	if err != nil || candidate.Fragment != "" || candidate.Scheme == "" {
		return false
	}
	if slices.Contains(client.RedirectURIs, uri) {
		return true
	}
	if s.config.RequireExactRedirectMatch || candidate.Host == "" {
		return false
	}
	for _, registered := range client.RedirectURIs {
		if sameRedirectTarget(registered, candidate) {
			return true
		}
	}
	return false
}

// sameRedirectTarget compares scheme, host and path, ignoring a trailing
// slash and the query string. Prefix matches never succeed.
func sameRedirectTarget(registered string, candidate *url.URL) bool {
	reg, err := url.Parse(registered)
	if err != nil || reg.Host == "" {
		return false
	}
	return strings.EqualFold(reg.Scheme, candidate.Scheme) &&
		strings.EqualFold(reg.Host, candidate.Host) &&
		strings.TrimSuffix(reg.Path, "/") == strings.TrimSuffix(candidate.Path, "/")
}
