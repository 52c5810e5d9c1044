package services

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-authgate/codegrant/internal/core"
	"github.com/go-authgate/codegrant/internal/token"

	"pkt.systems/pslog"
)

// Identity is the authenticated principal behind a valid access token.
type Identity struct {
	OwnerModel string    `json:"owner_model"`
	OwnerID    string    `json:"owner_id"`
	ClientID   string    `json:"client_id"`
	TokenID    string    `json:"token_id"`
	Scopes     []string  `json:"scopes"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// HasScope reports whether the token was granted scope.
func (i *Identity) HasScope(scope string) bool {
	return scopesAreCovered(i.Scopes, []string{scope})
}

// ResourceGuard validates bearer tokens presented to protected resources.
// It never writes state and is safe for concurrent use.
type ResourceGuard struct {
	codec    core.TokenCodec
	registry *SessionRegistry
	users    core.UserStore
	logger   pslog.Logger
	metrics  core.Recorder
}

func NewResourceGuard(
	codec core.TokenCodec,
	registry *SessionRegistry,
	users core.UserStore,
	logger pslog.Logger,
	m core.Recorder,
) *ResourceGuard {
	if logger == nil {
		logger = pslog.NoopLogger()
	}
	return &ResourceGuard{
		codec:    codec,
		registry: registry,
		users:    users,
		logger:   logger,
		metrics:  m,
	}
}

// ValidateRequest checks a bearer token and returns the identity it carries.
func (g *ResourceGuard) ValidateRequest(ctx context.Context, bearerToken string) (*Identity, error) {
	start := time.Now()
	id, err := g.validate(ctx, bearerToken)
	g.metrics.RecordTokenValidation(validationResult(err), time.Since(start))
	return id, err
}

func (g *ResourceGuard) validate(ctx context.Context, bearerToken string) (*Identity, error) {
	claims, err := g.codec.Decode(bearerToken)
	if err != nil {
		return nil, err
	}
	if claims.Category != core.TokenCategoryAccess {
		return nil, token.ErrInvalidToken
	}

	revoked, err := g.registry.IsRevoked(ctx, claims.ID)
	if err != nil {
		g.logger.Warn("guard.revocation_check_failed", "token_id", claims.ID, "error", err)
		return nil, err
	}
	if revoked {
		return nil, ErrRevokedToken
	}

	return &Identity{
		OwnerModel: claims.OwnerModel,
		OwnerID:    claims.OwnerID,
		ClientID:   claims.ClientID,
		TokenID:    claims.ID,
		Scopes:     claims.Scopes,
		ExpiresAt:  claims.ExpiresAt,
	}, nil
}

// ValidateHTTPRequest extracts the access token from the Authorization
// header, the access_token query parameter or a form body, in that order.
func (g *ResourceGuard) ValidateHTTPRequest(ctx context.Context, r *http.Request) (*Identity, error) {
	bearer := ExtractBearerToken(r)
	if bearer == "" {
		return nil, ErrMissingToken
	}
	return g.ValidateRequest(ctx, bearer)
}

// ResolveOwner loads the owner record behind an identity.
func (g *ResourceGuard) ResolveOwner(ctx context.Context, id *Identity) (*core.OwnerRecord, error) {
	return g.users.FindOwner(ctx, id.OwnerModel, id.OwnerID)
}

// ExtractBearerToken returns the access token carried by r, or "".
func ExtractBearerToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, value, ok := strings.Cut(header, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(value)
		}
		return ""
	}
	if v := r.URL.Query().Get("access_token"); v != "" {
		return v
	}
	if r.Method == http.MethodPost &&
		strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		return r.PostFormValue("access_token")
	}
	return ""
}

func validationResult(err error) string {
	switch {
	case err == nil:
		return "valid"
	case errors.Is(err, token.ErrExpiredToken):
		return "expired"
	case errors.Is(err, token.ErrInvalidToken):
		return "invalid"
	case errors.Is(err, ErrRevokedToken):
		return "revoked"
	default:
		return "error"
	}
}
