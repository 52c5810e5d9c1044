package services

import (
	"context"
	"errors"
	"time"

	"github.com/go-authgate/codegrant/internal/core"
	"github.com/go-authgate/codegrant/internal/models"
	"github.com/go-authgate/codegrant/internal/store"

	"pkt.systems/pslog"
)

const revokedKeyPrefix = "revoked:"

// SessionRegistry tracks owner/client sessions and answers revocation checks
// through a short-lived cache in front of the store.
type SessionRegistry struct {
	store      *store.Store
	cache      core.Cache[bool]
	cacheTTL   time.Duration
	revokedTTL time.Duration
	logger     pslog.Logger
	metrics    core.Recorder
}

// NewSessionRegistry builds a registry. cacheTTL bounds how long a revocation
// answer is served from cache; revokedTTL is how long explicit revocations
// are pinned and should be at least the access token lifetime.
func NewSessionRegistry(
	s *store.Store,
	c core.Cache[bool],
	cacheTTL, revokedTTL time.Duration,
	logger pslog.Logger,
	m core.Recorder,
) *SessionRegistry {
	if logger == nil {
		logger = pslog.NoopLogger()
	}
	return &SessionRegistry{
		store:      s,
		cache:      c,
		cacheTTL:   cacheTTL,
		revokedTTL: revokedTTL,
		logger:     logger,
		metrics:    m,
	}
}

// FindActive returns the number of live access tokens the owner holds for
// the client.
func (r *SessionRegistry) FindActive(
	ctx context.Context,
	ownerModel, ownerID, clientID string,
) (int64, error) {
	return r.store.CountActiveSessionTokens(ctx, ownerModel, ownerID, clientID)
}

// GrantedScopes returns the union of scopes carried by the session's live
// access tokens.
func (r *SessionRegistry) GrantedScopes(
	ctx context.Context,
	ownerModel, ownerID, clientID string,
) ([]string, error) {
	scopes, err := r.store.ActiveSessionScopes(ctx, ownerModel, ownerID, clientID)
	if err != nil {
		return nil, err
	}
	return unionScopes(scopes), nil
}

// RecordGrant creates the session on first approval and returns it.
func (r *SessionRegistry) RecordGrant(
	ctx context.Context,
	ownerModel, ownerID, clientID string,
) (*models.Session, error) {
	return r.store.UpsertSession(ctx, ownerModel, ownerID, clientID)
}

// RevokeAll revokes every token of the session and returns how many tokens
// changed state. A missing session is not an error.
func (r *SessionRegistry) RevokeAll(
	ctx context.Context,
	ownerModel, ownerID, clientID, reason string,
) (int64, error) {
	ids, err := r.store.RevokeSessionTokens(ctx, ownerModel, ownerID, clientID)
	if errors.Is(err, store.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	r.MarkRevoked(ctx, ids...)
	r.metrics.RecordTokenRevoked("session", reason, len(ids))
	r.logger.Info("session.revoked",
		"client_id", clientID,
		"owner_model", ownerModel,
		"owner_id", ownerID,
		"tokens", len(ids),
		"reason", reason,
	)
	return int64(len(ids)), nil
}

// MarkRevoked pins the given token ids as revoked in the cache so that
// validation observes the revocation without waiting for the cache TTL.
func (r *SessionRegistry) MarkRevoked(ctx context.Context, ids ...string) {
	if len(ids) == 0 {
		return
	}
	values := make(map[string]bool, len(ids))
	for _, id := range ids {
		values[revokedKeyPrefix+id] = true
	}
	if err := r.cache.MSet(ctx, values, r.revokedTTL); err != nil {
		// The store is authoritative; stale cache entries expire within cacheTTL.
		r.logger.Warn("session.revoked.cache_failed", "tokens", len(ids), "error", err)
	}
}

// IsRevoked reports whether the token id is revoked. Storage failures are
// returned to the caller and never treated as "not revoked".
func (r *SessionRegistry) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	return r.cache.GetWithFetch(ctx, revokedKeyPrefix+tokenID, r.cacheTTL,
		func(ctx context.Context, _ string) (bool, error) {
			return r.store.IsTokenRevoked(ctx, tokenID)
		})
}
