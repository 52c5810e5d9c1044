package core

import (
	"context"
	"errors"
)

// ErrOwnerNotFound is returned by UserStore implementations when no record
// matches the (owner model, owner id) pair.
var ErrOwnerNotFound = errors.New("owner not found")

// OwnerRecord is the resource owner as seen by the grant server.
// Model distinguishes user namespaces (e.g. "Users", "Admins").
type OwnerRecord struct {
	Model      string         `json:"owner_model"`
	ID         string         `json:"id"`
	Username   string         `json:"username,omitempty"`
	Email      string         `json:"email,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// UserStore resolves resource owners. The host application owns user
// persistence; the grant server only reads.
type UserStore interface {
	FindOwner(ctx context.Context, ownerModel, ownerID string) (*OwnerRecord, error)
}
