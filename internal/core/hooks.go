package core

import "context"

// EventContext describes the authorization decision being made.
type EventContext struct {
	ClientID    string
	OwnerModel  string
	OwnerID     string
	RedirectURI string
	Scopes      []string
	State       string
}

// EventHook is the extension point fired around the approve/deny decision.
// BeforeAuthorize may return extra variables that are serialized alongside
// the approval prompt. AfterAuthorize and AfterDeny are side-effect only.
type EventHook interface {
	BeforeAuthorize(ctx context.Context, ev EventContext) map[string]any
	AfterAuthorize(ctx context.Context, ev EventContext)
	AfterDeny(ctx context.Context, ev EventContext)
}
