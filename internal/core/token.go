package core

import "time"

// Token categories carried in the "typ" claim
const (
	TokenCategoryAccess  = "access"
	TokenCategoryRefresh = "refresh"
)

// TokenClaims is the decoded payload of a signed access or refresh token.
type TokenClaims struct {
	ID         string // jti
	Category   string // access or refresh
	ClientID   string
	OwnerModel string
	OwnerID    string
	Scopes     []string
	IssuedAt   time.Time
	ExpiresAt  time.Time
}

// TokenCodec signs and verifies bearer tokens.
type TokenCodec interface {
	Encode(claims TokenClaims) (string, error)
	Decode(tokenString string) (*TokenClaims, error)
}
