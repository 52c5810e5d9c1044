package models

import (
	"time"
)

// AccessToken is the server-side record of an issued access token.
// ID equals the token's jti claim.
type AccessToken struct {
	ID         string `gorm:"primaryKey;size:36"`
	TokenHash  string `gorm:"uniqueIndex;not null"`
	SessionID  uint   `gorm:"not null;index"`
	ClientID   string `gorm:"not null;index"`
	OwnerModel string `gorm:"not null;size:64"`
	OwnerID    string `gorm:"not null;index"`
	Scopes     string `gorm:"not null"` // space-separated scopes
	IssuedAt   time.Time
	ExpiresAt  time.Time  `gorm:"index"`
	RevokedAt  *time.Time `gorm:"index"`
}

func (t *AccessToken) IsExpired() bool {
	return time.Now().After(t.ExpiresAt)
}

// IsRevoked reports whether the token was revoked. Revocation is never undone.
func (t *AccessToken) IsRevoked() bool {
	return t.RevokedAt != nil
}

func (AccessToken) TableName() string {
	return "oauth_access_tokens"
}

// RefreshToken is the companion of an access token. ID equals the jti claim.
type RefreshToken struct {
	ID            string `gorm:"primaryKey;size:36"`
	TokenHash     string `gorm:"uniqueIndex;not null"`
	AccessTokenID string `gorm:"not null;index"`
	ExpiresAt     time.Time
	RevokedAt     *time.Time
	CreatedAt     time.Time
}

func (t *RefreshToken) IsExpired() bool {
	return time.Now().After(t.ExpiresAt)
}

func (t *RefreshToken) IsRevoked() bool {
	return t.RevokedAt != nil
}

func (RefreshToken) TableName() string {
	return "oauth_refresh_tokens"
}
