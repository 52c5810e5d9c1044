package models

import "time"

// AuthorizationCode stores OAuth 2.0 authorization codes (RFC 6749 §4.1).
// Codes are short-lived and single-use; only the SHA-256 hash is persisted.
type AuthorizationCode struct {
	ID   uint   `gorm:"primaryKey;autoIncrement"`
	UUID string `gorm:"uniqueIndex;size:36;not null"`

	CodeHash   string `gorm:"uniqueIndex;not null"`
	CodePrefix string `gorm:"index;not null;size:8"`

	ClientID   string `gorm:"not null;index"`
	OwnerModel string `gorm:"not null;size:64"`
	OwnerID    string `gorm:"not null;index"`

	RedirectURI string `gorm:"not null"`
	Scopes      string `gorm:"not null"`

	ExpiresAt time.Time
	UsedAt    *time.Time // set exactly once on exchange
	CreatedAt time.Time
}

func (a *AuthorizationCode) IsExpired() bool {
	return time.Now().After(a.ExpiresAt)
}

func (a *AuthorizationCode) IsUsed() bool {
	return a.UsedAt != nil
}

func (AuthorizationCode) TableName() string {
	return "oauth_authorization_codes"
}
