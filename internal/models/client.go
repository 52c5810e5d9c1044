package models

import (
	"context"
	"encoding/base32"
	"slices"
	"strings"
	"time"

	"github.com/go-authgate/codegrant/internal/util"

	"golang.org/x/crypto/bcrypt"
)

// Grant types a client may be allowed to use
const (
	GrantTypeAuthorizationCode = "authorization_code"
	GrantTypeRefreshToken      = "refresh_token"
)

// Base32 characters, but lowercased.
const lowerBase32Chars = "abcdefghijklmnopqrstuvwxyz234567"

// base32 encoder that uses lowered characters without padding.
var base32Lower = base32.NewEncoding(lowerBase32Chars).WithPadding(base32.NoPadding)

// OAuthClient is a registered application allowed to request authorization.
type OAuthClient struct {
	ID           int64       `gorm:"primaryKey;autoIncrement"`
	ClientID     string      `gorm:"uniqueIndex;not null"`
	ClientSecret string      `gorm:"not null"` // bcrypt hashed secret
	ClientName   string      `gorm:"not null"`
	Scopes       string      `gorm:"not null"`                                            // space-separated allowed scopes
	GrantTypes   string      `gorm:"not null;default:'authorization_code refresh_token'"` // space-separated
	RedirectURIs StringArray `gorm:"type:json"`
	IsActive     bool        `gorm:"not null;default:true"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// GenerateClientSecret generates the client secret, stores its hash and returns the plaintext.
func (c *OAuthClient) GenerateClientSecret(ctx context.Context) (string, error) {
	rBytes, err := util.CryptoRandomBytes(32)
	if err != nil {
		return "", err
	}
	// The prefix makes leaked secrets easy for code scanners to spot.
	clientSecret := "cgs_" + base32Lower.EncodeToString(rBytes)

	hashedSecret, err := bcrypt.GenerateFromPassword([]byte(clientSecret), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	c.ClientSecret = string(hashedSecret)
	return clientSecret, nil
}

// ValidateClientSecret validates the given secret by the hash saved in database
func (c *OAuthClient) ValidateClientSecret(secret []byte) bool {
	if len(c.ClientSecret) == 0 || len(secret) == 0 {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(c.ClientSecret), secret) == nil
}

// AllowsGrantType reports whether the client registered the grant type.
func (c *OAuthClient) AllowsGrantType(grantType string) bool {
	return slices.Contains(strings.Fields(c.GrantTypes), grantType)
}

// ScopeList returns the client's allowed scopes.
func (c *OAuthClient) ScopeList() []string {
	return strings.Fields(c.Scopes)
}

func (OAuthClient) TableName() string {
	return "oauth_clients"
}
