package token

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-authgate/codegrant/internal/core"
	"github.com/go-authgate/codegrant/internal/util"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token type constants
const (
	TokenTypeBearer = "bearer"
)

// authorizationCodeBytes is the entropy of an authorization code (256 bits).
const authorizationCodeBytes = 32

// Compile-time interface check.
var _ core.TokenCodec = (*Codec)(nil)

// signedClaims is the JWT payload of access and refresh tokens.
type signedClaims struct {
	OwnerModel string `json:"owner_model"`
	Scope      string `json:"scope"`
	Category   string `json:"typ"`
	jwt.RegisteredClaims
}

// Codec signs tokens with an RSA private key (RS256) and verifies them with
// the matching public key. A Codec built without a private key only decodes.
type Codec struct {
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
	keyID      string
	issuer     string
	parser     *jwt.Parser
}

// NewCodec creates a codec. privateKey may be nil for verify-only use.
func NewCodec(privateKey *rsa.PrivateKey, publicKey *rsa.PublicKey, issuer string) *Codec {
	if publicKey == nil && privateKey != nil {
		publicKey = &privateKey.PublicKey
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	return &Codec{
		privateKey: privateKey,
		publicKey:  publicKey,
		keyID:      KeyID(publicKey),
		issuer:     issuer,
		parser:     jwt.NewParser(opts...),
	}
}

// Encode signs claims. An empty ID is replaced by a random UUID.
func (c *Codec) Encode(claims core.TokenClaims) (string, error) {
	if c.privateKey == nil {
		return "", fmt.Errorf("%w: codec has no signing key", ErrTokenGeneration)
	}
	if claims.ID == "" {
		claims.ID = uuid.New().String()
	}
	if claims.IssuedAt.IsZero() {
		claims.IssuedAt = time.Now()
	}

	t := jwt.NewWithClaims(jwt.SigningMethodRS256, signedClaims{
		OwnerModel: claims.OwnerModel,
		Scope:      strings.Join(claims.Scopes, " "),
		Category:   claims.Category,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        claims.ID,
			Subject:   claims.OwnerID,
			Audience:  jwt.ClaimStrings{claims.ClientID},
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(claims.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(claims.ExpiresAt),
		},
	})
	t.Header["kid"] = c.keyID

	signed, err := t.SignedString(c.privateKey)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenGeneration, err)
	}
	return signed, nil
}

// Decode verifies the signature and structure of tokenString before
// returning its claims.
func (c *Codec) Decode(tokenString string) (*core.TokenClaims, error) {
	if tokenString == "" {
		return nil, ErrInvalidToken
	}

	var claims signedClaims
	_, err := c.parser.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		return c.publicKey, nil
	})
	if err != nil {
		// The signature is verified before exp, so an expired token is authentic.
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if claims.ID == "" || claims.Subject == "" || len(claims.Audience) != 1 ||
		claims.IssuedAt == nil || claims.ExpiresAt == nil {
		return nil, fmt.Errorf("%w: missing required claims", ErrInvalidToken)
	}
	switch claims.Category {
	case core.TokenCategoryAccess, core.TokenCategoryRefresh:
	default:
		return nil, fmt.Errorf("%w: unknown token category %q", ErrInvalidToken, claims.Category)
	}

	return &core.TokenClaims{
		ID:         claims.ID,
		Category:   claims.Category,
		ClientID:   claims.Audience[0],
		OwnerModel: claims.OwnerModel,
		OwnerID:    claims.Subject,
		Scopes:     strings.Fields(claims.Scope),
		IssuedAt:   claims.IssuedAt.Time,
		ExpiresAt:  claims.ExpiresAt.Time,
	}, nil
}

// KeyID returns the kid placed in token headers.
func (c *Codec) KeyID() string {
	return c.keyID
}

// NewAuthorizationCode returns an opaque 256-bit hex code and the SHA-256
// hash under which it is stored.
func NewAuthorizationCode() (plain, hash string, err error) {
	b, err := util.CryptoRandomBytes(authorizationCodeBytes)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrTokenGeneration, err)
	}
	plain = fmt.Sprintf("%x", b)
	return plain, util.SHA256Hex(plain), nil
}

// Hash returns the storage hash of a code or signed token.
func Hash(value string) string {
	return util.SHA256Hex(value)
}
