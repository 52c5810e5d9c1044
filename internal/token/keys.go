package token

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"os"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultKeyBits is the RSA modulus size used for generated key pairs.
const DefaultKeyBits = 2048

// LoadKeyPair reads a PEM encoded RSA private key (PKCS1 or PKCS8) and the
// matching public key (PKIX, PKCS1 or certificate).
func LoadKeyPair(privatePath, publicPath string) (*rsa.PrivateKey, *rsa.PublicKey, error) {
	privPEM, err := os.ReadFile(privatePath)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: read private key: %v", ErrInvalidKey, err)
	}
	priv, err := jwt.ParseRSAPrivateKeyFromPEM(privPEM)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: parse private key: %v", ErrInvalidKey, err)
	}

	pub, err := LoadPublicKey(publicPath)
	if err != nil {
		return nil, nil, err
	}
	if !priv.PublicKey.Equal(pub) {
		return nil, nil, fmt.Errorf("%w: public key does not match private key", ErrInvalidKey)
	}
	return priv, pub, nil
}

// LoadPublicKey reads a PEM encoded RSA verification key.
func LoadPublicKey(publicPath string) (*rsa.PublicKey, error) {
	pubPEM, err := os.ReadFile(publicPath)
	if err != nil {
		return nil, fmt.Errorf("%w: read public key: %v", ErrInvalidKey, err)
	}
	pub, err := jwt.ParseRSAPublicKeyFromPEM(pubPEM)
	if err != nil {
		return nil, fmt.Errorf("%w: parse public key: %v", ErrInvalidKey, err)
	}
	return pub, nil
}

// GenerateKeyPair creates an ephemeral RSA key pair.
func GenerateKeyPair(bits int) (*rsa.PrivateKey, error) {
	if bits <= 0 {
		bits = DefaultKeyBits
	}
	priv, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("%w: generate RSA key: %v", ErrInvalidKey, err)
	}
	return priv, nil
}

// EncodeKeyPairPEM returns the PKCS8 private key and PKIX public key as PEM.
func EncodeKeyPairPEM(priv *rsa.PrivateKey) (privPEM, pubPEM []byte, err error) {
	privDER, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return nil, nil, err
	}
	pubDER, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		return nil, nil, err
	}
	privPEM = pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privDER})
	pubPEM = pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})
	return privPEM, pubPEM, nil
}

// KeyID derives the kid header from the SHA-256 of the PKIX public key.
func KeyID(pub *rsa.PublicKey) string {
	spki, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(spki)
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
