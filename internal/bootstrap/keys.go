package bootstrap

import (
	"crypto/rsa"
	"fmt"

	"github.com/go-authgate/codegrant/internal/config"
	"github.com/go-authgate/codegrant/internal/token"

	"pkt.systems/pslog"
)

// initializeCodec loads the signing key pair, or generates an ephemeral one
// when no key paths are configured.
func initializeCodec(cfg *config.Config, logger pslog.Logger) (*token.Codec, error) {
	var (
		priv *rsa.PrivateKey
		pub  *rsa.PublicKey
		err  error
	)
	switch {
	case cfg.PrivateKeyPath != "":
		priv, pub, err = token.LoadKeyPair(cfg.PrivateKeyPath, cfg.PublicKeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load signing keys: %w", err)
		}
	default:
		priv, err = token.GenerateKeyPair(token.DefaultKeyBits)
		if err != nil {
			return nil, err
		}
		pub = &priv.PublicKey
	}

	codec := token.NewCodec(priv, pub, cfg.BaseURL)
	logger.Info("token.codec.ready", "kid", codec.KeyID(), "issuer", cfg.BaseURL)
	return codec, nil
}
