// internal/pkg/jwt/loader.go
package jwt

import (
	"fmt"
	"time"
)

type Config struct {
	PrivPath string
	PubPath  string
	Issuer   string
	Audience string
	TTL      time.Duration
	KID      string
}

// Manager bundles token issuing and verification. Generator is nil when no
// private key is configured and the service only verifies tokens minted by
// the identity provider.
type Manager struct {
	Generator *Generator
	Verifier  *Verifier
}

func LoadAndBuild(cfg Config) (*Manager, error) {
	if cfg.PubPath == "" {
		return nil, fmt.Errorf("jwt public key path is required")
	}

	pub, err := LoadRSAPublicKeyFromPEM(cfg.PubPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load public key from %s: %w", cfg.PubPath, err)
	}
	m := &Manager{Verifier: NewVerifier(pub, cfg.Issuer, cfg.Audience)}

	if cfg.PrivPath == "" {
		return m, nil
	}

	priv, err := LoadRSAPrivateKeyFromPEM(cfg.PrivPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load private key from %s: %w", cfg.PrivPath, err)
	}
	if priv.PublicKey.N.Cmp(pub.N) != 0 || priv.PublicKey.E != pub.E {
		return nil, fmt.Errorf("jwt private key does not match public key")
	}
	m.Generator = NewGenerator(priv, cfg.Issuer, cfg.Audience, cfg.KID, cfg.TTL)

	return m, nil
}
