// internal/pkg/jwt/generator.go
package jwt

import (
	"crypto/rsa"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
)

type Generator struct {
	priv     *rsa.PrivateKey
	issuer   string
	audience string
	kid      string // key id for rotation
	ttl      time.Duration
	now      func() time.Time
}

func NewGenerator(priv *rsa.PrivateKey, issuer, audience, kid string, ttl time.Duration) *Generator {
	return &Generator{
		priv:     priv,
		issuer:   issuer,
		audience: audience,
		kid:      kid,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Subject is the identity a token is issued for.
type Subject struct {
	UserID         string
	OrganizationID string
	Email          string
	Roles          []string
}

// GenerateAccessToken signs an access token and returns it with its JTI.
func (g *Generator) GenerateAccessToken(sub Subject) (string, string, error) {
	if g.priv == nil {
		return "", "", fmt.Errorf("jwt generator has nil private key")
	}
	if sub.UserID == "" {
		return "", "", fmt.Errorf("jwt subject has empty user id")
	}

	now := g.now()
	jti := ulid.Make().String()

	claims := &Claims{
		UserID:         sub.UserID,
		OrganizationID: sub.OrganizationID,
		Email:          sub.Email,
		Roles:          sub.Roles,
		Purpose:        PurposeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    g.issuer,
			Subject:   sub.UserID,
			Audience:  []string{g.audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(g.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        jti,
		},
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	if g.kid != "" {
		tok.Header["kid"] = g.kid
	}

	signed, err := tok.SignedString(g.priv)
	return signed, jti, err
}
