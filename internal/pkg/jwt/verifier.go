// internal/pkg/jwt/verifier.go
package jwt

import (
	"crypto/rsa"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const clockSkew = 30 * time.Second

type Verifier struct {
	pub    *rsa.PublicKey
	parser *jwt.Parser
}

func NewVerifier(pub *rsa.PublicKey, issuer, audience string) *Verifier {
	return &Verifier{
		pub: pub,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
			jwt.WithIssuer(issuer),
			jwt.WithAudience(audience),
			jwt.WithExpirationRequired(),
			jwt.WithLeeway(clockSkew),
		),
	}
}

// Verify checks signature, issuer, audience and expiry.
func (v *Verifier) Verify(tokenString string) (*Claims, error) {
	if v.pub == nil {
		return nil, fmt.Errorf("jwt verifier has nil public key")
	}

	claims := &Claims{}
	if _, err := v.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return v.pub, nil
	}); err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	return claims, nil
}

// VerifyAccessToken also requires the access purpose and a subject. A vendor
// token must name the organization it acts for.
func (v *Verifier) VerifyAccessToken(tokenString string) (*Claims, error) {
	claims, err := v.Verify(tokenString)
	if err != nil {
		return nil, err
	}

	switch {
	case claims.Purpose != PurposeAccess:
		return nil, fmt.Errorf("token is not an access token")
	case claims.UserID == "":
		return nil, fmt.Errorf("token has no user id")
	case claims.HasRole(RoleVendor) && claims.OrganizationID == "":
		return nil, fmt.Errorf("vendor token has no organization")
	}

	return claims, nil
}
