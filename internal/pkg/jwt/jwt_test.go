package jwt

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"
)

func newTestKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return key
}

func TestAccessTokenRoundTrip(t *testing.T) {
	key := newTestKey(t)
	gen := NewGenerator(key, "gitwallet", "gitwallet-api", "k1", time.Hour)
	ver := NewVerifier(&key.PublicKey, "gitwallet", "gitwallet-api")

	token, jti, err := gen.GenerateAccessToken(Subject{
		UserID:         "usr_1",
		OrganizationID: "org_1",
		Email:          "dev@example.com",
		Roles:          []string{RoleVendor},
	})
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	claims, err := ver.VerifyAccessToken(token)
	if err != nil {
		t.Fatalf("VerifyAccessToken: %v", err)
	}
	if claims.ID != jti {
		t.Errorf("jti = %q, want %q", claims.ID, jti)
	}
	if claims.UserID != "usr_1" || claims.OrganizationID != "org_1" {
		t.Errorf("unexpected identity %q/%q", claims.UserID, claims.OrganizationID)
	}
	if !claims.HasRole(RoleVendor) || claims.HasRole(RoleBuyer) {
		t.Errorf("roles = %v", claims.Roles)
	}
}

func TestVerifyRejects(t *testing.T) {
	key := newTestKey(t)
	other := newTestKey(t)

	tests := []struct {
		name string
		gen  *Generator
		ver  *Verifier
	}{
		{"wrong key", NewGenerator(other, "gitwallet", "aud", "", time.Hour), NewVerifier(&key.PublicKey, "gitwallet", "aud")},
		{"wrong issuer", NewGenerator(key, "someone-else", "aud", "", time.Hour), NewVerifier(&key.PublicKey, "gitwallet", "aud")},
		{"wrong audience", NewGenerator(key, "gitwallet", "other", "", time.Hour), NewVerifier(&key.PublicKey, "gitwallet", "aud")},
		{"expired", NewGenerator(key, "gitwallet", "aud", "", -time.Minute), NewVerifier(&key.PublicKey, "gitwallet", "aud")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, _, err := tt.gen.GenerateAccessToken(Subject{UserID: "usr_1"})
			if err != nil {
				t.Fatalf("GenerateAccessToken: %v", err)
			}
			if _, err := tt.ver.VerifyAccessToken(token); err == nil {
				t.Fatal("expected verification error")
			}
		})
	}
}

func TestParseKeysPEM(t *testing.T) {
	key := newTestKey(t)

	pkcs8, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		t.Fatalf("marshal pkcs8: %v", err)
	}
	privPEM := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: pkcs8})
	if _, err := ParseRSAPrivateKeyPEM(privPEM); err != nil {
		t.Fatalf("ParseRSAPrivateKeyPEM: %v", err)
	}

	pkix, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		t.Fatalf("marshal pkix: %v", err)
	}
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pkix})
	if _, err := ParseRSAPublicKeyPEM(pubPEM); err != nil {
		t.Fatalf("ParseRSAPublicKeyPEM: %v", err)
	}

	if _, err := ParseRSAPrivateKeyPEM([]byte("not pem")); err == nil {
		t.Fatal("expected error for garbage input")
	}
}
