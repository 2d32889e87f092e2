package middleware

import (
	"crypto/rand"
	"crypto/rsa"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"gitwallet-service/internal/pkg/jwt"

	"github.com/gin-gonic/gin"
)

func newRouter(t *testing.T) (*gin.Engine, *jwt.Generator) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	gen := jwt.NewGenerator(key, "gitwallet", "gitwallet-api", "test", time.Hour)
	m := NewAuthMiddleware(jwt.NewVerifier(&key.PublicKey, "gitwallet", "gitwallet-api"))

	r := gin.New()
	echo := func(c *gin.Context) {
		actor := GetActor(c)
		c.String(http.StatusOK, actor.UserID+"|"+actor.OrganizationID)
	}
	r.GET("/private", m.Auth(), echo)
	r.GET("/public", m.OptionalAuth(), echo)
	r.GET("/vendor", append(m.VendorOnly(), echo)...)
	return r, gen
}

func do(r *gin.Engine, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	r, gen := newRouter(t)

	buyer, _, err := gen.GenerateAccessToken(jwt.Subject{UserID: "b1", Roles: []string{jwt.RoleBuyer}})
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	vendor, _, err := gen.GenerateAccessToken(jwt.Subject{UserID: "v1", OrganizationID: "org1", Roles: []string{jwt.RoleVendor}})
	if err != nil {
		t.Fatalf("token: %v", err)
	}

	tests := []struct {
		name       string
		path       string
		token      string
		wantStatus int
		wantBody   string
	}{
		{"private without token", "/private", "", http.StatusUnauthorized, ""},
		{"private with garbage", "/private", "not-a-jwt", http.StatusUnauthorized, ""},
		{"private with buyer", "/private", buyer, http.StatusOK, "b1|"},
		{"public anonymous", "/public", "", http.StatusOK, "|"},
		{"public ignores bad token", "/public", "not-a-jwt", http.StatusOK, "|"},
		{"vendor route as buyer", "/vendor", buyer, http.StatusForbidden, ""},
		{"vendor route as vendor", "/vendor", vendor, http.StatusOK, "v1|org1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, tt.path, tt.token)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.wantBody != "" && w.Body.String() != tt.wantBody {
				t.Fatalf("body = %q, want %q", w.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestGetActorAnonymous(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	if got := GetActor(c); got.IsAuthenticated() || got.IsVendor() || len(got.Roles) != 0 {
		t.Fatalf("GetActor() = %+v, want zero actor", got)
	}
}
