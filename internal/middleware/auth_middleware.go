// internal/middleware/auth_middleware.go
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"gitwallet-service/internal/domain/identity"
	"gitwallet-service/internal/pkg/jwt"
	"gitwallet-service/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

const actorKey = "actor"

type AuthMiddleware struct {
	verifier *jwt.Verifier
}

func NewAuthMiddleware(verifier *jwt.Verifier) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: verifier,
	}
}

// Auth is the base authentication middleware that validates JWT tokens
func (m *AuthMiddleware) Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			response.Error(c, http.StatusUnauthorized, "missing authorization token", nil)
			return
		}

		claims, err := m.verifier.VerifyAccessToken(token)
		if err != nil {
			response.Error(c, http.StatusUnauthorized, "invalid or expired token", err)
			return
		}

		setActor(c, claims)
		c.Next()
	}
}

// OptionalAuth middleware that doesn't abort if no token is provided
func (m *AuthMiddleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			c.Next()
			return
		}

		claims, err := m.verifier.VerifyAccessToken(token)
		if err != nil {
			// Don't abort, just continue as an anonymous caller
			c.Next()
			return
		}

		setActor(c, claims)
		c.Next()
	}
}

// RequireRole middleware that requires user to have at least one of the specified roles
// MUST be used after Auth() middleware
func (m *AuthMiddleware) RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := GetActor(c)
		if !actor.IsAuthenticated() {
			response.Error(c, http.StatusForbidden, "no roles found - authentication required", nil)
			return
		}

		for _, role := range roles {
			if actor.HasRole(role) {
				c.Next()
				return
			}
		}

		err := errors.New("user does not have required role")
		response.Error(c, http.StatusForbidden, "insufficient permissions", err, map[string]interface{}{
			"required_roles": roles,
			"user_roles":     actor.Roles,
		})
	}
}

// VendorOnly returns middlewares for organization dashboard routes (Auth + RequireRole)
func (m *AuthMiddleware) VendorOnly() []gin.HandlerFunc {
	return []gin.HandlerFunc{
		m.Auth(),
		m.RequireRole(jwt.RoleVendor),
	}
}

func setActor(c *gin.Context, claims *jwt.Claims) {
	c.Set(actorKey, identity.Actor{
		UserID:         claims.UserID,
		OrganizationID: claims.OrganizationID,
		Email:          claims.Email,
		Roles:          claims.Roles,
	})
	c.Set("jti", claims.ID)
}

// GetActor returns the authenticated caller, or the zero Actor for
// anonymous requests.
func GetActor(c *gin.Context) identity.Actor {
	v, exists := c.Get(actorKey)
	if !exists {
		return identity.Actor{}
	}
	actor, _ := v.(identity.Actor)
	return actor
}

// extractToken extracts Bearer token from Authorization header
func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return parts[1]
		}
	}

	// browsers cannot set headers on websocket upgrades
	if c.IsWebsocket() {
		return c.Query("token")
	}

	return ""
}
