// internal/pkg/jwt/claims.go
package jwt

import (
	"github.com/golang-jwt/jwt/v5"
)

const (
	RoleBuyer  = "buyer"
	RoleVendor = "vendor"

	PurposeAccess = "access"
)

// Claims identify a buyer, or a vendor user acting for an organization.
type Claims struct {
	UserID         string   `json:"uid"`
	OrganizationID string   `json:"org,omitempty"`
	Email          string   `json:"email,omitempty"`
	Roles          []string `json:"roles,omitempty"`
	Purpose        string   `json:"purpose"`
	jwt.RegisteredClaims
}

func (c *Claims) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}
