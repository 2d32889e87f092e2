package identity

// Actor is the caller of a core operation. Handlers build it from verified
// token claims and pass it explicitly.
type Actor struct {
	UserID         string
	OrganizationID string
	Email          string
	Roles          []string
}

func (a Actor) IsAuthenticated() bool {
	return a.UserID != ""
}

// IsVendor reports whether the actor acts on behalf of an organization.
func (a Actor) IsVendor() bool {
	return a.OrganizationID != ""
}

func (a Actor) HasRole(role string) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}
