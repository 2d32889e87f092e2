// internal/domain/prospect/entity.go
package prospect

import (
	"time"

	"github.com/lib/pq"
)

type Qualification string

const (
	Unqualified  Qualification = "unqualified"
	Qualified    Qualification = "qualified"
	Disqualified Qualification = "disqualified"
)

func (q Qualification) Valid() bool {
	switch q {
	case Unqualified, Qualified, Disqualified:
		return true
	}
	return false
}

// Prospect is a lead captured through a contact-form tier.
type Prospect struct {
	ID                  string         `json:"id" db:"id"`
	OrganizationID      string         `json:"organization_id" db:"organization_id"`
	Name                string         `json:"name" db:"name"`
	Email               string         `json:"email" db:"email"`
	CompanyName         string         `json:"company_name" db:"company_name"`
	Context             string         `json:"context" db:"context"`
	TierIDs             pq.StringArray `json:"tier_ids" db:"tier_ids"`
	Status              Qualification  `json:"qualification_status" db:"qualification_status"`
	QualificationReason string         `json:"qualification_reason,omitempty" db:"qualification_reason"`
	CreatedAt           time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at" db:"updated_at"`
}

// InterestedIn reports whether the prospect asked about a tier.
func (p *Prospect) InterestedIn(tierID string) bool {
	for _, id := range p.TierIDs {
		if id == tierID {
			return true
		}
	}
	return false
}
