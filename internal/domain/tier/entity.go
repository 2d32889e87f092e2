// internal/domain/tier/entity.go
package tier

import (
	"time"

	"github.com/lib/pq"
)

type Cadence string

const (
	CadenceOnce  Cadence = "once"
	CadenceMonth Cadence = "month"
)

type CheckoutType string

const (
	CheckoutDirectPayment CheckoutType = "direct-payment"
	CheckoutContactForm   CheckoutType = "contact-form"
)

// Tier is a sellable package offered by a vendor organization.
type Tier struct {
	ID             string         `json:"id" db:"id"`
	OrganizationID string         `json:"organization_id" db:"organization_id"`
	Name           string         `json:"name" db:"name"`
	Tagline        string         `json:"tagline" db:"tagline"`
	Description    string         `json:"description" db:"description"`
	Features       pq.StringArray `json:"features" db:"features"`

	// Prices are in minor currency units
	Price       int64   `json:"price" db:"price"`
	PriceAnnual *int64  `json:"price_annual,omitempty" db:"price_annual"`
	Currency    string  `json:"currency" db:"currency"`
	Cadence     Cadence `json:"cadence" db:"cadence"`
	TrialDays   int     `json:"trial_days" db:"trial_days"`

	CheckoutType CheckoutType `json:"checkout_type" db:"checkout_type"`
	Published    bool         `json:"published" db:"published"`
	ContractID   *string      `json:"contract_id,omitempty" db:"contract_id"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// References counts the records that keep a tier from being deleted.
type References struct {
	Subscriptions int64 `json:"subscriptions"`
	Charges       int64 `json:"charges"`
	Prospects     int64 `json:"prospects"`
}

func (r References) Any() bool {
	return r.Subscriptions+r.Charges+r.Prospects > 0
}
