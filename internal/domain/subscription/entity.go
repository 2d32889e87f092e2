// internal/domain/subscription/entity.go
package subscription

import (
	"time"
)

type State string

const (
	StateRenewing  State = "renewing"
	StateCancelled State = "cancelled"
)

// Subscription is a recurring purchase of a tier by a buyer.
type Subscription struct {
	ID             string `json:"id" db:"id"`
	TierID         string `json:"tier_id" db:"tier_id"`
	BuyerID        string `json:"buyer_id" db:"buyer_id"`
	OrganizationID string `json:"organization_id" db:"organization_id"`

	// PriceAnnual records which price was locked in at purchase time
	PriceAnnual bool   `json:"price_annual" db:"price_annual"`
	Amount      int64  `json:"amount" db:"amount"`
	Currency    string `json:"currency" db:"currency"`

	State       State      `json:"state" db:"state"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty" db:"cancelled_at"`
	ActiveUntil *time.Time `json:"active_until,omitempty" db:"active_until"`

	ExternalRef    string     `json:"external_ref" db:"external_ref"`
	IdempotencyKey string     `json:"-" db:"idempotency_key"`
	LastEventAt    *time.Time `json:"-" db:"last_event_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// MonthlyAmount normalises the locked price to one month.
func (s *Subscription) MonthlyAmount() int64 {
	if s.PriceAnnual {
		return s.Amount / 12
	}
	return s.Amount
}
