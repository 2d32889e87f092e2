package checkout

import (
	"time"

	"gitwallet-service/internal/domain/charge"
	"gitwallet-service/internal/domain/subscription"
)

type AttemptStatus string

const (
	AttemptPending   AttemptStatus = "pending"
	AttemptCompleted AttemptStatus = "completed"
	AttemptFailed    AttemptStatus = "failed"
)

type ResultKind string

const (
	ResultSubscription ResultKind = "subscription"
	ResultCharge       ResultKind = "charge"
)

// Attempt is the claim a buyer holds on one checkout submission. Its key is
// derived from (buyer, tier, attempt id).
type Attempt struct {
	IdempotencyKey string        `json:"idempotency_key" db:"idempotency_key"`
	AttemptID      string        `json:"attempt_id" db:"attempt_id"`
	BuyerID        string        `json:"buyer_id" db:"buyer_id"`
	TierID         string        `json:"tier_id" db:"tier_id"`
	OrganizationID string        `json:"organization_id" db:"organization_id"`
	Annual         bool          `json:"annual" db:"annual"`
	Kind           ResultKind    `json:"kind" db:"kind"`
	Amount         int64         `json:"amount" db:"amount"`
	Currency       string        `json:"currency" db:"currency"`
	Status         AttemptStatus `json:"status" db:"status"`
	ResultKind     ResultKind    `json:"result_kind,omitempty" db:"result_kind"`
	ResultID       string        `json:"result_id,omitempty" db:"result_id"`
	ExternalRef    string        `json:"external_ref,omitempty" db:"external_ref"`
	FailureReason  string        `json:"failure_reason,omitempty" db:"failure_reason"`
	Tries          int           `json:"tries" db:"tries"`
	CreatedAt      time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at" db:"updated_at"`
}

// Paid rebuilds the paid checkout of an attempt whose payment went through
// but whose record was never written. It reports false for attempts that are
// settled, never reached the processor, or predate stored purchase terms.
func (a *Attempt) Paid() (PaidCheckout, bool) {
	if a.Status != AttemptPending || a.ExternalRef == "" || a.Kind == "" {
		return PaidCheckout{}, false
	}
	return PaidCheckout{
		IdempotencyKey: a.IdempotencyKey,
		Kind:           a.Kind,
		TierID:         a.TierID,
		BuyerID:        a.BuyerID,
		OrganizationID: a.OrganizationID,
		Annual:         a.Annual,
		Amount:         a.Amount,
		Currency:       a.Currency,
		ExternalRef:    a.ExternalRef,
		PaidAt:         a.UpdatedAt,
	}, true
}

// Result is the record created by a completed payment checkout. Exactly one
// of Subscription and Charge is set.
type Result struct {
	Kind         ResultKind                 `json:"kind"`
	Subscription *subscription.Subscription `json:"subscription,omitempty"`
	Charge       *charge.Charge             `json:"charge,omitempty"`
}

// ID returns the id of the created record.
func (r *Result) ID() string {
	switch {
	case r.Subscription != nil:
		return r.Subscription.ID
	case r.Charge != nil:
		return r.Charge.ID
	}
	return ""
}

// PaidCheckout is everything needed to write the purchase record after the
// payment processor accepted the payment. It is queued for reconciliation
// when the write keeps failing.
type PaidCheckout struct {
	IdempotencyKey string     `json:"idempotency_key"`
	Kind           ResultKind `json:"kind"`
	TierID         string     `json:"tier_id"`
	BuyerID        string     `json:"buyer_id"`
	OrganizationID string     `json:"organization_id"`
	Annual         bool       `json:"annual"`
	Amount         int64      `json:"amount"`
	Currency       string     `json:"currency"`
	ExternalRef    string     `json:"external_ref"`
	PaidAt         time.Time  `json:"paid_at"`
	Failures       int        `json:"failures"`
}
