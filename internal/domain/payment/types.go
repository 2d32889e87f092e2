// internal/domain/payment/types.go
package payment

import "time"

type Interval string

const (
	IntervalOnce  Interval = "once"
	IntervalMonth Interval = "month"
	IntervalYear  Interval = "year"
)

// ChargeRequest asks the processor to take a one-time payment or to start a
// subscription, depending on Interval.
type ChargeRequest struct {
	IdempotencyKey  string
	BuyerID         string
	BuyerEmail      string
	VendorAccountID string
	TierID          string
	TierName        string
	Amount          int64
	Currency        string
	Interval        Interval
	TrialDays       int
	PaymentMethod   string
}

type EventType string

const (
	EventSubscriptionUpdated EventType = "customer.subscription.updated"
	EventSubscriptionDeleted EventType = "customer.subscription.deleted"
)

// StatusEvent is a processor notification about one external subscription.
// Delivery is at-least-once and possibly out of order.
type StatusEvent struct {
	ExternalSubscriptionID string     `json:"external_subscription_id"`
	Type                   EventType  `json:"type"`
	OccurredAt             time.Time  `json:"occurred_at"`
	Status                 string     `json:"status"`
	CancelAtPeriodEnd      bool       `json:"cancel_at_period_end"`
	CurrentPeriodEnd       *time.Time `json:"current_period_end,omitempty"`
	PlanID                 string     `json:"plan_id,omitempty"`
}

// Key identifies an event for deduplication.
func (e StatusEvent) Key() EventKey {
	return EventKey{
		ExternalSubscriptionID: e.ExternalSubscriptionID,
		Type:                   e.Type,
		Timestamp:              e.OccurredAt.UTC().Unix(),
	}
}

type EventKey struct {
	ExternalSubscriptionID string
	Type                   EventType
	Timestamp              int64
}

// EndsAccess reports whether the event means the subscription is over.
func (e StatusEvent) EndsAccess() bool {
	if e.Type == EventSubscriptionDeleted {
		return true
	}
	switch e.Status {
	case "canceled", "incomplete_expired", "unpaid":
		return true
	}
	return false
}
