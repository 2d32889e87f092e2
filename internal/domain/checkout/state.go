// Package checkout holds the buyer checkout state machine and the records
// used to make payment submissions idempotent.
package checkout

import (
	"fmt"

	"gitwallet-service/internal/domain/tier"
)

type State string

const (
	StateViewing                 State = "viewing"
	StateCollectingPaymentMethod State = "collecting_payment_method"
	StateCollectingContactInfo   State = "collecting_contact_info"
	StateCompleted               State = "completed"
	StateFailed                  State = "failed"
)

type Event string

const (
	EventPaymentSucceeded Event = "payment_succeeded"
	EventPaymentFailed    Event = "payment_failed"
	EventContactSaved     Event = "contact_saved"
	EventContactFailed    Event = "contact_failed"
	EventRetry            Event = "retry"
)

// Open leaves Viewing for the collection state of the tier's checkout.
func Open(c tier.Checkout) (State, error) {
	switch c.(type) {
	case tier.DirectPayment:
		return StateCollectingPaymentMethod, nil
	case tier.ContactForm:
		return StateCollectingContactInfo, nil
	}
	return StateViewing, fmt.Errorf("checkout: unsupported checkout %T", c)
}

var transitions = map[State]map[Event]State{
	StateCollectingPaymentMethod: {
		EventPaymentSucceeded: StateCompleted,
		EventPaymentFailed:    StateFailed,
	},
	StateCollectingContactInfo: {
		EventContactSaved: StateCompleted,
		// a failed write keeps the form open for another attempt
		EventContactFailed: StateCollectingContactInfo,
	},
	StateFailed: {
		EventRetry: StateCollectingPaymentMethod,
	},
}

// Next applies an event. Completed is terminal.
func Next(s State, e Event) (State, error) {
	if next, ok := transitions[s][e]; ok {
		return next, nil
	}
	return s, fmt.Errorf("checkout: event %q not allowed in state %q", e, s)
}

// IsTerminal reports whether no further events are accepted.
func (s State) IsTerminal() bool {
	return s == StateCompleted
}
