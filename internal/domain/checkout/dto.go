// internal/domain/checkout/dto.go
package checkout

import (
	"gitwallet-service/internal/domain/prospect"
	"gitwallet-service/internal/domain/tier"
)

type StartRequest struct {
	TierID string `json:"tier_id" binding:"required"`
}

// Session is returned when a buyer opens a tier's checkout.
type Session struct {
	State        State             `json:"state"`
	AttemptID    string            `json:"attempt_id"`
	CheckoutType tier.CheckoutType `json:"checkout_type"`
	Tier         tier.View         `json:"tier"`

	// Set only for direct payment
	SetupIntentClientSecret string `json:"setup_intent_client_secret,omitempty"`
}

type SubmitPaymentRequest struct {
	TierID                  string `json:"tier_id" binding:"required"`
	AttemptID               string `json:"attempt_id" binding:"required"`
	Annual                  bool   `json:"annual"`
	SetupIntentClientSecret string `json:"setup_intent_client_secret" binding:"required"`
}

type PaymentOutcome struct {
	State     State   `json:"state"`
	Result    *Result `json:"result,omitempty"`
	Duplicate bool    `json:"duplicate"`
}

type ContactOutcome struct {
	State    State              `json:"state"`
	Prospect *prospect.Prospect `json:"prospect,omitempty"`
}
