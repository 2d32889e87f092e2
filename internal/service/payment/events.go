// internal/service/payment/events.go
package payment

import (
	"encoding/json"
	"fmt"
	"time"

	"gitwallet-service/internal/domain/payment"

	"github.com/stripe/stripe-go/v75"
)

// StatusEventFromStripe translates a verified Stripe event. Events that do
// not concern subscription status return ok=false.
func StatusEventFromStripe(event stripe.Event) (*payment.StatusEvent, bool, error) {
	eventType := payment.EventType(event.Type)
	switch eventType {
	case payment.EventSubscriptionUpdated, payment.EventSubscriptionDeleted:
	default:
		return nil, false, nil
	}

	if event.Data == nil {
		return nil, false, fmt.Errorf("event %s has no data", event.ID)
	}

	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return nil, false, fmt.Errorf("failed to parse subscription: %w", err)
	}
	if sub.ID == "" {
		return nil, false, fmt.Errorf("event %s: subscription missing id", event.ID)
	}

	ev := &payment.StatusEvent{
		ExternalSubscriptionID: sub.ID,
		Type:                   eventType,
		OccurredAt:             time.Unix(event.Created, 0).UTC(),
		Status:                 string(sub.Status),
		CancelAtPeriodEnd:      sub.CancelAtPeriodEnd,
		PlanID:                 sub.Metadata["plan_id"],
	}
	if sub.CurrentPeriodEnd > 0 {
		end := time.Unix(sub.CurrentPeriodEnd, 0).UTC()
		ev.CurrentPeriodEnd = &end
	}

	return ev, true, nil
}
