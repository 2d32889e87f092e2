package checkout

import (
	"testing"

	"gitwallet-service/internal/domain/tier"
)

func TestOpen(t *testing.T) {
	direct := &tier.Tier{CheckoutType: tier.CheckoutDirectPayment, Cadence: tier.CadenceMonth}
	contact := &tier.Tier{CheckoutType: tier.CheckoutContactForm}

	if s, err := Open(direct.Checkout()); err != nil || s != StateCollectingPaymentMethod {
		t.Fatalf("direct: got %q, %v", s, err)
	}
	if s, err := Open(contact.Checkout()); err != nil || s != StateCollectingContactInfo {
		t.Fatalf("contact: got %q, %v", s, err)
	}
	if _, err := Open(nil); err == nil {
		t.Fatal("expected error for missing checkout")
	}
}

func TestNext(t *testing.T) {
	tests := []struct {
		from    State
		event   Event
		want    State
		wantErr bool
	}{
		{StateCollectingPaymentMethod, EventPaymentSucceeded, StateCompleted, false},
		{StateCollectingPaymentMethod, EventPaymentFailed, StateFailed, false},
		{StateFailed, EventRetry, StateCollectingPaymentMethod, false},
		{StateCollectingContactInfo, EventContactSaved, StateCompleted, false},
		{StateCollectingContactInfo, EventContactFailed, StateCollectingContactInfo, false},
		{StateCompleted, EventRetry, StateCompleted, true},
		{StateViewing, EventPaymentSucceeded, StateViewing, true},
		{StateCollectingContactInfo, EventPaymentSucceeded, StateCollectingContactInfo, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"/"+string(tt.event), func(t *testing.T) {
			got, err := Next(tt.from, tt.event)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Fatalf("Next() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCompletedIsTerminal(t *testing.T) {
	if !StateCompleted.IsTerminal() || StateFailed.IsTerminal() {
		t.Fatal("only completed is terminal")
	}
}
