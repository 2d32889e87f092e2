package tier

// Checkout is the purchase path of a tier. It has exactly two
// implementations, DirectPayment and ContactForm.
type Checkout interface {
	checkoutType() CheckoutType
}

// DirectPayment collects a payment method and creates a charge or a
// subscription.
type DirectPayment struct {
	Price       int64
	PriceAnnual *int64
	Currency    string
	Cadence     Cadence
	TrialDays   int
}

func (DirectPayment) checkoutType() CheckoutType { return CheckoutDirectPayment }

// Recurring reports whether a completed payment creates a subscription.
func (d DirectPayment) Recurring() bool { return d.Cadence != CadenceOnce }

// ContactForm captures a lead. Prices are display only.
type ContactForm struct{}

func (ContactForm) checkoutType() CheckoutType { return CheckoutContactForm }

// Checkout returns the tier's purchase path. Unknown checkout types yield nil.
func (t *Tier) Checkout() Checkout {
	switch t.CheckoutType {
	case CheckoutDirectPayment:
		return DirectPayment{
			Price:       t.Price,
			PriceAnnual: t.PriceAnnual,
			Currency:    t.Currency,
			Cadence:     t.Cadence,
			TrialDays:   t.TrialDays,
		}
	case CheckoutContactForm:
		return ContactForm{}
	}
	return nil
}
