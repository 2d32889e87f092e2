package tier

import (
	"strings"

	xerrors "gitwallet-service/internal/pkg/errors"
)

const (
	maxNameLength    = 120
	maxTaglineLength = 240
	maxFeatures      = 50
)

// Validate checks a tier before it is stored. Hard failures are returned as a
// validation error. Soft problems, such as an annual price that is not a
// discount, come back as warnings and do not block saving.
func Validate(t *Tier) ([]string, error) {
	const op = "tier.validate"

	name := strings.TrimSpace(t.Name)
	switch {
	case name == "":
		return nil, xerrors.Validation(op, "name", "is required")
	case len(name) > maxNameLength:
		return nil, xerrors.Validation(op, "name", "is too long")
	case len(t.Tagline) > maxTaglineLength:
		return nil, xerrors.Validation(op, "tagline", "is too long")
	case t.Price < 0:
		return nil, xerrors.Validation(op, "price", "must not be negative")
	case t.PriceAnnual != nil && *t.PriceAnnual < 0:
		return nil, xerrors.Validation(op, "price_annual", "must not be negative")
	case t.TrialDays < 0:
		return nil, xerrors.Validation(op, "trial_days", "must not be negative")
	case len(t.Features) > maxFeatures:
		return nil, xerrors.Validation(op, "features", "too many entries")
	}

	switch t.Cadence {
	case CadenceOnce, CadenceMonth:
	default:
		return nil, xerrors.Validation(op, "cadence", "must be once or month")
	}

	switch t.CheckoutType {
	case CheckoutDirectPayment, CheckoutContactForm:
	default:
		return nil, xerrors.Validation(op, "checkout_type", "must be direct-payment or contact-form")
	}

	for _, f := range t.Features {
		if strings.TrimSpace(f) == "" {
			return nil, xerrors.Validation(op, "features", "must not contain empty entries")
		}
	}

	var warnings []string
	if t.Cadence == CadenceMonth && t.PriceAnnual != nil && t.Price > 0 && *t.PriceAnnual >= t.Price*12 {
		warnings = append(warnings, "annual price is not lower than 12 monthly payments")
	}
	if t.Cadence == CadenceOnce && (t.PriceAnnual != nil || t.TrialDays > 0) {
		warnings = append(warnings, "annual price and trial days are ignored for one-time tiers")
	}
	if t.CheckoutType == CheckoutDirectPayment && t.Price == 0 {
		warnings = append(warnings, "direct payment tier has a zero price")
	}

	return warnings, nil
}
