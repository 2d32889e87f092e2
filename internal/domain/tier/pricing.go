package tier

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// AnnualPrice is the price charged for a year. Without an explicit annual
// price it falls back to twelve monthly payments.
func (t *Tier) AnnualPrice() int64 {
	if t.PriceAnnual != nil {
		return *t.PriceAnnual
	}
	return t.Price * 12
}

// EffectivePrice is the amount charged per period for the selected billing
// period. One-time tiers ignore the annual toggle.
func EffectivePrice(t *Tier, isAnnual bool) int64 {
	if isAnnual && t.Cadence != CadenceOnce {
		return t.AnnualPrice()
	}
	return t.Price
}

// EffectiveCadenceLabel is the short unit shown after a price: "mo", "yr",
// or empty for one-time tiers.
func EffectiveCadenceLabel(t *Tier, isAnnual bool) string {
	if t.Cadence == CadenceOnce {
		return ""
	}
	if isAnnual {
		return "yr"
	}
	return "mo"
}

// DiscountPercent is the saving of an annual price over twelve monthly
// payments, rounded to a whole percent and clamped to [0, 100].
func DiscountPercent(monthly, annual int64) int {
	if monthly <= 0 {
		return 0
	}
	if annual <= 0 {
		return 100
	}
	yearly := float64(monthly * 12)
	pct := math.Round((yearly - float64(annual)) / yearly * 100)
	switch {
	case pct < 0:
		return 0
	case pct > 100:
		return 100
	}
	return int(pct)
}

// TrialOffered reports whether a buyer starts with a free trial.
func TrialOffered(t *Tier) bool {
	return t.Cadence != CadenceOnce && t.TrialDays > 0
}

var currencySymbols = map[string]string{
	"usd": "$",
	"eur": "€",
	"gbp": "£",
}

// FormatAmount renders minor units, e.g. 2900 usd as "$29.00".
func FormatAmount(amount int64, currency string) string {
	value := decimal.New(amount, -2).StringFixed(2)
	cur := strings.ToLower(currency)
	if sym, ok := currencySymbols[cur]; ok {
		return sym + value
	}
	if cur == "" {
		return value
	}
	return value + " " + strings.ToUpper(cur)
}

// DisplayPrice is the buyer-facing price text for a billing period.
func DisplayPrice(t *Tier, isAnnual bool) string {
	if t.CheckoutType == CheckoutContactForm {
		return "Get in touch"
	}
	text := FormatAmount(EffectivePrice(t, isAnnual), t.Currency)
	if label := EffectiveCadenceLabel(t, isAnnual); label != "" {
		text += "/" + label
	}
	return text
}
