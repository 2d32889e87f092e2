// internal/domain/tier/dto.go
package tier

type CreateTierRequest struct {
	Name         string       `json:"name" binding:"required"`
	Tagline      string       `json:"tagline"`
	Description  string       `json:"description"`
	Features     []string     `json:"features"`
	Price        int64        `json:"price" binding:"min=0"`
	PriceAnnual  *int64       `json:"price_annual"`
	Currency     string       `json:"currency"`
	Cadence      Cadence      `json:"cadence" binding:"required"`
	TrialDays    int          `json:"trial_days" binding:"min=0"`
	CheckoutType CheckoutType `json:"checkout_type" binding:"required"`
	Published    bool         `json:"published"`
	ContractID   *string      `json:"contract_id"`
}

// UpdateTierRequest applies only the fields that are set.
type UpdateTierRequest struct {
	Name         *string       `json:"name"`
	Tagline      *string       `json:"tagline"`
	Description  *string       `json:"description"`
	Features     []string      `json:"features"`
	Price        *int64        `json:"price"`
	PriceAnnual  *int64        `json:"price_annual"`
	ClearAnnual  bool          `json:"clear_price_annual"`
	Currency     *string       `json:"currency"`
	Cadence      *Cadence      `json:"cadence"`
	TrialDays    *int          `json:"trial_days"`
	CheckoutType *CheckoutType `json:"checkout_type"`
	ContractID   *string       `json:"contract_id"`
}

// SaveResult is returned by create and update so that soft validation
// warnings reach the vendor.
type SaveResult struct {
	Tier     *Tier    `json:"tier"`
	Warnings []string `json:"warnings,omitempty"`
}

// PeriodPrice is the price of a tier for one billing period selection.
type PeriodPrice struct {
	Amount       int64  `json:"amount"`
	CadenceLabel string `json:"cadence_label"`
	Display      string `json:"display"`
}

// View is the buyer-facing rendering of a published tier.
type View struct {
	ID              string       `json:"id"`
	OrganizationID  string       `json:"organization_id"`
	Name            string       `json:"name"`
	Tagline         string       `json:"tagline"`
	Description     string       `json:"description"`
	Features        []string     `json:"features"`
	CheckoutType    CheckoutType `json:"checkout_type"`
	Cadence         Cadence      `json:"cadence"`
	Monthly         PeriodPrice  `json:"monthly"`
	Annual          *PeriodPrice `json:"annual,omitempty"`
	DiscountPercent int          `json:"discount_percent"`
	TrialDays       int          `json:"trial_days,omitempty"`
	TrialOffered    bool         `json:"trial_offered"`
}

func NewView(t *Tier) View {
	v := View{
		ID:             t.ID,
		OrganizationID: t.OrganizationID,
		Name:           t.Name,
		Tagline:        t.Tagline,
		Description:    t.Description,
		Features:       []string(t.Features),
		CheckoutType:   t.CheckoutType,
		Cadence:        t.Cadence,
		Monthly: PeriodPrice{
			Amount:       EffectivePrice(t, false),
			CadenceLabel: EffectiveCadenceLabel(t, false),
			Display:      DisplayPrice(t, false),
		},
		TrialOffered: TrialOffered(t),
	}
	if v.Features == nil {
		v.Features = []string{}
	}
	if v.TrialOffered {
		v.TrialDays = t.TrialDays
	}
	if t.Cadence != CadenceOnce {
		v.Annual = &PeriodPrice{
			Amount:       EffectivePrice(t, true),
			CadenceLabel: EffectiveCadenceLabel(t, true),
			Display:      DisplayPrice(t, true),
		}
		v.DiscountPercent = DiscountPercent(t.Price, t.AnnualPrice())
	}
	return v
}
