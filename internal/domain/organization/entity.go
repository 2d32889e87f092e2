// internal/domain/organization/entity.go
package organization

import "time"

// Organization is a vendor tenant.
type Organization struct {
	ID                string `json:"id" db:"id"`
	Name              string `json:"name" db:"name"`
	Slug              string `json:"slug" db:"slug"`
	NotificationEmail string `json:"notification_email" db:"notification_email"`

	// Connected account receiving buyer payments
	PaymentAccountID string `json:"-" db:"payment_account_id"`

	// The organization's own plan on the platform
	PlatformPlanID             string     `json:"platform_plan_id" db:"platform_plan_id"`
	PlatformSubscriptionID     string     `json:"-" db:"platform_subscription_id"`
	PlatformSubscriptionStatus string     `json:"platform_subscription_status" db:"platform_subscription_status"`
	BillingUpdatedAt           *time.Time `json:"billing_updated_at,omitempty" db:"billing_updated_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// CanAcceptPayments reports whether buyers can pay this organization directly.
func (o *Organization) CanAcceptPayments() bool {
	return o.PaymentAccountID != ""
}
