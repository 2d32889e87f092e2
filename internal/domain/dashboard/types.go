// internal/domain/dashboard/types.go
package dashboard

import "time"

// Money is an amount in minor units with its display text.
type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Display  string `json:"display"`
}

// Customer summarises one buyer of an organization.
type Customer struct {
	BuyerID             string    `json:"buyer_id"`
	ActiveSubscriptions int       `json:"active_subscriptions"`
	Subscriptions       int       `json:"subscriptions"`
	Charges             int       `json:"charges"`
	LifetimeValue       []Money   `json:"lifetime_value"`
	FirstPurchaseAt     time.Time `json:"first_purchase_at"`
	LastPurchaseAt      time.Time `json:"last_purchase_at"`
}

type CustomersResponse struct {
	Customers []Customer `json:"customers"`
	Total     int        `json:"total"`
}

// Revenue is computed from prices locked at purchase time.
type Revenue struct {
	MonthlyRecurring    []Money `json:"monthly_recurring"`
	OneTime             []Money `json:"one_time"`
	ActiveSubscriptions int     `json:"active_subscriptions"`
	OpenProspects       int64   `json:"open_prospects"`
}
