// internal/domain/charge/entity.go
package charge

import "time"

// Charge is a completed one-time sale. It is never updated once stored.
type Charge struct {
	ID             string    `json:"id" db:"id"`
	TierID         string    `json:"tier_id" db:"tier_id"`
	BuyerID        string    `json:"buyer_id" db:"buyer_id"`
	OrganizationID string    `json:"organization_id" db:"organization_id"`
	Amount         int64     `json:"amount" db:"amount"`
	Currency       string    `json:"currency" db:"currency"`
	ExternalRef    string    `json:"external_ref" db:"external_ref"`
	IdempotencyKey string    `json:"-" db:"idempotency_key"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

type ListFilters struct {
	TierID   string `form:"tier_id"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}

type ListResponse struct {
	Charges  []Charge `json:"charges"`
	Total    int64    `json:"total"`
	Page     int      `json:"page"`
	PageSize int      `json:"page_size"`
}
