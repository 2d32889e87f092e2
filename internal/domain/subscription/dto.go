// internal/domain/subscription/dto.go
package subscription

import "time"

type CancelSubscriptionRequest struct {
	// AtPeriodEnd keeps access until the end of the paid period
	AtPeriodEnd bool   `json:"at_period_end"`
	Reason      string `json:"reason"`
}

type ListFilters struct {
	State    *State `form:"state"`
	TierID   string `form:"tier_id"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// Normalize fills in default paging.
func (f *ListFilters) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = 20
	}
}

// View is a subscription together with its derived status.
type View struct {
	Subscription
	IsActive      bool   `json:"is_active"`
	StatusLabel   string `json:"status_label"`
	RemainingDays int    `json:"remaining_days,omitempty"`
}

func NewView(s *Subscription, now time.Time) View {
	return View{
		Subscription:  *s,
		IsActive:      s.IsActive(now),
		StatusLabel:   s.StatusLabel(now),
		RemainingDays: s.RemainingDays(now),
	}
}

type ListResponse struct {
	Subscriptions []View `json:"subscriptions"`
	Total         int64  `json:"total"`
	Page          int    `json:"page"`
	PageSize      int    `json:"page_size"`
	TotalPages    int    `json:"total_pages"`
}
