// internal/domain/prospect/dto.go
package prospect

type ContactRequest struct {
	Name        string `json:"name" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
	CompanyName string `json:"company_name"`
	Context     string `json:"context"`
}

type QualifyRequest struct {
	Status Qualification `json:"status" binding:"required"`
	Reason string        `json:"reason"`
}

type ListFilters struct {
	Status   *Qualification `form:"status"`
	TierID   string         `form:"tier_id"`
	Search   string         `form:"search"`
	Page     int            `form:"page" binding:"omitempty,min=1"`
	PageSize int            `form:"page_size" binding:"omitempty,min=1,max=100"`
}

type ListResponse struct {
	Prospects  []Prospect `json:"prospects"`
	Total      int64      `json:"total"`
	Page       int        `json:"page"`
	PageSize   int        `json:"page_size"`
	TotalPages int        `json:"total_pages"`
}
