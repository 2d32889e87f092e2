// internal/handlers/tier/tier_handler.go
package tier

import (
	"net/http"

	"gitwallet-service/internal/domain/tier"
	"gitwallet-service/internal/middleware"
	"gitwallet-service/internal/pkg/response"
	service "gitwallet-service/internal/service/tier"

	"github.com/gin-gonic/gin"
)

type TierHandler struct {
	tierService *service.TierService
}

func NewTierHandler(tierService *service.TierService) *TierHandler {
	return &TierHandler{
		tierService: tierService,
	}
}

// ==================== Vendor ====================

func (h *TierHandler) CreateTier(c *gin.Context) {
	var req tier.CreateTierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request body", err)
		return
	}

	result, err := h.tierService.CreateTier(c.Request.Context(), middleware.GetActor(c), &req)
	if err != nil {
		response.FromError(c, "failed to create tier", err)
		return
	}

	response.Success(c, http.StatusCreated, "tier created", result)
}

func (h *TierHandler) UpdateTier(c *gin.Context) {
	var req tier.UpdateTierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request body", err)
		return
	}

	result, err := h.tierService.UpdateTier(c.Request.Context(), middleware.GetActor(c), c.Param("id"), &req)
	if err != nil {
		response.FromError(c, "failed to update tier", err)
		return
	}

	response.Success(c, http.StatusOK, "tier updated", result)
}

func (h *TierHandler) PublishTier(c *gin.Context) {
	h.setPublished(c, true, "tier published")
}

func (h *TierHandler) UnpublishTier(c *gin.Context) {
	h.setPublished(c, false, "tier unpublished")
}

func (h *TierHandler) setPublished(c *gin.Context, published bool, message string) {
	t, err := h.tierService.SetPublished(c.Request.Context(), middleware.GetActor(c), c.Param("id"), published)
	if err != nil {
		response.FromError(c, "failed to change tier visibility", err)
		return
	}

	response.Success(c, http.StatusOK, message, t)
}

func (h *TierHandler) GetTier(c *gin.Context) {
	t, err := h.tierService.GetTier(c.Request.Context(), middleware.GetActor(c), c.Param("id"))
	if err != nil {
		response.FromError(c, "tier not found", err)
		return
	}

	response.Success(c, http.StatusOK, "tier retrieved", t)
}

func (h *TierHandler) ListTiers(c *gin.Context) {
	tiers, err := h.tierService.ListTiers(c.Request.Context(), middleware.GetActor(c))
	if err != nil {
		response.FromError(c, "failed to list tiers", err)
		return
	}

	response.Success(c, http.StatusOK, "tiers retrieved", tiers)
}

func (h *TierHandler) DeleteTier(c *gin.Context) {
	if err := h.tierService.DeleteTier(c.Request.Context(), middleware.GetActor(c), c.Param("id")); err != nil {
		response.FromError(c, "failed to delete tier", err)
		return
	}

	response.Success(c, http.StatusOK, "tier deleted", nil)
}

// ==================== Buyer ====================

// ListPublishedTiers is the public pricing page of an organization.
func (h *TierHandler) ListPublishedTiers(c *gin.Context) {
	views, err := h.tierService.ListPublishedTiers(c.Request.Context(), c.Param("org_id"))
	if err != nil {
		response.FromError(c, "failed to list tiers", err)
		return
	}

	response.Success(c, http.StatusOK, "tiers retrieved", views)
}

func (h *TierHandler) GetPublishedTier(c *gin.Context) {
	t, err := h.tierService.GetPublishedTier(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.FromError(c, "tier not found", err)
		return
	}

	response.Success(c, http.StatusOK, "tier retrieved", tier.NewView(t))
}
