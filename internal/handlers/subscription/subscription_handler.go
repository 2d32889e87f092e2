// internal/handlers/subscription/subscription_handler.go
package subscription

import (
	"net/http"

	"gitwallet-service/internal/domain/subscription"
	"gitwallet-service/internal/middleware"
	"gitwallet-service/internal/pkg/response"
	service "gitwallet-service/internal/service/subscription"

	"github.com/gin-gonic/gin"
)

type SubscriptionHandler struct {
	subscriptionService *service.SubscriptionService
}

func NewSubscriptionHandler(subscriptionService *service.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{
		subscriptionService: subscriptionService,
	}
}

// ListMySubscriptions lists the buyer's own subscriptions.
func (h *SubscriptionHandler) ListMySubscriptions(c *gin.Context) {
	var filters subscription.ListFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid query parameters", err)
		return
	}

	result, err := h.subscriptionService.ListForBuyer(c.Request.Context(), middleware.GetActor(c), &filters)
	if err != nil {
		response.FromError(c, "failed to list subscriptions", err)
		return
	}

	response.Success(c, http.StatusOK, "subscriptions retrieved", result)
}

// ListOrganizationSubscriptions lists the subscriptions sold by the vendor.
func (h *SubscriptionHandler) ListOrganizationSubscriptions(c *gin.Context) {
	var filters subscription.ListFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid query parameters", err)
		return
	}

	result, err := h.subscriptionService.ListForOrganization(c.Request.Context(), middleware.GetActor(c), &filters)
	if err != nil {
		response.FromError(c, "failed to list subscriptions", err)
		return
	}

	response.Success(c, http.StatusOK, "subscriptions retrieved", result)
}

func (h *SubscriptionHandler) GetSubscription(c *gin.Context) {
	result, err := h.subscriptionService.Get(c.Request.Context(), middleware.GetActor(c), c.Param("id"))
	if err != nil {
		response.FromError(c, "subscription not found", err)
		return
	}

	response.Success(c, http.StatusOK, "subscription retrieved", result)
}

func (h *SubscriptionHandler) CancelSubscription(c *gin.Context) {
	var req subscription.CancelSubscriptionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, http.StatusBadRequest, "invalid request body", err)
			return
		}
	}

	result, err := h.subscriptionService.Cancel(c.Request.Context(), middleware.GetActor(c), c.Param("id"), &req)
	if err != nil {
		response.FromError(c, "failed to cancel subscription", err)
		return
	}

	response.Success(c, http.StatusOK, "subscription cancelled", result)
}
