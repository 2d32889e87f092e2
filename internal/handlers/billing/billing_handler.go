// internal/handlers/billing/billing_handler.go
package billing

import (
	"net/http"

	"gitwallet-service/internal/middleware"
	"gitwallet-service/internal/pkg/response"
	service "gitwallet-service/internal/service/billing"

	"github.com/gin-gonic/gin"
)

type BillingHandler struct {
	billingService *service.BillingService
}

func NewBillingHandler(billingService *service.BillingService) *BillingHandler {
	return &BillingHandler{billingService: billingService}
}

func (h *BillingHandler) GetSubscriptionInfo(c *gin.Context) {
	info, err := h.billingService.GetSubscriptionInfo(c.Request.Context(), middleware.GetActor(c))
	if err != nil {
		response.FromError(c, "failed to load billing status", err)
		return
	}

	response.Success(c, http.StatusOK, "billing status retrieved", info)
}
