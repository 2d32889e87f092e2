// internal/handlers/checkout/checkout_handler.go
package checkout

import (
	"net/http"

	"gitwallet-service/internal/domain/checkout"
	"gitwallet-service/internal/domain/prospect"
	"gitwallet-service/internal/middleware"
	xerrors "gitwallet-service/internal/pkg/errors"
	"gitwallet-service/internal/pkg/response"
	service "gitwallet-service/internal/service/checkout"

	"github.com/gin-gonic/gin"
)

type CheckoutHandler struct {
	checkoutService *service.CheckoutService
}

func NewCheckoutHandler(checkoutService *service.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{
		checkoutService: checkoutService,
	}
}

func (h *CheckoutHandler) StartCheckout(c *gin.Context) {
	var req checkout.StartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request body", err)
		return
	}

	session, err := h.checkoutService.StartCheckout(c.Request.Context(), middleware.GetActor(c), req.TierID)
	if err != nil {
		response.FromError(c, "failed to start checkout", err)
		return
	}

	response.Success(c, http.StatusOK, "checkout started", session)
}

func (h *CheckoutHandler) SubmitPayment(c *gin.Context) {
	var req checkout.SubmitPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request body", err)
		return
	}

	outcome, err := h.checkoutService.SubmitPayment(c.Request.Context(), middleware.GetActor(c), &req)
	if err != nil {
		if xerrors.KindOf(err) == xerrors.KindPersistence {
			// paid but not yet recorded; the client should poll its purchases
			response.Success(c, http.StatusAccepted, "payment received, your purchase is being finalised", nil)
			return
		}
		response.FromError(c, "payment failed", err)
		return
	}

	message := "purchase completed"
	if outcome.Duplicate {
		message = "purchase already completed"
	}
	response.Success(c, http.StatusOK, message, outcome)
}

func (h *CheckoutHandler) SubmitContact(c *gin.Context) {
	var req prospect.ContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request body", err)
		return
	}

	outcome, err := h.checkoutService.SubmitContact(c.Request.Context(), c.Param("tier_id"), &req, c.ClientIP())
	if err != nil {
		if outcome != nil {
			response.FromError(c, "failed to submit contact form", err, outcome)
			return
		}
		response.FromError(c, "failed to submit contact form", err)
		return
	}

	response.Success(c, http.StatusCreated, "thanks, the vendor will be in touch", outcome)
}
