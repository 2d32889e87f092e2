// internal/handlers/webhook/stripe_handler.go
package webhook

import (
	"context"
	"io"
	"net/http"

	"gitwallet-service/internal/domain/payment"
	"gitwallet-service/internal/pkg/response"
	paymentsvc "gitwallet-service/internal/service/payment"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v75/webhook"
	"go.uber.org/zap"
)

const maxPayloadBytes = 65536

// EventApplier applies a verified subscription status event.
type EventApplier interface {
	Apply(ctx context.Context, ev *payment.StatusEvent) error
}

type StripeHandler struct {
	applier       EventApplier
	webhookSecret string
	logger        *zap.Logger
}

func NewStripeHandler(applier EventApplier, webhookSecret string, logger *zap.Logger) *StripeHandler {
	return &StripeHandler{
		applier:       applier,
		webhookSecret: webhookSecret,
		logger:        logger,
	}
}

// HandleEvent verifies the signature and applies subscription status
// changes. Any non-2xx reply makes Stripe redeliver the event.
func (h *StripeHandler) HandleEvent(c *gin.Context) {
	if h.webhookSecret == "" {
		response.Error(c, http.StatusInternalServerError, "webhook secret not configured", nil)
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxPayloadBytes)
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		response.Error(c, http.StatusServiceUnavailable, "error reading request body", err)
		return
	}

	event, err := webhook.ConstructEventWithOptions(
		payload,
		c.GetHeader("Stripe-Signature"),
		h.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true},
	)
	if err != nil {
		h.logger.Warn("stripe signature verification failed",
			zap.Error(err),
			zap.String("ip", c.ClientIP()),
		)
		response.Error(c, http.StatusBadRequest, "signature verification failed", err)
		return
	}

	ev, ok, err := paymentsvc.StatusEventFromStripe(event)
	if err != nil {
		h.logger.Error("malformed stripe event",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err),
		)
		response.Error(c, http.StatusBadRequest, "failed to parse event", err)
		return
	}
	if !ok {
		response.Success(c, http.StatusOK, "ignored", nil)
		return
	}

	if err := h.applier.Apply(c.Request.Context(), ev); err != nil {
		response.FromError(c, "failed to apply event", err)
		return
	}

	response.Success(c, http.StatusOK, "received", nil)
}
