package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"gitwallet-service/internal/domain/payment"
	xerrors "gitwallet-service/internal/pkg/errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const testSecret = "whsec_test"

type fakeApplier struct {
	events []*payment.StatusEvent
	err    error
}

func (f *fakeApplier) Apply(ctx context.Context, ev *payment.StatusEvent) error {
	f.events = append(f.events, ev)
	return f.err
}

func sign(payload string, ts int64) string {
	mac := hmac.New(sha256.New, []byte(testSecret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func post(h *StripeHandler, payload, signature string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/webhooks/stripe", h.HandleEvent)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", strings.NewReader(payload))
	req.Header.Set("Stripe-Signature", signature)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func subscriptionEvent(eventType string, created int64) string {
	return fmt.Sprintf(`{"id":"evt_1","object":"event","type":%q,"created":%d,"data":{"object":{"id":"sub_1","object":"subscription","status":"active","cancel_at_period_end":true,"current_period_end":%d}}}`,
		eventType, created, created+86400)
}

func TestHandleEventAppliesStatusChange(t *testing.T) {
	applier := &fakeApplier{}
	h := NewStripeHandler(applier, testSecret, zap.NewNop())

	now := time.Now().Unix()
	payload := subscriptionEvent("customer.subscription.updated", now)
	w := post(h, payload, sign(payload, now))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if len(applier.events) != 1 {
		t.Fatalf("applied %d events, want 1", len(applier.events))
	}
	ev := applier.events[0]
	if ev.ExternalSubscriptionID != "sub_1" || !ev.CancelAtPeriodEnd {
		t.Fatalf("unexpected event %+v", ev)
	}
}

func TestHandleEventRejectsBadSignature(t *testing.T) {
	applier := &fakeApplier{}
	h := NewStripeHandler(applier, testSecret, zap.NewNop())

	now := time.Now().Unix()
	payload := subscriptionEvent("customer.subscription.updated", now)
	w := post(h, payload, sign(payload+" ", now))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if len(applier.events) != 0 {
		t.Fatal("unverified event must not be applied")
	}
}

func TestHandleEventIgnoresOtherTypes(t *testing.T) {
	applier := &fakeApplier{}
	h := NewStripeHandler(applier, testSecret, zap.NewNop())

	now := time.Now().Unix()
	payload := fmt.Sprintf(`{"id":"evt_2","object":"event","type":"invoice.paid","created":%d,"data":{"object":{"id":"in_1"}}}`, now)
	w := post(h, payload, sign(payload, now))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if len(applier.events) != 0 {
		t.Fatal("unrelated event applied")
	}
}

func TestHandleEventRetryableFailure(t *testing.T) {
	applier := &fakeApplier{err: xerrors.Retryable("webhook.apply", "conflict", errors.New("state changed"))}
	h := NewStripeHandler(applier, testSecret, zap.NewNop())

	now := time.Now().Unix()
	payload := subscriptionEvent("customer.subscription.deleted", now)
	w := post(h, payload, sign(payload, now))

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
}
