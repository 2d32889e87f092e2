// internal/service/payment/stripe_gateway.go
package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"gitwallet-service/internal/domain/payment"
	xerrors "gitwallet-service/internal/pkg/errors"

	"github.com/stripe/stripe-go/v75"
	"github.com/stripe/stripe-go/v75/client"
	"go.uber.org/zap"
)

// StripeGateway talks to Stripe on behalf of vendors' connected accounts.
type StripeGateway struct {
	sc     *client.API
	logger *zap.Logger
}

func NewStripeGateway(secretKey string, logger *zap.Logger) *StripeGateway {
	return &StripeGateway{
		sc:     client.New(secretKey, nil),
		logger: logger,
	}
}

// CreateSetupIntent starts collecting a reusable card on the vendor's account
// and returns the client secret for the browser.
func (g *StripeGateway) CreateSetupIntent(ctx context.Context, vendorAccountID, idempotencyKey string) (string, error) {
	const op = "payment.create_setup_intent"

	params := &stripe.SetupIntentParams{
		Usage:              stripe.String(string(stripe.SetupIntentUsageOffSession)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
	}
	params.Context = ctx
	params.SetStripeAccount(vendorAccountID)
	params.SetIdempotencyKey(idempotencyKey)

	si, err := g.sc.SetupIntents.New(params)
	if err != nil {
		return "", classify(op, err)
	}

	return si.ClientSecret, nil
}

// ConfirmPaymentMethod checks that the browser completed the setup intent and
// returns the collected payment method id.
func (g *StripeGateway) ConfirmPaymentMethod(ctx context.Context, vendorAccountID, clientSecret string) (string, error) {
	const op = "payment.confirm_payment_method"

	id, err := SetupIntentIDFromSecret(clientSecret)
	if err != nil {
		return "", err
	}

	params := &stripe.SetupIntentParams{}
	params.Context = ctx
	params.SetStripeAccount(vendorAccountID)

	si, err := g.sc.SetupIntents.Get(id, params)
	if err != nil {
		return "", classify(op, err)
	}

	if si.Status != stripe.SetupIntentStatusSucceeded || si.PaymentMethod == nil {
		msg := "payment method has not been confirmed"
		if si.LastSetupError != nil && si.LastSetupError.Msg != "" {
			msg = si.LastSetupError.Msg
		}
		return "", xerrors.Payment(op, msg, nil)
	}

	return si.PaymentMethod.ID, nil
}

// ChargeOrSubscribe takes a one-time payment or starts a subscription,
// depending on the request interval, and returns the processor reference.
// Every call carries an idempotency key derived from the checkout attempt, so
// a repeated call after a lost response does not move money twice.
func (g *StripeGateway) ChargeOrSubscribe(ctx context.Context, req *payment.ChargeRequest) (string, error) {
	const op = "payment.charge_or_subscribe"

	customerID, err := g.createCustomer(ctx, req)
	if err != nil {
		return "", classify(op, err)
	}

	if req.Interval == payment.IntervalOnce {
		ref, err := g.charge(ctx, req, customerID)
		if err != nil {
			return "", classify(op, err)
		}
		return ref, nil
	}

	productID, err := g.ensureProduct(ctx, req)
	if err != nil {
		return "", classify(op, err)
	}

	ref, err := g.subscribe(ctx, req, customerID, productID)
	if err != nil {
		return "", classify(op, err)
	}
	return ref, nil
}

func (g *StripeGateway) createCustomer(ctx context.Context, req *payment.ChargeRequest) (string, error) {
	params := &stripe.CustomerParams{
		PaymentMethod: stripe.String(req.PaymentMethod),
		InvoiceSettings: &stripe.CustomerInvoiceSettingsParams{
			DefaultPaymentMethod: stripe.String(req.PaymentMethod),
		},
	}
	if req.BuyerEmail != "" {
		params.Email = stripe.String(req.BuyerEmail)
	}
	params.Context = ctx
	params.SetStripeAccount(req.VendorAccountID)
	params.SetIdempotencyKey(req.IdempotencyKey + "-customer")
	params.AddMetadata("buyer_id", req.BuyerID)

	cus, err := g.sc.Customers.New(params)
	if err != nil {
		return "", err
	}
	return cus.ID, nil
}

func (g *StripeGateway) charge(ctx context.Context, req *payment.ChargeRequest, customerID string) (string, error) {
	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(req.Amount),
		Currency:      stripe.String(req.Currency),
		Customer:      stripe.String(customerID),
		PaymentMethod: stripe.String(req.PaymentMethod),
		Confirm:       stripe.Bool(true),
		OffSession:    stripe.Bool(true),
		Description:   stripe.String(req.TierName),
	}
	params.Context = ctx
	params.SetStripeAccount(req.VendorAccountID)
	params.SetIdempotencyKey(req.IdempotencyKey + "-charge")
	params.AddMetadata("tier_id", req.TierID)
	params.AddMetadata("buyer_id", req.BuyerID)

	pi, err := g.sc.PaymentIntents.New(params)
	if err != nil {
		return "", err
	}

	switch pi.Status {
	case stripe.PaymentIntentStatusSucceeded, stripe.PaymentIntentStatusProcessing:
		return pi.ID, nil
	}
	return "", xerrors.Payment("payment.charge", fmt.Sprintf("payment not completed (%s)", pi.Status), nil)
}

// ensureProduct returns the connected account's product for the tier,
// creating it under a deterministic id on first use.
func (g *StripeGateway) ensureProduct(ctx context.Context, req *payment.ChargeRequest) (string, error) {
	productID := "tier_" + req.TierID

	getParams := &stripe.ProductParams{}
	getParams.Context = ctx
	getParams.SetStripeAccount(req.VendorAccountID)

	p, err := g.sc.Products.Get(productID, getParams)
	if err == nil {
		return p.ID, nil
	}
	if !isMissing(err) {
		return "", err
	}

	params := &stripe.ProductParams{
		ID:   stripe.String(productID),
		Name: stripe.String(req.TierName),
	}
	params.Context = ctx
	params.SetStripeAccount(req.VendorAccountID)
	params.SetIdempotencyKey(req.IdempotencyKey + "-product")
	params.AddMetadata("tier_id", req.TierID)

	p, err = g.sc.Products.New(params)
	if err != nil {
		var stripeErr *stripe.Error
		// created concurrently by another checkout
		if errors.As(err, &stripeErr) && stripeErr.Code == stripe.ErrorCodeResourceAlreadyExists {
			return productID, nil
		}
		return "", err
	}
	return p.ID, nil
}

func (g *StripeGateway) subscribe(ctx context.Context, req *payment.ChargeRequest, customerID, productID string) (string, error) {
	params := &stripe.SubscriptionParams{
		Customer: stripe.String(customerID),
		Items: []*stripe.SubscriptionItemsParams{
			{
				PriceData: &stripe.SubscriptionItemPriceDataParams{
					Currency: stripe.String(req.Currency),
					Product:  stripe.String(productID),
					Recurring: &stripe.SubscriptionItemPriceDataRecurringParams{
						Interval: stripe.String(string(req.Interval)),
					},
					UnitAmount: stripe.Int64(req.Amount),
				},
				Quantity: stripe.Int64(1),
			},
		},
		DefaultPaymentMethod: stripe.String(req.PaymentMethod),
		PaymentBehavior:      stripe.String("error_if_incomplete"),
	}
	if req.TrialDays > 0 {
		params.TrialPeriodDays = stripe.Int64(int64(req.TrialDays))
	}
	params.Context = ctx
	params.SetStripeAccount(req.VendorAccountID)
	params.SetIdempotencyKey(req.IdempotencyKey + "-subscription")
	params.AddMetadata("tier_id", req.TierID)
	params.AddMetadata("buyer_id", req.BuyerID)

	sub, err := g.sc.Subscriptions.New(params)
	if err != nil {
		return "", err
	}

	switch sub.Status {
	case stripe.SubscriptionStatusActive, stripe.SubscriptionStatusTrialing:
		return sub.ID, nil
	}
	return "", xerrors.Payment("payment.subscribe", fmt.Sprintf("subscription not started (%s)", sub.Status), nil)
}

// CancelSubscription stops renewal. With atPeriodEnd the subscription runs to
// the end of the paid period, which is returned; otherwise it ends now.
func (g *StripeGateway) CancelSubscription(ctx context.Context, vendorAccountID, externalRef string, atPeriodEnd bool) (*time.Time, error) {
	const op = "payment.cancel_subscription"

	if atPeriodEnd {
		params := &stripe.SubscriptionParams{CancelAtPeriodEnd: stripe.Bool(true)}
		params.Context = ctx
		params.SetStripeAccount(vendorAccountID)

		sub, err := g.sc.Subscriptions.Update(externalRef, params)
		if err != nil {
			return nil, classify(op, err)
		}
		if sub.CurrentPeriodEnd == 0 {
			return nil, nil
		}
		end := time.Unix(sub.CurrentPeriodEnd, 0).UTC()
		return &end, nil
	}

	params := &stripe.SubscriptionCancelParams{}
	params.Context = ctx
	params.SetStripeAccount(vendorAccountID)

	if _, err := g.sc.Subscriptions.Cancel(externalRef, params); err != nil {
		// already gone on the processor side
		if isMissing(err) {
			g.logger.Warn("subscription missing at processor during cancel", zap.String("external_ref", externalRef))
			return nil, nil
		}
		return nil, classify(op, err)
	}
	return nil, nil
}

// SetupIntentIDFromSecret extracts "seti_123" from "seti_123_secret_abc".
func SetupIntentIDFromSecret(secret string) (string, error) {
	id, _, ok := strings.Cut(secret, "_secret_")
	if !ok || !strings.HasPrefix(id, "seti_") || len(id) == len("seti_") {
		return "", xerrors.Validation("payment.confirm_payment_method", "setup_intent_client_secret", "is malformed")
	}
	return id, nil
}

func isMissing(err error) bool {
	var stripeErr *stripe.Error
	return errors.As(err, &stripeErr) &&
		(stripeErr.HTTPStatusCode == http.StatusNotFound || stripeErr.Code == stripe.ErrorCodeResourceMissing)
}

// classify turns processor failures into application errors. Rejections the
// buyer can fix become payment errors; transport, auth and processor outages
// become retryable errors.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}

	var appErr *xerrors.Error
	if errors.As(err, &appErr) {
		return err
	}

	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) {
		return xerrors.Retryable(op, "payment processor unreachable", err)
	}

	switch stripeErr.Type {
	case stripe.ErrorTypeCard:
		return xerrors.Payment(op, userMessage(stripeErr), err)
	case stripe.ErrorTypeInvalidRequest:
		switch stripeErr.HTTPStatusCode {
		case http.StatusUnauthorized, http.StatusForbidden, http.StatusTooManyRequests:
			return xerrors.Retryable(op, "payment processor unavailable", err)
		}
		return xerrors.Payment(op, userMessage(stripeErr), err)
	}

	return xerrors.Retryable(op, "payment processor unavailable", err)
}

func userMessage(e *stripe.Error) string {
	if e.Msg != "" {
		return e.Msg
	}
	return "payment was declined"
}
