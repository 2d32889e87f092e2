// internal/service/checkout/service.go
package checkout

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gitwallet-service/internal/domain/charge"
	"gitwallet-service/internal/domain/checkout"
	"gitwallet-service/internal/domain/identity"
	"gitwallet-service/internal/domain/organization"
	"gitwallet-service/internal/domain/payment"
	"gitwallet-service/internal/domain/prospect"
	"gitwallet-service/internal/domain/subscription"
	"gitwallet-service/internal/domain/tier"
	xerrors "gitwallet-service/internal/pkg/errors"
	"gitwallet-service/internal/pkg/idempotency"
	"gitwallet-service/internal/pkg/sanitize"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

type TierReader interface {
	GetPublishedTier(ctx context.Context, id string) (*tier.Tier, error)
}

type OrganizationReader interface {
	FindByID(ctx context.Context, id string) (*organization.Organization, error)
}

type AttemptStore interface {
	Claim(ctx context.Context, a *checkout.Attempt) (*checkout.Attempt, bool, error)
	FindByKey(ctx context.Context, key string) (*checkout.Attempt, error)
	MarkFailed(ctx context.Context, key, reason string) error
	SetExternalRef(ctx context.Context, key, ref string) error
}

// PurchaseStore writes purchase records at most once per idempotency key.
type PurchaseStore interface {
	RecordSubscription(ctx context.Context, s *subscription.Subscription) (*subscription.Subscription, error)
	RecordCharge(ctx context.Context, ch *charge.Charge) (*charge.Charge, error)
	FindResult(ctx context.Context, a *checkout.Attempt) (*checkout.Result, error)
}

type ProspectStore interface {
	Upsert(ctx context.Context, p *prospect.Prospect, tierID string) (*prospect.Prospect, bool, error)
}

type Gateway interface {
	CreateSetupIntent(ctx context.Context, vendorAccountID, idempotencyKey string) (string, error)
	ConfirmPaymentMethod(ctx context.Context, vendorAccountID, clientSecret string) (string, error)
	ChargeOrSubscribe(ctx context.Context, req *payment.ChargeRequest) (string, error)
}

// Escalator receives paid checkouts whose record could not be written.
type Escalator interface {
	Push(ctx context.Context, paid checkout.PaidCheckout) error
}

type RateLimiter interface {
	AllowContactSubmission(ctx context.Context, ip, tierID string) (bool, error)
}

type Notifier interface {
	ProspectCaptured(ctx context.Context, org *organization.Organization, p *prospect.Prospect, t *tier.Tier)
	PurchaseCompleted(ctx context.Context, org *organization.Organization, t *tier.Tier, result *checkout.Result)
}

type Config struct {
	PersistAttempts int
	PersistBackoff  time.Duration
	PollInterval    time.Duration
	PollTimeout     time.Duration
}

type Deps struct {
	Tiers         TierReader
	Organizations OrganizationReader
	Attempts      AttemptStore
	Purchases     PurchaseStore
	Prospects     ProspectStore
	Gateway       Gateway
	Escalator     Escalator
	Limiter       RateLimiter
	Notifier      Notifier
}

type CheckoutService struct {
	Deps
	cfg    Config
	logger *zap.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

func NewCheckoutService(deps Deps, cfg Config, logger *zap.Logger) *CheckoutService {
	if cfg.PersistAttempts < 1 {
		cfg.PersistAttempts = 1
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 250 * time.Millisecond
	}
	return &CheckoutService{
		Deps:   deps,
		cfg:    cfg,
		logger: logger,
		sleep:  sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// StartCheckout opens a published tier's checkout. Direct payment tiers
// require a signed-in buyer and return a setup intent secret for collecting
// the payment method.
func (s *CheckoutService) StartCheckout(ctx context.Context, actor identity.Actor, tierID string) (*checkout.Session, error) {
	const op = "checkout.start"

	t, err := s.Tiers.GetPublishedTier(ctx, tierID)
	if err != nil {
		return nil, err
	}

	c := t.Checkout()
	state, err := checkout.Open(c)
	if err != nil {
		return nil, xerrors.Validation(op, "checkout_type", "tier has an unsupported checkout type")
	}

	session := &checkout.Session{
		State:        state,
		AttemptID:    ulid.Make().String(),
		CheckoutType: t.CheckoutType,
		Tier:         tier.NewView(t),
	}

	if _, ok := c.(tier.DirectPayment); !ok {
		return session, nil
	}

	if !actor.IsAuthenticated() {
		return nil, xerrors.ErrUnauthorized
	}

	org, err := s.payableOrganization(ctx, op, t.OrganizationID)
	if err != nil {
		return nil, err
	}

	key := idempotency.CheckoutKey(actor.UserID, t.ID, session.AttemptID)
	secret, err := s.Gateway.CreateSetupIntent(ctx, org.PaymentAccountID, "setup-"+key)
	if err != nil {
		return nil, err
	}
	session.SetupIntentClientSecret = secret

	s.logger.Info("checkout started",
		zap.String("tier_id", t.ID),
		zap.String("buyer_id", actor.UserID),
		zap.String("attempt_id", session.AttemptID),
	)

	return session, nil
}

func (s *CheckoutService) payableOrganization(ctx context.Context, op, orgID string) (*organization.Organization, error) {
	org, err := s.Organizations.FindByID(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to load vendor organization: %w", err)
	}
	if !org.CanAcceptPayments() {
		return nil, xerrors.Conflict(op, "vendor is not set up to accept payments")
	}
	return org, nil
}

// SubmitPayment completes a direct payment checkout. The attempt is claimed
// under its idempotency key before any money moves, so repeated or
// concurrent submissions of the same attempt produce one record and return
// it to every caller.
func (s *CheckoutService) SubmitPayment(ctx context.Context, actor identity.Actor, req *checkout.SubmitPaymentRequest) (*checkout.PaymentOutcome, error) {
	const op = "checkout.submit_payment"

	if !actor.IsAuthenticated() {
		return nil, xerrors.ErrUnauthorized
	}
	if strings.TrimSpace(req.AttemptID) == "" {
		return nil, xerrors.Validation(op, "attempt_id", "is required")
	}

	t, err := s.Tiers.GetPublishedTier(ctx, req.TierID)
	if err != nil {
		return nil, err
	}

	direct, ok := t.Checkout().(tier.DirectPayment)
	if !ok {
		return nil, xerrors.Validation(op, "tier_id", "tier does not take direct payments")
	}

	org, err := s.payableOrganization(ctx, op, t.OrganizationID)
	if err != nil {
		return nil, err
	}

	annual := req.Annual && direct.Recurring()
	key := idempotency.CheckoutKey(actor.UserID, t.ID, req.AttemptID)

	kind := checkout.ResultCharge
	interval := payment.IntervalOnce
	if direct.Recurring() {
		kind = checkout.ResultSubscription
		interval = payment.IntervalMonth
		if annual {
			interval = payment.IntervalYear
		}
	}
	amount := tier.EffectivePrice(t, annual)

	// the terms are stored with the claim so an attempt that crashes after
	// payment can still be recorded from the table alone
	attempt, claimed, err := s.Attempts.Claim(ctx, &checkout.Attempt{
		IdempotencyKey: key,
		AttemptID:      req.AttemptID,
		BuyerID:        actor.UserID,
		TierID:         t.ID,
		OrganizationID: t.OrganizationID,
		Annual:         annual,
		Kind:           kind,
		Amount:         amount,
		Currency:       t.Currency,
	})
	if err != nil {
		return nil, xerrors.Retryable(op, "could not start checkout, please try again", err)
	}

	if !claimed {
		return s.awaitExisting(ctx, op, attempt)
	}

	state := checkout.StateCollectingPaymentMethod
	log := s.logger.With(
		zap.String("idempotency_key", key),
		zap.String("tier_id", t.ID),
		zap.String("buyer_id", actor.UserID),
	)

	paymentMethod, err := s.Gateway.ConfirmPaymentMethod(ctx, org.PaymentAccountID, req.SetupIntentClientSecret)
	if err != nil {
		s.release(ctx, log, key, err)
		return nil, err
	}

	ref, err := s.Gateway.ChargeOrSubscribe(ctx, &payment.ChargeRequest{
		IdempotencyKey:  key,
		BuyerID:         actor.UserID,
		BuyerEmail:      actor.Email,
		VendorAccountID: org.PaymentAccountID,
		TierID:          t.ID,
		TierName:        t.Name,
		Amount:          amount,
		Currency:        t.Currency,
		Interval:        interval,
		TrialDays:       trialDays(t),
		PaymentMethod:   paymentMethod,
	})
	if err != nil {
		s.release(ctx, log, key, err)
		return nil, err
	}

	// Money has moved. The rest must finish even if the caller goes away.
	ctx = context.WithoutCancel(ctx)

	if err := s.Attempts.SetExternalRef(ctx, key, ref); err != nil {
		log.Warn("failed to note external ref on attempt", zap.String("external_ref", ref), zap.Error(err))
	}

	paid := checkout.PaidCheckout{
		IdempotencyKey: key,
		Kind:           kind,
		TierID:         t.ID,
		BuyerID:        actor.UserID,
		OrganizationID: t.OrganizationID,
		Annual:         annual,
		Amount:         amount,
		Currency:       t.Currency,
		ExternalRef:    ref,
		PaidAt:         time.Now().UTC(),
	}

	result, err := s.persist(ctx, log, paid)
	if err != nil {
		s.escalate(ctx, log, paid, err)
		return nil, xerrors.Persistence(op, "payment received, your purchase is being finalised", err)
	}

	state, _ = checkout.Next(state, checkout.EventPaymentSucceeded)
	log.Info("checkout completed", zap.String("kind", string(kind)), zap.String("record_id", result.ID()))

	if s.Notifier != nil {
		s.Notifier.PurchaseCompleted(ctx, org, t, result)
	}

	return &checkout.PaymentOutcome{State: state, Result: result}, nil
}

func trialDays(t *tier.Tier) int {
	if tier.TrialOffered(t) {
		return t.TrialDays
	}
	return 0
}

// release marks a claimed attempt failed before any money moved, so the
// buyer can retry the same attempt.
func (s *CheckoutService) release(ctx context.Context, log *zap.Logger, key string, cause error) {
	if err := s.Attempts.MarkFailed(context.WithoutCancel(ctx), key, cause.Error()); err != nil {
		log.Error("failed to release checkout attempt", zap.Error(err))
	}
	log.Info("checkout payment failed", zap.Error(cause), zap.Bool("retryable", xerrors.IsRetryable(cause)))
}

// awaitExisting answers a submission whose attempt was already claimed.
func (s *CheckoutService) awaitExisting(ctx context.Context, op string, attempt *checkout.Attempt) (*checkout.PaymentOutcome, error) {
	deadline := time.Now().Add(s.cfg.PollTimeout)

	for {
		switch attempt.Status {
		case checkout.AttemptCompleted:
			result, err := s.Purchases.FindResult(ctx, attempt)
			if err != nil {
				return nil, fmt.Errorf("failed to load checkout result: %w", err)
			}
			return &checkout.PaymentOutcome{State: checkout.StateCompleted, Result: result, Duplicate: true}, nil

		case checkout.AttemptFailed:
			return nil, xerrors.Payment(op, attempt.FailureReason, nil)
		}

		if !time.Now().Before(deadline) {
			return nil, xerrors.Retryable(op, "checkout is still being processed", nil)
		}
		if err := s.sleep(ctx, s.cfg.PollInterval); err != nil {
			return nil, err
		}

		next, err := s.Attempts.FindByKey(ctx, attempt.IdempotencyKey)
		if err != nil {
			return nil, fmt.Errorf("failed to reload checkout attempt: %w", err)
		}
		attempt = next
	}
}

// persist writes the purchase record, retrying with exponential backoff.
func (s *CheckoutService) persist(ctx context.Context, log *zap.Logger, paid checkout.PaidCheckout) (*checkout.Result, error) {
	var lastErr error
	backoff := s.cfg.PersistBackoff

	for i := 0; i < s.cfg.PersistAttempts; i++ {
		if i > 0 {
			if err := s.sleep(ctx, backoff); err != nil {
				return nil, err
			}
			backoff *= 2
		}

		result, err := s.RecordPaid(ctx, paid)
		if err == nil {
			return result, nil
		}
		lastErr = err
		log.Warn("failed to record paid checkout", zap.Int("try", i+1), zap.Error(err))
	}

	return nil, lastErr
}

// escalate hands a paid checkout to reconciliation. If even that fails the
// full record is logged at error level for manual recovery.
func (s *CheckoutService) escalate(ctx context.Context, log *zap.Logger, paid checkout.PaidCheckout, cause error) {
	fields := []zap.Field{
		zap.String("kind", string(paid.Kind)),
		zap.String("external_ref", paid.ExternalRef),
		zap.Int64("amount", paid.Amount),
		zap.String("currency", paid.Currency),
		zap.NamedError("cause", cause),
	}

	if s.Escalator == nil {
		log.Error("paid checkout not recorded and no reconciliation queue", fields...)
		return
	}
	if err := s.Escalator.Push(ctx, paid); err != nil {
		log.Error("paid checkout not recorded and could not be queued", append(fields, zap.Error(err))...)
		return
	}
	log.Warn("paid checkout queued for reconciliation", fields...)
}

// RecordPaid writes the record for a paid checkout. It is idempotent on the
// checkout's key and is also the replay path of reconciliation.
func (s *CheckoutService) RecordPaid(ctx context.Context, paid checkout.PaidCheckout) (*checkout.Result, error) {
	switch paid.Kind {
	case checkout.ResultSubscription:
		sub, err := s.Purchases.RecordSubscription(ctx, &subscription.Subscription{
			TierID:         paid.TierID,
			BuyerID:        paid.BuyerID,
			OrganizationID: paid.OrganizationID,
			PriceAnnual:    paid.Annual,
			Amount:         paid.Amount,
			Currency:       paid.Currency,
			State:          subscription.StateRenewing,
			ExternalRef:    paid.ExternalRef,
			IdempotencyKey: paid.IdempotencyKey,
		})
		if err != nil {
			return nil, err
		}
		return &checkout.Result{Kind: checkout.ResultSubscription, Subscription: sub}, nil

	case checkout.ResultCharge:
		ch, err := s.Purchases.RecordCharge(ctx, &charge.Charge{
			TierID:         paid.TierID,
			BuyerID:        paid.BuyerID,
			OrganizationID: paid.OrganizationID,
			Amount:         paid.Amount,
			Currency:       paid.Currency,
			ExternalRef:    paid.ExternalRef,
			IdempotencyKey: paid.IdempotencyKey,
		})
		if err != nil {
			return nil, err
		}
		return &checkout.Result{Kind: checkout.ResultCharge, Charge: ch}, nil
	}

	return nil, fmt.Errorf("unknown purchase kind %q", paid.Kind)
}

const (
	maxProspectName    = 120
	maxProspectCompany = 200
	maxProspectContext = 5000
)

// SubmitContact captures a lead for a contact-form tier. No charge or
// subscription is ever created here. On a failed write the outcome keeps the
// form open and the error is retryable.
func (s *CheckoutService) SubmitContact(ctx context.Context, tierID string, req *prospect.ContactRequest, clientIP string) (*checkout.ContactOutcome, error) {
	const op = "checkout.submit_contact"

	t, err := s.Tiers.GetPublishedTier(ctx, tierID)
	if err != nil {
		return nil, err
	}

	if _, ok := t.Checkout().(tier.ContactForm); !ok {
		return nil, xerrors.Validation(op, "tier_id", "tier does not use a contact form")
	}

	p := &prospect.Prospect{
		OrganizationID: t.OrganizationID,
		Name:           sanitize.Text(req.Name, maxProspectName),
		Email:          sanitize.Email(req.Email),
		CompanyName:    sanitize.Text(req.CompanyName, maxProspectCompany),
		Context:        sanitize.Text(req.Context, maxProspectContext),
		Status:         prospect.Unqualified,
	}
	if p.Name == "" {
		return nil, xerrors.Validation(op, "name", "is required")
	}
	if !strings.Contains(p.Email, "@") {
		return nil, xerrors.Validation(op, "email", "is invalid")
	}

	if s.Limiter != nil {
		allowed, err := s.Limiter.AllowContactSubmission(ctx, clientIP, t.ID)
		if err != nil {
			// fail open
			s.logger.Warn("contact rate limiter unavailable", zap.Error(err))
		} else if !allowed {
			return nil, xerrors.ErrRateLimited
		}
	}

	state := checkout.StateCollectingContactInfo

	saved, created, err := s.Prospects.Upsert(ctx, p, t.ID)
	if err != nil {
		state, _ = checkout.Next(state, checkout.EventContactFailed)
		s.logger.Error("failed to save prospect", zap.String("tier_id", t.ID), zap.Error(err))
		return &checkout.ContactOutcome{State: state},
			xerrors.Retryable(op, "could not save your details, please try again", err)
	}

	state, _ = checkout.Next(state, checkout.EventContactSaved)
	s.logger.Info("prospect captured",
		zap.String("prospect_id", saved.ID),
		zap.String("tier_id", t.ID),
		zap.Bool("new_prospect", created),
	)

	if s.Notifier != nil {
		org, err := s.Organizations.FindByID(ctx, t.OrganizationID)
		if err != nil {
			s.logger.Warn("prospect notification skipped", zap.String("organization_id", t.OrganizationID), zap.Error(err))
		} else {
			s.Notifier.ProspectCaptured(ctx, org, saved, t)
		}
	}

	return &checkout.ContactOutcome{State: state, Prospect: saved}, nil
}
