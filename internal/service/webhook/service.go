// internal/service/webhook/service.go
package webhook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gitwallet-service/internal/domain/billing"
	"gitwallet-service/internal/domain/organization"
	"gitwallet-service/internal/domain/payment"
	"gitwallet-service/internal/domain/subscription"
	"gitwallet-service/internal/domain/tier"
	xerrors "gitwallet-service/internal/pkg/errors"

	"go.uber.org/zap"
)

type EventLog interface {
	Seen(ctx context.Context, key payment.EventKey) (bool, error)
	Mark(ctx context.Context, key payment.EventKey) error
}

type SubscriptionStore interface {
	FindByExternalRef(ctx context.Context, ref string) (*subscription.Subscription, error)
	UpdateLifecycle(ctx context.Context, s *subscription.Subscription, expected subscription.State) error
}

type OrganizationStore interface {
	FindByID(ctx context.Context, id string) (*organization.Organization, error)
	FindByPlatformSubscriptionID(ctx context.Context, subID string) (*organization.Organization, error)
	UpdatePlatformBilling(ctx context.Context, id, status, planID string, at time.Time, terminal bool) (bool, error)
}

type TierReader interface {
	FindByID(ctx context.Context, id string) (*tier.Tier, error)
}

type Notifier interface {
	SubscriptionCancelled(ctx context.Context, org *organization.Organization, tierName string, sub *subscription.Subscription, now time.Time)
	BillingUpdated(orgID string, info billing.SubscriptionInfo)
}

// WebhookService applies processor status events. Deliveries may repeat and
// arrive out of order.
type WebhookService struct {
	events   EventLog
	subs     SubscriptionStore
	orgs     OrganizationStore
	tiers    TierReader
	notifier Notifier
	logger   *zap.Logger
}

func NewWebhookService(events EventLog, subs SubscriptionStore, orgs OrganizationStore, tiers TierReader, notifier Notifier, logger *zap.Logger) *WebhookService {
	return &WebhookService{
		events:   events,
		subs:     subs,
		orgs:     orgs,
		tiers:    tiers,
		notifier: notifier,
		logger:   logger,
	}
}

// Apply processes one status event. The event is recorded only after it was
// applied, so a failed delivery is retried by the processor.
func (s *WebhookService) Apply(ctx context.Context, ev *payment.StatusEvent) error {
	key := ev.Key()
	log := s.logger.With(
		zap.String("external_subscription_id", ev.ExternalSubscriptionID),
		zap.String("event_type", string(ev.Type)),
		zap.Time("occurred_at", ev.OccurredAt),
	)

	seen, err := s.events.Seen(ctx, key)
	if err != nil {
		return xerrors.Retryable("webhook.apply", "could not check event", err)
	}
	if seen {
		log.Debug("duplicate payment event ignored")
		return nil
	}

	err = s.applyToVendorSubscription(ctx, log, ev)
	if errors.Is(err, xerrors.ErrNotFound) {
		err = s.applyToPlatformBilling(ctx, log, ev)
	}
	if errors.Is(err, xerrors.ErrNotFound) {
		log.Warn("payment event for unknown subscription")
		err = nil
	}
	if err != nil {
		return err
	}

	if err := s.events.Mark(ctx, key); err != nil {
		return xerrors.Retryable("webhook.apply", "could not record event", err)
	}
	return nil
}

func (s *WebhookService) applyToVendorSubscription(ctx context.Context, log *zap.Logger, ev *payment.StatusEvent) error {
	sub, err := s.subs.FindByExternalRef(ctx, ev.ExternalSubscriptionID)
	if err != nil {
		return err
	}

	// ending access can only shorten entitlements, so order does not matter
	// for it; exact repeats are already filtered by the event log
	terminal := ev.EndsAccess()
	if !terminal && sub.LastEventAt != nil && ev.OccurredAt.Before(*sub.LastEventAt) {
		log.Info("stale payment event ignored", zap.String("subscription_id", sub.ID), zap.Time("last_event_at", *sub.LastEventAt))
		return nil
	}

	expected := sub.State
	var changed bool
	switch {
	case terminal:
		changed = sub.EndAccess(ev.OccurredAt)
	case ev.CancelAtPeriodEnd:
		changed = sub.Cancel(ev.OccurredAt, ev.CurrentPeriodEnd)
	}

	if sub.LastEventAt == nil || ev.OccurredAt.After(*sub.LastEventAt) {
		at := ev.OccurredAt
		sub.LastEventAt = &at
	}

	if err := s.subs.UpdateLifecycle(ctx, sub, expected); err != nil {
		if xerrors.KindOf(err) == xerrors.KindConflict {
			return xerrors.Retryable("webhook.apply", "subscription changed concurrently", err)
		}
		return fmt.Errorf("failed to apply payment event: %w", err)
	}

	log.Info("payment event applied",
		zap.String("subscription_id", sub.ID),
		zap.String("state", string(sub.State)),
		zap.Bool("changed", changed),
	)

	if changed && expected == subscription.StateRenewing && s.notifier != nil {
		s.notifyCancelled(ctx, log, sub, ev.OccurredAt)
	}
	return nil
}

func (s *WebhookService) notifyCancelled(ctx context.Context, log *zap.Logger, sub *subscription.Subscription, at time.Time) {
	org, err := s.orgs.FindByID(ctx, sub.OrganizationID)
	if err != nil {
		log.Warn("cancellation notification skipped", zap.Error(err))
		return
	}
	tierName := sub.TierID
	if t, err := s.tiers.FindByID(ctx, sub.TierID); err == nil {
		tierName = t.Name
	}
	s.notifier.SubscriptionCancelled(ctx, org, tierName, sub, at)
}

func (s *WebhookService) applyToPlatformBilling(ctx context.Context, log *zap.Logger, ev *payment.StatusEvent) error {
	org, err := s.orgs.FindByPlatformSubscriptionID(ctx, ev.ExternalSubscriptionID)
	if err != nil {
		return err
	}

	status := ev.Status
	if ev.Type == payment.EventSubscriptionDeleted {
		status = "canceled"
	}

	applied, err := s.orgs.UpdatePlatformBilling(ctx, org.ID, status, ev.PlanID, ev.OccurredAt, ev.EndsAccess())
	if err != nil {
		return fmt.Errorf("failed to apply platform billing event: %w", err)
	}
	if !applied {
		log.Info("stale platform billing event ignored", zap.String("organization_id", org.ID))
		return nil
	}

	planID := ev.PlanID
	if planID == "" {
		planID = org.PlatformPlanID
	}
	info := billing.Derive(billing.Record{PlanID: planID, SubscriptionStatus: status})

	log.Info("platform billing updated",
		zap.String("organization_id", org.ID),
		zap.String("status", status),
		zap.String("plan", info.CurrentPlanName),
	)

	if s.notifier != nil {
		s.notifier.BillingUpdated(org.ID, info)
	}
	return nil
}
