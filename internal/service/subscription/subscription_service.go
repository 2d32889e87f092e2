// internal/service/subscription/subscription_service.go
package subscription

import (
	"context"
	"fmt"
	"math"
	"time"

	"gitwallet-service/internal/domain/identity"
	"gitwallet-service/internal/domain/organization"
	"gitwallet-service/internal/domain/subscription"
	"gitwallet-service/internal/domain/tier"
	xerrors "gitwallet-service/internal/pkg/errors"

	"go.uber.org/zap"
)

type Repository interface {
	FindByID(ctx context.Context, id string) (*subscription.Subscription, error)
	UpdateLifecycle(ctx context.Context, s *subscription.Subscription, expected subscription.State) error
	ListByBuyer(ctx context.Context, buyerID string, filters *subscription.ListFilters) ([]subscription.Subscription, int64, error)
	ListByOrganization(ctx context.Context, orgID string, filters *subscription.ListFilters) ([]subscription.Subscription, int64, error)
}

type OrganizationReader interface {
	FindByID(ctx context.Context, id string) (*organization.Organization, error)
}

type TierReader interface {
	FindByID(ctx context.Context, id string) (*tier.Tier, error)
}

// Canceller stops renewal at the payment processor and returns the end of
// the paid period when access continues until then.
type Canceller interface {
	CancelSubscription(ctx context.Context, vendorAccountID, externalRef string, atPeriodEnd bool) (*time.Time, error)
}

type Notifier interface {
	SubscriptionCancelled(ctx context.Context, org *organization.Organization, tierName string, sub *subscription.Subscription, now time.Time)
}

type SubscriptionService struct {
	repo     Repository
	orgs     OrganizationReader
	tiers    TierReader
	payments Canceller
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time
}

func NewSubscriptionService(
	repo Repository,
	orgs OrganizationReader,
	tiers TierReader,
	payments Canceller,
	notifier Notifier,
	logger *zap.Logger,
) *SubscriptionService {
	return &SubscriptionService{
		repo:     repo,
		orgs:     orgs,
		tiers:    tiers,
		payments: payments,
		notifier: notifier,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// ListForBuyer returns the actor's own subscriptions.
func (s *SubscriptionService) ListForBuyer(ctx context.Context, actor identity.Actor, filters *subscription.ListFilters) (*subscription.ListResponse, error) {
	if !actor.IsAuthenticated() {
		return nil, xerrors.ErrUnauthorized
	}
	filters.Normalize()

	subs, total, err := s.repo.ListByBuyer(ctx, actor.UserID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	return s.listResponse(subs, total, filters), nil
}

// ListForOrganization returns the subscriptions sold by the actor's organization.
func (s *SubscriptionService) ListForOrganization(ctx context.Context, actor identity.Actor, filters *subscription.ListFilters) (*subscription.ListResponse, error) {
	if !actor.IsAuthenticated() {
		return nil, xerrors.ErrUnauthorized
	}
	if !actor.IsVendor() {
		return nil, xerrors.ErrForbidden
	}
	filters.Normalize()

	subs, total, err := s.repo.ListByOrganization(ctx, actor.OrganizationID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	return s.listResponse(subs, total, filters), nil
}

func (s *SubscriptionService) listResponse(subs []subscription.Subscription, total int64, filters *subscription.ListFilters) *subscription.ListResponse {
	now := s.now()
	views := make([]subscription.View, 0, len(subs))
	for i := range subs {
		views = append(views, subscription.NewView(&subs[i], now))
	}

	return &subscription.ListResponse{
		Subscriptions: views,
		Total:         total,
		Page:          filters.Page,
		PageSize:      filters.PageSize,
		TotalPages:    int(math.Ceil(float64(total) / float64(filters.PageSize))),
	}
}

// Get returns a subscription visible to the actor, either as its buyer or as
// the selling organization.
func (s *SubscriptionService) Get(ctx context.Context, actor identity.Actor, id string) (*subscription.View, error) {
	sub, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	view := subscription.NewView(sub, s.now())
	return &view, nil
}

func (s *SubscriptionService) load(ctx context.Context, actor identity.Actor, id string) (*subscription.Subscription, error) {
	if !actor.IsAuthenticated() {
		return nil, xerrors.ErrUnauthorized
	}

	sub, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	ownsIt := sub.BuyerID == actor.UserID
	sellsIt := actor.IsVendor() && sub.OrganizationID == actor.OrganizationID
	if !ownsIt && !sellsIt {
		return nil, xerrors.NotFound("subscription.get", "subscription not found")
	}
	return sub, nil
}

// Cancel stops renewal. With AtPeriodEnd the buyer keeps access until the end
// of the paid period, otherwise access ends now. Cancelling a cancelled
// subscription returns it unchanged.
func (s *SubscriptionService) Cancel(ctx context.Context, actor identity.Actor, id string, req *subscription.CancelSubscriptionRequest) (*subscription.View, error) {
	sub, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if sub.State == subscription.StateCancelled {
		view := subscription.NewView(sub, s.now())
		return &view, nil
	}

	org, err := s.orgs.FindByID(ctx, sub.OrganizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load organization: %w", err)
	}

	var grace *time.Time
	if sub.ExternalRef != "" {
		periodEnd, err := s.payments.CancelSubscription(ctx, org.PaymentAccountID, sub.ExternalRef, req.AtPeriodEnd)
		if err != nil {
			return nil, err
		}
		if req.AtPeriodEnd {
			grace = periodEnd
		}
	}

	now := s.now()
	sub.Cancel(now, grace)

	if err := s.repo.UpdateLifecycle(ctx, sub, subscription.StateRenewing); err != nil {
		if xerrors.KindOf(err) != xerrors.KindConflict {
			return nil, fmt.Errorf("failed to cancel subscription: %w", err)
		}
		// a webhook got there first
		current, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		view := subscription.NewView(current, now)
		return &view, nil
	}

	s.logger.Info("subscription cancelled",
		zap.String("subscription_id", sub.ID),
		zap.String("organization_id", sub.OrganizationID),
		zap.String("cancelled_by", actor.UserID),
		zap.Bool("at_period_end", grace != nil),
		zap.String("reason", req.Reason),
	)

	if s.notifier != nil {
		tierName := sub.TierID
		if t, err := s.tiers.FindByID(ctx, sub.TierID); err == nil {
			tierName = t.Name
		}
		s.notifier.SubscriptionCancelled(ctx, org, tierName, sub, now)
	}

	view := subscription.NewView(sub, now)
	return &view, nil
}
