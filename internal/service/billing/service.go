// internal/service/billing/service.go
package billing

import (
	"context"
	"fmt"

	"gitwallet-service/internal/domain/billing"
	"gitwallet-service/internal/domain/identity"
	"gitwallet-service/internal/domain/organization"
	xerrors "gitwallet-service/internal/pkg/errors"
)

type OrganizationReader interface {
	FindByID(ctx context.Context, id string) (*organization.Organization, error)
}

type BillingService struct {
	orgs OrganizationReader
}

func NewBillingService(orgs OrganizationReader) *BillingService {
	return &BillingService{orgs: orgs}
}

// GetSubscriptionInfo reports the platform plan of the actor's organization.
func (s *BillingService) GetSubscriptionInfo(ctx context.Context, actor identity.Actor) (*billing.SubscriptionInfo, error) {
	if !actor.IsAuthenticated() {
		return nil, xerrors.ErrUnauthorized
	}
	if !actor.IsVendor() {
		return nil, xerrors.ErrForbidden
	}

	org, err := s.orgs.FindByID(ctx, actor.OrganizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load organization: %w", err)
	}

	info := billing.Derive(billing.Record{
		PlanID:             org.PlatformPlanID,
		SubscriptionStatus: org.PlatformSubscriptionStatus,
	})
	return &info, nil
}
