// internal/service/tier/service.go
package tier

import (
	"context"
	"fmt"
	"strings"

	"gitwallet-service/internal/domain/identity"
	"gitwallet-service/internal/domain/tier"
	xerrors "gitwallet-service/internal/pkg/errors"
	"gitwallet-service/internal/pkg/sanitize"

	"go.uber.org/zap"
)

type Repository interface {
	Create(ctx context.Context, t *tier.Tier) error
	Update(ctx context.Context, t *tier.Tier) error
	SetPublished(ctx context.Context, orgID, id string, published bool) error
	FindByID(ctx context.Context, id string) (*tier.Tier, error)
	ListByOrganization(ctx context.Context, orgID string, publishedOnly bool) ([]tier.Tier, error)
	CountReferences(ctx context.Context, id string) (tier.References, error)
	Delete(ctx context.Context, orgID, id string) error
}

type TierService struct {
	repo            Repository
	defaultCurrency string
	logger          *zap.Logger
}

func NewTierService(repo Repository, defaultCurrency string, logger *zap.Logger) *TierService {
	return &TierService{
		repo:            repo,
		defaultCurrency: strings.ToLower(defaultCurrency),
		logger:          logger,
	}
}

func requireVendor(actor identity.Actor) error {
	if !actor.IsAuthenticated() {
		return xerrors.ErrUnauthorized
	}
	if !actor.IsVendor() {
		return xerrors.ErrForbidden
	}
	return nil
}

// CreateTier validates and stores a new tier for the actor's organization.
func (s *TierService) CreateTier(ctx context.Context, actor identity.Actor, req *tier.CreateTierRequest) (*tier.SaveResult, error) {
	if err := requireVendor(actor); err != nil {
		return nil, err
	}

	t := &tier.Tier{
		OrganizationID: actor.OrganizationID,
		Name:           req.Name,
		Tagline:        req.Tagline,
		Description:    req.Description,
		Features:       req.Features,
		Price:          req.Price,
		PriceAnnual:    req.PriceAnnual,
		Currency:       req.Currency,
		Cadence:        req.Cadence,
		TrialDays:      req.TrialDays,
		CheckoutType:   req.CheckoutType,
		Published:      req.Published,
		ContractID:     req.ContractID,
	}

	warnings, err := s.prepare(t)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to create tier: %w", err)
	}

	s.logger.Info("tier created",
		zap.String("tier_id", t.ID),
		zap.String("organization_id", t.OrganizationID),
		zap.String("checkout_type", string(t.CheckoutType)),
		zap.Strings("warnings", warnings),
	)

	return &tier.SaveResult{Tier: t, Warnings: warnings}, nil
}

// UpdateTier applies a partial update. The tier stays mutable while
// purchases reference it; existing purchases keep their locked prices.
func (s *TierService) UpdateTier(ctx context.Context, actor identity.Actor, id string, req *tier.UpdateTierRequest) (*tier.SaveResult, error) {
	t, err := s.GetTier(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		t.Name = *req.Name
	}
	if req.Tagline != nil {
		t.Tagline = *req.Tagline
	}
	if req.Description != nil {
		t.Description = *req.Description
	}
	if req.Features != nil {
		t.Features = req.Features
	}
	if req.Price != nil {
		t.Price = *req.Price
	}
	if req.ClearAnnual {
		t.PriceAnnual = nil
	} else if req.PriceAnnual != nil {
		t.PriceAnnual = req.PriceAnnual
	}
	if req.Currency != nil {
		t.Currency = *req.Currency
	}
	if req.Cadence != nil {
		t.Cadence = *req.Cadence
	}
	if req.TrialDays != nil {
		t.TrialDays = *req.TrialDays
	}
	if req.CheckoutType != nil {
		t.CheckoutType = *req.CheckoutType
	}
	if req.ContractID != nil {
		t.ContractID = req.ContractID
		if *req.ContractID == "" {
			t.ContractID = nil
		}
	}

	warnings, err := s.prepare(t)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to update tier: %w", err)
	}

	s.logger.Info("tier updated", zap.String("tier_id", t.ID), zap.Strings("warnings", warnings))

	return &tier.SaveResult{Tier: t, Warnings: warnings}, nil
}

// prepare normalises free text and runs validation.
func (s *TierService) prepare(t *tier.Tier) ([]string, error) {
	t.Name = sanitize.Text(t.Name, 0)
	t.Tagline = sanitize.Text(t.Tagline, 0)
	t.Description = strings.TrimSpace(t.Description)

	features := make([]string, 0, len(t.Features))
	for _, f := range t.Features {
		features = append(features, sanitize.Text(f, 200))
	}
	t.Features = features

	t.Currency = strings.ToLower(strings.TrimSpace(t.Currency))
	if t.Currency == "" {
		t.Currency = s.defaultCurrency
	}

	return tier.Validate(t)
}

// SetPublished controls buyer visibility of a tier.
func (s *TierService) SetPublished(ctx context.Context, actor identity.Actor, id string, published bool) (*tier.Tier, error) {
	t, err := s.GetTier(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if t.Published == published {
		return t, nil
	}

	if err := s.repo.SetPublished(ctx, actor.OrganizationID, id, published); err != nil {
		return nil, fmt.Errorf("failed to change tier visibility: %w", err)
	}
	t.Published = published

	s.logger.Info("tier visibility changed", zap.String("tier_id", id), zap.Bool("published", published))
	return t, nil
}

// GetTier returns a tier owned by the actor's organization.
func (s *TierService) GetTier(ctx context.Context, actor identity.Actor, id string) (*tier.Tier, error) {
	if err := requireVendor(actor); err != nil {
		return nil, err
	}

	t, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if xerrors.Is(err, xerrors.ErrNotFound) {
			return nil, xerrors.NotFound("tier.get", "tier not found")
		}
		return nil, fmt.Errorf("failed to get tier: %w", err)
	}

	// other organizations' tiers are reported as missing
	if t.OrganizationID != actor.OrganizationID {
		return nil, xerrors.NotFound("tier.get", "tier not found")
	}

	return t, nil
}

// GetPublishedTier returns a tier visible to buyers. Unpublished tiers are
// not found.
func (s *TierService) GetPublishedTier(ctx context.Context, id string) (*tier.Tier, error) {
	t, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if xerrors.Is(err, xerrors.ErrNotFound) {
			return nil, xerrors.NotFound("tier.get", "tier not found")
		}
		return nil, fmt.Errorf("failed to get tier: %w", err)
	}

	if !t.Published {
		return nil, xerrors.NotFound("tier.get", "tier not found")
	}

	return t, nil
}

func (s *TierService) ListTiers(ctx context.Context, actor identity.Actor) ([]tier.Tier, error) {
	if err := requireVendor(actor); err != nil {
		return nil, err
	}

	tiers, err := s.repo.ListByOrganization(ctx, actor.OrganizationID, false)
	if err != nil {
		return nil, fmt.Errorf("failed to list tiers: %w", err)
	}
	return tiers, nil
}

// ListPublishedTiers renders an organization's public tiers for buyers.
func (s *TierService) ListPublishedTiers(ctx context.Context, orgID string) ([]tier.View, error) {
	tiers, err := s.repo.ListByOrganization(ctx, orgID, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list tiers: %w", err)
	}

	views := make([]tier.View, 0, len(tiers))
	for i := range tiers {
		views = append(views, tier.NewView(&tiers[i]))
	}
	return views, nil
}

// DeleteTier removes a tier that has never been purchased or asked about.
// Referenced tiers must be unpublished instead.
func (s *TierService) DeleteTier(ctx context.Context, actor identity.Actor, id string) error {
	if _, err := s.GetTier(ctx, actor, id); err != nil {
		return err
	}

	refs, err := s.repo.CountReferences(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to check tier references: %w", err)
	}
	if refs.Any() {
		return xerrors.Conflict("tier.delete", "tier has purchases or prospects, unpublish it instead")
	}

	if err := s.repo.Delete(ctx, actor.OrganizationID, id); err != nil {
		if xerrors.Is(err, xerrors.ErrNotFound) {
			// a purchase landed after the reference check
			return xerrors.Conflict("tier.delete", "tier has purchases or prospects, unpublish it instead")
		}
		return fmt.Errorf("failed to delete tier: %w", err)
	}

	s.logger.Info("tier deleted", zap.String("tier_id", id), zap.String("organization_id", actor.OrganizationID))
	return nil
}
