// internal/service/prospect/service.go
package prospect

import (
	"context"
	"fmt"
	"math"
	"strings"

	"gitwallet-service/internal/domain/identity"
	"gitwallet-service/internal/domain/prospect"
	xerrors "gitwallet-service/internal/pkg/errors"
	"gitwallet-service/internal/pkg/sanitize"

	"go.uber.org/zap"
)

type Repository interface {
	FindByID(ctx context.Context, orgID, id string) (*prospect.Prospect, error)
	UpdateQualification(ctx context.Context, orgID, id string, status prospect.Qualification, reason string) error
	List(ctx context.Context, orgID string, filters *prospect.ListFilters) ([]prospect.Prospect, int64, error)
}

type Notifier interface {
	ProspectQualified(orgID string, p *prospect.Prospect)
}

const maxReason = 1000

type ProspectService struct {
	repo     Repository
	notifier Notifier
	logger   *zap.Logger
}

func NewProspectService(repo Repository, notifier Notifier, logger *zap.Logger) *ProspectService {
	return &ProspectService{repo: repo, notifier: notifier, logger: logger}
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

func (s *ProspectService) List(ctx context.Context, actor identity.Actor, filters *prospect.ListFilters) (*prospect.ListResponse, error) {
	if err := requireVendor(actor); err != nil {
		return nil, err
	}
	if filters.Status != nil && !filters.Status.Valid() {
		return nil, xerrors.Validation("prospect.list", "status", "is not a qualification status")
	}
	filters.Search = strings.TrimSpace(filters.Search)

	prospects, total, err := s.repo.List(ctx, actor.OrganizationID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list prospects: %w", err)
	}

	return &prospect.ListResponse{
		Prospects:  prospects,
		Total:      total,
		Page:       filters.Page,
		PageSize:   filters.PageSize,
		TotalPages: totalPages(total, filters.PageSize),
	}, nil
}

func totalPages(total int64, pageSize int) int {
	if pageSize < 1 {
		return 0
	}
	return int(math.Ceil(float64(total) / float64(pageSize)))
}

func (s *ProspectService) Get(ctx context.Context, actor identity.Actor, id string) (*prospect.Prospect, error) {
	if err := requireVendor(actor); err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, actor.OrganizationID, id)
}

// Qualify records the vendor's decision on a lead. Disqualifying requires a
// reason.
func (s *ProspectService) Qualify(ctx context.Context, actor identity.Actor, id string, req *prospect.QualifyRequest) (*prospect.Prospect, error) {
	const op = "prospect.qualify"

	if err := requireVendor(actor); err != nil {
		return nil, err
	}
	if !req.Status.Valid() {
		return nil, xerrors.Validation(op, "status", "is not a qualification status")
	}

	reason := sanitize.Text(req.Reason, maxReason)
	if req.Status == prospect.Disqualified && reason == "" {
		return nil, xerrors.Validation(op, "reason", "is required when disqualifying")
	}

	if err := s.repo.UpdateQualification(ctx, actor.OrganizationID, id, req.Status, reason); err != nil {
		return nil, err
	}

	p, err := s.repo.FindByID(ctx, actor.OrganizationID, id)
	if err != nil {
		return nil, err
	}

	s.logger.Info("prospect qualified",
		zap.String("prospect_id", id),
		zap.String("organization_id", actor.OrganizationID),
		zap.String("status", string(req.Status)),
	)

	if s.notifier != nil {
		s.notifier.ProspectQualified(actor.OrganizationID, p)
	}

	return p, nil
}
