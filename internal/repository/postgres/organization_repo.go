// internal/repository/postgres/organization_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gitwallet-service/internal/domain/organization"
	xerrors "gitwallet-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const organizationColumns = `
	id, name, slug, notification_email, payment_account_id,
	platform_plan_id, platform_subscription_id, platform_subscription_status,
	billing_updated_at, created_at, updated_at`

type OrganizationRepository struct {
	db *pgxpool.Pool
}

func NewOrganizationRepository(db *pgxpool.Pool) *OrganizationRepository {
	return &OrganizationRepository{db: db}
}

func (r *OrganizationRepository) findOne(ctx context.Context, where string, arg any) (*organization.Organization, error) {
	query := fmt.Sprintf(`SELECT %s FROM organizations WHERE %s`, organizationColumns, where)

	var o organization.Organization
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&o.ID, &o.Name, &o.Slug, &o.NotificationEmail, &o.PaymentAccountID,
		&o.PlatformPlanID, &o.PlatformSubscriptionID, &o.PlatformSubscriptionStatus,
		&o.BillingUpdatedAt, &o.CreatedAt, &o.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find organization: %w", err)
	}

	return &o, nil
}

func (r *OrganizationRepository) FindByID(ctx context.Context, id string) (*organization.Organization, error) {
	return r.findOne(ctx, "id = $1", id)
}

// FindByPlatformSubscriptionID resolves the organization paying for a
// platform plan through the given processor subscription.
func (r *OrganizationRepository) FindByPlatformSubscriptionID(ctx context.Context, subID string) (*organization.Organization, error) {
	return r.findOne(ctx, "platform_subscription_id = $1", subID)
}

// UpdatePlatformBilling stores the latest processor status and reports
// whether it was written. A terminal status always applies. Other statuses
// are skipped when older than billing_updated_at, or when they share its
// timestamp with a stored terminal status.
func (r *OrganizationRepository) UpdatePlatformBilling(ctx context.Context, id, status, planID string, at time.Time, terminal bool) (bool, error) {
	query := `
		UPDATE organizations
		SET platform_subscription_status = $1,
		    platform_plan_id = COALESCE(NULLIF($2, ''), platform_plan_id),
		    billing_updated_at = GREATEST(COALESCE(billing_updated_at, $3), $3),
		    updated_at = NOW()
		WHERE id = $4 AND (
			$5::boolean
			OR billing_updated_at IS NULL
			OR billing_updated_at < $3
			OR (billing_updated_at = $3 AND COALESCE(platform_subscription_status, '') NOT IN ('canceled', 'incomplete_expired', 'unpaid'))
		)
	`

	result, err := r.db.Exec(ctx, query, status, planID, at, id, terminal)
	if err != nil {
		return false, fmt.Errorf("failed to update platform billing: %w", err)
	}

	return result.RowsAffected() > 0, nil
}
