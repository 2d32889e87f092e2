// internal/repository/postgres/subscription_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gitwallet-service/internal/domain/subscription"
	xerrors "gitwallet-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const subscriptionColumns = `
	id, tier_id, buyer_id, organization_id, price_annual, amount, currency,
	state, cancelled_at, active_until, external_ref, idempotency_key,
	last_event_at, created_at, updated_at`

type SubscriptionRepository struct {
	db *pgxpool.Pool
}

func NewSubscriptionRepository(db *pgxpool.Pool) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

func scanSubscription(row pgx.Row) (*subscription.Subscription, error) {
	var s subscription.Subscription
	err := row.Scan(
		&s.ID, &s.TierID, &s.BuyerID, &s.OrganizationID, &s.PriceAnnual, &s.Amount, &s.Currency,
		&s.State, &s.CancelledAt, &s.ActiveUntil, &s.ExternalRef, &s.IdempotencyKey,
		&s.LastEventAt, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// CreateWithTx inserts the subscription unless one with the same idempotency
// key exists. It reports whether a row was written.
func (r *SubscriptionRepository) CreateWithTx(ctx context.Context, tx pgx.Tx, s *subscription.Subscription) (bool, error) {
	query := `
		INSERT INTO subscriptions (
			id, tier_id, buyer_id, organization_id, price_annual, amount, currency,
			state, external_ref, idempotency_key
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (idempotency_key) DO NOTHING
		RETURNING created_at, updated_at
	`

	if s.ID == "" {
		s.ID = newID()
	}
	if s.State == "" {
		s.State = subscription.StateRenewing
	}

	err := tx.QueryRow(
		ctx, query,
		s.ID, s.TierID, s.BuyerID, s.OrganizationID, s.PriceAnnual, s.Amount, s.Currency,
		s.State, s.ExternalRef, s.IdempotencyKey,
	).Scan(&s.CreatedAt, &s.UpdatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if isUniqueViolation(err) {
		// external_ref already belongs to another purchase
		return false, fmt.Errorf("subscription %s: %w", s.ExternalRef, xerrors.ErrDuplicateEntry)
	}
	if err != nil {
		return false, fmt.Errorf("failed to create subscription: %w", err)
	}

	return true, nil
}

func (r *SubscriptionRepository) findOne(ctx context.Context, q querier, where string, arg any) (*subscription.Subscription, error) {
	query := fmt.Sprintf(`SELECT %s FROM subscriptions WHERE %s`, subscriptionColumns, where)

	s, err := scanSubscription(q.QueryRow(ctx, query, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find subscription: %w", err)
	}
	return s, nil
}

func (r *SubscriptionRepository) FindByID(ctx context.Context, id string) (*subscription.Subscription, error) {
	return r.findOne(ctx, r.db, "id = $1", id)
}

// FindByExternalRef looks a subscription up by the payment processor's id.
func (r *SubscriptionRepository) FindByExternalRef(ctx context.Context, ref string) (*subscription.Subscription, error) {
	return r.findOne(ctx, r.db, "external_ref = $1", ref)
}

func (r *SubscriptionRepository) FindByIdempotencyKeyWithTx(ctx context.Context, tx pgx.Tx, key string) (*subscription.Subscription, error) {
	return r.findOne(ctx, tx, "idempotency_key = $1", key)
}

// UpdateLifecycle writes the lifecycle fields, provided the stored state is
// still the expected one. A concurrent transition yields ErrConflict.
func (r *SubscriptionRepository) UpdateLifecycle(ctx context.Context, s *subscription.Subscription, expected subscription.State) error {
	query := `
		UPDATE subscriptions
		SET state = $1, cancelled_at = $2, active_until = $3, last_event_at = $4, updated_at = $5
		WHERE id = $6 AND state = $7
	`

	s.UpdatedAt = time.Now()
	result, err := r.db.Exec(
		ctx, query,
		s.State, s.CancelledAt, s.ActiveUntil, s.LastEventAt, s.UpdatedAt,
		s.ID, expected,
	)
	if err != nil {
		return fmt.Errorf("failed to update subscription lifecycle: %w", err)
	}

	if result.RowsAffected() == 0 {
		return xerrors.ErrConflict
	}

	return nil
}

func (r *SubscriptionRepository) ListByBuyer(ctx context.Context, buyerID string, filters *subscription.ListFilters) ([]subscription.Subscription, int64, error) {
	return r.list(ctx, "buyer_id", buyerID, filters)
}

func (r *SubscriptionRepository) ListByOrganization(ctx context.Context, orgID string, filters *subscription.ListFilters) ([]subscription.Subscription, int64, error) {
	return r.list(ctx, "organization_id", orgID, filters)
}

func (r *SubscriptionRepository) list(ctx context.Context, ownerColumn, ownerID string, filters *subscription.ListFilters) ([]subscription.Subscription, int64, error) {
	conditions := []string{ownerColumn + " = $1"}
	args := []interface{}{ownerID}
	argPos := 2

	if filters.State != nil {
		conditions = append(conditions, fmt.Sprintf("state = $%d", argPos))
		args = append(args, *filters.State)
		argPos++
	}

	if filters.TierID != "" {
		conditions = append(conditions, fmt.Sprintf("tier_id = $%d", argPos))
		args = append(args, filters.TierID)
		argPos++
	}

	whereClause := strings.Join(conditions, " AND ")

	var total int64
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM subscriptions WHERE %s", whereClause)
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count subscriptions: %w", err)
	}

	filters.Normalize()
	offset := (filters.Page - 1) * filters.PageSize

	query := fmt.Sprintf(`
		SELECT %s
		FROM subscriptions
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, subscriptionColumns, whereClause, argPos, argPos+1)
	args = append(args, filters.PageSize, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	defer rows.Close()

	subs := []subscription.Subscription{}
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan subscription: %w", err)
		}
		subs = append(subs, *s)
	}

	return subs, total, rows.Err()
}

// AllByOrganization returns every subscription sold by an organization, for
// dashboard aggregation.
func (r *SubscriptionRepository) AllByOrganization(ctx context.Context, orgID string) ([]subscription.Subscription, error) {
	query := fmt.Sprintf(`SELECT %s FROM subscriptions WHERE organization_id = $1 ORDER BY created_at ASC`, subscriptionColumns)

	rows, err := r.db.Query(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to load subscriptions: %w", err)
	}
	defer rows.Close()

	subs := []subscription.Subscription{}
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		subs = append(subs, *s)
	}

	return subs, rows.Err()
}
