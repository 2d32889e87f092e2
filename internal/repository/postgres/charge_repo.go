// internal/repository/postgres/charge_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gitwallet-service/internal/domain/charge"
	xerrors "gitwallet-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const chargeColumns = `
	id, tier_id, buyer_id, organization_id, amount, currency,
	external_ref, idempotency_key, created_at`

// ChargeRepository never updates rows; charges are immutable sale records.
type ChargeRepository struct {
	db *pgxpool.Pool
}

func NewChargeRepository(db *pgxpool.Pool) *ChargeRepository {
	return &ChargeRepository{db: db}
}

func scanCharge(row pgx.Row) (*charge.Charge, error) {
	var ch charge.Charge
	err := row.Scan(
		&ch.ID, &ch.TierID, &ch.BuyerID, &ch.OrganizationID, &ch.Amount, &ch.Currency,
		&ch.ExternalRef, &ch.IdempotencyKey, &ch.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &ch, nil
}

// CreateWithTx inserts the charge unless one with the same idempotency key
// exists. It reports whether a row was written.
func (r *ChargeRepository) CreateWithTx(ctx context.Context, tx pgx.Tx, ch *charge.Charge) (bool, error) {
	query := `
		INSERT INTO charges (
			id, tier_id, buyer_id, organization_id, amount, currency, external_ref, idempotency_key
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (idempotency_key) DO NOTHING
		RETURNING created_at
	`

	if ch.ID == "" {
		ch.ID = newID()
	}

	err := tx.QueryRow(
		ctx, query,
		ch.ID, ch.TierID, ch.BuyerID, ch.OrganizationID, ch.Amount, ch.Currency, ch.ExternalRef, ch.IdempotencyKey,
	).Scan(&ch.CreatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to create charge: %w", err)
	}

	return true, nil
}

func (r *ChargeRepository) findOne(ctx context.Context, q querier, where string, arg any) (*charge.Charge, error) {
	query := fmt.Sprintf(`SELECT %s FROM charges WHERE %s`, chargeColumns, where)

	ch, err := scanCharge(q.QueryRow(ctx, query, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find charge: %w", err)
	}
	return ch, nil
}

func (r *ChargeRepository) FindByID(ctx context.Context, id string) (*charge.Charge, error) {
	return r.findOne(ctx, r.db, "id = $1", id)
}

func (r *ChargeRepository) FindByIdempotencyKeyWithTx(ctx context.Context, tx pgx.Tx, key string) (*charge.Charge, error) {
	return r.findOne(ctx, tx, "idempotency_key = $1", key)
}

func (r *ChargeRepository) ListByBuyer(ctx context.Context, buyerID string, filters *charge.ListFilters) ([]charge.Charge, int64, error) {
	return r.list(ctx, "buyer_id", buyerID, filters)
}

func (r *ChargeRepository) ListByOrganization(ctx context.Context, orgID string, filters *charge.ListFilters) ([]charge.Charge, int64, error) {
	return r.list(ctx, "organization_id", orgID, filters)
}

func (r *ChargeRepository) list(ctx context.Context, ownerColumn, ownerID string, filters *charge.ListFilters) ([]charge.Charge, int64, error) {
	conditions := []string{ownerColumn + " = $1"}
	args := []interface{}{ownerID}
	argPos := 2

	if filters.TierID != "" {
		conditions = append(conditions, fmt.Sprintf("tier_id = $%d", argPos))
		args = append(args, filters.TierID)
		argPos++
	}

	whereClause := strings.Join(conditions, " AND ")

	var total int64
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM charges WHERE %s", whereClause)
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count charges: %w", err)
	}

	if filters.Page < 1 {
		filters.Page = 1
	}
	if filters.PageSize < 1 {
		filters.PageSize = 20
	}
	offset := (filters.Page - 1) * filters.PageSize

	query := fmt.Sprintf(`
		SELECT %s
		FROM charges
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, chargeColumns, whereClause, argPos, argPos+1)
	args = append(args, filters.PageSize, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list charges: %w", err)
	}
	defer rows.Close()

	charges := []charge.Charge{}
	for rows.Next() {
		ch, err := scanCharge(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan charge: %w", err)
		}
		charges = append(charges, *ch)
	}

	return charges, total, rows.Err()
}

// AllByOrganization returns every charge of an organization, oldest first.
func (r *ChargeRepository) AllByOrganization(ctx context.Context, orgID string) ([]charge.Charge, error) {
	query := fmt.Sprintf(`SELECT %s FROM charges WHERE organization_id = $1 ORDER BY created_at ASC`, chargeColumns)

	rows, err := r.db.Query(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to load charges: %w", err)
	}
	defer rows.Close()

	charges := []charge.Charge{}
	for rows.Next() {
		ch, err := scanCharge(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan charge: %w", err)
		}
		charges = append(charges, *ch)
	}

	return charges, rows.Err()
}
