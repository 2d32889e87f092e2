// internal/repository/postgres/checkout_attempt_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gitwallet-service/internal/domain/checkout"
	xerrors "gitwallet-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const attemptColumns = `
	idempotency_key, attempt_id, buyer_id, tier_id, organization_id, annual,
	kind, amount, currency, status, result_kind, result_id, external_ref, failure_reason, tries,
	created_at, updated_at`

// CheckoutAttemptRepository guards payment checkouts. The primary key on
// idempotency_key makes a claim race-free across instances.
type CheckoutAttemptRepository struct {
	db *pgxpool.Pool
}

func NewCheckoutAttemptRepository(db *pgxpool.Pool) *CheckoutAttemptRepository {
	return &CheckoutAttemptRepository{db: db}
}

func scanAttempt(row pgx.Row) (*checkout.Attempt, error) {
	var a checkout.Attempt
	err := row.Scan(
		&a.IdempotencyKey, &a.AttemptID, &a.BuyerID, &a.TierID, &a.OrganizationID, &a.Annual,
		&a.Kind, &a.Amount, &a.Currency, &a.Status, &a.ResultKind, &a.ResultID, &a.ExternalRef, &a.FailureReason, &a.Tries,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Claim takes ownership of the attempt. A new key, or one whose previous
// try failed, is claimed and returned with claimed=true. Otherwise the
// current attempt is returned unchanged.
func (r *CheckoutAttemptRepository) Claim(ctx context.Context, a *checkout.Attempt) (*checkout.Attempt, bool, error) {
	query := fmt.Sprintf(`
		INSERT INTO checkout_attempts (
			idempotency_key, attempt_id, buyer_id, tier_id, organization_id, annual,
			kind, amount, currency, status, tries
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 1)
		ON CONFLICT (idempotency_key) DO UPDATE SET
			status = EXCLUDED.status,
			annual = EXCLUDED.annual,
			kind = EXCLUDED.kind,
			amount = EXCLUDED.amount,
			currency = EXCLUDED.currency,
			failure_reason = '',
			tries = checkout_attempts.tries + 1,
			updated_at = NOW()
		WHERE checkout_attempts.status = '%s'
		RETURNING %s
	`, checkout.AttemptFailed, attemptColumns)

	claimed, err := scanAttempt(r.db.QueryRow(
		ctx, query,
		a.IdempotencyKey, a.AttemptID, a.BuyerID, a.TierID, a.OrganizationID, a.Annual,
		a.Kind, a.Amount, a.Currency, checkout.AttemptPending,
	))
	if err == nil {
		return claimed, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("failed to claim checkout attempt: %w", err)
	}

	current, err := r.FindByKey(ctx, a.IdempotencyKey)
	if err != nil {
		return nil, false, err
	}
	return current, false, nil
}

func (r *CheckoutAttemptRepository) FindByKey(ctx context.Context, key string) (*checkout.Attempt, error) {
	query := fmt.Sprintf(`SELECT %s FROM checkout_attempts WHERE idempotency_key = $1`, attemptColumns)

	a, err := scanAttempt(r.db.QueryRow(ctx, query, key))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find checkout attempt: %w", err)
	}
	return a, nil
}

// MarkFailed releases a pending attempt so the buyer can try again.
func (r *CheckoutAttemptRepository) MarkFailed(ctx context.Context, key, reason string) error {
	query := `
		UPDATE checkout_attempts
		SET status = $1, failure_reason = $2, updated_at = NOW()
		WHERE idempotency_key = $3 AND status = $4
	`

	result, err := r.db.Exec(ctx, query, checkout.AttemptFailed, reason, key, checkout.AttemptPending)
	if err != nil {
		return fmt.Errorf("failed to mark checkout attempt failed: %w", err)
	}

	if result.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}

	return nil
}

// SetExternalRef notes the processor reference as soon as money moved, so a
// stuck attempt can be traced even before its record exists.
func (r *CheckoutAttemptRepository) SetExternalRef(ctx context.Context, key, ref string) error {
	query := `UPDATE checkout_attempts SET external_ref = $1, updated_at = NOW() WHERE idempotency_key = $2`

	if _, err := r.db.Exec(ctx, query, ref, key); err != nil {
		return fmt.Errorf("failed to set external ref: %w", err)
	}
	return nil
}

// ListUnrecorded returns pending attempts that reached the processor and
// have not moved since before, oldest first.
func (r *CheckoutAttemptRepository) ListUnrecorded(ctx context.Context, before time.Time, limit int) ([]*checkout.Attempt, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM checkout_attempts
		WHERE status = $1 AND external_ref <> '' AND kind <> '' AND updated_at < $2
		ORDER BY updated_at
		LIMIT $3
	`, attemptColumns)

	rows, err := r.db.Query(ctx, query, checkout.AttemptPending, before, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list unrecorded checkout attempts: %w", err)
	}
	defer rows.Close()

	var attempts []*checkout.Attempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan checkout attempt: %w", err)
		}
		attempts = append(attempts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list unrecorded checkout attempts: %w", err)
	}
	return attempts, nil
}

// Touch bumps updated_at of a pending attempt.
func (r *CheckoutAttemptRepository) Touch(ctx context.Context, key string) error {
	query := `UPDATE checkout_attempts SET updated_at = NOW() WHERE idempotency_key = $1 AND status = $2`

	if _, err := r.db.Exec(ctx, query, key, checkout.AttemptPending); err != nil {
		return fmt.Errorf("failed to touch checkout attempt: %w", err)
	}
	return nil
}

// CompleteWithTx marks the attempt completed with the record it produced.
func (r *CheckoutAttemptRepository) CompleteWithTx(ctx context.Context, tx pgx.Tx, key string, kind checkout.ResultKind, resultID, externalRef string) error {
	query := `
		UPDATE checkout_attempts
		SET status = $1, result_kind = $2, result_id = $3, external_ref = $4, failure_reason = '', updated_at = NOW()
		WHERE idempotency_key = $5
	`

	result, err := tx.Exec(ctx, query, checkout.AttemptCompleted, kind, resultID, externalRef, key)
	if err != nil {
		return fmt.Errorf("failed to complete checkout attempt: %w", err)
	}

	if result.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}

	return nil
}
