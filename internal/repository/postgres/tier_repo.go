// internal/repository/postgres/tier_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gitwallet-service/internal/domain/tier"
	xerrors "gitwallet-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
)

const tierColumns = `
	id, organization_id, name, tagline, description, features,
	price, price_annual, currency, cadence, trial_days,
	checkout_type, published, contract_id, created_at, updated_at`

type TierRepository struct {
	db *pgxpool.Pool
}

func NewTierRepository(db *pgxpool.Pool) *TierRepository {
	return &TierRepository{db: db}
}

func scanTier(row pgx.Row) (*tier.Tier, error) {
	var t tier.Tier
	var features []string

	err := row.Scan(
		&t.ID, &t.OrganizationID, &t.Name, &t.Tagline, &t.Description, pq.Array(&features),
		&t.Price, &t.PriceAnnual, &t.Currency, &t.Cadence, &t.TrialDays,
		&t.CheckoutType, &t.Published, &t.ContractID, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Features = pq.StringArray(features)
	return &t, nil
}

// Create inserts a tier, assigning its id and timestamps.
func (r *TierRepository) Create(ctx context.Context, t *tier.Tier) error {
	query := `
		INSERT INTO tiers (
			id, organization_id, name, tagline, description, features,
			price, price_annual, currency, cadence, trial_days,
			checkout_type, published, contract_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING created_at, updated_at
	`

	t.ID = newID()
	err := r.db.QueryRow(
		ctx, query,
		t.ID, t.OrganizationID, t.Name, t.Tagline, t.Description, pq.Array(t.Features),
		t.Price, t.PriceAnnual, t.Currency, t.Cadence, t.TrialDays,
		t.CheckoutType, t.Published, t.ContractID,
	).Scan(&t.CreatedAt, &t.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create tier: %w", err)
	}

	return nil
}

// Update writes every mutable field of the tier.
func (r *TierRepository) Update(ctx context.Context, t *tier.Tier) error {
	query := `
		UPDATE tiers
		SET name = $1, tagline = $2, description = $3, features = $4,
		    price = $5, price_annual = $6, currency = $7, cadence = $8, trial_days = $9,
		    checkout_type = $10, published = $11, contract_id = $12, updated_at = $13
		WHERE id = $14 AND organization_id = $15
	`

	t.UpdatedAt = time.Now()
	result, err := r.db.Exec(
		ctx, query,
		t.Name, t.Tagline, t.Description, pq.Array(t.Features),
		t.Price, t.PriceAnnual, t.Currency, t.Cadence, t.TrialDays,
		t.CheckoutType, t.Published, t.ContractID, t.UpdatedAt,
		t.ID, t.OrganizationID,
	)
	if err != nil {
		return fmt.Errorf("failed to update tier: %w", err)
	}

	if result.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}

	return nil
}

// SetPublished toggles buyer visibility.
func (r *TierRepository) SetPublished(ctx context.Context, orgID, id string, published bool) error {
	query := `UPDATE tiers SET published = $1, updated_at = $2 WHERE id = $3 AND organization_id = $4`

	result, err := r.db.Exec(ctx, query, published, time.Now(), id, orgID)
	if err != nil {
		return fmt.Errorf("failed to update tier visibility: %w", err)
	}

	if result.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}

	return nil
}

// FindByID retrieves a tier regardless of organization or publication state.
func (r *TierRepository) FindByID(ctx context.Context, id string) (*tier.Tier, error) {
	query := fmt.Sprintf(`SELECT %s FROM tiers WHERE id = $1`, tierColumns)

	t, err := scanTier(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find tier: %w", err)
	}

	return t, nil
}

// ListByOrganization returns an organization's tiers ordered by price.
func (r *TierRepository) ListByOrganization(ctx context.Context, orgID string, publishedOnly bool) ([]tier.Tier, error) {
	query := fmt.Sprintf(`SELECT %s FROM tiers WHERE organization_id = $1`, tierColumns)
	if publishedOnly {
		query += ` AND published = TRUE`
	}
	query += ` ORDER BY price ASC, created_at ASC`

	rows, err := r.db.Query(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tiers: %w", err)
	}
	defer rows.Close()

	tiers := []tier.Tier{}
	for rows.Next() {
		t, err := scanTier(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tier: %w", err)
		}
		tiers = append(tiers, *t)
	}

	return tiers, rows.Err()
}

// CountReferences counts the purchase and lead records pointing at a tier.
func (r *TierRepository) CountReferences(ctx context.Context, id string) (tier.References, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM subscriptions WHERE tier_id = $1),
			(SELECT COUNT(*) FROM charges WHERE tier_id = $1),
			(SELECT COUNT(*) FROM prospects WHERE $1 = ANY(tier_ids))
	`

	var refs tier.References
	err := r.db.QueryRow(ctx, query, id).Scan(&refs.Subscriptions, &refs.Charges, &refs.Prospects)
	if err != nil {
		return refs, fmt.Errorf("failed to count tier references: %w", err)
	}

	return refs, nil
}

// Delete removes a tier that nothing references. The check and the delete
// run in one statement so a purchase landing in between keeps the tier.
func (r *TierRepository) Delete(ctx context.Context, orgID, id string) error {
	query := `
		DELETE FROM tiers
		WHERE id = $1 AND organization_id = $2
		  AND NOT EXISTS (SELECT 1 FROM subscriptions WHERE tier_id = $1)
		  AND NOT EXISTS (SELECT 1 FROM charges WHERE tier_id = $1)
		  AND NOT EXISTS (SELECT 1 FROM prospects WHERE $1 = ANY(tier_ids))
	`

	result, err := r.db.Exec(ctx, query, id, orgID)
	if err != nil {
		return fmt.Errorf("failed to delete tier: %w", err)
	}

	if result.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}

	return nil
}
