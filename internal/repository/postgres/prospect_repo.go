// internal/repository/postgres/prospect_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gitwallet-service/internal/domain/prospect"
	xerrors "gitwallet-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
)

const prospectColumns = `
	id, organization_id, name, email, company_name, context, tier_ids,
	qualification_status, qualification_reason, created_at, updated_at`

type ProspectRepository struct {
	db *pgxpool.Pool
}

func NewProspectRepository(db *pgxpool.Pool) *ProspectRepository {
	return &ProspectRepository{db: db}
}

func scanProspect(row pgx.Row, extra ...any) (*prospect.Prospect, error) {
	var p prospect.Prospect
	var tierIDs []string

	dest := []any{
		&p.ID, &p.OrganizationID, &p.Name, &p.Email, &p.CompanyName, &p.Context, pq.Array(&tierIDs),
		&p.Status, &p.QualificationReason, &p.CreatedAt, &p.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	p.TierIDs = pq.StringArray(tierIDs)
	return &p, nil
}

// Upsert records interest in a tier. A returning email within the same
// organization updates the existing prospect and adds the tier to its
// interests instead of creating a second row. The bool reports whether the
// prospect is new.
func (r *ProspectRepository) Upsert(ctx context.Context, p *prospect.Prospect, tierID string) (*prospect.Prospect, bool, error) {
	query := fmt.Sprintf(`
		INSERT INTO prospects (
			id, organization_id, name, email, company_name, context, tier_ids, qualification_status
		) VALUES ($1, $2, $3, $4, $5, $6, ARRAY[$7::text], $8)
		ON CONFLICT (organization_id, lower(email)) DO UPDATE SET
			name = EXCLUDED.name,
			company_name = COALESCE(NULLIF(EXCLUDED.company_name, ''), prospects.company_name),
			context = COALESCE(NULLIF(EXCLUDED.context, ''), prospects.context),
			tier_ids = CASE
				WHEN $7::text = ANY(prospects.tier_ids) THEN prospects.tier_ids
				ELSE array_append(prospects.tier_ids, $7::text)
			END,
			updated_at = NOW()
		RETURNING %s, (xmax = 0)
	`, prospectColumns)

	var created bool
	saved, err := scanProspect(r.db.QueryRow(
		ctx, query,
		newID(), p.OrganizationID, p.Name, p.Email, p.CompanyName, p.Context, tierID, prospect.Unqualified,
	), &created)
	if err != nil {
		return nil, false, fmt.Errorf("failed to upsert prospect: %w", err)
	}

	return saved, created, nil
}

func (r *ProspectRepository) FindByID(ctx context.Context, orgID, id string) (*prospect.Prospect, error) {
	query := fmt.Sprintf(`SELECT %s FROM prospects WHERE id = $1 AND organization_id = $2`, prospectColumns)

	p, err := scanProspect(r.db.QueryRow(ctx, query, id, orgID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find prospect: %w", err)
	}

	return p, nil
}

// UpdateQualification stores the vendor's qualification decision.
func (r *ProspectRepository) UpdateQualification(ctx context.Context, orgID, id string, status prospect.Qualification, reason string) error {
	query := `
		UPDATE prospects
		SET qualification_status = $1, qualification_reason = $2, updated_at = $3
		WHERE id = $4 AND organization_id = $5
	`

	result, err := r.db.Exec(ctx, query, status, reason, time.Now(), id, orgID)
	if err != nil {
		return fmt.Errorf("failed to update qualification: %w", err)
	}

	if result.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}

	return nil
}

// List retrieves an organization's prospects with filters
func (r *ProspectRepository) List(ctx context.Context, orgID string, filters *prospect.ListFilters) ([]prospect.Prospect, int64, error) {
	conditions := []string{"organization_id = $1"}
	args := []interface{}{orgID}
	argPos := 2

	if filters.Status != nil {
		conditions = append(conditions, fmt.Sprintf("qualification_status = $%d", argPos))
		args = append(args, *filters.Status)
		argPos++
	}

	if filters.TierID != "" {
		conditions = append(conditions, fmt.Sprintf("$%d = ANY(tier_ids)", argPos))
		args = append(args, filters.TierID)
		argPos++
	}

	if filters.Search != "" {
		conditions = append(conditions, fmt.Sprintf(
			"(name ILIKE $%d OR email ILIKE $%d OR company_name ILIKE $%d)",
			argPos, argPos, argPos,
		))
		args = append(args, "%"+filters.Search+"%")
		argPos++
	}

	whereClause := strings.Join(conditions, " AND ")

	var total int64
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM prospects WHERE %s", whereClause)
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count prospects: %w", err)
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
		FROM prospects
		WHERE %s
		ORDER BY updated_at DESC
		LIMIT $%d OFFSET $%d
	`, prospectColumns, whereClause, argPos, argPos+1)
	args = append(args, filters.PageSize, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list prospects: %w", err)
	}
	defer rows.Close()

	prospects := []prospect.Prospect{}
	for rows.Next() {
		p, err := scanProspect(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan prospect: %w", err)
		}
		prospects = append(prospects, *p)
	}

	return prospects, total, rows.Err()
}

// CountOpen counts prospects that have not been disqualified.
func (r *ProspectRepository) CountOpen(ctx context.Context, orgID string) (int64, error) {
	query := `SELECT COUNT(*) FROM prospects WHERE organization_id = $1 AND qualification_status <> $2`

	var n int64
	if err := r.db.QueryRow(ctx, query, orgID, prospect.Disqualified).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count prospects: %w", err)
	}
	return n, nil
}
