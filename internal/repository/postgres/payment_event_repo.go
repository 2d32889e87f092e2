// internal/repository/postgres/payment_event_repo.go
package postgres

import (
	"context"
	"fmt"

	"gitwallet-service/internal/domain/payment"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PaymentEventRepository remembers processed webhook deliveries by
// (external subscription id, event type, event timestamp).
type PaymentEventRepository struct {
	db *pgxpool.Pool
}

func NewPaymentEventRepository(db *pgxpool.Pool) *PaymentEventRepository {
	return &PaymentEventRepository{db: db}
}

func (r *PaymentEventRepository) Seen(ctx context.Context, key payment.EventKey) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM payment_events
			WHERE external_subscription_id = $1 AND event_type = $2 AND event_timestamp = $3
		)
	`

	var seen bool
	if err := r.db.QueryRow(ctx, query, key.ExternalSubscriptionID, key.Type, key.Timestamp).Scan(&seen); err != nil {
		return false, fmt.Errorf("failed to check payment event: %w", err)
	}
	return seen, nil
}

// Mark records a processed delivery. Marking twice is harmless.
func (r *PaymentEventRepository) Mark(ctx context.Context, key payment.EventKey) error {
	query := `
		INSERT INTO payment_events (external_subscription_id, event_type, event_timestamp)
		VALUES ($1, $2, $3)
		ON CONFLICT DO NOTHING
	`

	if _, err := r.db.Exec(ctx, query, key.ExternalSubscriptionID, key.Type, key.Timestamp); err != nil {
		return fmt.Errorf("failed to mark payment event: %w", err)
	}
	return nil
}
