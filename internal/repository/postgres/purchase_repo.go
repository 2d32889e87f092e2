// internal/repository/postgres/purchase_repo.go
package postgres

import (
	"context"
	"fmt"

	"gitwallet-service/internal/domain/charge"
	"gitwallet-service/internal/domain/checkout"
	"gitwallet-service/internal/domain/subscription"
	xerrors "gitwallet-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
)

// PurchaseRepository writes the outcome of a paid checkout. The record insert
// and the attempt completion commit together, and a repeated write for the
// same idempotency key returns the record stored the first time.
type PurchaseRepository struct {
	db            *DB
	subscriptions *SubscriptionRepository
	charges       *ChargeRepository
	attempts      *CheckoutAttemptRepository
}

func NewPurchaseRepository(db *DB, subs *SubscriptionRepository, charges *ChargeRepository, attempts *CheckoutAttemptRepository) *PurchaseRepository {
	return &PurchaseRepository{
		db:            db,
		subscriptions: subs,
		charges:       charges,
		attempts:      attempts,
	}
}

// RecordSubscription stores a subscription exactly once per idempotency key.
func (r *PurchaseRepository) RecordSubscription(ctx context.Context, s *subscription.Subscription) (*subscription.Subscription, error) {
	var stored *subscription.Subscription

	err := r.db.WithTx(ctx, func(tx pgx.Tx) error {
		created, err := r.subscriptions.CreateWithTx(ctx, tx, s)
		if err != nil {
			return err
		}

		stored = s
		if !created {
			if stored, err = r.subscriptions.FindByIdempotencyKeyWithTx(ctx, tx, s.IdempotencyKey); err != nil {
				return err
			}
		}

		return r.completeAttempt(ctx, tx, s.IdempotencyKey, checkout.ResultSubscription, stored.ID, stored.ExternalRef)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record subscription: %w", err)
	}

	return stored, nil
}

// RecordCharge stores a charge exactly once per idempotency key.
func (r *PurchaseRepository) RecordCharge(ctx context.Context, ch *charge.Charge) (*charge.Charge, error) {
	var stored *charge.Charge

	err := r.db.WithTx(ctx, func(tx pgx.Tx) error {
		created, err := r.charges.CreateWithTx(ctx, tx, ch)
		if err != nil {
			return err
		}

		stored = ch
		if !created {
			if stored, err = r.charges.FindByIdempotencyKeyWithTx(ctx, tx, ch.IdempotencyKey); err != nil {
				return err
			}
		}

		return r.completeAttempt(ctx, tx, ch.IdempotencyKey, checkout.ResultCharge, stored.ID, stored.ExternalRef)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record charge: %w", err)
	}

	return stored, nil
}

// completeAttempt tolerates a missing attempt row so reconciliation can
// replay purchases whose attempt was never written.
func (r *PurchaseRepository) completeAttempt(ctx context.Context, tx pgx.Tx, key string, kind checkout.ResultKind, id, ref string) error {
	err := r.attempts.CompleteWithTx(ctx, tx, key, kind, id, ref)
	if err != nil && !xerrors.Is(err, xerrors.ErrNotFound) {
		return err
	}
	return nil
}

// FindResult loads the record a completed attempt produced.
func (r *PurchaseRepository) FindResult(ctx context.Context, a *checkout.Attempt) (*checkout.Result, error) {
	switch a.ResultKind {
	case checkout.ResultSubscription:
		s, err := r.subscriptions.FindByID(ctx, a.ResultID)
		if err != nil {
			return nil, err
		}
		return &checkout.Result{Kind: checkout.ResultSubscription, Subscription: s}, nil
	case checkout.ResultCharge:
		ch, err := r.charges.FindByID(ctx, a.ResultID)
		if err != nil {
			return nil, err
		}
		return &checkout.Result{Kind: checkout.ResultCharge, Charge: ch}, nil
	}
	return nil, fmt.Errorf("attempt %s has no result: %w", a.IdempotencyKey, xerrors.ErrNotFound)
}
