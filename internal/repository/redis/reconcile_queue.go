// internal/repository/redis/reconcile_queue.go
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gitwallet-service/internal/domain/checkout"

	"github.com/redis/go-redis/v9"
)

const (
	pendingKey    = "reconcile:pending"
	processingKey = "reconcile:processing"
	deadKey       = "reconcile:dead"
)

// ReconcileQueue holds paid checkouts whose record could not be written.
// Items move pending -> processing while a worker holds them, so a crash
// between Pop and Ack leaves them recoverable.
type ReconcileQueue struct {
	client *redis.Client
}

// Item is a popped entry. The raw payload is kept to acknowledge it exactly.
type Item struct {
	Paid checkout.PaidCheckout
	raw  string
}

func NewReconcileQueue(client *redis.Client) *ReconcileQueue {
	return &ReconcileQueue{client: client}
}

// Push enqueues a paid checkout.
func (q *ReconcileQueue) Push(ctx context.Context, paid checkout.PaidCheckout) error {
	payload, err := json.Marshal(paid)
	if err != nil {
		return fmt.Errorf("failed to marshal paid checkout: %w", err)
	}

	if err := q.client.LPush(ctx, pendingKey, payload).Err(); err != nil {
		return fmt.Errorf("failed to enqueue paid checkout %s: %w", paid.IdempotencyKey, err)
	}
	return nil
}

// Pop claims the oldest pending item. It returns nil when the queue is empty.
func (q *ReconcileQueue) Pop(ctx context.Context) (*Item, error) {
	raw, err := q.client.LMove(ctx, pendingKey, processingKey, "RIGHT", "LEFT").Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to pop paid checkout: %w", err)
	}

	item := &Item{raw: raw}
	if err := json.Unmarshal([]byte(raw), &item.Paid); err != nil {
		// unreadable payloads go straight to the dead letter list
		if dlErr := q.moveRaw(ctx, raw, deadKey); dlErr != nil {
			return nil, dlErr
		}
		return nil, fmt.Errorf("failed to decode paid checkout: %w", err)
	}

	return item, nil
}

// Ack drops an item that has been reconciled.
func (q *ReconcileQueue) Ack(ctx context.Context, item *Item) error {
	return q.client.LRem(ctx, processingKey, 1, item.raw).Err()
}

// Retry puts the item back on the pending list with its failure count bumped.
func (q *ReconcileQueue) Retry(ctx context.Context, item *Item) error {
	item.Paid.Failures++
	payload, err := json.Marshal(item.Paid)
	if err != nil {
		return fmt.Errorf("failed to marshal paid checkout: %w", err)
	}

	_, err = q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LRem(ctx, processingKey, 1, item.raw)
		pipe.LPush(ctx, pendingKey, payload)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to requeue paid checkout %s: %w", item.Paid.IdempotencyKey, err)
	}
	return nil
}

// DeadLetter parks an item that keeps failing for manual follow-up.
func (q *ReconcileQueue) DeadLetter(ctx context.Context, item *Item) error {
	return q.moveRaw(ctx, item.raw, deadKey)
}

func (q *ReconcileQueue) moveRaw(ctx context.Context, raw, dest string) error {
	_, err := q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LRem(ctx, processingKey, 1, raw)
		pipe.LPush(ctx, dest, raw)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to move paid checkout to %s: %w", dest, err)
	}
	return nil
}

// RecoverInFlight returns items left in processing by a previous worker to
// the pending list. It is called once before the worker starts.
func (q *ReconcileQueue) RecoverInFlight(ctx context.Context) (int, error) {
	moved := 0
	for {
		_, err := q.client.LMove(ctx, processingKey, pendingKey, "RIGHT", "RIGHT").Result()
		if errors.Is(err, redis.Nil) {
			return moved, nil
		}
		if err != nil {
			return moved, fmt.Errorf("failed to recover in-flight checkouts: %w", err)
		}
		moved++
	}
}

// Len reports the pending and dead-letter queue lengths.
func (q *ReconcileQueue) Len(ctx context.Context) (pending, dead int64, err error) {
	if pending, err = q.client.LLen(ctx, pendingKey).Result(); err != nil {
		return 0, 0, err
	}
	if dead, err = q.client.LLen(ctx, deadKey).Result(); err != nil {
		return 0, 0, err
	}
	return pending, dead, nil
}
