// internal/worker/reconciler.go
package worker

import (
	"context"
	"sync"
	"time"

	"gitwallet-service/internal/domain/checkout"
	"gitwallet-service/internal/pkg/idempotency"
	redisrepo "gitwallet-service/internal/repository/redis"

	"go.uber.org/zap"
)

type Queue interface {
	Pop(ctx context.Context) (*redisrepo.Item, error)
	Ack(ctx context.Context, item *redisrepo.Item) error
	Retry(ctx context.Context, item *redisrepo.Item) error
	DeadLetter(ctx context.Context, item *redisrepo.Item) error
	RecoverInFlight(ctx context.Context) (int, error)
}

// AttemptLister finds attempts that were paid but never recorded. Touch
// pushes an attempt to the back of the line after a failed replay.
type AttemptLister interface {
	ListUnrecorded(ctx context.Context, before time.Time, limit int) ([]*checkout.Attempt, error)
	Touch(ctx context.Context, key string) error
}

// Recorder writes the record of a paid checkout, idempotently.
type Recorder interface {
	RecordPaid(ctx context.Context, paid checkout.PaidCheckout) (*checkout.Result, error)
}

type ReconcilerConfig struct {
	Interval    time.Duration
	BatchSize   int
	MaxFailures int

	// UnrecordedAfter is how long a paid attempt may stay pending before
	// the sweep replays it.
	UnrecordedAfter time.Duration
}

// Reconciler replays paid checkouts whose record could not be written at
// checkout time. Queued checkouts are drained from redis; attempts whose
// process died before queueing are found by sweeping the attempt table.
type Reconciler struct {
	queue    Queue
	attempts AttemptLister
	recorder Recorder
	cfg      ReconcilerConfig
	logger   *zap.Logger
	now      func() time.Time

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

func NewReconciler(queue Queue, attempts AttemptLister, recorder Recorder, cfg ReconcilerConfig, logger *zap.Logger) *Reconciler {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 50
	}
	if cfg.MaxFailures < 1 {
		cfg.MaxFailures = 10
	}
	if cfg.UnrecordedAfter <= 0 {
		cfg.UnrecordedAfter = 10 * time.Minute
	}
	return &Reconciler{
		queue:    queue,
		attempts: attempts,
		recorder: recorder,
		cfg:      cfg,
		logger:   logger.Named("reconciler"),
		now:      time.Now,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start recovers items abandoned by a previous run and begins draining the
// queue on every tick.
func (r *Reconciler) Start(ctx context.Context) {
	if n, err := r.queue.RecoverInFlight(ctx); err != nil {
		r.logger.Error("failed to recover in-flight checkouts", zap.Error(err))
	} else if n > 0 {
		r.logger.Warn("recovered in-flight checkouts", zap.Int("count", n))
	}

	go func() {
		defer close(r.done)

		ticker := time.NewTicker(r.cfg.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-r.stop:
				return
			case <-ticker.C:
				r.RunOnce(ctx)
				r.Sweep(ctx)
			}
		}
	}()

	r.logger.Info("reconciler started", zap.Duration("interval", r.cfg.Interval))
}

// Stop ends the loop and waits for the current batch to finish.
func (r *Reconciler) Stop() {
	r.once.Do(func() { close(r.stop) })
	<-r.done
}

// RunOnce processes up to one batch and returns how many items were recorded.
func (r *Reconciler) RunOnce(ctx context.Context) int {
	recorded := 0

	for i := 0; i < r.cfg.BatchSize; i++ {
		item, err := r.queue.Pop(ctx)
		if err != nil {
			r.logger.Error("failed to pop paid checkout", zap.Error(err))
			continue
		}
		if item == nil {
			break
		}

		if r.process(ctx, item) {
			recorded++
		}
	}

	return recorded
}

func (r *Reconciler) process(ctx context.Context, item *redisrepo.Item) bool {
	paid := item.Paid
	log := r.logger.With(
		zap.String("idempotency_key", paid.IdempotencyKey),
		zap.String("external_ref", paid.ExternalRef),
		zap.Int("failures", paid.Failures),
	)

	if !idempotency.IsCheckoutKey(paid.IdempotencyKey) {
		if dlErr := r.queue.DeadLetter(ctx, item); dlErr != nil {
			log.Error("failed to dead-letter paid checkout", zap.Error(dlErr))
		}
		log.Error("queued checkout has a malformed idempotency key")
		return false
	}

	result, err := r.recorder.RecordPaid(ctx, paid)
	if err == nil {
		if ackErr := r.queue.Ack(ctx, item); ackErr != nil {
			log.Warn("failed to ack reconciled checkout", zap.Error(ackErr))
		}
		log.Info("paid checkout reconciled", zap.String("record_id", result.ID()))
		return true
	}

	if paid.Failures+1 >= r.cfg.MaxFailures {
		if dlErr := r.queue.DeadLetter(ctx, item); dlErr != nil {
			log.Error("failed to dead-letter paid checkout", zap.Error(dlErr))
		}
		log.Error("paid checkout moved to dead letter list",
			zap.String("kind", string(paid.Kind)),
			zap.String("buyer_id", paid.BuyerID),
			zap.String("tier_id", paid.TierID),
			zap.Int64("amount", paid.Amount),
			zap.String("currency", paid.Currency),
			zap.Error(err),
		)
		return false
	}

	if retryErr := r.queue.Retry(ctx, item); retryErr != nil {
		log.Error("failed to requeue paid checkout", zap.Error(retryErr))
	}
	log.Warn("paid checkout still not recorded", zap.Error(err))
	return false
}

// Sweep replays up to one batch of attempts that took payment but have been
// pending for longer than UnrecordedAfter, and returns how many were
// recorded.
func (r *Reconciler) Sweep(ctx context.Context) int {
	if r.attempts == nil {
		return 0
	}

	stale, err := r.attempts.ListUnrecorded(ctx, r.now().Add(-r.cfg.UnrecordedAfter), r.cfg.BatchSize)
	if err != nil {
		r.logger.Error("failed to list unrecorded checkouts", zap.Error(err))
		return 0
	}

	recorded := 0
	for _, a := range stale {
		log := r.logger.With(
			zap.String("idempotency_key", a.IdempotencyKey),
			zap.String("external_ref", a.ExternalRef),
		)

		paid, ok := a.Paid()
		if !ok || !idempotency.IsCheckoutKey(paid.IdempotencyKey) {
			log.Error("unrecorded checkout cannot be replayed", zap.String("status", string(a.Status)))
			continue
		}

		result, err := r.recorder.RecordPaid(ctx, paid)
		if err != nil {
			if touchErr := r.attempts.Touch(ctx, a.IdempotencyKey); touchErr != nil {
				log.Warn("failed to defer unrecorded checkout", zap.Error(touchErr))
			}
			log.Warn("unrecorded checkout replay failed", zap.Error(err))
			continue
		}

		log.Info("unrecorded checkout recovered", zap.String("record_id", result.ID()))
		recorded++
	}

	return recorded
}
