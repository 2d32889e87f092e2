// internal/pkg/ratelimit/limiter.go
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter is a fixed-window counter stored in redis.
type Limiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
}

func NewLimiter(client *redis.Client, limit int64, window time.Duration) *Limiter {
	return &Limiter{client: client, limit: limit, window: window}
}

// AllowContactSubmission checks the contact-form limit for an IP on a tier.
func (l *Limiter) AllowContactSubmission(ctx context.Context, ip, tierID string) (bool, error) {
	return l.allow(ctx, fmt.Sprintf("ratelimit:contact:%s:%s", tierID, ip))
}

// allow counts a hit and starts the window if the key has no expiry yet.
// Both commands run in one MULTI so a counter is never left without a TTL.
func (l *Limiter) allow(ctx context.Context, key string) (bool, error) {
	var incr *redis.IntCmd
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, l.window)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to count hit on %s: %w", key, err)
	}

	return incr.Val() <= l.limit, nil
}
