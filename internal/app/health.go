// internal/app/health.go
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

type dbPinger interface {
	Ping(ctx context.Context) error
}

type redisPinger interface {
	Ping(ctx context.Context) *redis.StatusCmd
}

type queueLen interface {
	Len(ctx context.Context) (pending, dead int64, err error)
}

type healthCheck struct {
	db    dbPinger
	redis redisPinger
	queue queueLen
}

func newHealthCheck(db dbPinger, redis redisPinger, queue queueLen) *healthCheck {
	return &healthCheck{db: db, redis: redis, queue: queue}
}

// Handle reports dependency status and the reconciliation backlog. Dead
// letters need an operator and are surfaced but do not fail the check.
func (h *healthCheck) Handle(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := gin.H{}

	if err := h.db.Ping(ctx); err != nil {
		status = http.StatusServiceUnavailable
		checks["postgres"] = err.Error()
	} else {
		checks["postgres"] = "ok"
	}

	if err := h.redis.Ping(ctx).Err(); err != nil {
		status = http.StatusServiceUnavailable
		checks["redis"] = err.Error()
	} else {
		checks["redis"] = "ok"
	}

	body := gin.H{"status": "ok", "version": "1.0.0", "checks": checks}
	if pending, dead, err := h.queue.Len(ctx); err == nil {
		body["reconcile_pending"] = pending
		body["reconcile_dead"] = dead
	}
	if status != http.StatusOK {
		body["status"] = "degraded"
	}

	c.JSON(status, body)
}
