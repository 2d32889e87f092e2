package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

type stubDB struct{ err error }

func (s stubDB) Ping(context.Context) error { return s.err }

type stubRedis struct{ err error }

func (s stubRedis) Ping(ctx context.Context) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(ctx)
	if s.err != nil {
		cmd.SetErr(s.err)
	} else {
		cmd.SetVal("PONG")
	}
	return cmd
}

type stubQueue struct{ pending, dead int64 }

func (s stubQueue) Len(context.Context) (int64, int64, error) { return s.pending, s.dead, nil }

func TestHealthCheck(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name   string
		db     error
		redis  error
		status int
	}{
		{"healthy", nil, nil, http.StatusOK},
		{"postgres down", errors.New("refused"), nil, http.StatusServiceUnavailable},
		{"redis down", nil, errors.New("timeout"), http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHealthCheck(stubDB{tt.db}, stubRedis{tt.redis}, stubQueue{pending: 2, dead: 1})
			r := gin.New()
			r.GET("/health", h.Handle)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d", w.Code, tt.status)
			}

			var body struct {
				Pending int64 `json:"reconcile_pending"`
				Dead    int64 `json:"reconcile_dead"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatal(err)
			}
			if body.Pending != 2 || body.Dead != 1 {
				t.Fatalf("backlog = %d/%d, want 2/1", body.Pending, body.Dead)
			}
		})
	}
}
