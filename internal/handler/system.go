package handler

import (
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

// SystemHandler serves health and readiness probes.
type SystemHandler struct {
	db    *sqlx.DB
	cache *redis.Client
}

func NewSystemHandler(db *sqlx.DB, cache *redis.Client) *SystemHandler {
	return &SystemHandler{db: db, cache: cache}
}

// Health reports liveness plus the state of the service's dependencies.
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	status := http.StatusOK
	checks := map[string]string{}

	if err := h.db.PingContext(ctx); err != nil {
		checks["database"] = "unreachable"
		status = http.StatusServiceUnavailable
	} else {
		checks["database"] = "ok"
	}

	if h.cache != nil {
		if err := h.cache.Ping(ctx).Err(); err != nil {
			checks["redis"] = "unreachable"
			status = http.StatusServiceUnavailable
		} else {
			checks["redis"] = "ok"
		}
	}

	statusText := "healthy"
	if status != http.StatusOK {
		statusText = "degraded"
	}
	respondJSON(w, status, map[string]interface{}{
		"status": statusText,
		"time":   time.Now().UTC().Format(time.RFC3339),
		"checks": checks,
	})
}
