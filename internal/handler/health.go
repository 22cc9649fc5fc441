package handler

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/josh-kwaku/sarafi-settlement/internal/logging"
)

type outboxBacklog interface {
	Backlog(ctx context.Context) (int, *time.Time, error)
}

type HealthHandler struct {
	db      *sql.DB
	outbox  outboxBacklog
	version string
}

// NewHealthHandler builds the liveness and readiness probes. outbox may be
// nil, in which case readiness only checks the database.
func NewHealthHandler(db *sql.DB, outbox outboxBacklog, version string) *HealthHandler {
	return &HealthHandler{db: db, outbox: outbox, version: version}
}

func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	RespondJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"version":   h.version,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Readiness fails only when the database is unreachable. A growing outbox
// backlog is reported but does not take the instance out of rotation.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())
	status, code := "ok", http.StatusOK
	checks := map[string]any{"database": "ok"}

	if err := h.db.PingContext(r.Context()); err != nil {
		log.Warn("readiness: database unreachable", "error", err)
		checks["database"] = "down"
		status, code = "down", http.StatusServiceUnavailable
	} else if h.outbox != nil {
		checks["outbox"] = h.outboxCheck(r.Context())
	}

	RespondJSON(w, code, map[string]any{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks":    checks,
	})
}

func (h *HealthHandler) outboxCheck(ctx context.Context) map[string]any {
	pending, oldest, err := h.outbox.Backlog(ctx)
	if err != nil {
		logging.FromContext(ctx).Warn("readiness: outbox backlog query failed", "error", err)
		return map[string]any{"status": "unknown"}
	}
	out := map[string]any{"status": "ok", "pending": pending}
	if oldest != nil {
		out["oldest_pending_age_s"] = int64(time.Since(*oldest).Seconds())
	}
	return out
}
