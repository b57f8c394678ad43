package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/isdelr/annotation-hub-be/internal/models"
	"github.com/rs/zerolog/log"
)

// Pinger checks a backing store.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// StatsCollector reads host resource usage.
type StatsCollector interface {
	Collect(ctx context.Context) (models.HostStats, error)
}

// SystemHandler serves health and host stats.
type SystemHandler struct {
	db    Pinger
	stats StatsCollector
}

// NewSystemHandler creates a new SystemHandler.
func NewSystemHandler(db Pinger, stats StatsCollector) *SystemHandler {
	return &SystemHandler{db: db, stats: stats}
}

// Health reports whether the database answers.
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.db.PingContext(ctx); err != nil {
		log.Error().Err(err).Msg("Health check failed")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Stats returns a snapshot of host resource usage.
func (h *SystemHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.Collect(r.Context())
	if err != nil {
		respondError(w, err, "collect host stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
