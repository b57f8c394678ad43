package handlers

import (
	"net/http"

	"github.com/isdelr/annotation-hub-be/internal/models"
	"github.com/isdelr/annotation-hub-be/internal/services"
	"github.com/rs/zerolog/log"
)

// EventHandler handles HTTP requests related to activity events.
type EventHandler struct {
	service services.EventServiceProvider
}

// NewEventHandler creates a new EventHandler.
func NewEventHandler(service services.EventServiceProvider) *EventHandler {
	return &EventHandler{service: service}
}

// GetRecent returns the activity feed: everything for owners, the caller's projects for managers,
// and the caller's notifications for annotators.
func (h *EventHandler) GetRecent(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(w, r)
	if !ok {
		return
	}
	limit := queryLimit(r, 20, 200)

	var (
		events []models.Event
		err    error
	)
	switch {
	case claims.IsOwner():
		events, err = h.service.GetRecentEvents(limit)
	case claims.IsManager():
		events, err = h.service.GetEventsForManager(claims.UserID, limit)
	default:
		events, err = h.service.GetEventsForUser(claims.UserID, limit)
	}
	if err != nil {
		log.Error().Err(err).Msg("Failed to retrieve events")
		respondError(w, err, "retrieve events")
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// GetMine returns the caller's notifications.
func (h *EventHandler) GetMine(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(w, r)
	if !ok {
		return
	}
	events, err := h.service.GetEventsForUser(claims.UserID, queryLimit(r, 20, 200))
	if err != nil {
		respondError(w, err, "retrieve events")
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// GetForProject returns the guarded project's activity.
func (h *EventHandler) GetForProject(w http.ResponseWriter, r *http.Request) {
	events, err := h.service.GetEventsForProject(projectFrom(r).ID, queryLimit(r, 20, 200))
	if err != nil {
		respondError(w, err, "retrieve events")
		return
	}
	writeJSON(w, http.StatusOK, events)
}
