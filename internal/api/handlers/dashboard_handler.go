package handlers

import (
	"net/http"

	"github.com/isdelr/annotation-hub-be/internal/services"
)

// DashboardHandler serves the analytics dashboards.
type DashboardHandler struct {
	service services.DashboardServiceProvider
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(service services.DashboardServiceProvider) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// Project returns the guarded project's dashboard.
func (h *DashboardHandler) Project(w http.ResponseWriter, r *http.Request) {
	dashboard, err := h.service.GetProjectDashboard(r.Context(), projectFrom(r).ID)
	if err != nil {
		respondError(w, err, "build project dashboard")
		return
	}
	writeJSON(w, http.StatusOK, dashboard)
}

// Overview returns the agency overview for owners and the manager overview otherwise.
func (h *DashboardHandler) Overview(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(w, r)
	if !ok {
		return
	}
	managerID := claims.UserID
	if claims.IsOwner() {
		managerID = ""
	}
	dashboard, err := h.service.GetOverview(r.Context(), managerID)
	if err != nil {
		respondError(w, err, "build overview")
		return
	}
	writeJSON(w, http.StatusOK, dashboard)
}

// Mine returns the caller's annotator dashboard.
func (h *DashboardHandler) Mine(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(w, r)
	if !ok {
		return
	}
	dashboard, err := h.service.GetAnnotatorDashboard(r.Context(), claims.UserID)
	if err != nil {
		respondError(w, err, "build dashboard")
		return
	}
	writeJSON(w, http.StatusOK, dashboard)
}
