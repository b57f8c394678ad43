package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/annotation-hub-be/internal/models"
	"github.com/isdelr/annotation-hub-be/internal/services"
)

// ScheduleHandler handles HTTP requests related to project schedules.
type ScheduleHandler struct {
	service services.ScheduleServiceProvider
}

// NewScheduleHandler creates a new ScheduleHandler.
func NewScheduleHandler(service services.ScheduleServiceProvider) *ScheduleHandler {
	return &ScheduleHandler{service: service}
}

// SchedulePayload defines the structure for creating and updating schedules.
type SchedulePayload struct {
	Name           string          `json:"name" validate:"required,max=200"`
	CronExpression string          `json:"cronExpression" validate:"required"`
	TaskType       string          `json:"taskType" validate:"required,oneof=ingest invoice archive"`
	Payload        json.RawMessage `json:"payload"`
	IsActive       *bool           `json:"isActive"`
}

func (p SchedulePayload) schedule(projectID string) models.Schedule {
	active := true
	if p.IsActive != nil {
		active = *p.IsActive
	}
	return models.Schedule{
		ProjectID:      projectID,
		Name:           p.Name,
		CronExpression: p.CronExpression,
		TaskType:       p.TaskType,
		Payload:        p.Payload,
		IsActive:       active,
	}
}

// GetAllForProject handles the request to get all schedules for the guarded project.
func (h *ScheduleHandler) GetAllForProject(w http.ResponseWriter, r *http.Request) {
	schedules, err := h.service.GetSchedulesForProject(projectFrom(r).ID)
	if err != nil {
		respondError(w, err, "retrieve schedules")
		return
	}
	writeJSON(w, http.StatusOK, schedules)
}

// Create handles the request to create a new schedule.
func (h *ScheduleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var payload SchedulePayload
	if !decodeJSON(w, r, &payload) {
		return
	}
	created, err := h.service.CreateSchedule(payload.schedule(projectFrom(r).ID))
	if err != nil {
		respondError(w, err, "create schedule")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// loadSchedule fetches {scheduleId} and checks it belongs to the guarded project.
func (h *ScheduleHandler) loadSchedule(w http.ResponseWriter, r *http.Request) (models.Schedule, bool) {
	scheduleID := chi.URLParam(r, "scheduleId")
	schedule, err := h.service.GetScheduleByID(scheduleID)
	if err == nil && schedule.ProjectID != projectFrom(r).ID {
		err = fmt.Errorf("schedule %s: %w", scheduleID, services.ErrNotFound)
	}
	if err != nil {
		respondError(w, err, "load schedule")
		return models.Schedule{}, false
	}
	return schedule, true
}

// Update handles the request to update an existing schedule.
func (h *ScheduleHandler) Update(w http.ResponseWriter, r *http.Request) {
	schedule, ok := h.loadSchedule(w, r)
	if !ok {
		return
	}
	var payload SchedulePayload
	if !decodeJSON(w, r, &payload) {
		return
	}
	updated, err := h.service.UpdateSchedule(schedule.ID, payload.schedule(schedule.ProjectID))
	if err != nil {
		respondError(w, err, "update schedule")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// Delete handles the request to delete a schedule.
func (h *ScheduleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	schedule, ok := h.loadSchedule(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteSchedule(schedule.ID); err != nil {
		respondError(w, err, "delete schedule")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
