package handlers

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/annotation-hub-be/internal/models"
	"github.com/isdelr/annotation-hub-be/internal/services"
)

// TrainingHandler handles HTTP requests for trainings and their webinars.
type TrainingHandler struct {
	service services.TrainingServiceProvider
	guard   *ProjectGuard
}

// NewTrainingHandler creates a new TrainingHandler.
func NewTrainingHandler(service services.TrainingServiceProvider, guard *ProjectGuard) *TrainingHandler {
	return &TrainingHandler{service: service, guard: guard}
}

// TrainingPayload defines the structure for creating and updating trainings.
type TrainingPayload struct {
	Title       string           `json:"title" validate:"required,max=200"`
	Description string           `json:"description" validate:"max=5000"`
	Webinars    []models.Webinar `json:"webinars" validate:"max=50,dive"`
}

// InvitePayload lists annotators to invite.
type InvitePayload struct {
	AnnotatorIDs []string `json:"annotatorIds" validate:"required,min=1,dive,required"`
}

// GetAllForProject lists the guarded project's trainings.
func (h *TrainingHandler) GetAllForProject(w http.ResponseWriter, r *http.Request) {
	trainings, err := h.service.GetTrainingsForProject(projectFrom(r).ID)
	if err != nil {
		respondError(w, err, "retrieve trainings")
		return
	}
	writeJSON(w, http.StatusOK, trainings)
}

// Create adds a training to the guarded project.
func (h *TrainingHandler) Create(w http.ResponseWriter, r *http.Request) {
	var payload TrainingPayload
	if !decodeJSON(w, r, &payload) {
		return
	}
	created, err := h.service.CreateTraining(models.Training{
		ProjectID:   projectFrom(r).ID,
		Title:       payload.Title,
		Description: payload.Description,
		Webinars:    payload.Webinars,
	})
	if err != nil {
		respondError(w, err, "create training")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// GetMine lists the trainings the caller was invited to.
func (h *TrainingHandler) GetMine(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(w, r)
	if !ok {
		return
	}
	trainings, err := h.service.GetTrainingsForAnnotator(claims.UserID)
	if err != nil {
		respondError(w, err, "retrieve trainings")
		return
	}
	writeJSON(w, http.StatusOK, trainings)
}

// load fetches the {id} training for a manager of its project, or for an invited annotator when manage is false.
func (h *TrainingHandler) load(w http.ResponseWriter, r *http.Request, manage bool) (models.Training, bool) {
	claims, ok := claimsFrom(w, r)
	if !ok {
		return models.Training{}, false
	}
	training, err := h.service.GetTrainingByID(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err, "load training")
		return models.Training{}, false
	}
	if !manage && training.IsInvited(claims.UserID) {
		return training, true
	}
	if !claims.IsManager() {
		respondError(w, fmt.Errorf("training %s: %w", training.ID, services.ErrForbidden), "load training")
		return models.Training{}, false
	}
	if _, err := h.guard.Authorize(claims, training.ProjectID); err != nil {
		respondError(w, err, "load training")
		return models.Training{}, false
	}
	return training, true
}

// Get returns one training.
func (h *TrainingHandler) Get(w http.ResponseWriter, r *http.Request) {
	training, ok := h.load(w, r, false)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, training)
}

// Update edits a training.
func (h *TrainingHandler) Update(w http.ResponseWriter, r *http.Request) {
	training, ok := h.load(w, r, true)
	if !ok {
		return
	}
	var payload TrainingPayload
	if !decodeJSON(w, r, &payload) {
		return
	}
	updated, err := h.service.UpdateTraining(training.ID, models.Training{
		Title:       payload.Title,
		Description: payload.Description,
		Webinars:    payload.Webinars,
	})
	if err != nil {
		respondError(w, err, "update training")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// Delete removes a training.
func (h *TrainingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	training, ok := h.load(w, r, true)
	if !ok {
		return
	}
	if err := h.service.DeleteTraining(training.ID); err != nil {
		respondError(w, err, "delete training")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Invite adds annotators to a training.
func (h *TrainingHandler) Invite(w http.ResponseWriter, r *http.Request) {
	training, ok := h.load(w, r, true)
	if !ok {
		return
	}
	var payload InvitePayload
	if !decodeJSON(w, r, &payload) {
		return
	}
	updated, err := h.service.InviteAnnotators(training.ID, payload.AnnotatorIDs)
	if err != nil {
		respondError(w, err, "invite annotators")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}
