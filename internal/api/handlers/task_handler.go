package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/annotation-hub-be/internal/auth"
	"github.com/isdelr/annotation-hub-be/internal/models"
	"github.com/isdelr/annotation-hub-be/internal/services"
	"github.com/rs/zerolog/log"
)

// TaskHandler handles HTTP requests for annotation tasks.
type TaskHandler struct {
	service services.TaskServiceProvider
	guard   *ProjectGuard
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(service services.TaskServiceProvider, guard *ProjectGuard) *TaskHandler {
	return &TaskHandler{service: service, guard: guard}
}

// AssignPayload distributes pending tasks over annotators.
type AssignPayload struct {
	AnnotatorIDs []string `json:"annotatorIds" validate:"required,min=1,dive,required"`
	PerAnnotator int      `json:"perAnnotator" validate:"min=0"`
}

// SubmitPayload is an annotator's answer to a task.
type SubmitPayload struct {
	Response         json.RawMessage `json:"response" validate:"required"`
	TimeTakenSeconds int             `json:"timeTakenSeconds" validate:"min=0"`
}

// ReviewPayload accepts or rejects a submitted task.
type ReviewPayload struct {
	Accept   *bool  `json:"accept" validate:"required"`
	Feedback string `json:"feedback" validate:"max=5000"`
}

// UserRefPayload names a single user.
type UserRefPayload struct {
	UserID string `json:"userId" validate:"required"`
}

func validStatusFilter(status string) bool {
	if status == "" {
		return true
	}
	for _, s := range models.TaskStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// GetAllForProject lists the guarded project's tasks, optionally filtered by ?status=.
func (h *TaskHandler) GetAllForProject(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if !validStatusFilter(status) {
		http.Error(w, "Unknown task status", http.StatusBadRequest)
		return
	}
	tasks, err := h.service.GetTasksForProject(projectFrom(r).ID, status)
	if err != nil {
		respondError(w, err, "retrieve tasks")
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

// Assign distributes the guarded project's pending tasks.
func (h *TaskHandler) Assign(w http.ResponseWriter, r *http.Request) {
	var payload AssignPayload
	if !decodeJSON(w, r, &payload) {
		return
	}
	project := projectFrom(r)
	assigned, err := h.service.AssignTasks(project.ID, payload.AnnotatorIDs, payload.PerAnnotator)
	if err != nil {
		log.Warn().Err(err).Str("project_id", project.ID).Msg("Failed to assign tasks")
		respondError(w, err, "assign tasks")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"assigned": assigned})
}

// GetMine lists the caller's assigned tasks, optionally filtered by ?status=.
func (h *TaskHandler) GetMine(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(w, r)
	if !ok {
		return
	}
	status := r.URL.Query().Get("status")
	if !validStatusFilter(status) {
		http.Error(w, "Unknown task status", http.StatusBadRequest)
		return
	}
	tasks, err := h.service.GetTasksForAnnotator(claims.UserID, status)
	if err != nil {
		respondError(w, err, "retrieve tasks")
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

// GetReviews lists the tasks the caller reviews.
func (h *TaskHandler) GetReviews(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(w, r)
	if !ok {
		return
	}
	tasks, err := h.service.GetTasksForReviewer(claims.UserID)
	if err != nil {
		respondError(w, err, "retrieve reviews")
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

// canManage reports whether the caller manages the task's project.
func (h *TaskHandler) canManage(claims *auth.Claims, task models.Task) bool {
	if !claims.IsManager() {
		return false
	}
	_, err := h.guard.Authorize(claims, task.ProjectID)
	return err == nil
}

// load fetches the {id} task when the caller is its annotator, its reviewer or a manager of its project.
func (h *TaskHandler) load(w http.ResponseWriter, r *http.Request) (*auth.Claims, models.Task, bool) {
	claims, ok := claimsFrom(w, r)
	if !ok {
		return nil, models.Task{}, false
	}
	task, err := h.service.GetTaskByID(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err, "load task")
		return nil, models.Task{}, false
	}
	if task.AssignedTo(claims.UserID) || task.ReviewedBy(claims.UserID) || h.canManage(claims, task) {
		return claims, task, true
	}
	respondError(w, fmt.Errorf("task %s: %w", task.ID, services.ErrForbidden), "load task")
	return nil, models.Task{}, false
}

// loadManaged fetches the {id} task for a manager of its project.
func (h *TaskHandler) loadManaged(w http.ResponseWriter, r *http.Request) (models.Task, bool) {
	claims, task, ok := h.load(w, r)
	if !ok {
		return models.Task{}, false
	}
	if !h.canManage(claims, task) {
		respondError(w, fmt.Errorf("task %s: %w", task.ID, services.ErrForbidden), "load task")
		return models.Task{}, false
	}
	return task, true
}

// Get returns a single task.
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	_, task, ok := h.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// Delete removes a task.
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	task, ok := h.loadManaged(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteTask(task.ID); err != nil {
		respondError(w, err, "delete task")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Submit records the caller's response to their task.
func (h *TaskHandler) Submit(w http.ResponseWriter, r *http.Request) {
	claims, task, ok := h.load(w, r)
	if !ok {
		return
	}
	var payload SubmitPayload
	if !decodeJSON(w, r, &payload) {
		return
	}
	updated, err := h.service.SubmitTask(task.ID, claims.UserID, payload.Response, payload.TimeTakenSeconds)
	if err != nil {
		respondError(w, err, "submit task")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// Review accepts or rejects a submitted task. The caller must be its reviewer or a manager of its project.
func (h *TaskHandler) Review(w http.ResponseWriter, r *http.Request) {
	claims, task, ok := h.load(w, r)
	if !ok {
		return
	}
	if !task.ReviewedBy(claims.UserID) && !h.canManage(claims, task) {
		respondError(w, fmt.Errorf("task %s is not yours to review: %w", task.ID, services.ErrForbidden), "review task")
		return
	}
	var payload ReviewPayload
	if !decodeJSON(w, r, &payload) {
		return
	}
	updated, err := h.service.ReviewTask(task.ID, claims.UserID, *payload.Accept, payload.Feedback)
	if err != nil {
		respondError(w, err, "review task")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// Reassign moves a task to another annotator.
func (h *TaskHandler) Reassign(w http.ResponseWriter, r *http.Request) {
	task, ok := h.loadManaged(w, r)
	if !ok {
		return
	}
	var payload UserRefPayload
	if !decodeJSON(w, r, &payload) {
		return
	}
	updated, err := h.service.ReassignTask(task.ID, payload.UserID)
	if err != nil {
		respondError(w, err, "reassign task")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// SetReviewer names the task's reviewer.
func (h *TaskHandler) SetReviewer(w http.ResponseWriter, r *http.Request) {
	task, ok := h.loadManaged(w, r)
	if !ok {
		return
	}
	var payload UserRefPayload
	if !decodeJSON(w, r, &payload) {
		return
	}
	updated, err := h.service.SetReviewer(task.ID, payload.UserID)
	if err != nil {
		respondError(w, err, "set reviewer")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}
