package handlers

import (
	"net/http"
	"time"

	"github.com/isdelr/annotation-hub-be/internal/models"
	"github.com/isdelr/annotation-hub-be/internal/services"
	"github.com/rs/zerolog/log"
)

// ProjectHandler handles HTTP requests for projects.
type ProjectHandler struct {
	service services.ProjectServiceProvider
}

// NewProjectHandler creates a new ProjectHandler.
func NewProjectHandler(service services.ProjectServiceProvider) *ProjectHandler {
	return &ProjectHandler{service: service}
}

// ProjectPayload defines the structure for creating and updating projects.
type ProjectPayload struct {
	Name            string     `json:"name" validate:"required,max=200"`
	Description     string     `json:"description" validate:"max=5000"`
	PayPerTaskCents int64      `json:"payPerTaskCents" validate:"min=0"`
	DueDate         *time.Time `json:"dueDate"`
	Status          string     `json:"status" validate:"omitempty,oneof=active archived"`
}

func (p ProjectPayload) project() models.Project {
	return models.Project{
		Name:            p.Name,
		Description:     p.Description,
		PayPerTaskCents: p.PayPerTaskCents,
		DueDate:         p.DueDate,
	}
}

// GetAll lists every project for owners and the caller's projects for managers.
func (h *ProjectHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(w, r)
	if !ok {
		return
	}
	var (
		projects []models.Project
		err      error
	)
	if claims.IsOwner() {
		projects, err = h.service.GetAllProjects()
	} else {
		projects, err = h.service.GetProjectsForManager(claims.UserID)
	}
	if err != nil {
		respondError(w, err, "list projects")
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

// Create handles creating a project managed by the caller.
func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(w, r)
	if !ok {
		return
	}
	var payload ProjectPayload
	if !decodeJSON(w, r, &payload) {
		return
	}

	project := payload.project()
	project.ManagerID = claims.UserID
	created, err := h.service.CreateProject(project)
	if err != nil {
		log.Error().Err(err).Str("user_id", claims.UserID).Msg("Failed to create project")
		respondError(w, err, "create project")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// Get returns the project loaded by the project guard.
func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, projectFrom(r))
}

// Update handles editing a project and changing its status.
func (h *ProjectHandler) Update(w http.ResponseWriter, r *http.Request) {
	project := projectFrom(r)
	var payload ProjectPayload
	if !decodeJSON(w, r, &payload) {
		return
	}

	updated, err := h.service.UpdateProject(project.ID, payload.project())
	if err != nil {
		respondError(w, err, "update project")
		return
	}
	if payload.Status != "" && payload.Status != updated.Status {
		if err := h.service.SetProjectStatus(project.ID, payload.Status); err != nil {
			respondError(w, err, "update project status")
			return
		}
		updated.Status = payload.Status
	}
	writeJSON(w, http.StatusOK, updated)
}

// Delete removes a project and everything in it.
func (h *ProjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	project := projectFrom(r)
	if err := h.service.DeleteProject(project.ID); err != nil {
		log.Error().Err(err).Str("project_id", project.ID).Msg("Failed to delete project")
		respondError(w, err, "delete project")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
