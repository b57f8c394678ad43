package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/annotation-hub-be/internal/models"
	"github.com/isdelr/annotation-hub-be/internal/services"
	"github.com/rs/zerolog/log"
)

// TemplateHandler handles HTTP requests related to templates.
type TemplateHandler struct {
	service services.TemplateServiceProvider
	guard   *ProjectGuard
}

// NewTemplateHandler creates a new TemplateHandler.
func NewTemplateHandler(service services.TemplateServiceProvider, guard *ProjectGuard) *TemplateHandler {
	return &TemplateHandler{service: service, guard: guard}
}

// TemplatePayload defines the structure for creating and updating templates.
type TemplatePayload struct {
	Name         string          `json:"name" validate:"required,max=200"`
	Type         string          `json:"type" validate:"required,oneof=test training production"`
	Content      json.RawMessage `json:"content" validate:"required"`
	Private      bool            `json:"private"`
	TimerSeconds int             `json:"timerSeconds" validate:"min=0,max=86400"`
}

func (p TemplatePayload) template() models.Template {
	return models.Template{
		Name:         p.Name,
		Type:         p.Type,
		Content:      p.Content,
		Private:      p.Private,
		TimerSeconds: p.TimerSeconds,
	}
}

// GetAllForProject lists the templates of the guarded project.
func (h *TemplateHandler) GetAllForProject(w http.ResponseWriter, r *http.Request) {
	templates, err := h.service.GetTemplatesForProject(projectFrom(r).ID)
	if err != nil {
		respondError(w, err, "retrieve templates")
		return
	}
	writeJSON(w, http.StatusOK, templates)
}

// Create handles the request to create a new template in the guarded project.
func (h *TemplateHandler) Create(w http.ResponseWriter, r *http.Request) {
	var payload TemplatePayload
	if !decodeJSON(w, r, &payload) {
		return
	}
	template := payload.template()
	template.ProjectID = projectFrom(r).ID

	created, err := h.service.CreateTemplate(template)
	if err != nil {
		log.Warn().Err(err).Str("project_id", template.ProjectID).Msg("Failed to create template")
		respondError(w, err, "create template")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// Import creates a template from a YAML document body.
func (h *TemplateHandler) Import(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	created, err := h.service.ImportTemplateYAML(projectFrom(r).ID, data)
	if err != nil {
		respondError(w, err, "import template")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// load fetches the {id} template. Managers of its project see everything, annotators only public templates.
func (h *TemplateHandler) load(w http.ResponseWriter, r *http.Request, manage bool) (models.Template, bool) {
	claims, ok := claimsFrom(w, r)
	if !ok {
		return models.Template{}, false
	}
	id := chi.URLParam(r, "id")
	template, err := h.service.GetTemplateByID(id)
	if err != nil {
		respondError(w, err, "load template")
		return models.Template{}, false
	}
	if !manage && !claims.IsManager() && !template.Private {
		return template, true
	}
	if _, err := h.guard.Authorize(claims, template.ProjectID); err != nil {
		respondError(w, err, "load template")
		return models.Template{}, false
	}
	return template, true
}

// Get handles the request to get a single template by its ID.
func (h *TemplateHandler) Get(w http.ResponseWriter, r *http.Request) {
	template, ok := h.load(w, r, false)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, template)
}

// Update handles the request to update an existing template.
func (h *TemplateHandler) Update(w http.ResponseWriter, r *http.Request) {
	template, ok := h.load(w, r, true)
	if !ok {
		return
	}
	var payload TemplatePayload
	if !decodeJSON(w, r, &payload) {
		return
	}

	updated, err := h.service.UpdateTemplate(template.ID, payload.template())
	if err != nil {
		log.Error().Err(err).Str("template_id", template.ID).Msg("Failed to update template")
		respondError(w, err, "update template")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// Delete handles the request to delete a template.
func (h *TemplateHandler) Delete(w http.ResponseWriter, r *http.Request) {
	template, ok := h.load(w, r, true)
	if !ok {
		return
	}
	if err := h.service.DeleteTemplate(template.ID); err != nil {
		log.Error().Err(err).Str("template_id", template.ID).Msg("Failed to delete template")
		respondError(w, err, "delete template")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Export returns the template as a YAML download.
func (h *TemplateHandler) Export(w http.ResponseWriter, r *http.Request) {
	template, ok := h.load(w, r, true)
	if !ok {
		return
	}
	data, err := h.service.ExportTemplateYAML(template.ID)
	if err != nil {
		respondError(w, err, "export template")
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="template-%s.yaml"`, template.ID))
	w.Write(data)
}
