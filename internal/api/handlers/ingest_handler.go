package handlers

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/annotation-hub-be/internal/services"
	"github.com/isdelr/annotation-hub-be/internal/worker"
	"github.com/rs/zerolog/log"
)

// IngestHandler handles CSV ingestion jobs.
type IngestHandler struct {
	service    services.IngestServiceProvider
	dispatcher worker.Dispatcher
}

// NewIngestHandler creates a new IngestHandler.
func NewIngestHandler(service services.IngestServiceProvider, dispatcher worker.Dispatcher) *IngestHandler {
	return &IngestHandler{service: service, dispatcher: dispatcher}
}

// IngestPayload names the source file and the template its rows are rendered with.
type IngestPayload struct {
	TemplateID string `json:"templateId" validate:"required"`
	URL        string `json:"url" validate:"required,max=2048"`
}

// Create queues an ingest job for the guarded project and dispatches it.
func (h *IngestHandler) Create(w http.ResponseWriter, r *http.Request) {
	var payload IngestPayload
	if !decodeJSON(w, r, &payload) {
		return
	}
	project := projectFrom(r)
	job, err := h.service.CreateJob(project.ID, payload.TemplateID, payload.URL)
	if err != nil {
		respondError(w, err, "create ingest job")
		return
	}
	if err := h.dispatcher.Dispatch(r.Context(), job.ID); err != nil {
		log.Error().Err(err).Str("job_id", job.ID).Msg("Failed to dispatch ingest job")
		http.Error(w, "Failed to dispatch ingest job", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusAccepted, job)
}

// GetAllForProject lists the guarded project's ingest jobs.
func (h *IngestHandler) GetAllForProject(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.service.GetJobsForProject(projectFrom(r).ID)
	if err != nil {
		respondError(w, err, "retrieve ingest jobs")
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}

// Get returns one ingest job of the guarded project.
func (h *IngestHandler) Get(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobId")
	job, err := h.service.GetJobByID(jobID)
	if err == nil && job.ProjectID != projectFrom(r).ID {
		err = fmt.Errorf("ingest job %s: %w", jobID, services.ErrNotFound)
	}
	if err != nil {
		respondError(w, err, "load ingest job")
		return
	}
	writeJSON(w, http.StatusOK, job)
}
