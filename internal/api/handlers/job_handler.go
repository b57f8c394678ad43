package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/annotation-hub-be/internal/auth"
	"github.com/isdelr/annotation-hub-be/internal/models"
	"github.com/isdelr/annotation-hub-be/internal/services"
)

// JobHandler handles job posts and applications.
type JobHandler struct {
	service services.JobServiceProvider
}

// NewJobHandler creates a new JobHandler.
func NewJobHandler(service services.JobServiceProvider) *JobHandler {
	return &JobHandler{service: service}
}

// JobPostPayload defines the structure for creating and updating job posts.
type JobPostPayload struct {
	Title        string     `json:"title" validate:"required,max=200"`
	Description  string     `json:"description" validate:"max=10000"`
	Compensation string     `json:"compensation" validate:"max=200"`
	Location     string     `json:"location" validate:"max=200"`
	Skills       []string   `json:"skills" validate:"max=30,dive,required,max=60"`
	Status       string     `json:"status" validate:"omitempty,oneof=draft published closed"`
	ExpiresAt    *time.Time `json:"expiresAt"`
}

func (p JobPostPayload) post() models.JobPost {
	return models.JobPost{
		Title:        p.Title,
		Description:  p.Description,
		Compensation: p.Compensation,
		Location:     p.Location,
		Skills:       p.Skills,
		Status:       p.Status,
		ExpiresAt:    p.ExpiresAt,
	}
}

// ApplyPayload is an expert's application.
type ApplyPayload struct {
	CoverLetter string `json:"coverLetter" validate:"max=10000"`
}

// ApplicationStatusPayload changes an application's status.
type ApplicationStatusPayload struct {
	Status string `json:"status" validate:"required,oneof=applied shortlisted rejected hired"`
}

func ownsPost(claims *auth.Claims, post models.JobPost) bool {
	return claims.IsOwner() || post.AuthorID == claims.UserID
}

// GetAll lists published posts, or the caller's own posts with ?mine=true.
func (h *JobHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(w, r)
	if !ok {
		return
	}
	var (
		posts []models.JobPost
		err   error
	)
	if r.URL.Query().Get("mine") == "true" && claims.IsManager() {
		posts, err = h.service.GetJobPostsForAuthor(claims.UserID)
	} else {
		posts, err = h.service.GetPublishedJobPosts()
	}
	if err != nil {
		respondError(w, err, "list job posts")
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

// Create adds a job post authored by the caller. Posts start as drafts unless a status is given.
func (h *JobHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(w, r)
	if !ok {
		return
	}
	var payload JobPostPayload
	if !decodeJSON(w, r, &payload) {
		return
	}
	post := payload.post()
	post.AuthorID = claims.UserID
	created, err := h.service.CreateJobPost(post)
	if err != nil {
		respondError(w, err, "create job post")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// load fetches the {id} post. Unpublished posts are visible to their author and owners only.
func (h *JobHandler) load(w http.ResponseWriter, r *http.Request, manage bool) (*auth.Claims, models.JobPost, bool) {
	claims, ok := claimsFrom(w, r)
	if !ok {
		return nil, models.JobPost{}, false
	}
	post, err := h.service.GetJobPostByID(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err, "load job post")
		return nil, models.JobPost{}, false
	}
	if ownsPost(claims, post) || (!manage && post.Status == models.JobPublished) {
		return claims, post, true
	}
	if !manage {
		respondError(w, fmt.Errorf("job post %s: %w", post.ID, services.ErrNotFound), "load job post")
	} else {
		respondError(w, fmt.Errorf("job post %s: %w", post.ID, services.ErrForbidden), "load job post")
	}
	return nil, models.JobPost{}, false
}

// Get returns one job post.
func (h *JobHandler) Get(w http.ResponseWriter, r *http.Request) {
	_, post, ok := h.load(w, r, false)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// Update edits a job post, including publishing and closing it.
func (h *JobHandler) Update(w http.ResponseWriter, r *http.Request) {
	_, post, ok := h.load(w, r, true)
	if !ok {
		return
	}
	var payload JobPostPayload
	if !decodeJSON(w, r, &payload) {
		return
	}
	next := payload.post()
	if next.Status == "" {
		next.Status = post.Status
	}
	updated, err := h.service.UpdateJobPost(post.ID, next)
	if err != nil {
		respondError(w, err, "update job post")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// Delete removes a job post.
func (h *JobHandler) Delete(w http.ResponseWriter, r *http.Request) {
	_, post, ok := h.load(w, r, true)
	if !ok {
		return
	}
	if err := h.service.DeleteJobPost(post.ID); err != nil {
		respondError(w, err, "delete job post")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Apply records the caller's application to a published post.
func (h *JobHandler) Apply(w http.ResponseWriter, r *http.Request) {
	claims, post, ok := h.load(w, r, false)
	if !ok {
		return
	}
	var payload ApplyPayload
	if !decodeJSON(w, r, &payload) {
		return
	}
	app, err := h.service.Apply(post.ID, claims.UserID, payload.CoverLetter)
	if err != nil {
		respondError(w, err, "apply to job post")
		return
	}
	writeJSON(w, http.StatusCreated, app)
}

// GetApplications lists the applications to a post.
func (h *JobHandler) GetApplications(w http.ResponseWriter, r *http.Request) {
	_, post, ok := h.load(w, r, true)
	if !ok {
		return
	}
	apps, err := h.service.GetApplicationsForJob(post.ID)
	if err != nil {
		respondError(w, err, "list applications")
		return
	}
	writeJSON(w, http.StatusOK, apps)
}

// UpdateApplication changes an application's status. Only the post's author or an owner may do so.
func (h *JobHandler) UpdateApplication(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(w, r)
	if !ok {
		return
	}
	app, err := h.service.GetApplicationByID(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err, "load application")
		return
	}
	post, err := h.service.GetJobPostByID(app.JobPostID)
	if err != nil {
		respondError(w, err, "load job post")
		return
	}
	if !ownsPost(claims, post) {
		respondError(w, fmt.Errorf("application %s: %w", app.ID, services.ErrForbidden), "update application")
		return
	}
	var payload ApplicationStatusPayload
	if !decodeJSON(w, r, &payload) {
		return
	}
	updated, err := h.service.UpdateApplicationStatus(app.ID, payload.Status)
	if err != nil {
		respondError(w, err, "update application")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}
