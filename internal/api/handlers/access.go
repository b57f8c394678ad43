package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/annotation-hub-be/internal/auth"
	"github.com/isdelr/annotation-hub-be/internal/models"
	"github.com/isdelr/annotation-hub-be/internal/services"
	"github.com/rs/zerolog/log"
)

type projectKey struct{}

// ProjectGuard restricts project resources to the project's manager and owners.
type ProjectGuard struct {
	projects services.ProjectServiceProvider
}

// NewProjectGuard creates a new ProjectGuard.
func NewProjectGuard(projects services.ProjectServiceProvider) *ProjectGuard {
	return &ProjectGuard{projects: projects}
}

// Authorize loads the project and checks that the caller may manage it.
func (g *ProjectGuard) Authorize(claims *auth.Claims, projectID string) (models.Project, error) {
	project, err := g.projects.GetProjectByID(projectID)
	if err != nil {
		return models.Project{}, err
	}
	if claims.IsOwner() || project.ManagerID == claims.UserID {
		return project, nil
	}
	return models.Project{}, fmt.Errorf("project %s: %w", projectID, services.ErrForbidden)
}

// Middleware authorizes the {id} project of the route and stores it in the request context.
func (g *ProjectGuard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := claimsFrom(w, r)
		if !ok {
			return
		}
		project, err := g.Authorize(claims, chi.URLParam(r, "id"))
		if err != nil {
			respondError(w, err, "load project")
			return
		}
		ctx := context.WithValue(r.Context(), projectKey{}, project)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// projectFrom returns the project stored by ProjectGuard.Middleware.
func projectFrom(r *http.Request) models.Project {
	project, _ := r.Context().Value(projectKey{}).(models.Project)
	return project
}

// claimsFrom returns the caller's claims or writes a 401.
func claimsFrom(w http.ResponseWriter, r *http.Request) (*auth.Claims, bool) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		log.Error().Str("path", r.URL.Path).Msg("Could not retrieve user claims from context")
		http.Error(w, "Could not retrieve user from token", http.StatusUnauthorized)
		return nil, false
	}
	return claims, true
}
