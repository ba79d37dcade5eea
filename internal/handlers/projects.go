package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/tbeaumont/folio/internal/auth"
	"github.com/tbeaumont/folio/internal/models"
	"github.com/tbeaumont/folio/internal/services"
	pkghttp "github.com/tbeaumont/folio/pkg/http"
)

// ProjectManager defines the project operations the handler needs
type ProjectManager interface {
	Get(ctx context.Context, id string) (*models.Project, error)
	GetBySlug(ctx context.Context, slug string) (*models.Project, error)
	List(ctx context.Context, featuredOnly bool) ([]*models.Project, error)
	Create(ctx context.Context, adminID string, input services.ProjectInput) (*models.Project, error)
	Update(ctx context.Context, adminID, id string, input services.ProjectInput) (*models.Project, error)
	Delete(ctx context.Context, adminID, id string) error
}

// SessionReader resolves the acting admin from the request's session
type SessionReader interface {
	Session(sessionID string) (*models.Session, bool)
}

// ProjectHandler handles portfolio project HTTP requests
type ProjectHandler struct {
	service  ProjectManager
	sessions SessionReader
}

// NewProjectHandler creates a new ProjectHandler
func NewProjectHandler(service ProjectManager, sessions SessionReader) *ProjectHandler {
	return &ProjectHandler{service: service, sessions: sessions}
}

// Request/Response DTOs

// ProjectRequest represents the request body for creating or updating a project
type ProjectRequest struct {
	Title       string   `json:"title" validate:"required,max=200"`
	Description string   `json:"description" validate:"max=5000"`
	Tech        []string `json:"tech" validate:"max=20,dive,max=50"`
	ProjectURL  *string  `json:"project_url" validate:"omitempty,url"`
	RepoURL     *string  `json:"repo_url" validate:"omitempty,url"`
	Featured    bool     `json:"featured"`
	SortOrder   int      `json:"sort_order"`
}

// ProjectResponse represents a project in the HTTP response
type ProjectResponse struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Slug        string   `json:"slug"`
	Description string   `json:"description"`
	Tech        []string `json:"tech"`
	ProjectURL  *string  `json:"project_url,omitempty"`
	RepoURL     *string  `json:"repo_url,omitempty"`
	Featured    bool     `json:"featured"`
	SortOrder   int      `json:"sort_order"`
	CreatedAt   string   `json:"created_at"`
	UpdatedAt   string   `json:"updated_at"`
}

// ListProjectsResponse represents a list of projects
type ListProjectsResponse struct {
	Projects []*ProjectResponse `json:"projects"`
	Total    int                `json:"total"`
}

// projectModelToResponse converts a project model to a response DTO
func projectModelToResponse(project *models.Project) *ProjectResponse {
	tech := project.Tech
	if tech == nil {
		tech = []string{}
	}
	return &ProjectResponse{
		ID:          project.ID,
		Title:       project.Title,
		Slug:        project.Slug,
		Description: project.Description,
		Tech:        tech,
		ProjectURL:  project.ProjectURL,
		RepoURL:     project.RepoURL,
		Featured:    project.Featured,
		SortOrder:   project.SortOrder,
		CreatedAt:   project.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   project.UpdatedAt.Format(time.RFC3339),
	}
}

func (r ProjectRequest) toInput() services.ProjectInput {
	return services.ProjectInput{
		Title:       r.Title,
		Description: r.Description,
		Tech:        r.Tech,
		ProjectURL:  r.ProjectURL,
		RepoURL:     r.RepoURL,
		Featured:    r.Featured,
		SortOrder:   r.SortOrder,
	}
}

// adminIDFromSession resolves the acting admin for activity attribution
func adminIDFromSession(r *http.Request, sessions SessionReader) string {
	session, ok := sessions.Session(auth.SessionIDFromContext(r.Context()))
	if !ok {
		return ""
	}
	return session.AdminID
}

// ListProjects serves the public project listing. ?featured=true filters to
// featured projects only.
func (h *ProjectHandler) ListProjects(w http.ResponseWriter, r *http.Request) {
	featuredOnly := r.URL.Query().Get("featured") == "true"

	projects, err := h.service.List(r.Context(), featuredOnly)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	response := &ListProjectsResponse{
		Projects: make([]*ProjectResponse, len(projects)),
		Total:    len(projects),
	}
	for i, project := range projects {
		response.Projects[i] = projectModelToResponse(project)
	}

	pkghttp.WriteJSON(w, http.StatusOK, response)
}

// GetProjectBySlug serves a single public project page
func (h *ProjectHandler) GetProjectBySlug(w http.ResponseWriter, r *http.Request) {
	project, err := h.service.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "Project not found")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, projectModelToResponse(project))
}

// CreateProject creates a new project
func (h *ProjectHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req ProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	project, err := h.service.Create(r.Context(), adminIDFromSession(r, h.sessions), req.toInput())
	if err != nil {
		writeProjectError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, projectModelToResponse(project))
}

// UpdateProject updates an existing project
func (h *ProjectHandler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	var req ProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	project, err := h.service.Update(r.Context(), adminIDFromSession(r, h.sessions), chi.URLParam(r, "id"), req.toInput())
	if err != nil {
		writeProjectError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, projectModelToResponse(project))
}

// DeleteProject deletes a project
func (h *ProjectHandler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	err := h.service.Delete(r.Context(), adminIDFromSession(r, h.sessions), chi.URLParam(r, "id"))
	if err != nil {
		writeProjectError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func writeProjectError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteNotFound(w, "Project not found")
	case errors.Is(err, models.ErrBadRequest):
		pkghttp.WriteBadRequest(w, "Invalid project")
	case errors.Is(err, models.ErrConflict):
		pkghttp.WriteConflict(w, "Project already exists")
	default:
		pkghttp.WriteInternalError(w, "Internal server error")
	}
}
