package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/tbeaumont/folio/internal/models"
	"github.com/tbeaumont/folio/internal/services"
	pkghttp "github.com/tbeaumont/folio/pkg/http"
)

// BlogManager defines the blog operations the handler needs
type BlogManager interface {
	Get(ctx context.Context, id string) (*models.Post, error)
	GetPublishedBySlug(ctx context.Context, slug string) (*models.Post, error)
	List(ctx context.Context, publishedOnly bool, limit, offset int) ([]*models.Post, error)
	Create(ctx context.Context, adminID string, input services.PostInput) (*models.Post, error)
	Update(ctx context.Context, adminID, id string, input services.PostInput) (*models.Post, error)
	SetPublished(ctx context.Context, adminID, id string, published bool) (*models.Post, error)
	Delete(ctx context.Context, adminID, id string) error
}

// PostHandler handles blog post HTTP requests
type PostHandler struct {
	service  BlogManager
	sessions SessionReader
}

// NewPostHandler creates a new PostHandler
func NewPostHandler(service BlogManager, sessions SessionReader) *PostHandler {
	return &PostHandler{service: service, sessions: sessions}
}

// Request/Response DTOs

// PostRequest represents the request body for creating or updating a post
type PostRequest struct {
	Title   string   `json:"title" validate:"required,max=200"`
	Excerpt string   `json:"excerpt" validate:"max=500"`
	Body    string   `json:"body" validate:"required"`
	Tags    []string `json:"tags" validate:"max=10,dive,max=40"`
}

// PublishRequest represents the request body for publishing or unpublishing
type PublishRequest struct {
	Published bool `json:"published"`
}

// PostResponse represents a post in the HTTP response
type PostResponse struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Slug        string   `json:"slug"`
	Excerpt     string   `json:"excerpt"`
	Body        string   `json:"body,omitempty"`
	Tags        []string `json:"tags"`
	Published   bool     `json:"published"`
	PublishedAt *string  `json:"published_at,omitempty"`
	CreatedAt   string   `json:"created_at"`
	UpdatedAt   string   `json:"updated_at"`
}

// ListPostsResponse represents a list of posts
type ListPostsResponse struct {
	Posts []*PostResponse `json:"posts"`
	Total int             `json:"total"`
}

// postModelToResponse converts a post model to a response DTO. Listing
// responses omit the body to keep payloads small.
func postModelToResponse(post *models.Post, includeBody bool) *PostResponse {
	tags := post.Tags
	if tags == nil {
		tags = []string{}
	}
	resp := &PostResponse{
		ID:        post.ID,
		Title:     post.Title,
		Slug:      post.Slug,
		Excerpt:   post.Excerpt,
		Tags:      tags,
		Published: post.Published,
		CreatedAt: post.CreatedAt.Format(time.RFC3339),
		UpdatedAt: post.UpdatedAt.Format(time.RFC3339),
	}
	if includeBody {
		resp.Body = post.Body
	}
	if post.PublishedAt != nil {
		published := post.PublishedAt.Format(time.RFC3339)
		resp.PublishedAt = &published
	}
	return resp
}

// parsePagination reads limit/offset query parameters with sane defaults
func parsePagination(r *http.Request) (limit, offset int) {
	limit = 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			offset = parsed
		}
	}
	return limit, offset
}

// ListPublishedPosts serves the public blog index
func (h *PostHandler) ListPublishedPosts(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	posts, err := h.service.List(r.Context(), true, limit, offset)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	writePostList(w, posts)
}

// GetPublishedPost serves a single public post; drafts are not found here
func (h *PostHandler) GetPublishedPost(w http.ResponseWriter, r *http.Request) {
	post, err := h.service.GetPublishedBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "Post not found")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, postModelToResponse(post, true))
}

// ListAllPosts serves the admin post index, drafts included
func (h *PostHandler) ListAllPosts(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	posts, err := h.service.List(r.Context(), false, limit, offset)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	writePostList(w, posts)
}

// GetPost serves a single post for editing, draft or published
func (h *PostHandler) GetPost(w http.ResponseWriter, r *http.Request) {
	post, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writePostError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, postModelToResponse(post, true))
}

// CreatePost creates a new draft post
func (h *PostHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	var req PostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	post, err := h.service.Create(r.Context(), adminIDFromSession(r, h.sessions), services.PostInput{
		Title:   req.Title,
		Excerpt: req.Excerpt,
		Body:    req.Body,
		Tags:    req.Tags,
	})
	if err != nil {
		writePostError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, postModelToResponse(post, true))
}

// UpdatePost updates a post's content
func (h *PostHandler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	var req PostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	post, err := h.service.Update(r.Context(), adminIDFromSession(r, h.sessions), chi.URLParam(r, "id"), services.PostInput{
		Title:   req.Title,
		Excerpt: req.Excerpt,
		Body:    req.Body,
		Tags:    req.Tags,
	})
	if err != nil {
		writePostError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, postModelToResponse(post, true))
}

// PublishPost publishes or unpublishes a post
func (h *PostHandler) PublishPost(w http.ResponseWriter, r *http.Request) {
	var req PublishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	post, err := h.service.SetPublished(r.Context(), adminIDFromSession(r, h.sessions), chi.URLParam(r, "id"), req.Published)
	if err != nil {
		writePostError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, postModelToResponse(post, true))
}

// DeletePost deletes a post
func (h *PostHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	err := h.service.Delete(r.Context(), adminIDFromSession(r, h.sessions), chi.URLParam(r, "id"))
	if err != nil {
		writePostError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func writePostList(w http.ResponseWriter, posts []*models.Post) {
	response := &ListPostsResponse{
		Posts: make([]*PostResponse, len(posts)),
		Total: len(posts),
	}
	for i, post := range posts {
		response.Posts[i] = postModelToResponse(post, false)
	}
	pkghttp.WriteJSON(w, http.StatusOK, response)
}

func writePostError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteNotFound(w, "Post not found")
	case errors.Is(err, models.ErrBadRequest):
		pkghttp.WriteBadRequest(w, "Invalid post")
	default:
		pkghttp.WriteInternalError(w, "Internal server error")
	}
}
