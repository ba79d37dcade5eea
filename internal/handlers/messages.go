package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/tbeaumont/folio/internal/models"
	pkghttp "github.com/tbeaumont/folio/pkg/http"
)

// ContactManager defines the contact-message operations the handler needs
type ContactManager interface {
	Submit(ctx context.Context, name, email, subject, body, ipAddress string) (*models.Message, error)
	Get(ctx context.Context, id string) (*models.Message, error)
	List(ctx context.Context, unreadOnly bool, limit, offset int) ([]*models.Message, error)
	MarkRead(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

// MessageHandler handles the public contact form and the admin inbox
type MessageHandler struct {
	service  ContactManager
	ipConfig *pkghttp.IPConfig
}

// NewMessageHandler creates a new MessageHandler
func NewMessageHandler(service ContactManager, ipConfig *pkghttp.IPConfig) *MessageHandler {
	return &MessageHandler{service: service, ipConfig: ipConfig}
}

// Request/Response DTOs

// ContactRequest represents a public contact-form submission
type ContactRequest struct {
	Name    string `json:"name" validate:"required,max=100"`
	Email   string `json:"email" validate:"required,email"`
	Subject string `json:"subject" validate:"required,max=200"`
	Body    string `json:"body" validate:"required,max=10000"`
}

// MessageResponse represents a message in the admin inbox
type MessageResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
	Read      bool   `json:"read"`
	CreatedAt string `json:"created_at"`
}

// ListMessagesResponse represents a page of inbox messages
type ListMessagesResponse struct {
	Messages []*MessageResponse `json:"messages"`
	Total    int                `json:"total"`
}

// messageModelToResponse converts a message model to a response DTO
func messageModelToResponse(message *models.Message) *MessageResponse {
	return &MessageResponse{
		ID:        message.ID,
		Name:      message.Name,
		Email:     message.Email,
		Subject:   message.Subject,
		Body:      message.Body,
		Read:      message.Read,
		CreatedAt: message.CreatedAt.Format(time.RFC3339),
	}
}

// SubmitMessage accepts a public contact-form submission
func (h *MessageHandler) SubmitMessage(w http.ResponseWriter, r *http.Request) {
	var req ContactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	ipAddress := pkghttp.ExtractClientIP(r, h.ipConfig)

	_, err := h.service.Submit(r.Context(), req.Name, req.Email, req.Subject, req.Body, ipAddress)
	if err != nil {
		if errors.Is(err, models.ErrBadRequest) {
			pkghttp.WriteBadRequest(w, "Invalid message")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusAccepted, map[string]string{
		"message": "Thanks! Your message has been sent.",
	})
}

// ListMessages serves the admin inbox. ?unread=true filters to unread.
func (h *MessageHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	unreadOnly := r.URL.Query().Get("unread") == "true"
	limit, offset := parsePagination(r)

	messages, err := h.service.List(r.Context(), unreadOnly, limit, offset)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	response := &ListMessagesResponse{
		Messages: make([]*MessageResponse, len(messages)),
		Total:    len(messages),
	}
	for i, message := range messages {
		response.Messages[i] = messageModelToResponse(message)
	}

	pkghttp.WriteJSON(w, http.StatusOK, response)
}

// GetMessage serves a single inbox message
func (h *MessageHandler) GetMessage(w http.ResponseWriter, r *http.Request) {
	message, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeMessageError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, messageModelToResponse(message))
}

// MarkMessageRead marks an inbox message as read
func (h *MessageHandler) MarkMessageRead(w http.ResponseWriter, r *http.Request) {
	if err := h.service.MarkRead(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeMessageError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DeleteMessage deletes an inbox message
func (h *MessageHandler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeMessageError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func writeMessageError(w http.ResponseWriter, err error) {
	if errors.Is(err, models.ErrNotFound) {
		pkghttp.WriteNotFound(w, "Message not found")
		return
	}
	pkghttp.WriteInternalError(w, "Internal server error")
}
