package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tbeaumont/folio/internal/models"
	pkghttp "github.com/tbeaumont/folio/pkg/http"
)

// SettingsManager defines the settings operations the handler needs
type SettingsManager interface {
	GetAll(ctx context.Context) (map[string]string, error)
	Update(ctx context.Context, adminID string, values map[string]string) error
}

// SettingsHandler handles site settings HTTP requests
type SettingsHandler struct {
	service  SettingsManager
	sessions SessionReader
}

// NewSettingsHandler creates a new SettingsHandler
func NewSettingsHandler(service SettingsManager, sessions SessionReader) *SettingsHandler {
	return &SettingsHandler{service: service, sessions: sessions}
}

// GetSettings returns all site settings as a key/value map
func (h *SettingsHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.service.GetAll(r.Context())
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]interface{}{"settings": settings})
}

// UpdateSettings applies a batch of setting changes
func (h *SettingsHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var values map[string]string
	if err := json.NewDecoder(r.Body).Decode(&values); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	err := h.service.Update(r.Context(), adminIDFromSession(r, h.sessions), values)
	if err != nil {
		if errors.Is(err, models.ErrBadRequest) {
			pkghttp.WriteBadRequest(w, err.Error())
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
