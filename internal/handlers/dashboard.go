package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/tbeaumont/folio/internal/models"
	"github.com/tbeaumont/folio/internal/services"
	pkghttp "github.com/tbeaumont/folio/pkg/http"
)

// DashboardReader defines the dashboard operations the handler needs
type DashboardReader interface {
	Stats(ctx context.Context) (*services.DashboardStats, error)
	RecentActivity(ctx context.Context, limit int) ([]*models.Activity, error)
}

// DashboardHandler serves the admin landing page data
type DashboardHandler struct {
	service DashboardReader
}

// NewDashboardHandler creates a new DashboardHandler
func NewDashboardHandler(service DashboardReader) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// ActivityResponse represents one activity feed entry
type ActivityResponse struct {
	ID           string                  `json:"id"`
	AdminID      *string                 `json:"admin_id,omitempty"`
	ActivityType string                  `json:"activity_type"`
	Description  string                  `json:"description"`
	Metadata     models.ActivityMetadata `json:"metadata,omitempty"`
	CreatedAt    string                  `json:"created_at"`
}

// GetStats returns content counts for the dashboard cards
func (h *DashboardHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, stats)
}

// GetActivity returns the recent activity feed
func (h *DashboardHandler) GetActivity(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}

	activities, err := h.service.RecentActivity(r.Context(), limit)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	response := make([]*ActivityResponse, len(activities))
	for i, activity := range activities {
		response[i] = &ActivityResponse{
			ID:           activity.ID,
			AdminID:      activity.AdminID,
			ActivityType: activity.ActivityType,
			Description:  activity.Description,
			Metadata:     activity.Metadata,
			CreatedAt:    activity.CreatedAt.Format(time.RFC3339),
		}
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]interface{}{"activity": response})
}
