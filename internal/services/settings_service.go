package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tbeaumont/folio/internal/models"
)

// SettingRepository defines the data access the settings service needs
type SettingRepository interface {
	Get(ctx context.Context, key string) (*models.Setting, error)
	GetAll(ctx context.Context) (map[string]string, error)
	Upsert(ctx context.Context, key, value string) error
}

// Keys the admin UI is allowed to write. Anything else is rejected so a
// compromised session cannot stash arbitrary data in the settings table.
var allowedSettingKeys = map[string]bool{
	"site_title":       true,
	"site_description": true,
	"owner_name":       true,
	"owner_tagline":    true,
	"github_url":       true,
	"linkedin_url":     true,
	"contact_email":    true,
	"analytics_id":     true,
}

type SettingsService struct {
	repo     SettingRepository
	activity ActivityRecorder
	logger   *slog.Logger
}

func NewSettingsService(repo SettingRepository, activity ActivityRecorder, logger *slog.Logger) *SettingsService {
	return &SettingsService{repo: repo, activity: activity, logger: logger}
}

func (s *SettingsService) Get(ctx context.Context, key string) (*models.Setting, error) {
	return s.repo.Get(ctx, key)
}

func (s *SettingsService) GetAll(ctx context.Context) (map[string]string, error) {
	return s.repo.GetAll(ctx)
}

// Update applies a batch of setting changes. Unknown keys fail the whole
// batch before anything is written.
func (s *SettingsService) Update(ctx context.Context, adminID string, values map[string]string) error {
	if len(values) == 0 {
		return models.ErrBadRequest
	}

	for key := range values {
		if !allowedSettingKeys[key] {
			return fmt.Errorf("%w: unknown setting %q", models.ErrBadRequest, key)
		}
	}

	changed := make([]string, 0, len(values))
	for key, value := range values {
		if err := s.repo.Upsert(ctx, key, strings.TrimSpace(value)); err != nil {
			return err
		}
		changed = append(changed, key)
	}

	activity := &models.Activity{
		AdminID:      &adminID,
		ActivityType: models.ActivitySettingsUpdated,
		Description:  "Updated site settings",
		Metadata:     models.ActivityMetadata{"keys": changed},
	}
	if err := s.activity.Record(ctx, activity); err != nil {
		s.logger.Warn("failed to record activity", slog.Any("error", err))
	}

	return nil
}
