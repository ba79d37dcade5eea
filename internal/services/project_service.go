package services

import (
	"context"
	"log/slog"
	"strings"

	"github.com/tbeaumont/folio/internal/models"
)

// ProjectRepository defines the data access the project service needs
type ProjectRepository interface {
	GetByID(ctx context.Context, id string) (*models.Project, error)
	GetBySlug(ctx context.Context, slug string) (*models.Project, error)
	List(ctx context.Context, featuredOnly bool) ([]*models.Project, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	Create(ctx context.Context, project *models.Project) (*models.Project, error)
	Update(ctx context.Context, project *models.Project) (*models.Project, error)
	Delete(ctx context.Context, id string) error
}

// ProjectService handles portfolio project CRUD
type ProjectService struct {
	repo     ProjectRepository
	activity ActivityRecorder
	logger   *slog.Logger
}

func NewProjectService(repo ProjectRepository, activity ActivityRecorder, logger *slog.Logger) *ProjectService {
	return &ProjectService{repo: repo, activity: activity, logger: logger}
}

// ProjectInput carries the mutable fields for create/update
type ProjectInput struct {
	Title       string
	Description string
	Tech        []string
	ProjectURL  *string
	RepoURL     *string
	Featured    bool
	SortOrder   int
}

func (s *ProjectService) Get(ctx context.Context, id string) (*models.Project, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *ProjectService) GetBySlug(ctx context.Context, slug string) (*models.Project, error) {
	return s.repo.GetBySlug(ctx, slug)
}

func (s *ProjectService) List(ctx context.Context, featuredOnly bool) ([]*models.Project, error) {
	return s.repo.List(ctx, featuredOnly)
}

func (s *ProjectService) Create(ctx context.Context, adminID string, input ProjectInput) (*models.Project, error) {
	input.Title = strings.TrimSpace(input.Title)
	if input.Title == "" {
		return nil, models.ErrBadRequest
	}

	slug, err := uniqueSlug(ctx, input.Title, s.repo.SlugExists)
	if err != nil {
		s.logger.Error("failed to generate project slug", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	project := &models.Project{
		Title:       input.Title,
		Slug:        slug,
		Description: input.Description,
		Tech:        input.Tech,
		ProjectURL:  input.ProjectURL,
		RepoURL:     input.RepoURL,
		Featured:    input.Featured,
		SortOrder:   input.SortOrder,
	}

	created, err := s.repo.Create(ctx, project)
	if err != nil {
		s.logger.Error("failed to create project", slog.Any("error", err))
		return nil, err
	}

	s.record(ctx, adminID, models.ActivityProjectCreated, "Created project "+created.Title,
		models.ActivityMetadata{"project_id": created.ID, "slug": created.Slug})
	return created, nil
}

func (s *ProjectService) Update(ctx context.Context, adminID, id string, input ProjectInput) (*models.Project, error) {
	project, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	input.Title = strings.TrimSpace(input.Title)
	if input.Title == "" {
		return nil, models.ErrBadRequest
	}

	// Slugs are regenerated only when the title changes, so published URLs
	// stay stable across content edits.
	if input.Title != project.Title {
		slug, err := uniqueSlug(ctx, input.Title, s.repo.SlugExists)
		if err != nil {
			s.logger.Error("failed to generate project slug", slog.Any("error", err))
			return nil, models.ErrInternalServer
		}
		project.Slug = slug
	}

	project.Title = input.Title
	project.Description = input.Description
	project.Tech = input.Tech
	project.ProjectURL = input.ProjectURL
	project.RepoURL = input.RepoURL
	project.Featured = input.Featured
	project.SortOrder = input.SortOrder

	updated, err := s.repo.Update(ctx, project)
	if err != nil {
		s.logger.Error("failed to update project", slog.String("project_id", id), slog.Any("error", err))
		return nil, err
	}

	s.record(ctx, adminID, models.ActivityProjectUpdated, "Updated project "+updated.Title,
		models.ActivityMetadata{"project_id": updated.ID})
	return updated, nil
}

func (s *ProjectService) Delete(ctx context.Context, adminID, id string) error {
	project, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		s.logger.Error("failed to delete project", slog.String("project_id", id), slog.Any("error", err))
		return err
	}

	s.record(ctx, adminID, models.ActivityProjectDeleted, "Deleted project "+project.Title,
		models.ActivityMetadata{"project_id": id})
	return nil
}

func (s *ProjectService) record(ctx context.Context, adminID, activityType, description string, metadata models.ActivityMetadata) {
	activity := &models.Activity{
		AdminID:      &adminID,
		ActivityType: activityType,
		Description:  description,
		Metadata:     metadata,
	}
	if err := s.activity.Record(ctx, activity); err != nil {
		s.logger.Warn("failed to record activity", slog.String("activity_type", activityType), slog.Any("error", err))
	}
}
