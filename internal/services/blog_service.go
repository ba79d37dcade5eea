package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/tbeaumont/folio/internal/models"
)

// PostRepository defines the data access the blog service needs
type PostRepository interface {
	GetByID(ctx context.Context, id string) (*models.Post, error)
	GetBySlug(ctx context.Context, slug string) (*models.Post, error)
	List(ctx context.Context, publishedOnly bool, limit, offset int) ([]*models.Post, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	Create(ctx context.Context, post *models.Post) (*models.Post, error)
	Update(ctx context.Context, post *models.Post) (*models.Post, error)
	Delete(ctx context.Context, id string) error
}

// BlogService handles blog post CRUD and publishing
type BlogService struct {
	repo     PostRepository
	activity ActivityRecorder
	logger   *slog.Logger
}

func NewBlogService(repo PostRepository, activity ActivityRecorder, logger *slog.Logger) *BlogService {
	return &BlogService{repo: repo, activity: activity, logger: logger}
}

// PostInput carries the mutable fields for create/update
type PostInput struct {
	Title   string
	Excerpt string
	Body    string
	Tags    []string
}

func (s *BlogService) Get(ctx context.Context, id string) (*models.Post, error) {
	return s.repo.GetByID(ctx, id)
}

// GetPublishedBySlug serves the public site; drafts 404 here.
func (s *BlogService) GetPublishedBySlug(ctx context.Context, slug string) (*models.Post, error) {
	post, err := s.repo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if !post.Published {
		return nil, models.ErrNotFound
	}
	return post, nil
}

func (s *BlogService) List(ctx context.Context, publishedOnly bool, limit, offset int) ([]*models.Post, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, publishedOnly, limit, offset)
}

func (s *BlogService) Create(ctx context.Context, adminID string, input PostInput) (*models.Post, error) {
	input.Title = strings.TrimSpace(input.Title)
	if input.Title == "" {
		return nil, models.ErrBadRequest
	}

	slug, err := uniqueSlug(ctx, input.Title, s.repo.SlugExists)
	if err != nil {
		s.logger.Error("failed to generate post slug", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	post := &models.Post{
		Title:   input.Title,
		Slug:    slug,
		Excerpt: input.Excerpt,
		Body:    input.Body,
		Tags:    input.Tags,
	}

	created, err := s.repo.Create(ctx, post)
	if err != nil {
		s.logger.Error("failed to create post", slog.Any("error", err))
		return nil, err
	}

	s.record(ctx, adminID, models.ActivityPostCreated, "Created draft "+created.Title,
		models.ActivityMetadata{"post_id": created.ID, "slug": created.Slug})
	return created, nil
}

func (s *BlogService) Update(ctx context.Context, adminID, id string, input PostInput) (*models.Post, error) {
	post, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	input.Title = strings.TrimSpace(input.Title)
	if input.Title == "" {
		return nil, models.ErrBadRequest
	}

	// Published posts keep their slug; draft slugs follow the title.
	if input.Title != post.Title && !post.Published {
		slug, err := uniqueSlug(ctx, input.Title, s.repo.SlugExists)
		if err != nil {
			s.logger.Error("failed to generate post slug", slog.Any("error", err))
			return nil, models.ErrInternalServer
		}
		post.Slug = slug
	}

	post.Title = input.Title
	post.Excerpt = input.Excerpt
	post.Body = input.Body
	post.Tags = input.Tags

	updated, err := s.repo.Update(ctx, post)
	if err != nil {
		s.logger.Error("failed to update post", slog.String("post_id", id), slog.Any("error", err))
		return nil, err
	}

	s.record(ctx, adminID, models.ActivityPostUpdated, "Updated post "+updated.Title,
		models.ActivityMetadata{"post_id": updated.ID})
	return updated, nil
}

// SetPublished publishes or unpublishes a post. PublishedAt records the
// first publication and survives later unpublish/republish cycles.
func (s *BlogService) SetPublished(ctx context.Context, adminID, id string, published bool) (*models.Post, error) {
	post, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	post.Published = published
	if published && post.PublishedAt == nil {
		now := time.Now()
		post.PublishedAt = &now
	}

	updated, err := s.repo.Update(ctx, post)
	if err != nil {
		s.logger.Error("failed to set post publish state", slog.String("post_id", id), slog.Any("error", err))
		return nil, err
	}

	if published {
		s.record(ctx, adminID, models.ActivityPostPublished, "Published "+updated.Title,
			models.ActivityMetadata{"post_id": updated.ID, "slug": updated.Slug})
	} else {
		s.record(ctx, adminID, models.ActivityPostUpdated, "Unpublished "+updated.Title,
			models.ActivityMetadata{"post_id": updated.ID})
	}
	return updated, nil
}

func (s *BlogService) Delete(ctx context.Context, adminID, id string) error {
	post, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		s.logger.Error("failed to delete post", slog.String("post_id", id), slog.Any("error", err))
		return err
	}

	s.record(ctx, adminID, models.ActivityPostDeleted, "Deleted post "+post.Title,
		models.ActivityMetadata{"post_id": id})
	return nil
}

func (s *BlogService) record(ctx context.Context, adminID, activityType, description string, metadata models.ActivityMetadata) {
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
