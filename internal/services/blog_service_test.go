package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tbeaumont/folio/internal/models"
)

func TestBlogService_GetPublishedBySlug(t *testing.T) {
	repo := &MockPostRepository{
		GetBySlugFunc: func(ctx context.Context, slug string) (*models.Post, error) {
			switch slug {
			case "live-post":
				return &models.Post{ID: "b1", Slug: slug, Published: true}, nil
			case "draft-post":
				return &models.Post{ID: "b2", Slug: slug, Published: false}, nil
			}
			return nil, models.ErrNotFound
		},
	}
	service := NewBlogService(repo, &MockActivityRepository{}, testLogger())

	post, err := service.GetPublishedBySlug(context.Background(), "live-post")
	require.NoError(t, err)
	assert.Equal(t, "b1", post.ID)

	// Drafts are indistinguishable from missing posts on the public site
	_, err = service.GetPublishedBySlug(context.Background(), "draft-post")
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = service.GetPublishedBySlug(context.Background(), "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestBlogService_Create_StartsAsDraft(t *testing.T) {
	activity := &MockActivityRepository{}
	service := NewBlogService(&MockPostRepository{}, activity, testLogger())

	post, err := service.Create(context.Background(), "admin_1", PostInput{
		Title: "Shipping a Side Project",
		Body:  "...",
		Tags:  []string{"go"},
	})
	require.NoError(t, err)
	assert.False(t, post.Published)
	assert.Nil(t, post.PublishedAt)
	assert.Equal(t, "shipping-a-side-project", post.Slug)
	assert.Equal(t, models.ActivityPostCreated, activity.LastActivityType())
}

func TestBlogService_Update_DraftSlugFollowsTitle(t *testing.T) {
	draft := &models.Post{ID: "b1", Title: "Old Title", Slug: "old-title", Published: false}
	repo := &MockPostRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.Post, error) {
			copied := *draft
			return &copied, nil
		},
	}
	service := NewBlogService(repo, &MockActivityRepository{}, testLogger())

	updated, err := service.Update(context.Background(), "admin_1", "b1", PostInput{Title: "New Title"})
	require.NoError(t, err)
	assert.Equal(t, "new-title", updated.Slug)
}

func TestBlogService_Update_PublishedSlugIsFrozen(t *testing.T) {
	now := time.Now()
	published := &models.Post{ID: "b1", Title: "Old Title", Slug: "old-title", Published: true, PublishedAt: &now}
	repo := &MockPostRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.Post, error) {
			copied := *published
			return &copied, nil
		},
	}
	service := NewBlogService(repo, &MockActivityRepository{}, testLogger())

	updated, err := service.Update(context.Background(), "admin_1", "b1", PostInput{Title: "New Title"})
	require.NoError(t, err)
	assert.Equal(t, "old-title", updated.Slug)
	assert.Equal(t, "New Title", updated.Title)
}

func TestBlogService_SetPublished(t *testing.T) {
	post := &models.Post{ID: "b1", Title: "Post", Slug: "post"}
	repo := &MockPostRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.Post, error) {
			copied := *post
			return &copied, nil
		},
		UpdateFunc: func(ctx context.Context, updated *models.Post) (*models.Post, error) {
			*post = *updated
			return updated, nil
		},
	}
	activity := &MockActivityRepository{}
	service := NewBlogService(repo, activity, testLogger())

	published, err := service.SetPublished(context.Background(), "admin_1", "b1", true)
	require.NoError(t, err)
	assert.True(t, published.Published)
	require.NotNil(t, published.PublishedAt)
	firstPublished := *published.PublishedAt
	assert.Equal(t, models.ActivityPostPublished, activity.LastActivityType())

	// Unpublish and republish: PublishedAt keeps the original timestamp
	unpublished, err := service.SetPublished(context.Background(), "admin_1", "b1", false)
	require.NoError(t, err)
	assert.False(t, unpublished.Published)

	republished, err := service.SetPublished(context.Background(), "admin_1", "b1", true)
	require.NoError(t, err)
	require.NotNil(t, republished.PublishedAt)
	assert.Equal(t, firstPublished, *republished.PublishedAt)
}
