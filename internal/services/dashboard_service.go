package services

import (
	"context"

	"github.com/tbeaumont/folio/internal/models"
)

// DashboardStats summarizes site content for the admin landing page.
type DashboardStats struct {
	Projects       int `json:"projects"`
	PostsTotal     int `json:"posts_total"`
	PostsPublished int `json:"posts_published"`
	UnreadMessages int `json:"unread_messages"`
}

type ProjectCounter interface {
	Count(ctx context.Context) (int, error)
}

type PostCounter interface {
	Count(ctx context.Context) (total int, published int, err error)
}

type MessageCounter interface {
	CountUnread(ctx context.Context) (int, error)
}

type ActivityReader interface {
	ListRecent(ctx context.Context, limit int) ([]*models.Activity, error)
}

type DashboardService struct {
	projects ProjectCounter
	posts    PostCounter
	messages MessageCounter
	activity ActivityReader
}

func NewDashboardService(projects ProjectCounter, posts PostCounter, messages MessageCounter, activity ActivityReader) *DashboardService {
	return &DashboardService{
		projects: projects,
		posts:    posts,
		messages: messages,
		activity: activity,
	}
}

func (s *DashboardService) Stats(ctx context.Context) (*DashboardStats, error) {
	projects, err := s.projects.Count(ctx)
	if err != nil {
		return nil, err
	}

	total, published, err := s.posts.Count(ctx)
	if err != nil {
		return nil, err
	}

	unread, err := s.messages.CountUnread(ctx)
	if err != nil {
		return nil, err
	}

	return &DashboardStats{
		Projects:       projects,
		PostsTotal:     total,
		PostsPublished: published,
		UnreadMessages: unread,
	}, nil
}

func (s *DashboardService) RecentActivity(ctx context.Context, limit int) ([]*models.Activity, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.activity.ListRecent(ctx, limit)
}
