package models

import "time"

// Post is a blog entry. Unpublished posts are only visible through the
// admin API; PublishedAt is set the first time a post is published.
type Post struct {
	ID          string
	Title       string
	Slug        string
	Excerpt     string
	Body        string
	Tags        []string
	Published   bool
	PublishedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
