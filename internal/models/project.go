package models

import "time"

// Project is a portfolio entry shown on the public site.
type Project struct {
	ID          string
	Title       string
	Slug        string
	Description string
	Tech        []string
	ProjectURL  *string
	RepoURL     *string
	Featured    bool
	SortOrder   int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
