package models

import "time"

// Session is the server-side state behind a session cookie. It is valid only
// while Authenticated is set, LastActivity is within the idle window, and the
// referenced admin account still exists and is active.
type Session struct {
	AdminID       string
	Name          string
	Email         string
	Authenticated bool
	RememberMe    bool
	LastActivity  time.Time
	CSRFToken     string
	CreatedAt     time.Time
}
