package models

import "time"

// LoginAttempt is an append-only record of a single login attempt. Attempts
// are never mutated; failed rows for an email are bulk-cleared on that
// email's next successful login, and everything else ages out of the
// lockout window on its own.
type LoginAttempt struct {
	ID          string
	Email       string
	IPAddress   string
	UserAgent   string
	Success     bool
	AttemptedAt time.Time
	ExpiresAt   time.Time
}
