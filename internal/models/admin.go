package models

import (
	"time"
)

// Admin is a dashboard account. There is exactly one active account per
// email; inactive accounts can never authenticate, even with correct
// credentials. Accounts are never hard-deleted, only deactivated.
type Admin struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Active       bool
	LastLoginAt  *time.Time
	LoginCount   int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
