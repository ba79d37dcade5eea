package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Authentication errors. ErrLockedOut and ErrInvalidCredentials are
	// distinct so the audit trail can tell them apart, but the HTTP layer
	// renders both with the same generic message.
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrLockedOut          = errors.New("too many failed login attempts")
	ErrSessionExpired     = errors.New("session expired")
	ErrAccountInactive    = errors.New("account is deactivated")
)
