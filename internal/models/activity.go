package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// Activity type tags consumed by the dashboard activity feed. These are
// stable identifiers; renaming one breaks historical rows.
const (
	ActivityAdminLogin      = "admin_login"
	ActivityAdminLogout     = "admin_logout"
	ActivityFailedLogin     = "failed_login"
	ActivityLoginLockout    = "login_lockout"
	ActivityPasswordChanged = "password_changed"
	ActivityPasswordReset   = "password_reset"
	ActivityProjectCreated  = "project_created"
	ActivityProjectUpdated  = "project_updated"
	ActivityProjectDeleted  = "project_deleted"
	ActivityPostCreated     = "post_created"
	ActivityPostUpdated     = "post_updated"
	ActivityPostPublished   = "post_published"
	ActivityPostDeleted     = "post_deleted"
	ActivityMessageReceived = "message_received"
	ActivitySettingsUpdated = "settings_updated"
)

// Activity is one append-only audit row. AdminID is nil for events with no
// authenticated actor (failed logins, contact submissions).
type Activity struct {
	ID           string
	AdminID      *string
	ActivityType string
	Description  string
	IPAddress    *string
	UserAgent    *string
	Metadata     ActivityMetadata
	CreatedAt    time.Time
}

// ActivityMetadata holds additional context for activity rows, stored as JSONB.
type ActivityMetadata map[string]interface{}

// Scan implements sql.Scanner for JSONB
func (am *ActivityMetadata) Scan(value interface{}) error {
	if value == nil {
		*am = make(ActivityMetadata)
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return ErrBadRequest
	}

	var m map[string]interface{}
	if err := json.Unmarshal(bytes, &m); err != nil {
		return err
	}
	*am = ActivityMetadata(m)
	return nil
}

// Value implements driver.Valuer for JSONB
func (am ActivityMetadata) Value() (driver.Value, error) {
	if am == nil {
		return nil, nil
	}
	return json.Marshal(am)
}
