package models

import "time"

// Setting is one site configuration key/value pair (site title, social
// links, analytics ID, and so on). Values are free-form strings.
type Setting struct {
	Key       string
	Value     string
	UpdatedAt time.Time
}
