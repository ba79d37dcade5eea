package models

import "time"

// Message is a contact-form submission from the public site.
type Message struct {
	ID        string
	Name      string
	Email     string
	Subject   string
	Body      string
	Read      bool
	IPAddress string
	CreatedAt time.Time
}
