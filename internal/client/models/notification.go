package models

import "time"

// Notification is an in-app inbox message.
type Notification struct {
	ID         string
	Title      string
	Body       string
	IncidentID *int64
	CreatedAt  time.Time
	Read       bool
}
