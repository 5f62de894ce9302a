// Package models defines client-side domain records of the incident tracker.
// Wire formats live in package codec; these types carry only canonical values.
package models

import "time"

// Coordinates is a WGS84 position attached to an incident.
type Coordinates struct {
	Lat float64
	Lon float64
}

// Incident is a reported problem tracked through its Status lifecycle.
type Incident struct {
	ID          int64
	Title       string
	Description string
	Location    string
	Coordinates *Coordinates
	Status      Status
	Urgency     Urgency
	// AssignedTo is nil while nobody owns the incident.
	AssignedTo *int64
	CreatedBy  int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Comments   []Comment
}

// Comment is an append-only note on an incident.
type Comment struct {
	ID         int64
	IncidentID int64
	AuthorID   int64
	AuthorName string
	Text       string
	CreatedAt  time.Time
}

// IncidentDraft holds the fields a user fills in to report an incident.
type IncidentDraft struct {
	Title       string
	Description string
	Location    string
	Coordinates *Coordinates
	Urgency     Urgency
}

// Validate reports per-field problems; an empty map means the draft is ready
// to be submitted.
func (d IncidentDraft) Validate() map[string][]string {
	fields := map[string][]string{}
	if d.Title == "" {
		fields["title"] = append(fields["title"], "This field may not be blank.")
	}
	if d.Description == "" {
		fields["description"] = append(fields["description"], "This field may not be blank.")
	}
	if d.Location == "" {
		fields["location"] = append(fields["location"], "This field may not be blank.")
	}
	if !d.Urgency.Valid() {
		fields["urgency"] = append(fields["urgency"], "Select a valid choice.")
	}
	return fields
}

// IncidentUpdate is a partial update; nil fields are left untouched.
type IncidentUpdate struct {
	Status     *Status
	AssignedTo *int64
}
