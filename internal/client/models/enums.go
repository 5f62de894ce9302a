package models

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownStatus  = errors.New("unknown incident status")
	ErrUnknownUrgency = errors.New("unknown urgency level")
	ErrUnknownRole    = errors.New("unknown user role")
)

// Status is the canonical lifecycle state of an incident.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusResolved   Status = "resolved"
	StatusCancelled  Status = "cancelled"
)

// Statuses lists every Status in workflow order.
var Statuses = []Status{StatusPending, StatusInProgress, StatusResolved, StatusCancelled}

var statusAliases = map[string]Status{
	"pending":     StatusPending,
	"in_progress": StatusInProgress,
	"resolved":    StatusResolved,
	"cancelled":   StatusCancelled,
	"pendiente":   StatusPending,
	"en_proceso":  StatusInProgress,
	"resuelta":    StatusResolved,
	"cancelada":   StatusCancelled,
}

var statusSpanish = map[Status]string{
	StatusPending:    "pendiente",
	StatusInProgress: "en_proceso",
	StatusResolved:   "resuelta",
	StatusCancelled:  "cancelada",
}

// ParseStatus accepts English or Spanish tokens, case-insensitively.
func ParseStatus(s string) (Status, error) {
	if st, ok := statusAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return st, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
}

func (s Status) Valid() bool {
	_, ok := statusSpanish[s]
	return ok
}

// Spanish returns the Spanish wire token for s.
func (s Status) Spanish() string {
	return statusSpanish[s]
}

// Label is the human readable form used by the CLI.
func (s Status) Label() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusInProgress:
		return "In progress"
	case StatusResolved:
		return "Resolved"
	case StatusCancelled:
		return "Cancelled"
	}
	return string(s)
}

// Urgency is the canonical urgency level of an incident.
type Urgency string

const (
	UrgencyLow      Urgency = "low"
	UrgencyMedium   Urgency = "medium"
	UrgencyHigh     Urgency = "high"
	UrgencyCritical Urgency = "critical"
)

var Urgencies = []Urgency{UrgencyLow, UrgencyMedium, UrgencyHigh, UrgencyCritical}

var urgencyAliases = map[string]Urgency{
	"low":      UrgencyLow,
	"medium":   UrgencyMedium,
	"high":     UrgencyHigh,
	"critical": UrgencyCritical,
	"baja":     UrgencyLow,
	"media":    UrgencyMedium,
	"alta":     UrgencyHigh,
	"critica":  UrgencyCritical,
	"crítica":  UrgencyCritical,
}

var urgencySpanish = map[Urgency]string{
	UrgencyLow:      "baja",
	UrgencyMedium:   "media",
	UrgencyHigh:     "alta",
	UrgencyCritical: "critica",
}

func ParseUrgency(s string) (Urgency, error) {
	if u, ok := urgencyAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return u, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownUrgency, s)
}

func (u Urgency) Valid() bool {
	_, ok := urgencySpanish[u]
	return ok
}

func (u Urgency) Spanish() string {
	return urgencySpanish[u]
}

// Role is the permission level of a user.
type Role string

const (
	RoleWorker  Role = "worker"
	RoleManager Role = "manager"
	RoleAdmin   Role = "admin"
)

func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleWorker, RoleManager, RoleAdmin:
		return r, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
}
