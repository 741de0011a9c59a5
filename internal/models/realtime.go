package models

import "time"

type EventType string

const (
	EventSubmitted     EventType = "submitted"
	EventAssigned      EventType = "assigned"
	EventStatusChanged EventType = "status_changed"
)

// ComplaintEvent is published on every complaint write and fanned out to live dashboards.
type ComplaintEvent struct {
	Type      EventType `json:"type"`
	Complaint Complaint `json:"complaint"`
	ActorID   string    `json:"actor_id"`
	// PreviousStatus is only set for status_changed events.
	PreviousStatus Status    `json:"previous_status,omitempty"`
	At             time.Time `json:"at"`
}
