package records

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a track or event does not exist or is not
// visible to the requesting user.
var ErrNotFound = errors.New("record not found")

// EventType classifies an event within a track.
type EventType string

const (
	EventNote        EventType = "NOTE"
	EventAppointment EventType = "APPOINTMENT"
	EventSymptom     EventType = "SYMPTOM"
	EventResult      EventType = "RESULT"
	EventMedication  EventType = "MEDICATION"
)

// Valid reports whether t is a known event type.
func (t EventType) Valid() bool {
	switch t {
	case EventNote, EventAppointment, EventSymptom, EventResult, EventMedication:
		return true
	}
	return false
}

// Track groups related events for one user, e.g. "Sleep" or "Pain".
type Track struct {
	ID          string
	UserID      string
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Event is a single dated entry in a track. FileURL is the stored pointer
// to its attachment, nil when there is none.
type Event struct {
	ID         string
	TrackID    string
	Title      string
	Type       EventType
	Notes      string
	OccurredAt time.Time
	FileURL    *string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// HasAttachment reports whether the event carries a file pointer.
func (e *Event) HasAttachment() bool {
	return e.FileURL != nil && *e.FileURL != ""
}

type NewTrack struct {
	Name        string
	Description string
}

type NewEvent struct {
	Title      string
	Type       EventType
	Notes      string
	OccurredAt time.Time
}
