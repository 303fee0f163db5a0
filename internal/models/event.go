package models

import (
	"time"

	"github.com/google/uuid"
)

// EventStatus is the lifecycle state of an event.
type EventStatus string

const (
	EventDraft     EventStatus = "draft"
	EventPublished EventStatus = "published"
	EventOngoing   EventStatus = "ongoing"
	EventCompleted EventStatus = "completed"
	EventCancelled EventStatus = "cancelled"
)

// Valid reports whether s is a known status.
func (s EventStatus) Valid() bool {
	switch s {
	case EventDraft, EventPublished, EventOngoing, EventCompleted, EventCancelled:
		return true
	}
	return false
}

// Open reports whether participants may register or submit.
func (s EventStatus) Open() bool {
	return s == EventPublished || s == EventOngoing
}

// Timeline holds the five event milestones.
type Timeline struct {
	RegistrationOpensAt  time.Time `json:"registration_opens_at"`
	RegistrationClosesAt time.Time `json:"registration_closes_at"`
	StartsAt             time.Time `json:"starts_at"`
	EndsAt               time.Time `json:"ends_at"`
	ResultsAt            time.Time `json:"results_at"`
}

// Event is a hackathon owned by an organizer.
type Event struct {
	ID          uuid.UUID   `json:"id"`
	OrganizerID uuid.UUID   `json:"organizer_id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Venue       string      `json:"venue"`
	Timeline    Timeline    `json:"timeline"`
	Capacity    int         `json:"capacity"` // 0 = unlimited
	FeeCents    int         `json:"fee_cents"`
	Currency    string      `json:"currency"`
	MaxTeamSize int         `json:"max_team_size"`
	Status      EventStatus `json:"status"`
	Rounds      []Round     `json:"rounds,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// Round returns the event round with the given id.
func (e *Event) Round(id uuid.UUID) (Round, bool) {
	for _, r := range e.Rounds {
		if r.ID == id {
			return r, true
		}
	}
	return Round{}, false
}

// Round is a sub-phase of an event with its own submission deadline.
type Round struct {
	ID                 uuid.UUID `json:"id"`
	EventID            uuid.UUID `json:"event_id"`
	Name               string    `json:"name"`
	Position           int       `json:"position"`
	SubmissionDeadline time.Time `json:"submission_deadline"`
	CreatedAt          time.Time `json:"created_at"`
}

// EventStats is the organizer dashboard summary.
type EventStats struct {
	Registrations       int            `json:"registrations"`
	Teams               int            `json:"teams"`
	Judges              int            `json:"judges"`
	SubmissionsByStatus map[string]int `json:"submissions_by_status"`
	Certificates        int            `json:"certificates"`
}
