package models

import (
	"time"

	"github.com/google/uuid"
)

// Team groups registrations under a leader (the creator).
type Team struct {
	ID            uuid.UUID `json:"id"`
	EventID       uuid.UUID `json:"event_id"`
	Name          string    `json:"name"`
	CreatorEmail  string    `json:"creator_email"`
	CreatorUserID uuid.UUID `json:"creator_user_id"`
	Members       []string  `json:"members,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Registration links a participant to an event.
type Registration struct {
	ID        uuid.UUID  `json:"id"`
	EventID   uuid.UUID  `json:"event_id"`
	UserID    uuid.UUID  `json:"user_id"`
	Email     string     `json:"email"`
	FullName  string     `json:"full_name"`
	TeamID    *uuid.UUID `json:"team_id,omitempty"`
	Team      *Team      `json:"team,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// IsTeam reports whether the registration belongs to a team.
func (r *Registration) IsTeam() bool {
	return r.TeamID != nil
}
