package models

import (
	"time"

	"github.com/google/uuid"
)

// InviteKind distinguishes team membership invites from judge invites.
type InviteKind string

const (
	InviteTeam  InviteKind = "team"
	InviteJudge InviteKind = "judge"
)

// InviteStatus is the stored invite state. Expiry is also evaluated lazily against ExpiresAt.
type InviteStatus string

const (
	InviteActive  InviteStatus = "active"
	InviteExpired InviteStatus = "expired"
	InviteRevoked InviteStatus = "revoked"
	InviteUsed    InviteStatus = "used"
)

// Invite is a short random code granting team or judge access.
type Invite struct {
	ID        uuid.UUID    `json:"id"`
	Kind      InviteKind   `json:"kind"`
	Code      string       `json:"code"`
	EventID   uuid.UUID    `json:"event_id"`
	TeamID    *uuid.UUID   `json:"team_id,omitempty"`
	Email     string       `json:"email,omitempty"`
	CreatedBy uuid.UUID    `json:"created_by"`
	Status    InviteStatus `json:"status"`
	ExpiresAt time.Time    `json:"expires_at"`
	UsedBy    *uuid.UUID   `json:"used_by,omitempty"`
	UsedAt    *time.Time   `json:"used_at,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}

// JudgeAssignment grants a user judging rights on an event.
type JudgeAssignment struct {
	EventID    uuid.UUID `json:"event_id"`
	UserID     uuid.UUID `json:"user_id"`
	Email      string    `json:"email"`
	FullName   string    `json:"full_name"`
	AssignedAt time.Time `json:"assigned_at"`
}
