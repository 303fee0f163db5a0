package models

import (
	"time"

	"github.com/google/uuid"
)

// ChannelType groups event chat channels.
type ChannelType string

const (
	ChannelAnnouncements ChannelType = "announcements"
	ChannelGeneral       ChannelType = "general"
	ChannelJudges        ChannelType = "judges"
	ChannelTeam          ChannelType = "team"
)

// Channel is a message feed scoped to an event.
type Channel struct {
	ID        uuid.UUID   `json:"id"`
	EventID   uuid.UUID   `json:"event_id"`
	Type      ChannelType `json:"type"`
	Name      string      `json:"name"`
	TeamID    *uuid.UUID  `json:"team_id,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

// Message is an append-only chat entry.
type Message struct {
	ID         uuid.UUID `json:"id"`
	ChannelID  uuid.UUID `json:"channel_id"`
	EventID    uuid.UUID `json:"event_id"`
	SenderID   uuid.UUID `json:"sender_id"`
	SenderName string    `json:"sender_name"`
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"created_at"`
}
