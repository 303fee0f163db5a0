package messaging

import (
	"github.com/google/uuid"

	"github.com/hackhub/backend/internal/models"
)

// Access is what a user may see inside one event.
type Access struct {
	UserID     uuid.UUID
	Organizer  bool
	Judge      bool
	Registered bool
	TeamID     *uuid.UUID
}

// Member reports whether the user takes part in the event at all.
func (a Access) Member() bool {
	return a.Organizer || a.Judge || a.Registered
}

// CanRead reports whether a may read messages of a channel of the given type and team.
func (a Access) CanRead(typ models.ChannelType, teamID *uuid.UUID) bool {
	if a.Organizer {
		return true
	}
	switch typ {
	case models.ChannelAnnouncements, models.ChannelGeneral:
		return a.Registered || a.Judge
	case models.ChannelJudges:
		return a.Judge
	case models.ChannelTeam:
		return a.TeamID != nil && teamID != nil && *a.TeamID == *teamID
	}
	return false
}

// CanPost reports whether a may post to a channel. Announcements are organizer-only.
func (a Access) CanPost(typ models.ChannelType, teamID *uuid.UUID) bool {
	if typ == models.ChannelAnnouncements {
		return a.Organizer
	}
	return a.CanRead(typ, teamID)
}
