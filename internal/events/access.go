package events

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/hackhub/backend/internal/middleware"
	"github.com/hackhub/backend/internal/models"
	"github.com/hackhub/backend/pkg/response"
)

// ContextEvent is the gin context key for the event loaded by RequireOwner.
const ContextEvent = "event"

// Getter loads an event by id.
type Getter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
}

// RequireOwner loads the event named by :id and allows only its organizer.
// Call after JWT.
func RequireOwner(events Getter) gin.HandlerFunc {
	return func(c *gin.Context) {
		e, ok := loadEvent(c, events)
		if !ok {
			return
		}
		if e.OrganizerID != middleware.CurrentUser(c).UserID {
			response.Forbidden(c, "only the event organizer can do this")
			c.Abort()
			return
		}
		c.Set(ContextEvent, e)
		c.Next()
	}
}

// LoadEvent puts the event named by :id into the context without an ownership check.
func LoadEvent(events Getter) gin.HandlerFunc {
	return func(c *gin.Context) {
		e, ok := loadEvent(c, events)
		if !ok {
			return
		}
		c.Set(ContextEvent, e)
		c.Next()
	}
}

func loadEvent(c *gin.Context, events Getter) (*models.Event, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		c.Abort()
		return nil, false
	}
	e, err := events.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			response.NotFound(c, "event not found")
		} else {
			response.Internal(c, "failed to load event")
		}
		c.Abort()
		return nil, false
	}
	return e, true
}

// FromContext returns the event stored by RequireOwner or LoadEvent.
func FromContext(c *gin.Context) *models.Event {
	return c.MustGet(ContextEvent).(*models.Event)
}
