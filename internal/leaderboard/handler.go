package leaderboard

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/hackhub/backend/internal/events"
	"github.com/hackhub/backend/internal/middleware"
	"github.com/hackhub/backend/internal/models"
	"github.com/hackhub/backend/pkg/response"
)

// Handler serves GET /events/:id/leaderboard.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates a leaderboard handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// Get handles GET /events/:id/leaderboard (event loaded by events.LoadEvent).
func (h *Handler) Get(c *gin.Context) {
	e := events.FromContext(c)
	if e.Status == models.EventDraft {
		if u, ok := middleware.MaybeUser(c); !ok || u.UserID != e.OrganizerID {
			response.NotFound(c, "event not found")
			return
		}
	}
	entries, err := h.svc.Get(c.Request.Context(), e.ID)
	if err != nil {
		h.logger.Error("leaderboard failed", zap.Error(err), zap.String("event_id", e.ID.String()))
		response.Internal(c, "failed to load leaderboard")
		return
	}
	response.OK(c, entries)
}
