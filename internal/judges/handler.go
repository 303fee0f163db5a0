package judges

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackhub/backend/internal/events"
	"github.com/hackhub/backend/internal/middleware"
	"github.com/hackhub/backend/internal/models"
	"github.com/hackhub/backend/pkg/response"
)

// Store is the judge persistence the handler needs.
type Store interface {
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.JudgeAssignment, error)
	Delete(ctx context.Context, eventID, userID uuid.UUID) error
	ListForUser(ctx context.Context, userID uuid.UUID) ([]JudgedEvent, error)
}

// Handler handles judge assignment endpoints.
type Handler struct {
	store  Store
	logger *zap.Logger
}

// NewHandler creates a judges handler.
func NewHandler(store Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, logger: logger}
}

// ListByEvent handles GET /events/:id/judges (owner).
func (h *Handler) ListByEvent(c *gin.Context) {
	e := events.FromContext(c)
	list, err := h.store.ListByEvent(c.Request.Context(), e.ID)
	if err != nil {
		h.logger.Error("list judges failed", zap.Error(err), zap.String("event_id", e.ID.String()))
		response.Internal(c, "failed to list judges")
		return
	}
	response.OK(c, list)
}

// Remove handles DELETE /events/:id/judges/:userId (owner).
func (h *Handler) Remove(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}
	e := events.FromContext(c)
	if err := h.store.Delete(c.Request.Context(), e.ID, userID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			response.NotFound(c, "judge not assigned")
			return
		}
		h.logger.Error("remove judge failed", zap.Error(err), zap.String("event_id", e.ID.String()))
		response.Internal(c, "failed to remove judge")
		return
	}
	response.NoContent(c)
}

// Mine handles GET /me/judging.
func (h *Handler) Mine(c *gin.Context) {
	list, err := h.store.ListForUser(c.Request.Context(), middleware.CurrentUser(c).UserID)
	if err != nil {
		h.logger.Error("list judged events failed", zap.Error(err))
		response.Internal(c, "failed to list events")
		return
	}
	response.OK(c, list)
}
