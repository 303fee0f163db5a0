package messaging

import (
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackhub/backend/internal/events"
	"github.com/hackhub/backend/internal/middleware"
	"github.com/hackhub/backend/internal/models"
	"github.com/hackhub/backend/pkg/response"
)

// PostRequest is the body for POST /channels/:id/messages.
type PostRequest struct {
	Body string `json:"body" binding:"required"`
}

// Handler handles channel and message endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates a messaging handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

func caller(c *gin.Context) Caller {
	u := middleware.CurrentUser(c)
	return Caller{UserID: u.UserID, Email: u.Email, FullName: u.FullName}
}

// Channels handles GET /events/:id/channels (event loaded by events.LoadEvent).
func (h *Handler) Channels(c *gin.Context) {
	list, err := h.svc.Channels(c.Request.Context(), events.FromContext(c), caller(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, list)
}

// Messages handles GET /channels/:id/messages?before=&limit=.
func (h *Handler) Messages(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid channel id")
		return
	}
	var before *time.Time
	if v := c.Query("before"); v != "" {
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			response.BadRequest(c, "before must be an RFC3339 timestamp")
			return
		}
		before = &t
	}
	limit := 0
	if v := c.Query("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil || limit < 1 {
			response.BadRequest(c, "limit must be a positive integer")
			return
		}
	}
	list, err := h.svc.Messages(c.Request.Context(), id, caller(c), before, limit)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, list)
}

// Post handles POST /channels/:id/messages.
func (h *Handler) Post(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid channel id")
		return
	}
	var req PostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	m, err := h.svc.Post(c.Request.Context(), id, caller(c), req.Body)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Created(c, m)
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		response.NotFound(c, "channel not found")
	case errors.Is(err, ErrForbidden):
		response.Forbidden(c, err.Error())
	case errors.Is(err, ErrInvalidBody):
		response.BadRequest(c, err.Error())
	default:
		h.logger.Error("messaging request failed", zap.Error(err))
		response.Internal(c, "messaging request failed")
	}
}
