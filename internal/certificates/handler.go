package certificates

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackhub/backend/internal/events"
	"github.com/hackhub/backend/internal/middleware"
	"github.com/hackhub/backend/internal/models"
	"github.com/hackhub/backend/pkg/response"
)

// Handler handles certificate HTTP endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates a certificates handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// Generate handles POST /events/:id/certificates/generate (organizer, via events.RequireOwner).
func (h *Handler) Generate(c *gin.Context) {
	e := events.FromContext(c)
	res, err := h.svc.Generate(c.Request.Context(), e.ID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, res)
}

// ListByEvent handles GET /events/:id/certificates (organizer).
func (h *Handler) ListByEvent(c *gin.Context) {
	e := events.FromContext(c)
	list, err := h.svc.ListByEvent(c.Request.Context(), e.ID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, list)
}

// Mine handles GET /me/certificates.
func (h *Handler) Mine(c *gin.Context) {
	u := middleware.CurrentUser(c)
	list, err := h.svc.Mine(c.Request.Context(), u.Email)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, list)
}

// DownloadURL handles GET /certificates/:id/download-url.
func (h *Handler) DownloadURL(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid certificate id")
		return
	}
	u := middleware.CurrentUser(c)
	url, err := h.svc.DownloadURL(c.Request.Context(), id, u.UserID, u.Email)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, url)
}

// Verify handles the public GET /certificates/verify/:code.
func (h *Handler) Verify(c *gin.Context) {
	v, err := h.svc.Verify(c.Request.Context(), c.Param("code"))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			response.OK(c, gin.H{"valid": false})
			return
		}
		h.writeError(c, err)
		return
	}
	response.OK(c, gin.H{
		"valid":          true,
		"code":           v.Code,
		"recipient_name": v.RecipientName,
		"event_id":       v.EventID,
		"event_title":    v.EventTitle,
		"status":         v.Status,
		"issued_at":      v.IssuedAt,
	})
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		response.NotFound(c, "certificate not found")
	case errors.Is(err, ErrForbidden):
		response.Forbidden(c, err.Error())
	case errors.Is(err, ErrNotIssued):
		response.Conflict(c, err.Error())
	case errors.Is(err, ErrStorageUnavailable):
		response.ServiceUnavailable(c, err.Error())
	default:
		h.logger.Error("certificate request failed", zap.Error(err))
		response.Internal(c, "certificate request failed")
	}
}
