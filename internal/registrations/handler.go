package registrations

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackhub/backend/internal/events"
	"github.com/hackhub/backend/internal/export"
	"github.com/hackhub/backend/internal/middleware"
	"github.com/hackhub/backend/internal/models"
	"github.com/hackhub/backend/pkg/response"
)

// RegisterRequest is the body for POST /events/:id/register.
type RegisterRequest struct {
	FullName string `json:"full_name"`
	TeamName string `json:"team_name" binding:"omitempty,max=80"`
}

// MineResponse is the participant dashboard view of their registration.
type MineResponse struct {
	Registration *models.Registration `json:"registration"`
	CanSubmit    bool                 `json:"can_submit"`
}

// SheetsAppender exports registrations to a spreadsheet.
type SheetsAppender interface {
	AppendRegistrations(ctx context.Context, regs []models.Registration) (string, error)
}

// Handler handles registration HTTP endpoints.
type Handler struct {
	svc    *Service
	sheets SheetsAppender
	logger *zap.Logger
}

// NewHandler creates a registrations handler. sheets may be nil when export is not configured.
func NewHandler(svc *Service, sheets SheetsAppender, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, sheets: sheets, logger: logger}
}

// Register handles POST /events/:id/register (event loaded by events.LoadEvent).
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	e := events.FromContext(c)
	user := middleware.CurrentUser(c)
	who := Registrant{UserID: user.UserID, Email: user.Email, FullName: req.FullName}
	if who.FullName == "" {
		who.FullName = user.FullName
	}
	reg, err := h.svc.Register(c.Request.Context(), e, who, req.TeamName)
	if err != nil {
		h.writeError(c, err, e.ID)
		return
	}
	h.logger.Info("registered", zap.String("event_id", e.ID.String()), zap.String("registration_id", reg.ID.String()))
	response.Created(c, MineResponse{Registration: reg, CanSubmit: CanSubmit(reg)})
}

// Mine handles GET /events/:id/registrations/me.
func (h *Handler) Mine(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	reg, err := h.svc.Mine(c.Request.Context(), eventID, middleware.CurrentUser(c).Email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			response.NotFound(c, ErrNotRegistered.Error())
			return
		}
		h.writeError(c, err, eventID)
		return
	}
	response.OK(c, MineResponse{Registration: reg, CanSubmit: CanSubmit(reg)})
}

// ListMine handles GET /me/registrations.
func (h *Handler) ListMine(c *gin.Context) {
	list, err := h.svc.ListByUser(c.Request.Context(), middleware.CurrentUser(c).UserID)
	if err != nil {
		h.logger.Error("list my registrations failed", zap.Error(err))
		response.Internal(c, "failed to list registrations")
		return
	}
	response.OK(c, list)
}

// ListByEvent handles GET /events/:id/registrations (owner).
func (h *Handler) ListByEvent(c *gin.Context) {
	e := events.FromContext(c)
	list, err := h.svc.ListByEvent(c.Request.Context(), e.ID)
	if err != nil {
		h.writeError(c, err, e.ID)
		return
	}
	response.OK(c, list)
}

// Delete handles DELETE /events/:id/registrations/:regId (owner).
func (h *Handler) Delete(c *gin.Context) {
	regID, err := uuid.Parse(c.Param("regId"))
	if err != nil {
		response.BadRequest(c, "invalid registration id")
		return
	}
	e := events.FromContext(c)
	if err := h.svc.Delete(c.Request.Context(), e.ID, regID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			response.NotFound(c, "registration not found")
			return
		}
		h.writeError(c, err, e.ID)
		return
	}
	h.logger.Info("registration deleted", zap.String("event_id", e.ID.String()), zap.String("registration_id", regID.String()))
	response.NoContent(c)
}

// ExportCSV handles GET /events/:id/registrations/export.csv (owner).
func (h *Handler) ExportCSV(c *gin.Context) {
	e := events.FromContext(c)
	list, err := h.svc.ListByEvent(c.Request.Context(), e.ID)
	if err != nil {
		h.writeError(c, err, e.ID)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="registrations-%s.csv"`, e.ID))
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Status(http.StatusOK)
	if err := export.WriteCSV(c.Writer, list); err != nil {
		h.logger.Error("csv export failed", zap.Error(err), zap.String("event_id", e.ID.String()))
	}
}

// ExportSheets handles POST /events/:id/registrations/export/sheets (owner).
func (h *Handler) ExportSheets(c *gin.Context) {
	if h.sheets == nil {
		response.ServiceUnavailable(c, "sheets export is not configured")
		return
	}
	e := events.FromContext(c)
	list, err := h.svc.ListByEvent(c.Request.Context(), e.ID)
	if err != nil {
		h.writeError(c, err, e.ID)
		return
	}
	updated, err := h.sheets.AppendRegistrations(c.Request.Context(), list)
	if err != nil {
		h.logger.Error("sheets export failed", zap.Error(err), zap.String("event_id", e.ID.String()))
		response.Error(c, http.StatusBadGateway, "sheets export failed")
		return
	}
	response.OK(c, gin.H{"rows": len(list), "updated_range": updated})
}

func (h *Handler) writeError(c *gin.Context, err error, eventID uuid.UUID) {
	switch {
	case errors.Is(err, ErrAlreadyRegistered), errors.Is(err, ErrTeamNameTaken):
		response.Conflict(c, err.Error())
	case errors.Is(err, ErrRegistrationClosed), errors.Is(err, ErrEventFull), errors.Is(err, ErrTeamFull):
		response.BadRequest(c, err.Error())
	case errors.Is(err, models.ErrNotFound):
		response.NotFound(c, "event not found")
	default:
		h.logger.Error("registration request failed", zap.Error(err), zap.String("event_id", eventID.String()))
		response.Internal(c, "registration request failed")
	}
}
