package invites

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackhub/backend/internal/events"
	"github.com/hackhub/backend/internal/middleware"
	"github.com/hackhub/backend/internal/models"
	"github.com/hackhub/backend/internal/registrations"
	"github.com/hackhub/backend/pkg/response"
)

// CreateRequest is the body for invite creation. Email optionally pins the recipient.
type CreateRequest struct {
	Email string `json:"email" binding:"omitempty,email"`
}

// AcceptResponse is returned by POST /invites/:code/accept.
type AcceptResponse struct {
	Invite       *models.Invite       `json:"invite"`
	Registration *models.Registration `json:"registration,omitempty"`
}

// Handler handles invite HTTP endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates an invites handler.
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

// CreateTeam handles POST /events/:id/invites/team (team creator).
func (h *Handler) CreateTeam(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	inv, err := h.svc.CreateTeamInvite(c.Request.Context(), eventID, caller(c), req.Email)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Created(c, inv)
}

// CreateJudge handles POST /events/:id/invites/judge (owner).
func (h *Handler) CreateJudge(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	inv, err := h.svc.CreateJudgeInvite(c.Request.Context(), events.FromContext(c), caller(c), req.Email)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Created(c, inv)
}

// ListByEvent handles GET /events/:id/invites (owner).
func (h *Handler) ListByEvent(c *gin.Context) {
	list, err := h.svc.ListByEvent(c.Request.Context(), events.FromContext(c).ID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, list)
}

// Preview handles GET /invites/:code.
func (h *Handler) Preview(c *gin.Context) {
	p, err := h.svc.Preview(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, p)
}

// Accept handles POST /invites/:code/accept.
func (h *Handler) Accept(c *gin.Context) {
	inv, reg, err := h.svc.Accept(c.Request.Context(), c.Param("code"), caller(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, AcceptResponse{Invite: inv, Registration: reg})
}

// Revoke handles POST /invites/:code/revoke.
func (h *Handler) Revoke(c *gin.Context) {
	inv, err := h.svc.Revoke(c.Request.Context(), c.Param("code"), caller(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, inv)
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrInviteNotFound), errors.Is(err, models.ErrNotFound):
		response.NotFound(c, ErrInviteNotFound.Error())
	case errors.Is(err, ErrInviteExpired), errors.Is(err, ErrInviteRevoked):
		response.Gone(c, err.Error())
	case errors.Is(err, ErrInviteUsed), errors.Is(err, registrations.ErrAlreadyRegistered):
		response.Conflict(c, err.Error())
	case errors.Is(err, ErrInviteEmailMismatch), errors.Is(err, ErrNotTeamCreator),
		errors.Is(err, ErrNotAllowed), errors.Is(err, registrations.ErrNotRegistered):
		response.Forbidden(c, err.Error())
	case errors.Is(err, registrations.ErrTeamFull), errors.Is(err, registrations.ErrEventFull),
		errors.Is(err, ErrEventClosed):
		response.BadRequest(c, err.Error())
	default:
		h.logger.Error("invite request failed", zap.Error(err))
		response.Internal(c, "invite request failed")
	}
}
