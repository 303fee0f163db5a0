package events

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackhub/backend/internal/middleware"
	"github.com/hackhub/backend/internal/models"
	"github.com/hackhub/backend/pkg/response"
)

// TimelineRequest carries the five milestones as RFC3339 timestamps.
type TimelineRequest struct {
	RegistrationOpensAt  time.Time `json:"registration_opens_at" binding:"required"`
	RegistrationClosesAt time.Time `json:"registration_closes_at" binding:"required"`
	StartsAt             time.Time `json:"starts_at" binding:"required"`
	EndsAt               time.Time `json:"ends_at" binding:"required"`
	ResultsAt            time.Time `json:"results_at" binding:"required"`
}

func (t TimelineRequest) model() models.Timeline {
	return models.Timeline{
		RegistrationOpensAt:  t.RegistrationOpensAt,
		RegistrationClosesAt: t.RegistrationClosesAt,
		StartsAt:             t.StartsAt,
		EndsAt:               t.EndsAt,
		ResultsAt:            t.ResultsAt,
	}
}

// RoundRequest is the body for round create/update.
type RoundRequest struct {
	Name               string    `json:"name" binding:"required"`
	Position           int       `json:"position" binding:"min=0"`
	SubmissionDeadline time.Time `json:"submission_deadline" binding:"required"`
}

// CreateRequest is the body for POST /events.
type CreateRequest struct {
	Title       string          `json:"title" binding:"required"`
	Description string          `json:"description"`
	Venue       string          `json:"venue"`
	Timeline    TimelineRequest `json:"timeline"`
	Capacity    int             `json:"capacity" binding:"min=0"`
	FeeCents    int             `json:"fee_cents" binding:"min=0"`
	Currency    string          `json:"currency" binding:"omitempty,len=3"`
	MaxTeamSize *int            `json:"max_team_size"`
	Rounds      []RoundRequest  `json:"rounds" binding:"dive"`
}

// UpdateRequest is the body for PATCH /events/:id. Absent fields keep their value.
type UpdateRequest struct {
	Title       *string          `json:"title" binding:"omitempty,min=1"`
	Description *string          `json:"description"`
	Venue       *string          `json:"venue"`
	Timeline    *TimelineRequest `json:"timeline"`
	Capacity    *int             `json:"capacity" binding:"omitempty,min=0"`
	FeeCents    *int             `json:"fee_cents" binding:"omitempty,min=0"`
	Currency    *string          `json:"currency" binding:"omitempty,len=3"`
	MaxTeamSize *int             `json:"max_team_size"`
}

// StatusRequest is the body for POST /events/:id/status.
type StatusRequest struct {
	Status models.EventStatus `json:"status" binding:"required"`
}

// Handler handles event HTTP endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates an event handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// Create handles POST /events (organizer role).
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	e := &models.Event{
		OrganizerID: middleware.CurrentUser(c).UserID,
		Title:       req.Title,
		Description: req.Description,
		Venue:       req.Venue,
		Timeline:    req.Timeline.model(),
		Capacity:    req.Capacity,
		FeeCents:    req.FeeCents,
		Currency:    req.Currency,
		MaxTeamSize: 4,
	}
	if req.MaxTeamSize != nil {
		e.MaxTeamSize = *req.MaxTeamSize
	}
	for _, rr := range req.Rounds {
		e.Rounds = append(e.Rounds, models.Round{Name: rr.Name, Position: rr.Position, SubmissionDeadline: rr.SubmissionDeadline})
	}
	if err := h.svc.Create(c.Request.Context(), e); err != nil {
		h.writeError(c, err, "failed to create event")
		return
	}
	response.Created(c, e)
}

// List handles GET /events. Drafts are only listed with ?mine=1.
func (h *Handler) List(c *gin.Context) {
	var f ListFilter
	if s := c.Query("status"); s != "" {
		st := models.EventStatus(s)
		if !st.Valid() {
			response.BadRequest(c, "invalid status")
			return
		}
		f.Status = &st
	}
	user, authed := middleware.MaybeUser(c)
	mine := c.Query("mine") == "1" || c.Query("mine") == "true"
	if mine {
		if !authed {
			response.Unauthorized(c, "login required for mine=1")
			return
		}
		f.OrganizerID = &user.UserID
	}
	list, err := h.svc.List(c.Request.Context(), f)
	if err != nil {
		h.logger.Error("list events failed", zap.Error(err))
		response.Internal(c, "failed to list events")
		return
	}
	if !mine {
		visible := list[:0]
		for _, e := range list {
			if e.Status != models.EventDraft {
				visible = append(visible, e)
			}
		}
		list = visible
	}
	response.OK(c, list)
}

// Get handles GET /events/:id. Drafts are visible to their organizer only.
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	e, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err, "failed to load event")
		return
	}
	if e.Status == models.EventDraft {
		if user, ok := middleware.MaybeUser(c); !ok || user.UserID != e.OrganizerID {
			response.NotFound(c, "event not found")
			return
		}
	}
	response.OK(c, e)
}

// Update handles PATCH /events/:id (owner, via RequireOwner).
func (h *Handler) Update(c *gin.Context) {
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	e := FromContext(c)
	if req.Title != nil {
		e.Title = *req.Title
	}
	if req.Description != nil {
		e.Description = *req.Description
	}
	if req.Venue != nil {
		e.Venue = *req.Venue
	}
	if req.Timeline != nil {
		e.Timeline = req.Timeline.model()
	}
	if req.Capacity != nil {
		e.Capacity = *req.Capacity
	}
	if req.FeeCents != nil {
		e.FeeCents = *req.FeeCents
	}
	if req.Currency != nil {
		e.Currency = *req.Currency
	}
	if req.MaxTeamSize != nil {
		e.MaxTeamSize = *req.MaxTeamSize
	}
	if err := h.svc.Update(c.Request.Context(), e); err != nil {
		h.writeError(c, err, "failed to update event")
		return
	}
	response.OK(c, e)
}

// SetStatus handles POST /events/:id/status (owner).
func (h *Handler) SetStatus(c *gin.Context) {
	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	e := FromContext(c)
	if err := h.svc.SetStatus(c.Request.Context(), e, req.Status); err != nil {
		h.writeError(c, err, "failed to change status")
		return
	}
	h.logger.Info("event status changed", zap.String("event_id", e.ID.String()), zap.String("status", string(e.Status)))
	response.OK(c, e)
}

// Delete handles DELETE /events/:id (owner).
func (h *Handler) Delete(c *gin.Context) {
	e := FromContext(c)
	if err := h.svc.Delete(c.Request.Context(), e.ID); err != nil {
		h.writeError(c, err, "failed to delete event")
		return
	}
	h.logger.Info("event deleted", zap.String("event_id", e.ID.String()))
	response.NoContent(c)
}

// AddRound handles POST /events/:id/rounds (owner).
func (h *Handler) AddRound(c *gin.Context) {
	var req RoundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	rd := &models.Round{Name: req.Name, Position: req.Position, SubmissionDeadline: req.SubmissionDeadline}
	if err := h.svc.AddRound(c.Request.Context(), FromContext(c), rd); err != nil {
		h.writeError(c, err, "failed to add round")
		return
	}
	response.Created(c, rd)
}

// UpdateRound handles PUT /events/:id/rounds/:roundId (owner).
func (h *Handler) UpdateRound(c *gin.Context) {
	roundID, err := uuid.Parse(c.Param("roundId"))
	if err != nil {
		response.BadRequest(c, "invalid round id")
		return
	}
	var req RoundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	e := FromContext(c)
	existing, ok := e.Round(roundID)
	if !ok {
		response.NotFound(c, "round not found")
		return
	}
	rd := &models.Round{ID: roundID, Name: req.Name, Position: req.Position, SubmissionDeadline: req.SubmissionDeadline, CreatedAt: existing.CreatedAt}
	if rd.Position == 0 {
		rd.Position = existing.Position
	}
	if err := h.svc.UpdateRound(c.Request.Context(), e, rd); err != nil {
		h.writeError(c, err, "failed to update round")
		return
	}
	response.OK(c, rd)
}

// DeleteRound handles DELETE /events/:id/rounds/:roundId (owner).
func (h *Handler) DeleteRound(c *gin.Context) {
	roundID, err := uuid.Parse(c.Param("roundId"))
	if err != nil {
		response.BadRequest(c, "invalid round id")
		return
	}
	if err := h.svc.DeleteRound(c.Request.Context(), FromContext(c), roundID); err != nil {
		h.writeError(c, err, "failed to delete round")
		return
	}
	response.NoContent(c)
}

// Stats handles GET /events/:id/stats (owner).
func (h *Handler) Stats(c *gin.Context) {
	e := FromContext(c)
	stats, err := h.svc.Stats(c.Request.Context(), e.ID)
	if err != nil {
		h.logger.Error("event stats failed", zap.Error(err), zap.String("event_id", e.ID.String()))
		response.Internal(c, "failed to load stats")
		return
	}
	response.OK(c, stats)
}

func (h *Handler) writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrInvalidTimeline), errors.Is(err, ErrInvalidTransition),
		errors.Is(err, ErrRoundDeadline), errors.Is(err, ErrInvalidTeamSize):
		response.BadRequest(c, err.Error())
	case errors.Is(err, models.ErrNotFound):
		response.NotFound(c, "not found")
	case errors.Is(err, models.ErrConflict):
		response.Conflict(c, "round position already taken")
	default:
		h.logger.Error(fallback, zap.Error(err))
		response.Internal(c, fallback)
	}
}
