package submissions

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

// SubmitRequest is the body for POST /events/:id/rounds/:roundId/submission.
type SubmitRequest struct {
	Title       string `json:"title" binding:"required,max=200"`
	Description string `json:"description" binding:"max=10000"`
	RepoURL     string `json:"repo_url"`
	DemoURL     string `json:"demo_url"`
	ArtifactKey string `json:"artifact_key"`
}

// ArtifactURLRequest is the body for POST /events/:id/rounds/:roundId/artifact-url.
type ArtifactURLRequest struct {
	Filename string `json:"filename" binding:"required"`
	Size     int64  `json:"size" binding:"required,min=1"`
}

// ReviewRequest is the body for POST /submissions/:id/reviews.
type ReviewRequest struct {
	Score    *float64 `json:"score" binding:"required"`
	Feedback string   `json:"feedback" binding:"max=5000"`
}

// DecisionRequest is the body for POST /submissions/:id/decision.
type DecisionRequest struct {
	Status models.SubmissionStatus `json:"status" binding:"required"`
}

// Handler handles submission HTTP endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates a submissions handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

func caller(c *gin.Context) Caller {
	u := middleware.CurrentUser(c)
	return Caller{UserID: u.UserID, Email: u.Email}
}

func parseID(c *gin.Context, param, what string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		response.BadRequest(c, "invalid "+what+" id")
		return uuid.Nil, false
	}
	return id, true
}

// Submit handles POST /events/:id/rounds/:roundId/submission (event loaded by events.LoadEvent).
func (h *Handler) Submit(c *gin.Context) {
	roundID, ok := parseID(c, "roundId", "round")
	if !ok {
		return
	}
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	sub, err := h.svc.Submit(c.Request.Context(), events.FromContext(c), roundID, caller(c), Input{
		Title:       req.Title,
		Description: req.Description,
		RepoURL:     req.RepoURL,
		DemoURL:     req.DemoURL,
		ArtifactKey: req.ArtifactKey,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, sub)
}

// ArtifactURL handles POST /events/:id/rounds/:roundId/artifact-url.
func (h *Handler) ArtifactURL(c *gin.Context) {
	roundID, ok := parseID(c, "roundId", "round")
	if !ok {
		return
	}
	var req ArtifactURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	u, err := h.svc.ArtifactUploadURL(c.Request.Context(), events.FromContext(c), roundID, caller(c), req.Filename, req.Size)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, u)
}

// ListByEvent handles GET /events/:id/submissions?round_id= (organizer or judge).
func (h *Handler) ListByEvent(c *gin.Context) {
	eventID, ok := parseID(c, "id", "event")
	if !ok {
		return
	}
	var roundID *uuid.UUID
	if s := c.Query("round_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			response.BadRequest(c, "invalid round id")
			return
		}
		roundID = &id
	}
	list, err := h.svc.ListByEvent(c.Request.Context(), eventID, roundID, caller(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, list)
}

// Mine handles GET /events/:id/submissions/me.
func (h *Handler) Mine(c *gin.Context) {
	eventID, ok := parseID(c, "id", "event")
	if !ok {
		return
	}
	list, err := h.svc.Mine(c.Request.Context(), eventID, caller(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, list)
}

// Get handles GET /submissions/:id.
func (h *Handler) Get(c *gin.Context) {
	id, ok := parseID(c, "id", "submission")
	if !ok {
		return
	}
	sub, err := h.svc.Get(c.Request.Context(), id, caller(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, sub)
}

// Review handles POST /submissions/:id/reviews (assigned judge).
func (h *Handler) Review(c *gin.Context) {
	id, ok := parseID(c, "id", "submission")
	if !ok {
		return
	}
	var req ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	sub, err := h.svc.Review(c.Request.Context(), id, caller(c), *req.Score, req.Feedback)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, sub)
}

// Reviews handles GET /submissions/:id/reviews (organizer or judge).
func (h *Handler) Reviews(c *gin.Context) {
	id, ok := parseID(c, "id", "submission")
	if !ok {
		return
	}
	list, err := h.svc.Reviews(c.Request.Context(), id, caller(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, list)
}

// Decide handles POST /submissions/:id/decision (organizer).
func (h *Handler) Decide(c *gin.Context) {
	id, ok := parseID(c, "id", "submission")
	if !ok {
		return
	}
	var req DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	sub, err := h.svc.Decide(c.Request.Context(), id, caller(c), req.Status)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.logger.Info("submission decided", zap.String("submission_id", id.String()), zap.String("status", string(sub.Status)))
	response.OK(c, sub)
}

// Delete handles DELETE /submissions/:id (organizer).
func (h *Handler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id", "submission")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id, caller(c)); err != nil {
		h.writeError(c, err)
		return
	}
	h.logger.Info("submission deleted", zap.String("submission_id", id.String()))
	response.NoContent(c)
}

// ArtifactDownload handles GET /submissions/:id/artifact-url.
func (h *Handler) ArtifactDownload(c *gin.Context) {
	id, ok := parseID(c, "id", "submission")
	if !ok {
		return
	}
	u, err := h.svc.ArtifactDownloadURL(c.Request.Context(), id, caller(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, gin.H{"url": u})
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		response.NotFound(c, "not found")
	case errors.Is(err, ErrRoundNotFound), errors.Is(err, ErrNoArtifact):
		response.NotFound(c, err.Error())
	case errors.Is(err, ErrSubmissionLocked):
		response.Conflict(c, err.Error())
	case errors.Is(err, ErrNotTeamLeader), errors.Is(err, ErrForbidden), errors.Is(err, registrations.ErrNotRegistered):
		response.Forbidden(c, err.Error())
	case errors.Is(err, ErrEventClosed), errors.Is(err, ErrInvalidScore), errors.Is(err, ErrInvalidDecision),
		errors.Is(err, ErrInvalidArtifact), errors.Is(err, ErrInvalidURL):
		response.BadRequest(c, err.Error())
	case errors.Is(err, ErrStorageUnavailable):
		response.ServiceUnavailable(c, err.Error())
	default:
		h.logger.Error("submission request failed", zap.Error(err))
		response.Internal(c, "submission request failed")
	}
}
