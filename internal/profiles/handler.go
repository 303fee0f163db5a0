package profiles

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackhub/backend/internal/middleware"
	"github.com/hackhub/backend/internal/models"
	"github.com/hackhub/backend/pkg/response"
)

const maxSkills = 30

var (
	ErrInvalidURL    = errors.New("github_url and linkedin_url must be http(s) URLs")
	ErrEmptyName     = errors.New("full_name must not be empty")
	ErrTooManySkills = errors.New("at most 30 skills")
)

// Store is the profile persistence the handler needs.
type Store interface {
	Get(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	Save(ctx context.Context, p *models.Profile) error
}

// UpdateRequest is the body for PATCH /me/profile. Omitted fields keep their value.
type UpdateRequest struct {
	FullName     *string   `json:"full_name" binding:"omitempty,max=200"`
	Bio          *string   `json:"bio" binding:"omitempty,max=2000"`
	Organization *string   `json:"organization" binding:"omitempty,max=200"`
	GithubURL    *string   `json:"github_url"`
	LinkedinURL  *string   `json:"linkedin_url"`
	Skills       *[]string `json:"skills"`
}

// Apply merges the request into p.
func (req UpdateRequest) Apply(p *models.Profile) error {
	if req.FullName != nil {
		name := strings.TrimSpace(*req.FullName)
		if name == "" {
			return ErrEmptyName
		}
		p.FullName = name
	}
	if req.Bio != nil {
		p.Bio = strings.TrimSpace(*req.Bio)
	}
	if req.Organization != nil {
		p.Organization = strings.TrimSpace(*req.Organization)
	}
	for _, f := range []struct {
		in  *string
		out *string
	}{{req.GithubURL, &p.GithubURL}, {req.LinkedinURL, &p.LinkedinURL}} {
		if f.in == nil {
			continue
		}
		v := strings.TrimSpace(*f.in)
		if v != "" && !validURL(v) {
			return ErrInvalidURL
		}
		*f.out = v
	}
	if req.Skills != nil {
		skills := make([]string, 0, len(*req.Skills))
		seen := map[string]bool{}
		for _, s := range *req.Skills {
			s = strings.TrimSpace(s)
			if s == "" || seen[strings.ToLower(s)] {
				continue
			}
			seen[strings.ToLower(s)] = true
			skills = append(skills, s)
		}
		if len(skills) > maxSkills {
			return ErrTooManySkills
		}
		p.Skills = skills
	}
	return nil
}

func validURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Handler handles profile endpoints.
type Handler struct {
	store  Store
	logger *zap.Logger
}

// NewHandler creates a profiles handler.
func NewHandler(store Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, logger: logger}
}

// Me handles GET /me/profile.
func (h *Handler) Me(c *gin.Context) {
	p, err := h.store.Get(c.Request.Context(), middleware.CurrentUser(c).UserID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, p)
}

// Update handles PATCH /me/profile.
func (h *Handler) Update(c *gin.Context) {
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	ctx := c.Request.Context()
	p, err := h.store.Get(ctx, middleware.CurrentUser(c).UserID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if err := req.Apply(p); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := h.store.Save(ctx, p); err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, p)
}

// Public handles GET /users/:id/profile. Email is not shown.
func (h *Handler) Public(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}
	p, err := h.store.Get(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	p.Email = ""
	response.OK(c, p)
}

func (h *Handler) writeError(c *gin.Context, err error) {
	if errors.Is(err, models.ErrNotFound) {
		response.NotFound(c, "user not found")
		return
	}
	h.logger.Error("profile request failed", zap.Error(err))
	response.Internal(c, "profile request failed")
}
