package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/hackhub/backend/internal/auth"
	"github.com/hackhub/backend/internal/models"
	"github.com/hackhub/backend/pkg/response"
)

const (
	// ContextUserID is the key for user ID in gin context.
	ContextUserID = "user_id"
	// ContextUserRole is the key for user role in gin context.
	ContextUserRole = "user_role"
	// ContextUserEmail is the key for user email in gin context.
	ContextUserEmail = "user_email"
	// ContextUserName is the key for the user's display name in gin context.
	ContextUserName = "user_name"
)

// Identity is the authenticated caller.
type Identity struct {
	UserID   uuid.UUID
	Email    string
	FullName string
	Role     models.Role
}

// CurrentUser returns the identity set by JWT. It panics if JWT did not run, like c.MustGet.
func CurrentUser(c *gin.Context) Identity {
	return Identity{
		UserID:   c.MustGet(ContextUserID).(uuid.UUID),
		Email:    c.GetString(ContextUserEmail),
		FullName: c.GetString(ContextUserName),
		Role:     models.Role(c.GetString(ContextUserRole)),
	}
}

// JWT returns a middleware that validates JWT and sets user claims in context.
func JWT(jwtService *auth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Unauthorized(c, "invalid authorization header")
			c.Abort()
			return
		}
		claims, err := jwtService.Validate(parts[1])
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}
		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextUserRole, claims.Role)
		c.Set(ContextUserEmail, claims.Email)
		c.Set(ContextUserName, claims.FullName)
		c.Next()
	}
}

// OptionalJWT sets user claims when a valid bearer token is present and never rejects.
func OptionalJWT(jwtService *auth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			if claims, err := jwtService.Validate(parts[1]); err == nil {
				c.Set(ContextUserID, claims.UserID)
				c.Set(ContextUserRole, claims.Role)
				c.Set(ContextUserEmail, claims.Email)
				c.Set(ContextUserName, claims.FullName)
			}
		}
		c.Next()
	}
}

// MaybeUser returns the identity when one was set by JWT or OptionalJWT.
func MaybeUser(c *gin.Context) (Identity, bool) {
	if _, ok := c.Get(ContextUserID); !ok {
		return Identity{}, false
	}
	return CurrentUser(c), true
}
