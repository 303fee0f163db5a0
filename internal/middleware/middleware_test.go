package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackhub/backend/internal/auth"
	"github.com/hackhub/backend/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestJWTAndRequireRole(t *testing.T) {
	jwtSvc := auth.NewJWTService("secret", 1)
	r := gin.New()
	r.GET("/org", JWT(jwtSvc), RequireRole(models.RoleOrganizer), func(c *gin.Context) {
		id := CurrentUser(c)
		c.String(http.StatusOK, id.Email+"|"+id.FullName)
	})

	call := func(header string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/org", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusUnauthorized, call("").Code)
	assert.Equal(t, http.StatusUnauthorized, call("Token abc").Code)
	assert.Equal(t, http.StatusUnauthorized, call("Bearer nope").Code)

	participant, err := jwtSvc.Generate(uuid.New(), "p@x.io", "P", string(models.RoleParticipant))
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, call("Bearer "+participant).Code)

	organizer, err := jwtSvc.Generate(uuid.New(), "o@x.io", "Olive", string(models.RoleOrganizer))
	require.NoError(t, err)
	w := call("Bearer " + organizer)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "o@x.io|Olive", w.Body.String())
}

func TestRateLimiterRefills(t *testing.T) {
	now := time.Unix(0, 0)
	l := NewRateLimiter(2, 60) // one token per second
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("ip"))
	assert.True(t, l.Allow("ip"))
	assert.False(t, l.Allow("ip"))
	assert.True(t, l.Allow("other"))

	now = now.Add(time.Second)
	assert.True(t, l.Allow("ip"))
	assert.False(t, l.Allow("ip"))

	now = now.Add(time.Hour)
	l.Sweep(time.Minute)
	assert.Empty(t, l.buckets)
}

func TestCORSPreflight(t *testing.T) {
	r := gin.New()
	r.Use(CORS("http://a.test, http://b.test"))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "http://b.test")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://b.test", w.Header().Get("Access-Control-Allow-Origin"))
}
