package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackhub/backend/internal/models"
)

type fakeUsers struct {
	byEmail map[string]*models.User
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	if u, ok := f.byEmail[email]; ok {
		return u, nil
	}
	return nil, models.ErrNotFound
}

func (f *fakeUsers) Create(_ context.Context, email, hash, fullName string, role models.Role) (*models.User, error) {
	if _, ok := f.byEmail[email]; ok {
		return nil, models.ErrConflict
	}
	u := &models.User{ID: uuid.New(), Email: email, Password: hash, FullName: fullName, Role: role, CreatedAt: time.Now()}
	f.byEmail[email] = u
	return u, nil
}

func newAuthRouter() (*gin.Engine, *fakeUsers) {
	gin.SetMode(gin.TestMode)
	store := &fakeUsers{byEmail: map[string]*models.User{}}
	h := NewHandler(store, NewJWTService("secret", 1), nil)
	r := gin.New()
	r.POST("/auth/register", h.Register)
	r.POST("/auth/login", h.Login)
	return r, store
}

func postJSON(r http.Handler, path string, body any) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRegisterAndLogin(t *testing.T) {
	r, store := newAuthRouter()

	w := postJSON(r, "/auth/register", map[string]string{
		"email": "Ada@Example.com", "password": "hunter22", "full_name": "Ada", "role": "organizer",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	u := store.byEmail["ada@example.com"]
	require.NotNil(t, u)
	assert.Equal(t, models.RoleOrganizer, u.Role)

	w = postJSON(r, "/auth/register", map[string]string{
		"email": "ada@example.com", "password": "hunter22", "full_name": "Ada",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = postJSON(r, "/auth/login", map[string]string{"email": "ADA@example.com", "password": "hunter22"})
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data TokenResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.NotEmpty(t, body.Data.Token)

	w = postJSON(r, "/auth/login", map[string]string{"email": "ada@example.com", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegisterRejectsUnknownRole(t *testing.T) {
	r, _ := newAuthRouter()
	w := postJSON(r, "/auth/register", map[string]string{
		"email": "x@example.com", "password": "hunter22", "full_name": "X", "role": "admin",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
