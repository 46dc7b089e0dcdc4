package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/hermes-platform/console-api/internal/models"
	"github.com/hermes-platform/console-api/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Me_ReturnsContextUser(t *testing.T) {
	h := NewAuthHandler(nil)
	name := "Dev"
	u := &models.User{ID: uuid.New(), Email: "dev@example.com", Name: &name}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req = req.WithContext(session.WithUser(req.Context(), u))
	rec := httptest.NewRecorder()

	h.Me(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var got models.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, "dev@example.com", got.Email)
}

func Test_SignInWithWorkOS_RequiresCode(t *testing.T) {
	h := NewAuthHandler(nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/workos", strings.NewReader(`{"state":"abc"}`))
	rec := httptest.NewRecorder()

	h.SignInWithWorkOS(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func Test_SignInWithWorkOS_NotImplemented(t *testing.T) {
	h := NewAuthHandler(nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/workos", strings.NewReader(`{"code":"authcode123"}`))
	rec := httptest.NewRecorder()

	h.SignInWithWorkOS(rec, req)

	require.Equal(t, http.StatusNotImplemented, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "WorkOS integration coming soon", body["error"])
}

func Test_SignOut_WithoutSession(t *testing.T) {
	h := NewAuthHandler(nil)

	rec := httptest.NewRecorder()
	h.SignOut(rec, httptest.NewRequest(http.MethodPost, "/api/v1/auth/signout", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func Test_SignUp_MalformedBody(t *testing.T) {
	h := NewAuthHandler(nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/signup", strings.NewReader("{"))
	rec := httptest.NewRecorder()

	h.SignUp(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
