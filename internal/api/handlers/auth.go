package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/hermes-platform/console-api/internal/apperr"
	"github.com/hermes-platform/console-api/internal/session"
)

type AuthHandler struct {
	svc *session.Service
}

func NewAuthHandler(svc *session.Service) *AuthHandler {
	return &AuthHandler{svc: svc}
}

// Me returns the caller's user record.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, session.UserFromContext(r.Context()))
}

func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req session.SignUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, r, apperr.BadRequest("invalid request body"))
		return
	}

	result, err := h.svc.SignUp(r.Context(), req, clientMeta(r))
	if err != nil {
		writeErr(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req session.SignInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, r, apperr.BadRequest("invalid request body"))
		return
	}

	result, err := h.svc.SignIn(r.Context(), req, clientMeta(r))
	if err != nil {
		writeErr(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	s := session.FromContext(r.Context())
	if s == nil {
		writeErr(w, r, apperr.Unauthorized("no active session"))
		return
	}

	if err := h.svc.SignOut(r.Context(), s.Token); err != nil {
		writeErr(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// SignInWithWorkOS is reserved for the SSO code exchange.
func (h *AuthHandler) SignInWithWorkOS(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code  string `json:"code"`
		State string `json:"state,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, r, apperr.BadRequest("invalid request body"))
		return
	}
	if req.Code == "" {
		writeErr(w, r, apperr.BadRequest("code required"))
		return
	}

	writeErr(w, r, apperr.NotImplemented("WorkOS integration coming soon"))
}

func (h *AuthHandler) RefreshSession(w http.ResponseWriter, r *http.Request) {
	s := session.FromContext(r.Context())
	if s == nil {
		writeErr(w, r, apperr.Unauthorized("no active session"))
		return
	}

	expiresAt, err := h.svc.Refresh(r.Context(), s.ID)
	if err != nil {
		writeErr(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"expires_at": expiresAt})
}

func clientMeta(r *http.Request) session.ClientMeta {
	return session.ClientMeta{
		IPAddress: r.RemoteAddr,
		UserAgent: r.UserAgent(),
	}
}
