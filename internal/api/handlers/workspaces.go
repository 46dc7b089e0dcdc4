package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/hermes-platform/console-api/internal/apperr"
	"github.com/hermes-platform/console-api/internal/audit"
	"github.com/hermes-platform/console-api/internal/session"
	"github.com/hermes-platform/console-api/internal/workspace"
)

type WorkspaceHandler struct {
	svc   *workspace.Service
	audit *audit.Service
}

func NewWorkspaceHandler(svc *workspace.Service, auditSvc *audit.Service) *WorkspaceHandler {
	return &WorkspaceHandler{svc: svc, audit: auditSvc}
}

func (h *WorkspaceHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := session.UserIDFromContext(r.Context())

	workspaces, err := h.svc.List(r.Context(), userID)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	if workspaces == nil {
		workspaces = []workspace.WithRole{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"workspaces": workspaces, "count": len(workspaces)})
}

func (h *WorkspaceHandler) GetBySlug(w http.ResponseWriter, r *http.Request) {
	userID := session.UserIDFromContext(r.Context())

	ws, err := h.svc.GetBySlug(r.Context(), chi.URLParam(r, "slug"), userID)
	if err != nil {
		writeErr(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, ws)
}

func (h *WorkspaceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req workspace.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, r, apperr.BadRequest("invalid request body"))
		return
	}

	ws, err := h.svc.Create(r.Context(), req, session.UserIDFromContext(r.Context()))
	if err != nil {
		writeErr(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, ws)
}

func (h *WorkspaceHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		writeErr(w, r, apperr.BadRequest("invalid workspace ID"))
		return
	}

	var req workspace.UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, r, apperr.BadRequest("invalid request body"))
		return
	}

	ws, err := h.svc.Update(r.Context(), id, req, session.UserIDFromContext(r.Context()))
	if err != nil {
		writeErr(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, ws)
}

func (h *WorkspaceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		writeErr(w, r, apperr.BadRequest("invalid workspace ID"))
		return
	}

	if err := h.svc.Delete(r.Context(), id, session.UserIDFromContext(r.Context())); err != nil {
		writeErr(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *WorkspaceHandler) Stats(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		writeErr(w, r, apperr.BadRequest("invalid workspace ID"))
		return
	}

	stats, err := h.svc.Stats(r.Context(), id, session.UserIDFromContext(r.Context()))
	if err != nil {
		writeErr(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

func (h *WorkspaceHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		writeErr(w, r, apperr.BadRequest("invalid workspace ID"))
		return
	}

	var req workspace.AddMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, r, apperr.BadRequest("invalid request body"))
		return
	}

	member, err := h.svc.AddMember(r.Context(), id, req, session.UserIDFromContext(r.Context()))
	if err != nil {
		writeErr(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, member)
}

// Activity lists the workspace's recent audit trail. Requires membership.
func (h *WorkspaceHandler) Activity(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		writeErr(w, r, apperr.BadRequest("invalid workspace ID"))
		return
	}

	userID := session.UserIDFromContext(r.Context())
	if err := h.svc.RequireMember(r.Context(), id, userID); err != nil {
		writeErr(w, r, err)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	logs, err := h.audit.Recent(r.Context(), audit.Query{
		WorkspaceID: id,
		Action:      r.URL.Query().Get("action"),
		Limit:       limit,
		Offset:      offset,
	})
	if err != nil {
		writeErr(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"activity": logs, "count": len(logs)})
}
