package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/hermes-platform/console-api/internal/apperr"
	"github.com/hermes-platform/console-api/internal/memory"
	"github.com/hermes-platform/console-api/internal/session"
)

type MemoryHandler struct {
	svc *memory.Service
}

func NewMemoryHandler(svc *memory.Service) *MemoryHandler {
	return &MemoryHandler{svc: svc}
}

func (h *MemoryHandler) Search(w http.ResponseWriter, r *http.Request) {
	workspaceID, err := uuidQuery(r, "workspace_id")
	if err != nil {
		writeErr(w, r, apperr.BadRequest("invalid workspace_id"))
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	resp, err := h.svc.Search(r.Context(), memory.SearchRequest{
		WorkspaceID: workspaceID,
		Namespace:   r.URL.Query().Get("namespace"),
		Query:       r.URL.Query().Get("query"),
		Limit:       limit,
	}, session.UserIDFromContext(r.Context()))
	if err != nil {
		writeErr(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *MemoryHandler) Store(w http.ResponseWriter, r *http.Request) {
	var req memory.StoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, r, apperr.BadRequest("invalid request body"))
		return
	}

	entry, err := h.svc.Store(r.Context(), req, session.UserIDFromContext(r.Context()))
	if err != nil {
		writeErr(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, entry)
}

func (h *MemoryHandler) Query(w http.ResponseWriter, r *http.Request) {
	workspaceID, err := uuidQuery(r, "workspace_id")
	if err != nil {
		writeErr(w, r, apperr.BadRequest("invalid workspace_id"))
		return
	}

	resp, err := h.svc.Query(r.Context(), memory.QueryRequest{
		WorkspaceID: workspaceID,
		Namespace:   r.URL.Query().Get("namespace"),
		OmniQuery:   r.URL.Query().Get("omni_query"),
	}, session.UserIDFromContext(r.Context()))
	if err != nil {
		writeErr(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *MemoryHandler) Namespaces(w http.ResponseWriter, r *http.Request) {
	workspaceID, err := uuidQuery(r, "workspace_id")
	if err != nil {
		writeErr(w, r, apperr.BadRequest("invalid workspace_id"))
		return
	}

	namespaces, err := h.svc.Namespaces(r.Context(), workspaceID, session.UserIDFromContext(r.Context()))
	if err != nil {
		writeErr(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"namespaces": namespaces})
}

func (h *MemoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		writeErr(w, r, apperr.BadRequest("invalid memory entry ID"))
		return
	}

	if err := h.svc.Delete(r.Context(), id, session.UserIDFromContext(r.Context())); err != nil {
		writeErr(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
