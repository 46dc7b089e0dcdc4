package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/hermes-platform/console-api/internal/apperr"
	"github.com/hermes-platform/console-api/internal/execution"
	"github.com/hermes-platform/console-api/internal/models"
	"github.com/hermes-platform/console-api/internal/session"
)

type ExecutionHandler struct {
	svc *execution.Service
}

func NewExecutionHandler(svc *execution.Service) *ExecutionHandler {
	return &ExecutionHandler{svc: svc}
}

func (h *ExecutionHandler) List(w http.ResponseWriter, r *http.Request) {
	workspaceID, err := uuidQuery(r, "workspace_id")
	if err != nil {
		writeErr(w, r, apperr.BadRequest("invalid workspace_id"))
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	result, err := h.svc.List(r.Context(), execution.ListRequest{
		WorkspaceID: workspaceID,
		Limit:       limit,
		Offset:      offset,
		Status:      models.ExecutionStatus(r.URL.Query().Get("status")),
	}, session.UserIDFromContext(r.Context()))
	if err != nil {
		writeErr(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *ExecutionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		writeErr(w, r, apperr.BadRequest("invalid execution ID"))
		return
	}

	e, err := h.svc.Get(r.Context(), id, session.UserIDFromContext(r.Context()))
	if err != nil {
		writeErr(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, e)
}

func (h *ExecutionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req execution.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, r, apperr.BadRequest("invalid request body"))
		return
	}

	e, err := h.svc.Create(r.Context(), req, session.UserIDFromContext(r.Context()))
	if err != nil {
		writeErr(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, e)
}

func (h *ExecutionHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		writeErr(w, r, apperr.BadRequest("invalid execution ID"))
		return
	}

	e, err := h.svc.Cancel(r.Context(), id, session.UserIDFromContext(r.Context()))
	if err != nil {
		writeErr(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, e)
}

func (h *ExecutionHandler) Logs(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		writeErr(w, r, apperr.BadRequest("invalid execution ID"))
		return
	}

	logs, err := h.svc.GetLogs(r.Context(), id, session.UserIDFromContext(r.Context()))
	if err != nil {
		writeErr(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, logs)
}
