package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hermes-platform/console-api/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_writeErr_MapsServiceErrors(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
		wantBody   string
	}{
		{apperr.NotFound("execution not found"), http.StatusNotFound, "execution not found"},
		{apperr.Forbidden("access denied"), http.StatusForbidden, "access denied"},
		{apperr.Conflict("workspace slug already exists"), http.StatusConflict, "workspace slug already exists"},
		{apperr.Internal("failed to submit execution", errors.New("dial tcp")), http.StatusInternalServerError, "internal server error"},
		{errors.New("raw pgx error"), http.StatusInternalServerError, "internal server error"},
	}

	for _, tt := range tests {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/executions", nil)

		writeErr(rec, req, tt.err)

		assert.Equal(t, tt.wantStatus, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, tt.wantBody, body["error"])
	}
}

func Test_uuidQuery(t *testing.T) {
	id := "2fd8a51a-6160-40a4-9b6b-1d3c80a3f9d2"
	req := httptest.NewRequest(http.MethodGet, "/api/v1/executions?workspace_id="+id, nil)

	got, err := uuidQuery(req, "workspace_id")
	require.NoError(t, err)
	assert.Equal(t, id, got.String())

	_, err = uuidQuery(httptest.NewRequest(http.MethodGet, "/?workspace_id=nope", nil), "workspace_id")
	assert.Error(t, err)
}
