package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_Status_MapsKindsToHTTPCodes(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{BadRequest("bad"), http.StatusBadRequest},
		{Unauthorized("no"), http.StatusUnauthorized},
		{Forbidden("denied"), http.StatusForbidden},
		{NotFound("missing"), http.StatusNotFound},
		{Conflict("dupe"), http.StatusConflict},
		{NotImplemented("later"), http.StatusNotImplemented},
		{Internal("boom", errors.New("cause")), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Status(tt.err), "error: %v", tt.err)
	}
}

func Test_Status_UnwrapsWrappedErrors(t *testing.T) {
	wrapped := fmt.Errorf("check membership: %w", Forbidden("access denied"))

	assert.Equal(t, http.StatusForbidden, Status(wrapped))
	assert.True(t, IsKind(wrapped, KindForbidden))
}

func Test_Message_CollapsesInternalErrors(t *testing.T) {
	err := Internal("failed to submit execution", errors.New("dial tcp: connection refused"))

	assert.Equal(t, "internal server error", Message(err))
	assert.NotContains(t, Message(err), "connection refused")
}

func Test_Message_PreservesExpectedErrors(t *testing.T) {
	assert.Equal(t, "workspace not found", Message(NotFound("workspace not found")))
	assert.Equal(t, "internal server error", Message(errors.New("pgx: raw driver error")))
}

func Test_Error_UnwrapExposesCause(t *testing.T) {
	cause := errors.New("timeout")
	err := Internal("hermes call failed", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "hermes call failed: timeout", err.Error())
}

func Test_KindOf_DefaultsToInternal(t *testing.T) {
	assert.Equal(t, KindInternal, KindOf(errors.New("anything")))
	assert.Equal(t, KindConflict, KindOf(Conflict("slug taken")))
}
