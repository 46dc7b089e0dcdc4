package session

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/hermes-platform/console-api/internal/apperr"
	"github.com/hermes-platform/console-api/internal/models"
	"github.com/stretchr/testify/assert"
)

func Test_ValidateSignUp(t *testing.T) {
	valid := SignUpRequest{Email: "dev@example.com", Name: "Dev", Password: "longenough"}
	assert.NoError(t, ValidateSignUp(valid))

	tests := []struct {
		name string
		req  SignUpRequest
	}{
		{"bad email", SignUpRequest{Email: "not-an-email", Name: "Dev", Password: "longenough"}},
		{"empty email", SignUpRequest{Email: "", Name: "Dev", Password: "longenough"}},
		{"short name", SignUpRequest{Email: "dev@example.com", Name: "D", Password: "longenough"}},
		{"short password", SignUpRequest{Email: "dev@example.com", Name: "Dev", Password: "short"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSignUp(tt.req)
			assert.True(t, apperr.IsKind(err, apperr.KindBadRequest))
		})
	}
}

func Test_Context_UserRoundTrip(t *testing.T) {
	u := &models.User{ID: uuid.New(), Email: "dev@example.com"}

	ctx := WithUser(context.Background(), u)

	assert.Equal(t, u, UserFromContext(ctx))
	assert.Equal(t, u.ID, UserIDFromContext(ctx))
}

func Test_Context_MissingValues(t *testing.T) {
	ctx := context.Background()

	assert.Nil(t, UserFromContext(ctx))
	assert.Equal(t, uuid.Nil, UserIDFromContext(ctx))
	assert.Nil(t, FromContext(ctx))
}

func Test_Context_SessionRoundTrip(t *testing.T) {
	s := &models.Session{ID: uuid.New(), Token: strings.Repeat("a", 64)}

	ctx := WithSession(context.Background(), s)

	assert.Equal(t, s, FromContext(ctx))
}
