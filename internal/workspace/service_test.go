package workspace

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/hermes-platform/console-api/internal/apperr"
	"github.com/hermes-platform/console-api/internal/audit"
	"github.com/hermes-platform/console-api/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func Test_ValidateCreate_AcceptsWellFormedRequest(t *testing.T) {
	err := ValidateCreate(CreateRequest{Name: "My Project", Slug: "my-project-1"})
	assert.NoError(t, err)
}

func Test_ValidateCreate_RejectsBadSlugs(t *testing.T) {
	bad := []string{"My-Project", "has space", "under_score", "uni-cøde", "x", strings.Repeat("a", 256)}

	for _, slug := range bad {
		err := ValidateCreate(CreateRequest{Name: "ok name", Slug: slug})
		assert.Error(t, err, "slug %q", slug)
		assert.True(t, apperr.IsKind(err, apperr.KindBadRequest), "slug %q", slug)
	}
}

func Test_ValidateCreate_RejectsBadNames(t *testing.T) {
	assert.Error(t, ValidateCreate(CreateRequest{Name: "x", Slug: "valid-slug"}))
	assert.Error(t, ValidateCreate(CreateRequest{Name: strings.Repeat("n", 256), Slug: "valid-slug"}))
}

func Test_ValidateCreate_Visibility(t *testing.T) {
	assert.NoError(t, ValidateCreate(CreateRequest{Name: "ok name", Slug: "ok-slug", Visibility: models.VisibilityPublic}))
	assert.Error(t, ValidateCreate(CreateRequest{Name: "ok name", Slug: "ok-slug", Visibility: "hidden"}))
}

type fakeRow struct {
	scan func(dest ...any) error
}

func (r fakeRow) Scan(dest ...any) error { return r.scan(dest...) }

type fakeDB struct {
	queryRow func(sql string, args []any) pgx.Row
	execErr  error
}

func (f *fakeDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("unexpected query: " + sql)
}

func (f *fakeDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return f.queryRow(sql, args)
}

func (f *fakeDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, f.execErr
}

func (f *fakeDB) Begin(ctx context.Context) (pgx.Tx, error) {
	return nil, errors.New("unexpected begin")
}

func workspaceRow(id, ownerID uuid.UUID) pgx.Row {
	return fakeRow{scan: func(dest ...any) error {
		*(dest[0].(*uuid.UUID)) = id
		*(dest[1].(*string)) = "My Project"
		*(dest[2].(*string)) = "my-project"
		*(dest[4].(*uuid.UUID)) = ownerID
		*(dest[5].(*models.WorkspaceVisibility)) = models.VisibilityPrivate
		return nil
	}}
}

func Test_Delete_WorkspaceWithHistoryConflicts(t *testing.T) {
	ownerID := uuid.New()
	wsID := uuid.New()

	db := &fakeDB{execErr: &pgconn.PgError{Code: "23503", Message: "violates foreign key constraint"}}
	db.queryRow = func(sql string, args []any) pgx.Row {
		return workspaceRow(wsID, ownerID)
	}

	svc := NewService(db, audit.NewService(db), nil)
	err := svc.Delete(context.Background(), wsID, ownerID)

	assert.True(t, apperr.IsKind(err, apperr.KindConflict))
	assert.Equal(t, "workspace still contains executions or memories", apperr.Message(err))
}

func Test_Delete_RequiresOwnership(t *testing.T) {
	wsID := uuid.New()

	db := &fakeDB{}
	db.queryRow = func(sql string, args []any) pgx.Row {
		return workspaceRow(wsID, uuid.New())
	}

	svc := NewService(db, audit.NewService(db), nil)
	err := svc.Delete(context.Background(), wsID, uuid.New())

	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))
}
