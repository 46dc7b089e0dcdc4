package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hermes-platform/console-api/internal/apperr"
	"github.com/hermes-platform/console-api/internal/audit"
	"github.com/hermes-platform/console-api/internal/hermes"
	"github.com/hermes-platform/console-api/internal/models"
	"github.com/hermes-platform/console-api/internal/workspace"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRow struct {
	scan func(dest ...any) error
}

func (r fakeRow) Scan(dest ...any) error { return r.scan(dest...) }

type fakeDB struct {
	queryRow func(sql string, args []any) pgx.Row
	queried  bool
}

func (f *fakeDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	f.queried = true
	return nil, errors.New("unexpected query: " + sql)
}

func (f *fakeDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return f.queryRow(sql, args)
}

func (f *fakeDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (f *fakeDB) Begin(ctx context.Context) (pgx.Tx, error) {
	return nil, errors.New("unexpected begin")
}

type fakeHermes struct {
	searchReq hermes.SearchRequest
	results   []hermes.SearchResult
}

func (f *fakeHermes) CreateExecution(ctx context.Context, req hermes.ExecutionRequest) (*hermes.ExecutionResponse, error) {
	return &hermes.ExecutionResponse{ExecutionID: "exec_fake"}, nil
}

func (f *fakeHermes) GetExecution(ctx context.Context, executionID string) (*hermes.ExecutionStatus, error) {
	return &hermes.ExecutionStatus{ExecutionID: executionID, Status: "completed"}, nil
}

func (f *fakeHermes) CancelExecution(ctx context.Context, executionID string) error { return nil }

func (f *fakeHermes) SearchMemory(ctx context.Context, req hermes.SearchRequest) (*hermes.SearchResponse, error) {
	f.searchReq = req
	return &hermes.SearchResponse{Results: f.results}, nil
}

func (f *fakeHermes) StoreMemory(ctx context.Context, req hermes.StoreRequest) (*hermes.StoreResponse, error) {
	return &hermes.StoreResponse{ID: "mem_fake", Success: true}, nil
}

func (f *fakeHermes) QueryMemory(ctx context.Context, req hermes.QueryRequest) (*hermes.QueryResponse, error) {
	return &hermes.QueryResponse{}, nil
}

func (f *fakeHermes) DeleteMemory(ctx context.Context, memoryID string) error { return nil }

func newTestService(db *fakeDB, h hermes.Client) *Service {
	auditSvc := audit.NewService(db)
	ws := workspace.NewService(db, auditSvc, nil)
	return NewService(db, h, ws, auditSvc, time.Second)
}

func memberRow(role models.UserRole) pgx.Row {
	return fakeRow{scan: func(dest ...any) error {
		*(dest[0].(*models.UserRole)) = role
		return nil
	}}
}

func Test_Search_NoExternalHitsSkipsLocalLookup(t *testing.T) {
	wsID := uuid.New()
	userID := uuid.New()

	db := &fakeDB{}
	db.queryRow = func(sql string, args []any) pgx.Row {
		return memberRow(models.RoleUser)
	}

	h := &fakeHermes{}
	svc := newTestService(db, h)

	resp, err := svc.Search(context.Background(), SearchRequest{
		WorkspaceID: wsID,
		Namespace:   "notes",
		Query:       "deployment checklist",
	}, userID)

	require.NoError(t, err)
	assert.NotNil(t, resp.Results, "results must marshal as [], not null")
	assert.Empty(t, resp.Results)
	assert.Zero(t, resp.Total)
	assert.False(t, db.queried, "no local lookup when Hermes returns nothing")
	assert.Equal(t, hermes.NamespaceKey(wsID, "notes"), h.searchReq.Namespace)
}

func Test_Search_RejectsOversizedLimit(t *testing.T) {
	db := &fakeDB{}
	svc := newTestService(db, &fakeHermes{})

	_, err := svc.Search(context.Background(), SearchRequest{
		WorkspaceID: uuid.New(),
		Query:       "q",
		Limit:       51,
	}, uuid.New())

	assert.True(t, apperr.IsKind(err, apperr.KindBadRequest))
}
