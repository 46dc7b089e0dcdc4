package audit

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDB struct {
	execErr error
	execs   int
}

func (f *fakeDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("unexpected query: " + sql)
}

func (f *fakeDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	panic("unexpected queryRow: " + sql)
}

func (f *fakeDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.execs++
	return pgconn.CommandTag{}, f.execErr
}

func (f *fakeDB) Begin(ctx context.Context) (pgx.Tx, error) {
	return nil, errors.New("unexpected begin")
}

type recordingHandler struct {
	msgs *[]string
}

func (h *recordingHandler) Enabled(ctx context.Context, level slog.Level) bool { return true }

func (h *recordingHandler) Handle(ctx context.Context, r slog.Record) error {
	*h.msgs = append(*h.msgs, r.Message)
	return nil
}

func (h *recordingHandler) WithAttrs(attrs []slog.Attr) slog.Handler { return h }

func (h *recordingHandler) WithGroup(name string) slog.Handler { return h }

func Test_Log_WarnsWhenInsertFails(t *testing.T) {
	var msgs []string
	prev := slog.Default()
	slog.SetDefault(slog.New(&recordingHandler{msgs: &msgs}))
	defer slog.SetDefault(prev)

	db := &fakeDB{execErr: errors.New("connection reset")}
	svc := NewService(db)

	svc.Log(context.Background(), LogEntry{Action: "workspace.created"})

	require.Equal(t, 1, db.execs)
	assert.Contains(t, msgs, "failed to write audit log")
}

func Test_Log_QuietOnSuccess(t *testing.T) {
	var msgs []string
	prev := slog.Default()
	slog.SetDefault(slog.New(&recordingHandler{msgs: &msgs}))
	defer slog.SetDefault(prev)

	db := &fakeDB{}
	svc := NewService(db)

	svc.Log(context.Background(), LogEntry{Action: "workspace.created"})

	require.Equal(t, 1, db.execs)
	assert.Empty(t, msgs)
}
