package execution

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hermes-platform/console-api/internal/apperr"
	"github.com/hermes-platform/console-api/internal/audit"
	"github.com/hermes-platform/console-api/internal/database"
	"github.com/hermes-platform/console-api/internal/hermes"
	"github.com/hermes-platform/console-api/internal/models"
	"github.com/hermes-platform/console-api/internal/queue"
	"github.com/hermes-platform/console-api/internal/workspace"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
)

var supportedLanguages = map[string]bool{
	"python":     true,
	"javascript": true,
	"typescript": true,
	"go":         true,
	"rust":       true,
}

const (
	defaultLimit = 20
	maxLimit     = 100

	logKeyPrefix = "execution:logs:"
	logTTL       = 24 * time.Hour

	// First poll runs shortly after submission so quick executions settle in
	// one pass; follow-up polls for still-running executions back off a bit.
	initialSyncDelay = 2 * time.Second
	syncPollInterval = 5 * time.Second
)

// Enqueuer schedules background execution syncs. Satisfied by *queue.Client.
type Enqueuer interface {
	EnqueueExecutionSync(payload queue.ExecutionSyncPayload, delay time.Duration) error
}

type Service struct {
	db            database.DB
	hermes        hermes.Client
	workspaces    *workspace.Service
	audit         *audit.Service
	queue         Enqueuer
	redis         *redis.Client
	hermesTimeout time.Duration
}

func NewService(db database.DB, client hermes.Client, ws *workspace.Service, auditSvc *audit.Service, q Enqueuer, rdb *redis.Client, hermesTimeout time.Duration) *Service {
	return &Service{
		db:            db,
		hermes:        client,
		workspaces:    ws,
		audit:         auditSvc,
		queue:         q,
		redis:         rdb,
		hermesTimeout: hermesTimeout,
	}
}

type ListRequest struct {
	WorkspaceID uuid.UUID
	Limit       int
	Offset      int
	Status      models.ExecutionStatus
}

type ListResult struct {
	Items   []models.Execution `json:"items"`
	Total   int                `json:"total"`
	HasMore bool               `json:"has_more"`
}

// HasMore reports whether a further page exists beyond offset+pageLen.
func HasMore(offset, pageLen, total int) bool {
	return offset+pageLen < total
}

// List returns a page of the workspace's executions, newest first. Requires
// membership.
func (s *Service) List(ctx context.Context, req ListRequest, userID uuid.UUID) (*ListResult, error) {
	if req.Limit <= 0 {
		req.Limit = defaultLimit
	}
	if req.Limit > maxLimit {
		return nil, apperr.BadRequest("limit must be at most 100")
	}
	if req.Offset < 0 {
		return nil, apperr.BadRequest("offset must be non-negative")
	}
	if req.Status != "" && !req.Status.Valid() {
		return nil, apperr.BadRequest("invalid status")
	}

	if err := s.workspaces.RequireMember(ctx, req.WorkspaceID, userID); err != nil {
		return nil, err
	}

	where := "workspace_id = $1"
	args := []interface{}{req.WorkspaceID}
	if req.Status != "" {
		where += " AND status = $2"
		args = append(args, req.Status)
	}

	var total int
	if err := s.db.QueryRow(ctx, "SELECT COUNT(*) FROM executions WHERE "+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count executions: %w", err)
	}

	limitIdx := len(args) + 1
	query := fmt.Sprintf(`SELECT %s FROM executions WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		executionColumns, where, limitIdx, limitIdx+1)
	args = append(args, req.Limit, req.Offset)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list executions: %w", err)
	}
	defer rows.Close()

	items := []models.Execution{}
	for rows.Next() {
		e, err := scanExecution(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *e)
	}

	return &ListResult{
		Items:   items,
		Total:   total,
		HasMore: HasMore(req.Offset, len(items), total),
	}, nil
}

// Get returns a single execution. The caller must be a member of its
// workspace.
func (s *Service) Get(ctx context.Context, id, userID uuid.UUID) (*models.Execution, error) {
	e, err := s.getByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.workspaces.RequireMember(ctx, e.WorkspaceID, userID); err != nil {
		return nil, err
	}
	return e, nil
}

type CreateRequest struct {
	WorkspaceID uuid.UUID         `json:"workspace_id"`
	Title       *string           `json:"title,omitempty"`
	Language    string            `json:"language"`
	Code        string            `json:"code"`
	Environment map[string]string `json:"environment,omitempty"`
}

func ValidateCreate(req CreateRequest) error {
	if !supportedLanguages[req.Language] {
		return apperr.BadRequest("unsupported language")
	}
	if req.Code == "" {
		return apperr.BadRequest("code must not be empty")
	}
	return nil
}

// Create inserts a pending execution row, submits it to Hermes, and flips the
// row to running. A failed submission is recorded on the row (status failed,
// error text, completed_at) before the error is surfaced, so the attempt
// leaves durable evidence either way.
func (s *Service) Create(ctx context.Context, req CreateRequest, userID uuid.UUID) (*models.Execution, error) {
	if err := ValidateCreate(req); err != nil {
		return nil, err
	}
	if err := s.workspaces.RequireMember(ctx, req.WorkspaceID, userID); err != nil {
		return nil, err
	}

	env := req.Environment
	if env == nil {
		env = map[string]string{}
	}
	envJSON, _ := json.Marshal(env)

	var e models.Execution
	err := s.db.QueryRow(ctx,
		fmt.Sprintf(`INSERT INTO executions (workspace_id, user_id, title, language, code, environment, status)
		 VALUES ($1, $2, $3, $4, $5, $6, 'pending')
		 RETURNING %s`, executionColumns),
		req.WorkspaceID, userID, req.Title, req.Language, req.Code, envJSON,
	).Scan(scanTargets(&e)...)
	if err != nil {
		return nil, fmt.Errorf("insert execution: %w", err)
	}

	hermesCtx, cancel := context.WithTimeout(ctx, s.hermesTimeout)
	defer cancel()

	resp, err := s.hermes.CreateExecution(hermesCtx, hermes.ExecutionRequest{
		Code:        req.Code,
		Language:    req.Language,
		Environment: env,
	})
	if err != nil {
		now := time.Now()
		msg := err.Error()
		if _, uerr := s.db.Exec(ctx,
			"UPDATE executions SET status = 'failed', error = $1, completed_at = $2 WHERE id = $3",
			msg, now, e.ID,
		); uerr != nil {
			slog.Error("failed to mark execution failed", "execution_id", e.ID, "error", uerr)
		}
		return nil, apperr.Internal("failed to submit execution", err)
	}

	now := time.Now()
	_, err = s.db.Exec(ctx,
		"UPDATE executions SET hermes_execution_id = $1, status = 'running', started_at = $2 WHERE id = $3",
		resp.ExecutionID, now, e.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("mark execution running: %w", err)
	}

	e.HermesExecutionID = &resp.ExecutionID
	e.Status = models.StatusRunning
	e.StartedAt = &now

	if s.queue != nil {
		if err := s.queue.EnqueueExecutionSync(queue.ExecutionSyncPayload{ExecutionID: e.ID.String()}, initialSyncDelay); err != nil {
			slog.Warn("failed to enqueue execution sync", "execution_id", e.ID, "error", err)
		}
	}

	s.audit.Log(ctx, audit.LogEntry{
		WorkspaceID:  &req.WorkspaceID,
		Action:       "execution.created",
		ResourceType: "execution",
		ResourceID:   &e.ID,
		Metadata:     map[string]interface{}{"language": req.Language, "title": req.Title},
	})

	return &e, nil
}

// Cancel moves a pending or running execution to cancelled. Creator-only.
// The remote cancel is best-effort: a Hermes failure is logged and the local
// row is cancelled anyway.
func (s *Service) Cancel(ctx context.Context, id, userID uuid.UUID) (*models.Execution, error) {
	e, err := s.getByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.UserID != userID {
		return nil, apperr.Forbidden("can only cancel your own executions")
	}
	if !e.Status.CanCancel() {
		return nil, apperr.BadRequest("execution is not running")
	}

	if e.HermesExecutionID != nil {
		hermesCtx, cancel := context.WithTimeout(ctx, s.hermesTimeout)
		defer cancel()
		if err := s.hermes.CancelExecution(hermesCtx, *e.HermesExecutionID); err != nil {
			slog.Warn("failed to cancel execution in Hermes", "execution_id", e.ID, "error", err)
		}
	}

	now := time.Now()
	var updated models.Execution
	err = s.db.QueryRow(ctx,
		fmt.Sprintf("UPDATE executions SET status = 'cancelled', completed_at = $1 WHERE id = $2 RETURNING %s", executionColumns),
		now, id,
	).Scan(scanTargets(&updated)...)
	if err != nil {
		return nil, fmt.Errorf("cancel execution: %w", err)
	}

	s.audit.Log(ctx, audit.LogEntry{
		WorkspaceID:  &e.WorkspaceID,
		Action:       "execution.cancelled",
		ResourceType: "execution",
		ResourceID:   &e.ID,
	})

	return &updated, nil
}

type LogLine struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Message   string `json:"message"`
}

type Logs struct {
	ExecutionID uuid.UUID `json:"execution_id"`
	Logs        []LogLine `json:"logs"`
}

// GetLogs returns buffered log lines for the execution from Redis, falling
// back to a single synthetic entry when no buffer exists. Requires workspace
// membership.
func (s *Service) GetLogs(ctx context.Context, id, userID uuid.UUID) (*Logs, error) {
	e, err := s.getByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.workspaces.RequireMember(ctx, e.WorkspaceID, userID); err != nil {
		return nil, err
	}

	var lines []LogLine
	if s.redis != nil {
		raw, err := s.redis.LRange(ctx, logKeyPrefix+id.String(), 0, -1).Result()
		if err != nil {
			slog.Warn("failed to read execution logs from redis", "execution_id", id, "error", err)
		}
		for _, item := range raw {
			var line LogLine
			if json.Unmarshal([]byte(item), &line) == nil {
				lines = append(lines, line)
			}
		}
	}

	if len(lines) == 0 {
		lines = []LogLine{{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Level:     "info",
			Message:   "Execution started",
		}}
	}

	return &Logs{ExecutionID: e.ID, Logs: lines}, nil
}

// AppendLog pushes a log line onto the execution's Redis buffer.
func (s *Service) AppendLog(ctx context.Context, id uuid.UUID, level, message string) {
	if s.redis == nil {
		return
	}
	line, _ := json.Marshal(LogLine{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Level:     level,
		Message:   message,
	})
	key := logKeyPrefix + id.String()
	if err := s.redis.RPush(ctx, key, line).Err(); err != nil {
		slog.Warn("failed to append execution log", "execution_id", id, "error", err)
		return
	}
	s.redis.Expire(ctx, key, logTTL)
}

// SyncFromHermes polls Hermes for the execution's current state and finalizes
// the local row when the remote run has finished. Terminal rows are left
// untouched. A remote run still in flight schedules a fresh poll, so the task
// itself completes either way; only transport failures surface as errors for
// asynq to retry.
func (s *Service) SyncFromHermes(ctx context.Context, id uuid.UUID) error {
	e, err := s.getByID(ctx, id)
	if err != nil {
		return err
	}
	if e.Status.Terminal() || e.HermesExecutionID == nil {
		return nil
	}

	hermesCtx, cancel := context.WithTimeout(ctx, s.hermesTimeout)
	defer cancel()

	status, err := s.hermes.GetExecution(hermesCtx, *e.HermesExecutionID)
	if err != nil {
		return fmt.Errorf("get execution from Hermes: %w", err)
	}

	next := models.ExecutionStatus(status.Status)
	if !next.Valid() || next == e.Status || !e.Status.CanTransitionTo(next) {
		// Unchanged, unknown, or lifecycle-rejected remote status: nothing to
		// record yet, poll again later.
		s.scheduleSync(id)
		return nil
	}

	now := time.Now()
	switch next {
	case models.StatusCompleted:
		var elapsed *int
		if e.StartedAt != nil {
			ms := int(now.Sub(*e.StartedAt).Milliseconds())
			elapsed = &ms
		}
		_, err = s.db.Exec(ctx,
			"UPDATE executions SET status = 'completed', output = $1, execution_time_ms = $2, completed_at = $3 WHERE id = $4",
			status.Output, elapsed, now, id,
		)
	case models.StatusFailed:
		_, err = s.db.Exec(ctx,
			"UPDATE executions SET status = 'failed', error = $1, completed_at = $2 WHERE id = $3",
			status.Output, now, id,
		)
	case models.StatusCancelled:
		_, err = s.db.Exec(ctx,
			"UPDATE executions SET status = 'cancelled', completed_at = $1 WHERE id = $2",
			now, id,
		)
	case models.StatusRunning:
		_, err = s.db.Exec(ctx, "UPDATE executions SET status = 'running', started_at = COALESCE(started_at, $1) WHERE id = $2", now, id)
	}
	if err != nil {
		return fmt.Errorf("finalize execution: %w", err)
	}

	if !next.Terminal() {
		s.scheduleSync(id)
	}

	s.AppendLog(ctx, id, "info", fmt.Sprintf("Execution %s", next))
	return nil
}

func (s *Service) scheduleSync(id uuid.UUID) {
	if s.queue == nil {
		return
	}
	if err := s.queue.EnqueueExecutionSync(queue.ExecutionSyncPayload{ExecutionID: id.String()}, syncPollInterval); err != nil {
		slog.Warn("failed to schedule execution sync", "execution_id", id, "error", err)
	}
}

const executionColumns = `id, workspace_id, user_id, title, language, code, environment, status, output, error,
	execution_time_ms, memory_usage_mb, hermes_execution_id, metadata, started_at, completed_at, created_at`

func scanTargets(e *models.Execution) []interface{} {
	return []interface{}{
		&e.ID, &e.WorkspaceID, &e.UserID, &e.Title, &e.Language, &e.Code, &e.Environment, &e.Status,
		&e.Output, &e.Error, &e.ExecutionTimeMs, &e.MemoryUsageMb, &e.HermesExecutionID, &e.Metadata,
		&e.StartedAt, &e.CompletedAt, &e.CreatedAt,
	}
}

func scanExecution(rows pgx.Rows) (*models.Execution, error) {
	var e models.Execution
	if err := rows.Scan(scanTargets(&e)...); err != nil {
		return nil, fmt.Errorf("scan execution: %w", err)
	}
	return &e, nil
}

func (s *Service) getByID(ctx context.Context, id uuid.UUID) (*models.Execution, error) {
	var e models.Execution
	err := s.db.QueryRow(ctx,
		fmt.Sprintf("SELECT %s FROM executions WHERE id = $1", executionColumns), id,
	).Scan(scanTargets(&e)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("execution not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get execution: %w", err)
	}
	return &e, nil
}
