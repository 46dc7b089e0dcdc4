package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hermes-platform/console-api/internal/database"
	"github.com/hermes-platform/console-api/internal/models"
	"github.com/hermes-platform/console-api/internal/session"
)

// Service appends activity_logs rows. Rows are never updated or deleted.
type Service struct {
	db database.DB
}

func NewService(db database.DB) *Service {
	return &Service{db: db}
}

type LogEntry struct {
	WorkspaceID  *uuid.UUID
	Action       string
	ResourceType string
	ResourceID   *uuid.UUID
	Metadata     map[string]interface{}
	IPAddress    string
	UserAgent    string
}

// Log appends one activity row. Auditing is best-effort: a failed insert must
// not fail the operation it describes, so the error is warned and swallowed
// here rather than at every call site.
func (s *Service) Log(ctx context.Context, entry LogEntry) {
	userID := session.UserIDFromContext(ctx)

	metadata, _ := json.Marshal(entry.Metadata)

	var ip, ua *string
	if entry.IPAddress != "" {
		ip = &entry.IPAddress
	}
	if entry.UserAgent != "" {
		ua = &entry.UserAgent
	}

	var resourceType *string
	if entry.ResourceType != "" {
		resourceType = &entry.ResourceType
	}

	_, err := s.db.Exec(ctx,
		`INSERT INTO activity_logs (user_id, workspace_id, action, resource_type, resource_id, metadata, ip_address, user_agent)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		userID, entry.WorkspaceID, entry.Action, resourceType, entry.ResourceID, metadata, ip, ua,
	)
	if err != nil {
		slog.Warn("failed to write audit log", "action", entry.Action, "user_id", userID, "error", err)
	}
}

type Query struct {
	WorkspaceID uuid.UUID
	Action      string
	Limit       int
	Offset      int
}

// Recent returns a workspace's activity, newest first.
func (s *Service) Recent(ctx context.Context, q Query) ([]models.ActivityLog, error) {
	if q.Limit <= 0 {
		q.Limit = 50
	}

	query := `SELECT id, user_id, workspace_id, action, resource_type, resource_id, metadata, ip_address, user_agent, created_at
			  FROM activity_logs WHERE workspace_id = $1`
	args := []interface{}{q.WorkspaceID}
	argIdx := 2

	if q.Action != "" {
		query += fmt.Sprintf(" AND action = $%d", argIdx)
		args = append(args, q.Action)
		argIdx++
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, q.Limit, q.Offset)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query activity logs: %w", err)
	}
	defer rows.Close()

	var logs []models.ActivityLog
	for rows.Next() {
		var l models.ActivityLog
		if err := rows.Scan(&l.ID, &l.UserID, &l.WorkspaceID, &l.Action, &l.ResourceType, &l.ResourceID, &l.Metadata, &l.IPAddress, &l.UserAgent, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan activity log: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, nil
}
