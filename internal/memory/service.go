package memory

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
	"github.com/hermes-platform/console-api/internal/workspace"
	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"
)

const (
	defaultSearchLimit = 10
	maxSearchLimit     = 50
)

// Service keeps local reference rows for records owned by the Hermes memory
// engine. Hermes is authoritative for search relevance; the local table is
// authoritative for existence and ownership.
type Service struct {
	db            database.DB
	hermes        hermes.Client
	workspaces    *workspace.Service
	audit         *audit.Service
	hermesTimeout time.Duration
}

func NewService(db database.DB, client hermes.Client, ws *workspace.Service, auditSvc *audit.Service, hermesTimeout time.Duration) *Service {
	return &Service{
		db:            db,
		hermes:        client,
		workspaces:    ws,
		audit:         auditSvc,
		hermesTimeout: hermesTimeout,
	}
}

type SearchRequest struct {
	WorkspaceID uuid.UUID
	Namespace   string
	Query       string
	Limit       int
}

type SearchResult struct {
	hermes.SearchResult
	LocalID   *uuid.UUID `json:"local_id,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

type SearchResponse struct {
	Results []SearchResult `json:"results"`
	Total   int            `json:"total"`
}

// Search queries Hermes for the workspace-scoped namespace and merges the
// hits with local reference rows. Zero external hits short-circuit without a
// local lookup.
func (s *Service) Search(ctx context.Context, req SearchRequest, userID uuid.UUID) (*SearchResponse, error) {
	if req.Limit <= 0 {
		req.Limit = defaultSearchLimit
	}
	if req.Limit > maxSearchLimit {
		return nil, apperr.BadRequest("limit must be at most 50")
	}

	if err := s.workspaces.RequireMember(ctx, req.WorkspaceID, userID); err != nil {
		return nil, err
	}

	hermesCtx, cancel := context.WithTimeout(ctx, s.hermesTimeout)
	defer cancel()

	resp, err := s.hermes.SearchMemory(hermesCtx, hermes.SearchRequest{
		Namespace: hermes.NamespaceKey(req.WorkspaceID, req.Namespace),
		Query:     req.Query,
		Limit:     req.Limit,
	})
	if err != nil {
		return nil, apperr.Internal("failed to search memories", err)
	}

	if len(resp.Results) == 0 {
		return &SearchResponse{Results: []SearchResult{}, Total: 0}, nil
	}

	hermesIDs := make([]string, 0, len(resp.Results))
	for _, r := range resp.Results {
		hermesIDs = append(hermesIDs, r.ID)
	}

	rows, err := s.db.Query(ctx,
		`SELECT id, hermes_memory_id, created_at FROM memory_entries
		 WHERE workspace_id = $1 AND hermes_memory_id = ANY($2)`,
		req.WorkspaceID, hermesIDs,
	)
	if err != nil {
		return nil, apperr.Internal("failed to search memories", err)
	}
	defer rows.Close()

	type localRef struct {
		id        uuid.UUID
		createdAt time.Time
	}
	local := make(map[string]localRef)
	for rows.Next() {
		var ref localRef
		var hermesID string
		if err := rows.Scan(&ref.id, &hermesID, &ref.createdAt); err != nil {
			return nil, apperr.Internal("failed to search memories", err)
		}
		local[hermesID] = ref
	}

	merged := make([]SearchResult, 0, len(resp.Results))
	for _, r := range resp.Results {
		result := SearchResult{SearchResult: r}
		if ref, ok := local[r.ID]; ok {
			id := ref.id
			createdAt := ref.createdAt
			result.LocalID = &id
			result.CreatedAt = &createdAt
		}
		merged = append(merged, result)
	}

	return &SearchResponse{Results: merged, Total: len(resp.Results)}, nil
}

type StoreRequest struct {
	WorkspaceID uuid.UUID              `json:"workspace_id"`
	Namespace   string                 `json:"namespace"`
	Content     string                 `json:"content"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	Embedding   []float32              `json:"embedding,omitempty"`
}

// Store writes the record to Hermes first, then persists the local reference
// row. There is no compensation for a partial external write; the Hermes id
// on the local row is what ties the two sides together.
func (s *Service) Store(ctx context.Context, req StoreRequest, userID uuid.UUID) (*models.MemoryEntry, error) {
	if req.Content == "" {
		return nil, apperr.BadRequest("content must not be empty")
	}

	if err := s.workspaces.RequireMember(ctx, req.WorkspaceID, userID); err != nil {
		return nil, err
	}

	metadata := map[string]interface{}{}
	for k, v := range req.Metadata {
		metadata[k] = v
	}
	metadata["userId"] = userID.String()
	metadata["workspaceId"] = req.WorkspaceID.String()

	hermesCtx, cancel := context.WithTimeout(ctx, s.hermesTimeout)
	defer cancel()

	resp, err := s.hermes.StoreMemory(hermesCtx, hermes.StoreRequest{
		Namespace: hermes.NamespaceKey(req.WorkspaceID, req.Namespace),
		Content:   req.Content,
		Metadata:  metadata,
	})
	if err != nil {
		return nil, apperr.Internal("failed to store memory", err)
	}

	metadataJSON, _ := json.Marshal(req.Metadata)

	var embedding *pgvector.Vector
	if len(req.Embedding) > 0 {
		v := pgvector.NewVector(req.Embedding)
		embedding = &v
	}

	var entry models.MemoryEntry
	err = s.db.QueryRow(ctx,
		`INSERT INTO memory_entries (workspace_id, user_id, namespace, content, embedding, metadata, hermes_memory_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, workspace_id, user_id, namespace, content, metadata, hermes_memory_id, created_at, updated_at`,
		req.WorkspaceID, userID, req.Namespace, req.Content, embedding, metadataJSON, resp.ID,
	).Scan(&entry.ID, &entry.WorkspaceID, &entry.UserID, &entry.Namespace, &entry.Content,
		&entry.Metadata, &entry.HermesMemoryID, &entry.CreatedAt, &entry.UpdatedAt)
	if err != nil {
		return nil, apperr.Internal("failed to store memory", err)
	}

	s.audit.Log(ctx, audit.LogEntry{
		WorkspaceID:  &req.WorkspaceID,
		Action:       "memory.stored",
		ResourceType: "memory",
		ResourceID:   &entry.ID,
		Metadata: map[string]interface{}{
			"namespace":     req.Namespace,
			"contentLength": len(req.Content),
		},
	})

	return &entry, nil
}

type QueryRequest struct {
	WorkspaceID uuid.UUID
	Namespace   string
	OmniQuery   string
}

// Query forwards an Omni query string to Hermes verbatim. The query language
// is entirely owned by the external engine.
func (s *Service) Query(ctx context.Context, req QueryRequest, userID uuid.UUID) (*hermes.QueryResponse, error) {
	if err := s.workspaces.RequireMember(ctx, req.WorkspaceID, userID); err != nil {
		return nil, err
	}

	hermesCtx, cancel := context.WithTimeout(ctx, s.hermesTimeout)
	defer cancel()

	resp, err := s.hermes.QueryMemory(hermesCtx, hermes.QueryRequest{
		Namespace: hermes.NamespaceKey(req.WorkspaceID, req.Namespace),
		OmniQuery: req.OmniQuery,
	})
	if err != nil {
		return nil, apperr.Internal("failed to query memories", err)
	}

	return resp, nil
}

// Namespaces lists the workspace's distinct non-empty namespaces from local
// storage only.
func (s *Service) Namespaces(ctx context.Context, workspaceID, userID uuid.UUID) ([]string, error) {
	if err := s.workspaces.RequireMember(ctx, workspaceID, userID); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx,
		`SELECT DISTINCT namespace FROM memory_entries
		 WHERE workspace_id = $1 AND namespace <> ''
		 ORDER BY namespace`,
		workspaceID,
	)
	if err != nil {
		return nil, fmt.Errorf("list namespaces: %w", err)
	}
	defer rows.Close()

	namespaces := []string{}
	for rows.Next() {
		var ns string
		if err := rows.Scan(&ns); err != nil {
			return nil, fmt.Errorf("scan namespace: %w", err)
		}
		namespaces = append(namespaces, ns)
	}
	return namespaces, nil
}

// Delete removes a memory entry. Creator-only. The Hermes delete is
// best-effort: local state is authoritative, so the local row goes away even
// when the remote call fails.
func (s *Service) Delete(ctx context.Context, id, userID uuid.UUID) error {
	var entry models.MemoryEntry
	err := s.db.QueryRow(ctx,
		`SELECT id, workspace_id, user_id, namespace, content, metadata, hermes_memory_id, created_at, updated_at
		 FROM memory_entries WHERE id = $1`, id,
	).Scan(&entry.ID, &entry.WorkspaceID, &entry.UserID, &entry.Namespace, &entry.Content,
		&entry.Metadata, &entry.HermesMemoryID, &entry.CreatedAt, &entry.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound("memory entry not found")
	}
	if err != nil {
		return fmt.Errorf("get memory entry: %w", err)
	}

	if entry.UserID != userID {
		return apperr.Forbidden("can only delete your own memories")
	}

	if entry.HermesMemoryID != nil {
		hermesCtx, cancel := context.WithTimeout(ctx, s.hermesTimeout)
		defer cancel()
		if err := s.hermes.DeleteMemory(hermesCtx, *entry.HermesMemoryID); err != nil {
			slog.Warn("failed to delete memory from Hermes", "memory_id", entry.ID, "error", err)
		}
	}

	if _, err := s.db.Exec(ctx, "DELETE FROM memory_entries WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete memory entry: %w", err)
	}

	s.audit.Log(ctx, audit.LogEntry{
		WorkspaceID:  &entry.WorkspaceID,
		Action:       "memory.deleted",
		ResourceType: "memory",
		ResourceID:   &entry.ID,
		Metadata:     map[string]interface{}{"namespace": entry.Namespace},
	})

	return nil
}
