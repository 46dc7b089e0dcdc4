package workspace

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/hermes-platform/console-api/internal/apperr"
	"github.com/hermes-platform/console-api/internal/audit"
	"github.com/hermes-platform/console-api/internal/cache"
	"github.com/hermes-platform/console-api/internal/database"
	"github.com/hermes-platform/console-api/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// RoleOwner is the annotated role for workspace owners. It is not a member
// role; ownership lives on the workspace row itself.
const RoleOwner = "owner"

const statsCacheTTL = 30 * time.Second

// Postgres error code 23503, foreign_key_violation.
const pgerrForeignKeyViolation = "23503"

var slugPattern = regexp.MustCompile(`^[a-z0-9-]+$`)

type Service struct {
	db    database.DB
	audit *audit.Service
	cache *cache.Cache
}

func NewService(db database.DB, auditSvc *audit.Service, c *cache.Cache) *Service {
	return &Service{db: db, audit: auditSvc, cache: c}
}

// WithRole is a workspace annotated with the caller's resolved role.
type WithRole struct {
	models.Workspace
	Role string `json:"role"`
}

// MemberRole returns the caller's member-row role in the workspace, failing
// Forbidden when no row exists. Every workspace-scoped procedure re-verifies
// membership through this before acting.
func (s *Service) MemberRole(ctx context.Context, workspaceID, userID uuid.UUID) (models.UserRole, error) {
	var role models.UserRole
	err := s.db.QueryRow(ctx,
		"SELECT role FROM workspace_members WHERE workspace_id = $1 AND user_id = $2",
		workspaceID, userID,
	).Scan(&role)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", apperr.Forbidden("access denied")
	}
	if err != nil {
		return "", fmt.Errorf("check membership: %w", err)
	}
	return role, nil
}

// RequireMember fails Forbidden unless the user has a member row in the
// workspace.
func (s *Service) RequireMember(ctx context.Context, workspaceID, userID uuid.UUID) error {
	_, err := s.MemberRole(ctx, workspaceID, userID)
	return err
}

// List returns the workspaces the user belongs to, newest first, each
// annotated with the caller's role. Owners are annotated "owner" regardless of
// their member-row role.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]WithRole, error) {
	rows, err := s.db.Query(ctx,
		`SELECT w.id, w.name, w.slug, w.description, w.owner_id, w.visibility, w.settings, w.created_at, w.updated_at,
		        m.role
		 FROM workspaces w
		 JOIN workspace_members m ON m.workspace_id = w.id AND m.user_id = $1
		 ORDER BY w.created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list workspaces: %w", err)
	}
	defer rows.Close()

	var result []WithRole
	for rows.Next() {
		var w WithRole
		var memberRole models.UserRole
		if err := rows.Scan(&w.ID, &w.Name, &w.Slug, &w.Description, &w.OwnerID, &w.Visibility, &w.Settings, &w.CreatedAt, &w.UpdatedAt, &memberRole); err != nil {
			return nil, fmt.Errorf("scan workspace: %w", err)
		}
		if w.OwnerID == userID {
			w.Role = RoleOwner
		} else {
			w.Role = string(memberRole)
		}
		result = append(result, w)
	}
	return result, nil
}

// GetBySlug resolves a workspace by slug, enforcing visibility: private
// workspaces require ownership or membership.
func (s *Service) GetBySlug(ctx context.Context, slug string, userID uuid.UUID) (*WithRole, error) {
	w, err := s.getBy(ctx, "slug", slug)
	if err != nil {
		return nil, err
	}

	isOwner := w.OwnerID == userID

	memberRole, err := s.MemberRole(ctx, w.ID, userID)
	isMember := err == nil
	if err != nil && !apperr.IsKind(err, apperr.KindForbidden) {
		return nil, err
	}

	if !isOwner && !isMember && w.Visibility == models.VisibilityPrivate {
		return nil, apperr.Forbidden("access denied")
	}

	role := RoleOwner
	if !isOwner {
		role = string(models.RoleViewer)
		if isMember {
			role = string(memberRole)
		}
	}

	return &WithRole{Workspace: *w, Role: role}, nil
}

type CreateRequest struct {
	Name        string                     `json:"name"`
	Slug        string                     `json:"slug"`
	Description *string                    `json:"description,omitempty"`
	Visibility  models.WorkspaceVisibility `json:"visibility,omitempty"`
}

// ValidateCreate checks the request shape before any storage work.
func ValidateCreate(req CreateRequest) error {
	if len(req.Name) < 2 || len(req.Name) > 255 {
		return apperr.BadRequest("name must be 2-255 characters")
	}
	if len(req.Slug) < 2 || len(req.Slug) > 255 {
		return apperr.BadRequest("slug must be 2-255 characters")
	}
	if !slugPattern.MatchString(req.Slug) {
		return apperr.BadRequest("slug may only contain lowercase letters, digits and hyphens")
	}
	if req.Visibility != "" && !req.Visibility.Valid() {
		return apperr.BadRequest("invalid visibility")
	}
	return nil
}

// Create inserts a workspace owned by the caller. The owner also gets an
// admin member row so workspace-scoped procedures see them as a member.
func (s *Service) Create(ctx context.Context, req CreateRequest, userID uuid.UUID) (*models.Workspace, error) {
	if err := ValidateCreate(req); err != nil {
		return nil, err
	}

	visibility := req.Visibility
	if visibility == "" {
		visibility = models.VisibilityPrivate
	}

	var exists bool
	err := s.db.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM workspaces WHERE slug = $1)", req.Slug).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("check slug: %w", err)
	}
	if exists {
		return nil, apperr.Conflict("workspace slug already exists")
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var w models.Workspace
	err = tx.QueryRow(ctx,
		`INSERT INTO workspaces (name, slug, description, owner_id, visibility)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, name, slug, description, owner_id, visibility, settings, created_at, updated_at`,
		req.Name, req.Slug, req.Description, userID, visibility,
	).Scan(&w.ID, &w.Name, &w.Slug, &w.Description, &w.OwnerID, &w.Visibility, &w.Settings, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert workspace: %w", err)
	}

	_, err = tx.Exec(ctx,
		"INSERT INTO workspace_members (workspace_id, user_id, role) VALUES ($1, $2, $3)",
		w.ID, userID, models.RoleAdmin,
	)
	if err != nil {
		return nil, fmt.Errorf("insert owner membership: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	s.audit.Log(ctx, audit.LogEntry{
		WorkspaceID:  &w.ID,
		Action:       "workspace.created",
		ResourceType: "workspace",
		ResourceID:   &w.ID,
		Metadata:     map[string]interface{}{"name": w.Name},
	})

	return &w, nil
}

type UpdateRequest struct {
	Name        *string                     `json:"name,omitempty"`
	Description *string                     `json:"description,omitempty"`
	Visibility  *models.WorkspaceVisibility `json:"visibility,omitempty"`
	Settings    *models.WorkspaceSettings   `json:"settings,omitempty"`
}

// Update applies a partial update. Owner-only.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req UpdateRequest, userID uuid.UUID) (*models.Workspace, error) {
	w, err := s.getBy(ctx, "id", id)
	if err != nil {
		return nil, err
	}
	if w.OwnerID != userID {
		return nil, apperr.Forbidden("only owners can update workspaces")
	}

	if req.Name != nil && (len(*req.Name) < 2 || len(*req.Name) > 255) {
		return nil, apperr.BadRequest("name must be 2-255 characters")
	}
	if req.Visibility != nil && !req.Visibility.Valid() {
		return nil, apperr.BadRequest("invalid visibility")
	}

	query := "UPDATE workspaces SET updated_at = $1"
	args := []interface{}{time.Now()}
	argIdx := 2
	changed := map[string]interface{}{}

	if req.Name != nil {
		query += fmt.Sprintf(", name = $%d", argIdx)
		args = append(args, *req.Name)
		argIdx++
		changed["name"] = *req.Name
	}
	if req.Description != nil {
		query += fmt.Sprintf(", description = $%d", argIdx)
		args = append(args, *req.Description)
		argIdx++
		changed["description"] = *req.Description
	}
	if req.Visibility != nil {
		query += fmt.Sprintf(", visibility = $%d", argIdx)
		args = append(args, *req.Visibility)
		argIdx++
		changed["visibility"] = *req.Visibility
	}
	if req.Settings != nil {
		settings, err := json.Marshal(req.Settings)
		if err != nil {
			return nil, fmt.Errorf("marshal settings: %w", err)
		}
		query += fmt.Sprintf(", settings = $%d", argIdx)
		args = append(args, settings)
		argIdx++
		changed["settings"] = req.Settings
	}

	query += fmt.Sprintf(" WHERE id = $%d RETURNING id, name, slug, description, owner_id, visibility, settings, created_at, updated_at", argIdx)
	args = append(args, id)

	var updated models.Workspace
	err = s.db.QueryRow(ctx, query, args...).Scan(
		&updated.ID, &updated.Name, &updated.Slug, &updated.Description, &updated.OwnerID,
		&updated.Visibility, &updated.Settings, &updated.CreatedAt, &updated.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("update workspace: %w", err)
	}

	s.audit.Log(ctx, audit.LogEntry{
		WorkspaceID:  &id,
		Action:       "workspace.updated",
		ResourceType: "workspace",
		ResourceID:   &id,
		Metadata:     changed,
	})

	return &updated, nil
}

// Delete hard-deletes the workspace row. Owner-only. Member rows cascade and
// activity logs detach; executions and memory entries carry plain FKs, so a
// workspace that still owns either refuses deletion with Conflict.
func (s *Service) Delete(ctx context.Context, id, userID uuid.UUID) error {
	w, err := s.getBy(ctx, "id", id)
	if err != nil {
		return err
	}
	if w.OwnerID != userID {
		return apperr.Forbidden("only owners can delete workspaces")
	}

	if _, err := s.db.Exec(ctx, "DELETE FROM workspaces WHERE id = $1", id); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrForeignKeyViolation {
			return apperr.Conflict("workspace still contains executions or memories")
		}
		return fmt.Errorf("delete workspace: %w", err)
	}

	s.audit.Log(ctx, audit.LogEntry{
		Action:       "workspace.deleted",
		ResourceType: "workspace",
		ResourceID:   &id,
		Metadata:     map[string]interface{}{"name": w.Name},
	})

	return nil
}

type Stats struct {
	Executions int `json:"executions"`
	Memories   int `json:"memories"`
	Members    int `json:"members"`
}

// Stats returns row counts for the workspace. Requires membership. Counts
// are cached briefly; they drive dashboard tiles, not billing.
func (s *Service) Stats(ctx context.Context, workspaceID, userID uuid.UUID) (*Stats, error) {
	if err := s.RequireMember(ctx, workspaceID, userID); err != nil {
		return nil, err
	}

	cacheKey := "workspace:stats:" + workspaceID.String()
	if s.cache != nil {
		var cached Stats
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			return &cached, nil
		}
	}

	var st Stats
	err := s.db.QueryRow(ctx,
		`SELECT
			(SELECT COUNT(*) FROM executions WHERE workspace_id = $1),
			(SELECT COUNT(*) FROM memory_entries WHERE workspace_id = $1),
			(SELECT COUNT(*) FROM workspace_members WHERE workspace_id = $1)`,
		workspaceID,
	).Scan(&st.Executions, &st.Memories, &st.Members)
	if err != nil {
		return nil, fmt.Errorf("query workspace stats: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, st, statsCacheTTL); err != nil {
			slog.Warn("cache workspace stats", "workspace_id", workspaceID, "error", err)
		}
	}

	return &st, nil
}

type AddMemberRequest struct {
	UserID uuid.UUID       `json:"user_id"`
	Role   models.UserRole `json:"role,omitempty"`
}

// AddMember grants a user a role in the workspace. Owner-only. Adding an
// existing member fails Conflict.
func (s *Service) AddMember(ctx context.Context, workspaceID uuid.UUID, req AddMemberRequest, actorID uuid.UUID) (*models.WorkspaceMember, error) {
	w, err := s.getBy(ctx, "id", workspaceID)
	if err != nil {
		return nil, err
	}
	if w.OwnerID != actorID {
		return nil, apperr.Forbidden("only owners can manage members")
	}

	role := req.Role
	if role == "" {
		role = models.RoleViewer
	}
	switch role {
	case models.RoleAdmin, models.RoleUser, models.RoleViewer:
	default:
		return nil, apperr.BadRequest("invalid role")
	}

	var exists bool
	err = s.db.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM workspace_members WHERE workspace_id = $1 AND user_id = $2)",
		workspaceID, req.UserID,
	).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("check member: %w", err)
	}
	if exists {
		return nil, apperr.Conflict("user is already a member")
	}

	var m models.WorkspaceMember
	err = s.db.QueryRow(ctx,
		`INSERT INTO workspace_members (workspace_id, user_id, role)
		 VALUES ($1, $2, $3)
		 RETURNING id, workspace_id, user_id, role, joined_at`,
		workspaceID, req.UserID, role,
	).Scan(&m.ID, &m.WorkspaceID, &m.UserID, &m.Role, &m.JoinedAt)
	if err != nil {
		return nil, fmt.Errorf("insert member: %w", err)
	}

	s.audit.Log(ctx, audit.LogEntry{
		WorkspaceID:  &workspaceID,
		Action:       "workspace.member_added",
		ResourceType: "workspace",
		ResourceID:   &workspaceID,
		Metadata:     map[string]interface{}{"user_id": req.UserID, "role": role},
	})

	return &m, nil
}

func (s *Service) getBy(ctx context.Context, column string, value interface{}) (*models.Workspace, error) {
	var w models.Workspace
	err := s.db.QueryRow(ctx,
		fmt.Sprintf(`SELECT id, name, slug, description, owner_id, visibility, settings, created_at, updated_at
		 FROM workspaces WHERE %s = $1`, column), value,
	).Scan(&w.ID, &w.Name, &w.Slug, &w.Description, &w.OwnerID, &w.Visibility, &w.Settings, &w.CreatedAt, &w.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("workspace not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get workspace: %w", err)
	}
	return &w, nil
}
