package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type UserRole string

const (
	RoleAdmin  UserRole = "admin"
	RoleUser   UserRole = "user"
	RoleViewer UserRole = "viewer"
)

// User is synced with WorkOS once the SSO integration lands; until then the
// workos columns stay null.
type User struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	Email        string          `json:"email" db:"email"`
	Name         *string         `json:"name,omitempty" db:"name"`
	AvatarURL    *string         `json:"avatar_url,omitempty" db:"avatar_url"`
	WorkOSUserID *string         `json:"workos_user_id,omitempty" db:"workos_user_id"`
	WorkOSOrgID  *string         `json:"workos_org_id,omitempty" db:"workos_org_id"`
	Role         UserRole        `json:"role" db:"role"`
	Metadata     json.RawMessage `json:"metadata" db:"metadata"`
	LastActiveAt *time.Time      `json:"last_active_at,omitempty" db:"last_active_at"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at" db:"updated_at"`
}

type Session struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	Token     string    `json:"-" db:"token"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
	IPAddress *string   `json:"ip_address,omitempty" db:"ip_address"`
	UserAgent *string   `json:"user_agent,omitempty" db:"user_agent"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type APIKey struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	UserID      uuid.UUID  `json:"user_id" db:"user_id"`
	WorkspaceID *uuid.UUID `json:"workspace_id,omitempty" db:"workspace_id"`
	Name        string     `json:"name" db:"name"`
	KeyHash     string     `json:"-" db:"key_hash"`
	KeyPrefix   string     `json:"key_prefix" db:"key_prefix"`
	Scopes      []string   `json:"scopes" db:"scopes"`
	LastUsedAt  *time.Time `json:"last_used_at,omitempty" db:"last_used_at"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty" db:"expires_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}
