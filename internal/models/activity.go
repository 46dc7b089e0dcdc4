package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ActivityLog rows are append-only; nothing in the application updates or
// deletes them.
type ActivityLog struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	UserID       uuid.UUID       `json:"user_id" db:"user_id"`
	WorkspaceID  *uuid.UUID      `json:"workspace_id,omitempty" db:"workspace_id"`
	Action       string          `json:"action" db:"action"`
	ResourceType *string         `json:"resource_type,omitempty" db:"resource_type"`
	ResourceID   *uuid.UUID      `json:"resource_id,omitempty" db:"resource_id"`
	Metadata     json.RawMessage `json:"metadata" db:"metadata"`
	IPAddress    *string         `json:"ip_address,omitempty" db:"ip_address"`
	UserAgent    *string         `json:"user_agent,omitempty" db:"user_agent"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
}
