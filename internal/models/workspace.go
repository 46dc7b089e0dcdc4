package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type WorkspaceVisibility string

const (
	VisibilityPrivate WorkspaceVisibility = "private"
	VisibilityTeam    WorkspaceVisibility = "team"
	VisibilityPublic  WorkspaceVisibility = "public"
)

func (v WorkspaceVisibility) Valid() bool {
	switch v {
	case VisibilityPrivate, VisibilityTeam, VisibilityPublic:
		return true
	}
	return false
}

type Workspace struct {
	ID          uuid.UUID           `json:"id" db:"id"`
	Name        string              `json:"name" db:"name"`
	Slug        string              `json:"slug" db:"slug"`
	Description *string             `json:"description,omitempty" db:"description"`
	OwnerID     uuid.UUID           `json:"owner_id" db:"owner_id"`
	Visibility  WorkspaceVisibility `json:"visibility" db:"visibility"`
	Settings    json.RawMessage     `json:"settings" db:"settings"`
	CreatedAt   time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at" db:"updated_at"`
}

// WorkspaceSettings is the shape of the settings blob.
type WorkspaceSettings struct {
	DefaultLanguage    string            `json:"defaultLanguage,omitempty"`
	DefaultEnvironment map[string]string `json:"defaultEnvironment,omitempty"`
	Features           []string          `json:"features,omitempty"`
}

type WorkspaceMember struct {
	ID          uuid.UUID `json:"id" db:"id"`
	WorkspaceID uuid.UUID `json:"workspace_id" db:"workspace_id"`
	UserID      uuid.UUID `json:"user_id" db:"user_id"`
	Role        UserRole  `json:"role" db:"role"`
	JoinedAt    time.Time `json:"joined_at" db:"joined_at"`
}
