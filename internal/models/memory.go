package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

// MemoryEntry is the local reference row for a record held by the Hermes
// memory service. The embedding is populated by Hermes-side ingestion and is
// nullable here.
type MemoryEntry struct {
	ID             uuid.UUID        `json:"id" db:"id"`
	WorkspaceID    uuid.UUID        `json:"workspace_id" db:"workspace_id"`
	UserID         uuid.UUID        `json:"user_id" db:"user_id"`
	Namespace      string           `json:"namespace" db:"namespace"`
	Content        string           `json:"content" db:"content"`
	Embedding      *pgvector.Vector `json:"-" db:"embedding"`
	Metadata       json.RawMessage  `json:"metadata" db:"metadata"`
	HermesMemoryID *string          `json:"hermes_memory_id,omitempty" db:"hermes_memory_id"`
	CreatedAt      time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at" db:"updated_at"`
}
