package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type ExecutionStatus string

const (
	StatusPending   ExecutionStatus = "pending"
	StatusRunning   ExecutionStatus = "running"
	StatusCompleted ExecutionStatus = "completed"
	StatusFailed    ExecutionStatus = "failed"
	StatusCancelled ExecutionStatus = "cancelled"
)

func (s ExecutionStatus) Valid() bool {
	switch s {
	case StatusPending, StatusRunning, StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether the status admits no further transitions.
func (s ExecutionStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo encodes the execution lifecycle: pending -> running,
// pending/running -> failed, running -> completed, pending/running -> cancelled.
func (s ExecutionStatus) CanTransitionTo(next ExecutionStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusRunning || next == StatusFailed || next == StatusCancelled
	case StatusRunning:
		return next == StatusCompleted || next == StatusFailed || next == StatusCancelled
	}
	return false
}

// CanCancel reports whether a cancel request is valid for the current status.
func (s ExecutionStatus) CanCancel() bool {
	return s == StatusPending || s == StatusRunning
}

type Execution struct {
	ID                uuid.UUID       `json:"id" db:"id"`
	WorkspaceID       uuid.UUID       `json:"workspace_id" db:"workspace_id"`
	UserID            uuid.UUID       `json:"user_id" db:"user_id"`
	Title             *string         `json:"title,omitempty" db:"title"`
	Language          string          `json:"language" db:"language"`
	Code              string          `json:"code" db:"code"`
	Environment       json.RawMessage `json:"environment" db:"environment"`
	Status            ExecutionStatus `json:"status" db:"status"`
	Output            *string         `json:"output,omitempty" db:"output"`
	Error             *string         `json:"error,omitempty" db:"error"`
	ExecutionTimeMs   *int            `json:"execution_time_ms,omitempty" db:"execution_time_ms"`
	MemoryUsageMb     *int            `json:"memory_usage_mb,omitempty" db:"memory_usage_mb"`
	HermesExecutionID *string         `json:"hermes_execution_id,omitempty" db:"hermes_execution_id"`
	Metadata          json.RawMessage `json:"metadata" db:"metadata"`
	StartedAt         *time.Time      `json:"started_at,omitempty" db:"started_at"`
	CompletedAt       *time.Time      `json:"completed_at,omitempty" db:"completed_at"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
}
