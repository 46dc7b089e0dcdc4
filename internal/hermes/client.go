package hermes

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

type ExecutionRequest struct {
	Code        string            `json:"code"`
	Language    string            `json:"language"`
	Environment map[string]string `json:"environment"`
}

type ExecutionResponse struct {
	ExecutionID string `json:"execution_id"`
}

type ExecutionStatus struct {
	ExecutionID string `json:"execution_id"`
	Status      string `json:"status"`
	Output      string `json:"output"`
}

type SearchRequest struct {
	Namespace string `json:"namespace"`
	Query     string `json:"query"`
	Limit     int    `json:"limit"`
}

type SearchResult struct {
	ID       string                 `json:"id"`
	Content  string                 `json:"content"`
	Score    float64                `json:"score"`
	Metadata map[string]interface{} `json:"metadata"`
}

type SearchResponse struct {
	Results []SearchResult `json:"results"`
}

type StoreRequest struct {
	Namespace string                 `json:"namespace"`
	Content   string                 `json:"content"`
	Metadata  map[string]interface{} `json:"metadata"`
}

type StoreResponse struct {
	ID      string `json:"id"`
	Success bool   `json:"success"`
}

type QueryRequest struct {
	Namespace string `json:"namespace"`
	OmniQuery string `json:"omni_query"`
}

type QueryResponse struct {
	Results         []interface{} `json:"results"`
	ExecutionTimeMs int           `json:"execution_time_ms"`
}

// Client is the contract toward the Hermes execution/memory platform. The
// sandbox, vector search and the Omni query language all live behind it; this
// service only ever talks to these seven methods.
type Client interface {
	CreateExecution(ctx context.Context, req ExecutionRequest) (*ExecutionResponse, error)
	GetExecution(ctx context.Context, executionID string) (*ExecutionStatus, error)
	CancelExecution(ctx context.Context, executionID string) error
	SearchMemory(ctx context.Context, req SearchRequest) (*SearchResponse, error)
	StoreMemory(ctx context.Context, req StoreRequest) (*StoreResponse, error)
	QueryMemory(ctx context.Context, req QueryRequest) (*QueryResponse, error)
	DeleteMemory(ctx context.Context, memoryID string) error
}

// NamespaceKey builds the composite namespace key Hermes partitions memory by.
func NamespaceKey(workspaceID uuid.UUID, namespace string) string {
	return fmt.Sprintf("%s:%s", workspaceID, namespace)
}
