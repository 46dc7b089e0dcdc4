package hermes

import (
	"context"
	"fmt"
	"time"
)

// MockClient stands in for the real Hermes backend until the HTTP/gRPC client
// lands. Every method returns synthetic data and never touches the network.
type MockClient struct {
	baseURL string
}

func NewMockClient(baseURL string) *MockClient {
	return &MockClient{baseURL: baseURL}
}

func (c *MockClient) CreateExecution(ctx context.Context, req ExecutionRequest) (*ExecutionResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &ExecutionResponse{
		ExecutionID: fmt.Sprintf("exec_%d", time.Now().UnixMilli()),
	}, nil
}

func (c *MockClient) GetExecution(ctx context.Context, executionID string) (*ExecutionStatus, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &ExecutionStatus{
		ExecutionID: executionID,
		Status:      "completed",
		Output:      "Hello, World!",
	}, nil
}

func (c *MockClient) CancelExecution(ctx context.Context, executionID string) error {
	return ctx.Err()
}

func (c *MockClient) SearchMemory(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &SearchResponse{
		Results: []SearchResult{
			{
				ID:       fmt.Sprintf("mem_%d", time.Now().UnixMilli()),
				Content:  "Sample memory content",
				Score:    0.95,
				Metadata: map[string]interface{}{},
			},
		},
	}, nil
}

func (c *MockClient) StoreMemory(ctx context.Context, req StoreRequest) (*StoreResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &StoreResponse{
		ID:      fmt.Sprintf("mem_%d", time.Now().UnixMilli()),
		Success: true,
	}, nil
}

func (c *MockClient) QueryMemory(ctx context.Context, req QueryRequest) (*QueryResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &QueryResponse{
		Results:         []interface{}{},
		ExecutionTimeMs: 42,
	}, nil
}

func (c *MockClient) DeleteMemory(ctx context.Context, memoryID string) error {
	return ctx.Err()
}
