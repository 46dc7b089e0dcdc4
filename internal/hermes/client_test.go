package hermes

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_NamespaceKey_CompositeFormat(t *testing.T) {
	id := uuid.MustParse("11111111-2222-3333-4444-555555555555")

	key := NamespaceKey(id, "notes")

	assert.Equal(t, "11111111-2222-3333-4444-555555555555:notes", key)
	assert.True(t, strings.HasPrefix(key, id.String()+":"))
}

func Test_MockClient_CreateAndGetExecution(t *testing.T) {
	c := NewMockClient("http://localhost:8090")
	ctx := context.Background()

	resp, err := c.CreateExecution(ctx, ExecutionRequest{Code: "print(1)", Language: "python"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(resp.ExecutionID, "exec_"))

	status, err := c.GetExecution(ctx, resp.ExecutionID)
	require.NoError(t, err)
	assert.Equal(t, resp.ExecutionID, status.ExecutionID)
	assert.Equal(t, "completed", status.Status)
}

func Test_MockClient_MemoryRoundTrip(t *testing.T) {
	c := NewMockClient("")
	ctx := context.Background()

	stored, err := c.StoreMemory(ctx, StoreRequest{Namespace: "ws:notes", Content: "hello"})
	require.NoError(t, err)
	assert.True(t, stored.Success)
	assert.True(t, strings.HasPrefix(stored.ID, "mem_"))

	search, err := c.SearchMemory(ctx, SearchRequest{Namespace: "ws:notes", Query: "hello", Limit: 10})
	require.NoError(t, err)
	require.Len(t, search.Results, 1)
	assert.InDelta(t, 0.95, search.Results[0].Score, 0.001)

	q, err := c.QueryMemory(ctx, QueryRequest{Namespace: "ws:notes", OmniQuery: "recall all"})
	require.NoError(t, err)
	assert.NotNil(t, q.Results)
	assert.Equal(t, 42, q.ExecutionTimeMs)
}

func Test_MockClient_HonorsCancelledContext(t *testing.T) {
	c := NewMockClient("")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.CreateExecution(ctx, ExecutionRequest{})
	assert.ErrorIs(t, err, context.Canceled)

	_, err = c.SearchMemory(ctx, SearchRequest{})
	assert.ErrorIs(t, err, context.Canceled)

	assert.ErrorIs(t, c.CancelExecution(ctx, "exec_1"), context.Canceled)
	assert.ErrorIs(t, c.DeleteMemory(ctx, "mem_1"), context.Canceled)
}
