package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_ExecutionStatus_Valid(t *testing.T) {
	for _, s := range []ExecutionStatus{StatusPending, StatusRunning, StatusCompleted, StatusFailed, StatusCancelled} {
		assert.True(t, s.Valid(), "status %s", s)
	}
	assert.False(t, ExecutionStatus("queued").Valid())
	assert.False(t, ExecutionStatus("").Valid())
}

func Test_ExecutionStatus_Lifecycle(t *testing.T) {
	tests := []struct {
		from, to ExecutionStatus
		ok       bool
	}{
		{StatusPending, StatusRunning, true},
		{StatusPending, StatusFailed, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusCompleted, false},
		{StatusRunning, StatusCompleted, true},
		{StatusRunning, StatusFailed, true},
		{StatusRunning, StatusCancelled, true},
		{StatusRunning, StatusPending, false},
		{StatusCompleted, StatusRunning, false},
		{StatusFailed, StatusRunning, false},
		{StatusCancelled, StatusRunning, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.ok, tt.from.CanTransitionTo(tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func Test_ExecutionStatus_Terminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusRunning.Terminal())
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusFailed.Terminal())
	assert.True(t, StatusCancelled.Terminal())
}

func Test_ExecutionStatus_CanCancel(t *testing.T) {
	assert.True(t, StatusPending.CanCancel())
	assert.True(t, StatusRunning.CanCancel())
	assert.False(t, StatusCompleted.CanCancel())
	assert.False(t, StatusFailed.CanCancel())
	assert.False(t, StatusCancelled.CanCancel())
}
