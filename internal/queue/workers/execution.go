package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hermes-platform/console-api/internal/execution"
	"github.com/hermes-platform/console-api/internal/queue"
	"github.com/hibiken/asynq"
)

// ExecutionSyncWorker reconciles running executions with Hermes. Transport
// errors surface as task errors so asynq retries; a remote run that is still
// in flight gets a fresh poll task scheduled by the service itself.
type ExecutionSyncWorker struct {
	svc *execution.Service
}

func NewExecutionSyncWorker(svc *execution.Service) *ExecutionSyncWorker {
	return &ExecutionSyncWorker{svc: svc}
}

func (w *ExecutionSyncWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload queue.ExecutionSyncPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	execID, err := uuid.Parse(payload.ExecutionID)
	if err != nil {
		return fmt.Errorf("parse execution ID: %w", err)
	}

	slog.Info("syncing execution", "execution_id", execID)

	return w.svc.SyncFromHermes(ctx, execID)
}
