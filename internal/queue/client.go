package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hermes-platform/console-api/internal/config"
	"github.com/hibiken/asynq"
)

type Client struct {
	client *asynq.Client
}

func NewClient(cfg config.RedisConfig) *Client {
	return &Client{
		client: asynq.NewClient(asynq.RedisClientOpt{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
	}
}

func (c *Client) Close() error {
	return c.client.Close()
}

// EnqueueExecutionSync schedules a poll of Hermes for the execution's result
// after the given delay. Still-running executions get re-enqueued by the sync
// itself, so each task polls exactly once.
func (c *Client) EnqueueExecutionSync(payload ExecutionSyncPayload, delay time.Duration) error {
	return c.enqueue(TypeExecutionSync, payload,
		asynq.MaxRetry(5), asynq.Timeout(time.Minute), asynq.ProcessIn(delay))
}

func (c *Client) enqueue(taskType string, payload interface{}, opts ...asynq.Option) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	task := asynq.NewTask(taskType, data)
	_, err = c.client.Enqueue(task, opts...)
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", taskType, err)
	}
	return nil
}
