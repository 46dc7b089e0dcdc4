package queue

const TypeExecutionSync = "execution:sync"

type ExecutionSyncPayload struct {
	ExecutionID string `json:"execution_id"`
}
