// Package chunktask runs executor tasks as Temporal workflows: one workflow
// per task, one activity per attempt.
package chunktask

import (
	"encoding/json"

	"github.com/yungbote/marketpulse/internal/jobs/executor"
)

const (
	WorkflowName     = "marketpulse.chunk_task"
	ActivityRunChunk = "marketpulse.chunk_task.run"

	// nonRetryableType marks application errors Temporal must not retry.
	nonRetryableType = "marketpulse.non_retryable"
)

type Input struct {
	Name    string               `json:"name"`
	Payload json.RawMessage      `json:"payload"`
	Policy  executor.RetryPolicy `json:"policy"`
}

type Output struct {
	Result  json.RawMessage `json:"result"`
	Attempt int32           `json:"attempt"`
}
