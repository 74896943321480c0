// Package executor runs named units of work with a retry policy and time
// limits, locally or through a remote backend.
package executor

import (
	"context"
	"encoding/json"
	"time"

	"github.com/yungbote/marketpulse/internal/domain/pipeline"
	"github.com/yungbote/marketpulse/internal/pkg/httpx"
)

// State is a task's position in its lifecycle:
// pending -> running -> succeeded | retry_scheduled -> pending | failed.
type State string

const (
	StatePending        State = "pending"
	StateRunning        State = "running"
	StateRetryScheduled State = "retry_scheduled"
	StateSucceeded      State = "succeeded"
	StateFailed         State = "failed"
)

func (s State) Terminal() bool { return s == StateSucceeded || s == StateFailed }

// RetryPolicy bounds how a task is retried and how long one attempt may run.
type RetryPolicy struct {
	// MaxRetries is the number of attempts after the first one.
	MaxRetries int           `json:"max_retries"`
	Delay      time.Duration `json:"delay"`
	// SoftLimit cancels the attempt's context.
	SoftLimit time.Duration `json:"soft_limit"`
	// HardLimit stops waiting for the attempt; the task fails without retry.
	HardLimit time.Duration `json:"hard_limit"`

	Retryable func(error) bool `json:"-"`
}

const (
	DefaultRetryDelay = 30 * time.Second
	DefaultSoftLimit  = 300 * time.Second
	DefaultHardLimit  = 330 * time.Second
)

// DefaultRetryPolicy returns the standard fixed-delay policy.
func DefaultRetryPolicy(maxRetries int) RetryPolicy {
	return RetryPolicy{
		MaxRetries: maxRetries,
		Delay:      DefaultRetryDelay,
		SoftLimit:  DefaultSoftLimit,
		HardLimit:  DefaultHardLimit,
	}
}

// IsTransient is the default retry predicate: errors tagged transient, plus
// network and retryable HTTP status failures.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	switch pipeline.KindOf(err) {
	case pipeline.KindTransient:
		return true
	case "":
		return httpx.IsRetryableError(err)
	default:
		return false
	}
}

func (p RetryPolicy) retryable(err error) bool {
	if p.Retryable != nil {
		return p.Retryable(err)
	}
	return IsTransient(err)
}

// WorkFunc is a registered unit of work. Payload and result are JSON.
type WorkFunc func(ctx context.Context, payload json.RawMessage) (json.RawMessage, error)

// Task is one submission.
type Task struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Payload json.RawMessage `json:"payload"`
	Policy  RetryPolicy     `json:"policy"`

	// Attempts already made; set by backends that re-queue retries.
	Attempts int `json:"attempts,omitempty"`
}

// Outcome is the terminal report of a task.
type Outcome struct {
	TaskID   string
	State    State
	Attempts int
	Result   json.RawMessage
	Err      error
}

// Handle tracks one submitted task.
type Handle interface {
	ID() string
	// Wait blocks until the task is terminal or ctx is done. On ctx expiry
	// it returns ctx.Err() and leaves the task running.
	Wait(ctx context.Context) (Outcome, error)
}

// Executor submits tasks. Submit never blocks on task execution.
type Executor interface {
	Submit(ctx context.Context, task Task) (Handle, error)
}
