package executor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/yungbote/marketpulse/internal/domain/pipeline"
)

// ErrHardLimit is the cause of a failure after an attempt outlived its hard limit.
var ErrHardLimit = errors.New("hard time limit exceeded")

// ErrSoftLimit is the cause of a failure after an attempt was cancelled at its soft limit.
var ErrSoftLimit = errors.New("soft time limit exceeded")

// Transition is reported on every state change.
type Transition func(state State, attempt int, err error)

// Run drives fn through the task state machine under policy and returns the
// terminal outcome. Retries wait in-process; the redis worker uses Step and
// re-queues instead.
func Run(ctx context.Context, task Task, fn WorkFunc, onState Transition) Outcome {
	if onState == nil {
		onState = func(State, int, error) {}
	}
	out := Outcome{TaskID: task.ID}

	for attempt := 1; ; attempt++ {
		out.Attempts = attempt
		onState(StateRunning, attempt, nil)

		res, retry, err := Step(ctx, task, fn, attempt)
		if err == nil {
			out.State = StateSucceeded
			out.Result = res
			onState(StateSucceeded, attempt, nil)
			return out
		}
		if retry {
			onState(StateRetryScheduled, attempt, err)
			if sleepCtx(ctx, task.Policy.Delay) {
				onState(StatePending, attempt+1, nil)
				continue
			}
			err = pipeline.Wrap(pipeline.KindFatal, task.Name, ctx.Err())
		}

		out.State = StateFailed
		out.Err = err
		onState(StateFailed, attempt, err)
		return out
	}
}

// Step runs attempt number attempt of task and classifies a failure. retry
// is true when the policy allows another attempt after Policy.Delay; a
// failure with retry false is fatal.
func Step(ctx context.Context, task Task, fn WorkFunc, attempt int) (json.RawMessage, bool, error) {
	policy := task.Policy
	res, err := RunAttempt(ctx, fn, task.Payload, policy)
	switch {
	case err == nil:
		return res, false, nil
	case errors.Is(err, ErrHardLimit), errors.Is(err, ErrSoftLimit):
		return nil, false, asFatal(task.Name, err)
	case ctx.Err() != nil:
		return nil, false, asFatal(task.Name, err)
	case !policy.retryable(err):
		return nil, false, asFatal(task.Name, err)
	case attempt > policy.MaxRetries:
		return nil, false, pipeline.NewError(pipeline.KindFatal, task.Name,
			fmt.Sprintf("retry budget exhausted after %d attempts", attempt), err)
	default:
		return nil, true, err
	}
}

type attemptResult struct {
	res json.RawMessage
	err error
}

// RunAttempt runs one attempt under the soft and hard limits. Past the hard
// limit the goroutine is left to finish on its own and its result is discarded.
func RunAttempt(ctx context.Context, fn WorkFunc, payload json.RawMessage, policy RetryPolicy) (json.RawMessage, error) {
	attemptCtx := ctx
	cancel := func() {}
	if policy.SoftLimit > 0 {
		attemptCtx, cancel = context.WithTimeout(ctx, policy.SoftLimit)
	}
	defer cancel()

	done := make(chan attemptResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- attemptResult{err: pipeline.NewError(pipeline.KindFatal, "executor.run", fmt.Sprintf("panic: %v", r), nil)}
			}
		}()
		res, err := fn(attemptCtx, payload)
		done <- attemptResult{res: res, err: err}
	}()

	var hard <-chan time.Time
	if policy.HardLimit > 0 {
		timer := time.NewTimer(policy.HardLimit)
		defer timer.Stop()
		hard = timer.C
	}

	select {
	case r := <-done:
		if r.err != nil && policy.SoftLimit > 0 && ctx.Err() == nil &&
			errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", ErrSoftLimit, r.err)
		}
		return r.res, r.err
	case <-hard:
		return nil, ErrHardLimit
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func asFatal(op string, err error) error {
	if pipeline.IsKind(err, pipeline.KindFatal) {
		return err
	}
	return pipeline.Wrap(pipeline.KindFatal, op, err)
}
