package fanout

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/yungbote/marketpulse/internal/domain/pipeline"
	"github.com/yungbote/marketpulse/internal/jobs/executor"
)

// Dispatch submits each chunk as one task named name. Handles are returned
// in chunk order. If a submit fails, tasks already submitted keep running.
func Dispatch[T any](ctx context.Context, exec executor.Executor, name string, chunks [][]T, policy executor.RetryPolicy) ([]executor.Handle, error) {
	handles := make([]executor.Handle, 0, len(chunks))
	for i, chunk := range chunks {
		payload, err := json.Marshal(chunk)
		if err != nil {
			return handles, pipeline.NewError(pipeline.KindFatal, "fanout.dispatch", fmt.Sprintf("encode chunk %d", i), err)
		}
		h, err := exec.Submit(ctx, executor.Task{Name: name, Payload: payload, Policy: policy})
		if err != nil {
			return handles, fmt.Errorf("submit chunk %d: %w", i, err)
		}
		handles = append(handles, h)
	}
	return handles, nil
}

// Aggregate waits up to deadline for every handle and concatenates their
// decoded results in submission order. Tasks still running at the deadline
// are not cancelled; their results are discarded.
func Aggregate[T any](ctx context.Context, handles []executor.Handle, deadline time.Duration) ([]T, error) {
	const op = "fanout.aggregate"
	outcomes, err := executor.WaitAll(ctx, handles, deadline)
	if err != nil {
		return nil, pipeline.NewError(pipeline.KindAggregationTimeout, op,
			fmt.Sprintf("%d of %d tasks finished before %s", len(outcomes), len(handles), deadline), err)
	}

	var failed []string
	var firstErr error
	for i, o := range outcomes {
		if o.State != executor.StateSucceeded {
			failed = append(failed, fmt.Sprintf("chunk %d (%s)", i, o.State))
			if firstErr == nil {
				firstErr = o.Err
			}
		}
	}
	if len(failed) > 0 {
		return nil, pipeline.NewError(pipeline.KindAggregationFailure, op, strings.Join(failed, ", "), firstErr)
	}

	var batch []T
	for i, o := range outcomes {
		var part []T
		if len(o.Result) > 0 {
			if err := json.Unmarshal(o.Result, &part); err != nil {
				return nil, pipeline.NewError(pipeline.KindAggregationFailure, op, fmt.Sprintf("decode chunk %d", i), err)
			}
		}
		batch = append(batch, part...)
	}
	return batch, nil
}

// Run partitions items into k chunks, dispatches them, and aggregates the
// results under deadline.
func Run[In, Out any](ctx context.Context, exec executor.Executor, name string, items []In, k int, policy executor.RetryPolicy, deadline time.Duration) ([]Out, error) {
	chunks := Partition(items, k)
	if len(chunks) == 0 {
		return nil, nil
	}
	handles, err := Dispatch(ctx, exec, name, chunks, policy)
	if err != nil {
		return nil, err
	}
	return Aggregate[Out](ctx, handles, deadline)
}
