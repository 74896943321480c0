package chunktask

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	temporalsdkclient "go.temporal.io/sdk/client"

	"github.com/yungbote/marketpulse/internal/domain/pipeline"
	"github.com/yungbote/marketpulse/internal/jobs/executor"
	"github.com/yungbote/marketpulse/internal/platform/logger"
)

// Executor submits tasks as Temporal workflows on taskQueue. Workers started
// by temporalworker.Runner execute them.
type Executor struct {
	tc        temporalsdkclient.Client
	taskQueue string
	log       *logger.Logger
}

func NewExecutor(tc temporalsdkclient.Client, taskQueue string, baseLog *logger.Logger) (*Executor, error) {
	if tc == nil {
		return nil, fmt.Errorf("temporal client is not configured")
	}
	return &Executor{tc: tc, taskQueue: taskQueue, log: baseLog.With("component", "TemporalExecutor")}, nil
}

func (e *Executor) Submit(ctx context.Context, task executor.Task) (executor.Handle, error) {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	run, err := e.tc.ExecuteWorkflow(ctx, temporalsdkclient.StartWorkflowOptions{
		ID:        "chunk-" + task.ID,
		TaskQueue: e.taskQueue,
	}, WorkflowName, Input{Name: task.Name, Payload: task.Payload, Policy: task.Policy})
	if err != nil {
		return nil, pipeline.Wrap(pipeline.KindTransient, "chunktask.submit", err)
	}
	e.log.Debug("chunk task submitted", "task_id", task.ID, "task", task.Name, "run_id", run.GetRunID())
	return &handle{id: task.ID, run: run}, nil
}

type handle struct {
	id  string
	run temporalsdkclient.WorkflowRun
}

func (h *handle) ID() string { return h.id }

func (h *handle) Wait(ctx context.Context) (executor.Outcome, error) {
	var out Output
	err := h.run.Get(ctx, &out)
	if err != nil && ctx.Err() != nil {
		return executor.Outcome{TaskID: h.id, State: executor.StateRunning}, ctx.Err()
	}
	if err != nil {
		return executor.Outcome{
			TaskID: h.id,
			State:  executor.StateFailed,
			Err:    pipeline.Wrap(pipeline.KindFatal, "chunktask.run", err),
		}, nil
	}
	return executor.Outcome{
		TaskID:   h.id,
		State:    executor.StateSucceeded,
		Attempts: int(out.Attempt),
		Result:   out.Result,
	}, nil
}
