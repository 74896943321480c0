package chunktask

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/testsuite"
	"go.temporal.io/sdk/workflow"

	"github.com/yungbote/marketpulse/internal/domain/pipeline"
	"github.com/yungbote/marketpulse/internal/jobs/executor"
	"github.com/yungbote/marketpulse/internal/platform/logger"
)

func newEnv(t *testing.T, reg *executor.Registry) *testsuite.TestWorkflowEnvironment {
	t.Helper()
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	acts := &Activities{Log: logger.Nop(), Registry: reg}
	env.RegisterWorkflowWithOptions(Workflow, workflow.RegisterOptions{Name: WorkflowName})
	env.RegisterActivityWithOptions(acts.Run, activity.RegisterOptions{Name: ActivityRunChunk})
	return env
}

func policy(retries int) executor.RetryPolicy {
	return executor.RetryPolicy{MaxRetries: retries, Delay: 10 * time.Millisecond, SoftLimit: time.Second, HardLimit: 2 * time.Second}
}

func TestWorkflow_RetriesTransient(t *testing.T) {
	var calls atomic.Int32
	reg := executor.NewRegistry()
	_ = reg.Register("flaky", func(_ context.Context, p json.RawMessage) (json.RawMessage, error) {
		if calls.Add(1) == 1 {
			return nil, pipeline.NewError(pipeline.KindTransient, "flaky", "connection reset", nil)
		}
		return p, nil
	})
	env := newEnv(t, reg)
	env.ExecuteWorkflow(WorkflowName, Input{Name: "flaky", Payload: json.RawMessage(`["AAPL"]`), Policy: policy(2)})

	if !env.IsWorkflowCompleted() {
		t.Fatalf("workflow did not complete")
	}
	if err := env.GetWorkflowError(); err != nil {
		t.Fatalf("workflow error: %v", err)
	}
	var out Output
	if err := env.GetWorkflowResult(&out); err != nil {
		t.Fatalf("result: %v", err)
	}
	if string(out.Result) != `["AAPL"]` || out.Attempt != 2 {
		t.Fatalf("unexpected output: %+v", out)
	}
}

func TestWorkflow_NonRetryableStopsImmediately(t *testing.T) {
	var calls atomic.Int32
	reg := executor.NewRegistry()
	_ = reg.Register("broken", func(context.Context, json.RawMessage) (json.RawMessage, error) {
		calls.Add(1)
		return nil, errors.New("invalid api key")
	})
	env := newEnv(t, reg)
	env.ExecuteWorkflow(WorkflowName, Input{Name: "broken", Payload: json.RawMessage(`[]`), Policy: policy(3)})

	if !env.IsWorkflowCompleted() {
		t.Fatalf("workflow did not complete")
	}
	if env.GetWorkflowError() == nil {
		t.Fatalf("expected workflow error")
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single attempt, got %d", calls.Load())
	}
}

func TestWorkflow_UnknownTask(t *testing.T) {
	env := newEnv(t, executor.NewRegistry())
	env.ExecuteWorkflow(WorkflowName, Input{Name: "missing", Policy: policy(1)})
	if env.GetWorkflowError() == nil {
		t.Fatalf("expected workflow error for unregistered task")
	}
}
