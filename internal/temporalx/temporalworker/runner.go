package temporalworker

import (
	"context"
	"errors"
	"fmt"

	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/activity"
	temporalsdkclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/yungbote/marketpulse/internal/jobs/executor"
	"github.com/yungbote/marketpulse/internal/platform/envutil"
	"github.com/yungbote/marketpulse/internal/platform/logger"
	"github.com/yungbote/marketpulse/internal/temporalx"
	"github.com/yungbote/marketpulse/internal/temporalx/chunktask"
)

// Runner polls the ingestion task queue and executes chunk tasks with the
// work functions in registry.
type Runner struct {
	log *logger.Logger
	cfg temporalx.Config

	tc       temporalsdkclient.Client
	registry *executor.Registry
}

func NewRunner(log *logger.Logger, cfg temporalx.Config, tc temporalsdkclient.Client, registry *executor.Registry) (*Runner, error) {
	if tc == nil {
		return nil, fmt.Errorf("temporal client is not configured")
	}
	if registry == nil {
		return nil, fmt.Errorf("temporal worker missing registry")
	}
	return &Runner{log: log.With("component", "TemporalWorker"), cfg: cfg, tc: tc, registry: registry}, nil
}

// Start starts the worker, retrying while the server or namespace is not yet
// available. The worker stops when ctx is done.
func (r *Runner) Start(ctx context.Context) error {
	if r == nil || r.tc == nil {
		return fmt.Errorf("temporal worker not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	r.log.Info("Starting Temporal worker", "address", r.cfg.Address, "namespace", r.cfg.Namespace, "task_queue", r.cfg.TaskQueue)

	if r.cfg.RegisterNamespace {
		if err := temporalx.EnsureNamespace(ctx, r.cfg, r.log); err != nil {
			r.log.Warn("Temporal namespace ensure failed; worker will retry on start", "namespace", r.cfg.Namespace, "error", err)
		}
	}

	return temporalx.Retry(ctx, r.cfg.WorkerStart, func(_ context.Context, attempt int) (bool, error) {
		w := r.newWorker()
		err := w.Start()
		if err == nil {
			go func() {
				<-ctx.Done()
				w.Stop()
			}()
			r.log.Info("Temporal worker started", "task_queue", r.cfg.TaskQueue, "tasks", r.registry.Names(), "attempts", attempt)
			return false, nil
		}
		w.Stop()

		var nfe *serviceerror.NamespaceNotFound
		if errors.As(err, &nfe) {
			if r.cfg.RegisterNamespace {
				_ = temporalx.EnsureNamespace(ctx, r.cfg, r.log)
			}
			err = fmt.Errorf("temporal namespace not found (namespace=%s): %w", r.cfg.Namespace, err)
		}
		r.log.Warn("Temporal worker failed to start", "task_queue", r.cfg.TaskQueue, "attempt", attempt, "error", err)
		return true, err
	})
}

func (r *Runner) newWorker() worker.Worker {
	concurrency := max(envutil.Int("WORKER_CONCURRENCY", 4), 1)
	w := worker.New(r.tc, r.cfg.TaskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize:     concurrency,
		MaxConcurrentWorkflowTaskExecutionSize: concurrency,
	})
	acts := &chunktask.Activities{Log: r.log, Registry: r.registry}
	w.RegisterWorkflowWithOptions(chunktask.Workflow, workflow.RegisterOptions{Name: chunktask.WorkflowName})
	w.RegisterActivityWithOptions(acts.Run, activity.RegisterOptions{Name: chunktask.ActivityRunChunk})
	return w
}
