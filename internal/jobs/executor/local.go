package executor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/yungbote/marketpulse/internal/platform/logger"
)

// Local runs tasks on goroutines in the current process.
type Local struct {
	registry *Registry
	log      *logger.Logger
	hooks    Hooks
}

func NewLocal(registry *Registry, baseLog *logger.Logger, hooks Hooks) *Local {
	if hooks == nil {
		hooks = NoopHooks{}
	}
	return &Local{
		registry: registry,
		log:      baseLog.With("component", "LocalExecutor"),
		hooks:    hooks,
	}
}

func (l *Local) Submit(ctx context.Context, task Task) (Handle, error) {
	fn, ok := l.registry.Get(task.Name)
	if !ok {
		return nil, &missingFuncError{Name: task.Name}
	}
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	h := newLocalHandle(task.ID)
	log := l.log.With("task_id", task.ID, "task", task.Name)

	// Detached from the submitter: a caller that stops waiting does not
	// cancel the task. The hard limit still bounds each attempt.
	runCtx := context.WithoutCancel(ctx)
	go func() {
		out := Run(runCtx, task, fn, func(state State, attempt int, err error) {
			h.setState(state)
			l.hooks.TaskTransition(task.Name, state)
			switch state {
			case StateRetryScheduled:
				log.Warn("task attempt failed; retry scheduled", "attempt", attempt, "delay", task.Policy.Delay, "error", err)
			case StateFailed:
				log.Error("task failed", "attempt", attempt, "error", err)
			}
		})
		h.finish(out)
	}()
	return h, nil
}

type localHandle struct {
	id   string
	done chan struct{}

	mu    sync.Mutex
	state State
	out   Outcome
}

func newLocalHandle(id string) *localHandle {
	return &localHandle{id: id, done: make(chan struct{}), state: StatePending}
}

func (h *localHandle) ID() string { return h.id }

func (h *localHandle) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

func (h *localHandle) setState(s State) {
	h.mu.Lock()
	h.state = s
	h.mu.Unlock()
}

func (h *localHandle) finish(out Outcome) {
	h.mu.Lock()
	h.out = out
	h.state = out.State
	h.mu.Unlock()
	close(h.done)
}

func (h *localHandle) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-h.done:
		h.mu.Lock()
		defer h.mu.Unlock()
		return h.out, nil
	case <-ctx.Done():
		return Outcome{TaskID: h.id, State: h.State()}, ctx.Err()
	}
}

// WaitAll waits for every handle, in order, until timeout. On expiry it
// returns the outcomes gathered so far and an error wrapping
// context.DeadlineExceeded; unfinished tasks keep running.
func WaitAll(ctx context.Context, handles []Handle, timeout time.Duration) ([]Outcome, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	out := make([]Outcome, 0, len(handles))
	for i, h := range handles {
		o, err := h.Wait(ctx)
		if err != nil {
			return out, fmt.Errorf("wait task %d (%s): %w", i, h.ID(), err)
		}
		out = append(out, o)
	}
	return out, nil
}
