package redis

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/marketpulse/internal/domain/pipeline"
	"github.com/yungbote/marketpulse/internal/jobs/executor"
	"github.com/yungbote/marketpulse/internal/platform/logger"
)

// Worker pops tasks from the queue and runs one attempt per pop with the
// registry's work functions. A retry goes to the delayed set with a
// not-before score and is pushed back on the queue once due, so no consumer
// waits out a retry delay.
type Worker struct {
	rdb      *goredis.Client
	cfg      Config
	registry *executor.Registry
	log      *logger.Logger
	hooks    executor.Hooks
	wg       sync.WaitGroup
}

func NewWorker(rdb *goredis.Client, cfg Config, registry *executor.Registry, baseLog *logger.Logger, hooks executor.Hooks) *Worker {
	if hooks == nil {
		hooks = executor.NoopHooks{}
	}
	return &Worker{
		rdb:      rdb,
		cfg:      cfg,
		registry: registry,
		log:      baseLog.With("component", "RedisWorker"),
		hooks:    hooks,
	}
}

// Start launches concurrency consumer loops and the delayed-task promoter.
// All of them stop when ctx is done.
func (w *Worker) Start(ctx context.Context, concurrency int) {
	concurrency = max(concurrency, 1)
	w.log.Info("Starting redis task worker pool", "concurrency", concurrency, "queue", w.cfg.Queue)
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.promoteLoop(ctx)
	}()
	for i := 0; i < concurrency; i++ {
		w.wg.Add(1)
		go func(workerID int) {
			defer w.wg.Done()
			w.runLoop(ctx, workerID)
		}(i + 1)
	}
}

// Wait blocks until every consumer loop has exited.
func (w *Worker) Wait() { w.wg.Wait() }

func (w *Worker) runLoop(ctx context.Context, workerID int) {
	for {
		if ctx.Err() != nil {
			w.log.Info("Worker loop stopped", "worker_id", workerID)
			return
		}
		vals, err := w.rdb.BRPop(ctx, 5*time.Second, w.cfg.Queue).Result()
		if errors.Is(err, goredis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() == nil {
				w.log.Warn("BRPOP failed", "worker_id", workerID, "error", err)
				time.Sleep(time.Second)
			}
			continue
		}
		if len(vals) != 2 {
			continue
		}
		var task executor.Task
		if err := json.Unmarshal([]byte(vals[1]), &task); err != nil {
			w.log.Warn("bad task payload", "worker_id", workerID, "error", err)
			continue
		}
		w.execute(ctx, workerID, task)
	}
}

func (w *Worker) execute(ctx context.Context, workerID int, task executor.Task) {
	log := w.log.With("worker_id", workerID, "task_id", task.ID, "task", task.Name)
	// Results are written even if the worker is shutting down.
	storeCtx := context.WithoutCancel(ctx)
	attempt := task.Attempts + 1

	out := executor.Outcome{TaskID: task.ID, Attempts: attempt}
	fn, ok := w.registry.Get(task.Name)
	if !ok {
		out.State = executor.StateFailed
		out.Attempts = task.Attempts
		out.Err = pipeline.NewError(pipeline.KindFatal, "redis.worker", "no work func registered for task="+task.Name, nil)
	} else {
		w.setState(storeCtx, task, executor.StateRunning)
		res, retry, err := executor.Step(ctx, task, fn, attempt)
		switch {
		case err == nil:
			out.State = executor.StateSucceeded
			out.Result = res
		case retry:
			log.Warn("task attempt failed; retry scheduled", "attempt", attempt, "delay", task.Policy.Delay, "error", err)
			task.Attempts = attempt
			serr := w.schedule(storeCtx, task, time.Now().Add(task.Policy.Delay))
			if serr == nil {
				w.setState(storeCtx, task, executor.StateRetryScheduled)
				return
			}
			log.Error("schedule retry failed", "error", serr)
			out.State = executor.StateFailed
			out.Err = pipeline.NewError(pipeline.KindFatal, task.Name, "schedule retry", errors.Join(err, serr))
		default:
			out.State = executor.StateFailed
			out.Err = err
		}
	}
	w.hooks.TaskTransition(task.Name, out.State)

	r := result{State: out.State, Attempts: out.Attempts, Result: out.Result}
	if out.Err != nil {
		r.Error = out.Err.Error()
		r.Kind = pipeline.KindOf(out.Err)
		log.Error("task failed", "attempts", out.Attempts, "error", out.Err)
	}
	raw, err := json.Marshal(r)
	if err != nil {
		log.Error("encode task result failed", "error", err)
		return
	}
	pipe := w.rdb.TxPipeline()
	pipe.Set(storeCtx, resultKey(w.cfg.Queue, task.ID), raw, w.cfg.ResultTTL)
	pipe.Set(storeCtx, stateKey(w.cfg.Queue, task.ID), string(out.State), w.cfg.ResultTTL)
	pipe.Publish(storeCtx, doneChannel(w.cfg.Queue, task.ID), string(out.State))
	if _, err := pipe.Exec(storeCtx); err != nil {
		log.Error("store task result failed", "error", err)
	}
}

func (w *Worker) setState(ctx context.Context, task executor.Task, state executor.State) {
	w.hooks.TaskTransition(task.Name, state)
	_ = w.rdb.Set(ctx, stateKey(w.cfg.Queue, task.ID), string(state), w.cfg.ResultTTL).Err()
}

// schedule parks task in the delayed set until notBefore.
func (w *Worker) schedule(ctx context.Context, task executor.Task, notBefore time.Time) error {
	raw, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return w.rdb.ZAdd(ctx, delayedKey(w.cfg.Queue), goredis.Z{Score: float64(notBefore.UnixMilli()), Member: raw}).Err()
}

func (w *Worker) promoteLoop(ctx context.Context) {
	interval := w.cfg.PromoteInterval
	if interval <= 0 {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if _, err := w.promoteDue(ctx, time.Now()); err != nil && ctx.Err() == nil {
				w.log.Warn("promote delayed tasks failed", "error", err)
			}
		}
	}
}

// promoteDue moves every delayed task due at now back onto the queue. ZREM
// decides ownership, so with several workers each task is pushed once.
func (w *Worker) promoteDue(ctx context.Context, now time.Time) (int, error) {
	key := delayedKey(w.cfg.Queue)
	due, err := w.rdb.ZRangeByScore(ctx, key, &goredis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(now.UnixMilli(), 10),
		Count: 100,
	}).Result()
	if err != nil {
		return 0, err
	}
	moved := 0
	for _, raw := range due {
		n, err := w.rdb.ZRem(ctx, key, raw).Result()
		if err != nil {
			return moved, err
		}
		if n == 0 {
			continue
		}
		if err := w.rdb.LPush(ctx, w.cfg.Queue, raw).Err(); err != nil {
			_ = w.rdb.ZAdd(context.WithoutCancel(ctx), key, goredis.Z{Score: float64(now.UnixMilli()), Member: raw}).Err()
			return moved, err
		}
		var task executor.Task
		if json.Unmarshal([]byte(raw), &task) == nil {
			w.setState(ctx, task, executor.StatePending)
		}
		moved++
	}
	return moved, nil
}
