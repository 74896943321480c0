package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/marketpulse/internal/domain/pipeline"
	"github.com/yungbote/marketpulse/internal/jobs/executor"
	"github.com/yungbote/marketpulse/internal/platform/logger"
)

// result is the stored terminal report of a task.
type result struct {
	State    executor.State  `json:"state"`
	Attempts int             `json:"attempts"`
	Result   json.RawMessage `json:"result,omitempty"`
	Error    string          `json:"error,omitempty"`
	Kind     pipeline.Kind   `json:"kind,omitempty"`
}

func (r result) outcome(id string) executor.Outcome {
	out := executor.Outcome{TaskID: id, State: r.State, Attempts: r.Attempts, Result: r.Result}
	if r.Error != "" {
		kind := r.Kind
		if kind == "" {
			kind = pipeline.KindFatal
		}
		out.Err = pipeline.NewError(kind, "redis.task", r.Error, nil)
	}
	return out
}

// Broker submits tasks to the queue. Workers started with NewWorker run them.
type Broker struct {
	rdb *goredis.Client
	cfg Config
	log *logger.Logger
}

func NewBroker(rdb *goredis.Client, cfg Config, baseLog *logger.Logger) *Broker {
	return &Broker{rdb: rdb, cfg: cfg, log: baseLog.With("component", "RedisBroker")}
}

func (b *Broker) Submit(ctx context.Context, task executor.Task) (executor.Handle, error) {
	if b == nil || b.rdb == nil {
		return nil, fmt.Errorf("redis broker not initialized")
	}
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	raw, err := json.Marshal(task)
	if err != nil {
		return nil, pipeline.NewError(pipeline.KindFatal, "redis.submit", "encode task", err)
	}
	pipe := b.rdb.TxPipeline()
	pipe.Set(ctx, stateKey(b.cfg.Queue, task.ID), string(executor.StatePending), b.cfg.ResultTTL)
	pipe.LPush(ctx, b.cfg.Queue, raw)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, pipeline.Wrap(pipeline.KindTransient, "redis.submit", err)
	}
	b.log.Debug("task queued", "task_id", task.ID, "task", task.Name, "queue", b.cfg.Queue)
	return &handle{id: task.ID, rdb: b.rdb, queue: b.cfg.Queue}, nil
}

type handle struct {
	id    string
	rdb   *goredis.Client
	queue string
}

func (h *handle) ID() string { return h.id }

// Wait subscribes before reading the result key so a completion published
// between the two is not missed.
func (h *handle) Wait(ctx context.Context) (executor.Outcome, error) {
	sub := h.rdb.Subscribe(ctx, doneChannel(h.queue, h.id))
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return h.pending(ctx), waitErr(ctx, err)
	}

	if out, ok, err := h.load(ctx); err != nil || ok {
		return out, err
	}
	select {
	case <-ctx.Done():
		return h.pending(context.WithoutCancel(ctx)), ctx.Err()
	case <-sub.Channel():
	}
	out, ok, err := h.load(ctx)
	if err == nil && !ok {
		err = fmt.Errorf("redis task %s announced without a stored result", h.id)
	}
	return out, err
}

func (h *handle) load(ctx context.Context) (executor.Outcome, bool, error) {
	raw, err := h.rdb.Get(ctx, resultKey(h.queue, h.id)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return executor.Outcome{TaskID: h.id}, false, nil
	}
	if err != nil {
		return executor.Outcome{TaskID: h.id}, false, waitErr(ctx, err)
	}
	var r result
	if err := json.Unmarshal(raw, &r); err != nil {
		return executor.Outcome{TaskID: h.id}, false, fmt.Errorf("decode task result: %w", err)
	}
	return r.outcome(h.id), true, nil
}

func (h *handle) pending(ctx context.Context) executor.Outcome {
	state, err := h.rdb.Get(ctx, stateKey(h.queue, h.id)).Result()
	if err != nil {
		state = string(executor.StatePending)
	}
	return executor.Outcome{TaskID: h.id, State: executor.State(state)}
}

func waitErr(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}
