package app

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	temporalsdkclient "go.temporal.io/sdk/client"

	"github.com/yungbote/marketpulse/internal/clients/redis"
	"github.com/yungbote/marketpulse/internal/jobs/executor"
	"github.com/yungbote/marketpulse/internal/observability"
	"github.com/yungbote/marketpulse/internal/platform/logger"
	"github.com/yungbote/marketpulse/internal/temporalx"
	"github.com/yungbote/marketpulse/internal/temporalx/chunktask"
)

// taskHooks records executor state transitions as metrics.
func taskHooks(metrics *observability.Metrics) executor.Hooks {
	if metrics == nil {
		return executor.NoopHooks{}
	}
	return executor.HooksFunc(func(name string, state executor.State) {
		metrics.TaskTransition(name, string(state))
	})
}

type backend struct {
	exec     executor.Executor
	temporal temporalsdkclient.Client
	redis    *goredis.Client
}

func (b backend) close() {
	if b.temporal != nil {
		b.temporal.Close()
	}
	if b.redis != nil {
		_ = b.redis.Close()
	}
}

// resolveBackend builds the executor for EXECUTOR_BACKEND. The temporal and
// redis backends only submit; their tasks run in a `worker` process built
// from the same registry.
func resolveBackend(ctx context.Context, log *logger.Logger, cfg Config, registry *executor.Registry, metrics *observability.Metrics) (backend, error) {
	log.Info("Selecting task executor", "backend", cfg.ExecutorBackend)
	switch cfg.ExecutorBackend {
	case "", BackendLocal:
		return backend{exec: executor.NewLocal(registry, log, taskHooks(metrics))}, nil

	case BackendTemporal:
		if !cfg.Temporal.Enabled() {
			return backend{}, fmt.Errorf("executor backend %q requires TEMPORAL_ADDRESS", cfg.ExecutorBackend)
		}
		tc, err := temporalx.NewClient(cfg.Temporal, log)
		if err != nil {
			return backend{}, fmt.Errorf("init temporal client: %w", err)
		}
		exec, err := chunktask.NewExecutor(tc, cfg.Temporal.TaskQueue, log)
		if err != nil {
			tc.Close()
			return backend{}, fmt.Errorf("init temporal executor: %w", err)
		}
		return backend{exec: exec, temporal: tc}, nil

	case BackendRedis:
		rdb, err := redis.NewClient(ctx, cfg.Redis)
		if err != nil {
			return backend{}, fmt.Errorf("init redis: %w", err)
		}
		metrics.StartRedisCollector(ctx, log, rdb)
		return backend{exec: redis.NewBroker(rdb, cfg.Redis, log), redis: rdb}, nil

	default:
		return backend{}, fmt.Errorf("unsupported executor backend %q", cfg.ExecutorBackend)
	}
}
