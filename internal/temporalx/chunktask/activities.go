package chunktask

import (
	"context"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/yungbote/marketpulse/internal/domain/pipeline"
	"github.com/yungbote/marketpulse/internal/jobs/executor"
	"github.com/yungbote/marketpulse/internal/platform/logger"
)

type Activities struct {
	Log      *logger.Logger
	Registry *executor.Registry
}

func (a *Activities) Run(ctx context.Context, in Input) (Output, error) {
	info := activity.GetInfo(ctx)
	out := Output{Attempt: info.Attempt}
	if a == nil || a.Registry == nil {
		return out, temporal.NewNonRetryableApplicationError("chunktask: activity not configured", nonRetryableType, nil)
	}
	fn, ok := a.Registry.Get(in.Name)
	if !ok {
		return out, temporal.NewNonRetryableApplicationError("chunktask: no work func for task="+in.Name, nonRetryableType, nil)
	}

	stopHB := heartbeat(ctx, 20*time.Second)
	defer stopHB()

	res, err := executor.RunAttempt(ctx, fn, in.Payload, in.Policy)
	if err == nil {
		out.Result = res
		return out, nil
	}
	if a.Log != nil {
		a.Log.Warn("chunk task attempt failed", "task", in.Name, "attempt", info.Attempt, "error", err)
	}
	if !executor.IsTransient(err) {
		return out, temporal.NewNonRetryableApplicationError(err.Error(), nonRetryableType, err, string(pipeline.KindOf(err)))
	}
	return out, err
}

func heartbeat(ctx context.Context, every time.Duration) func() {
	done := make(chan struct{})
	go func() {
		t := time.NewTicker(every)
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-t.C:
				activity.RecordHeartbeat(ctx)
			}
		}
	}()
	return func() { close(done) }
}
