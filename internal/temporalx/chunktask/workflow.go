package chunktask

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// hardLimitGrace keeps Temporal's own timeout behind the activity's hard
// limit so the non-retryable hard-limit error is what surfaces.
const hardLimitGrace = 30 * time.Second

func Workflow(ctx workflow.Context, in Input) (Output, error) {
	p := in.Policy
	delay := p.Delay
	if delay <= 0 {
		delay = time.Second
	}
	startToClose := p.HardLimit
	if startToClose <= 0 {
		startToClose = p.SoftLimit
	}
	if startToClose <= 0 {
		startToClose = 10 * time.Minute
	}

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: startToClose + hardLimitGrace,
		HeartbeatTimeout:    2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:        delay,
			BackoffCoefficient:     1.0,
			MaximumInterval:        delay,
			MaximumAttempts:        int32(p.MaxRetries + 1),
			NonRetryableErrorTypes: []string{nonRetryableType},
		},
	})

	var out Output
	err := workflow.ExecuteActivity(ctx, ActivityRunChunk, in).Get(ctx, &out)
	return out, err
}
