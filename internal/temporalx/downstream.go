package temporalx

import (
	"context"
	"fmt"
	"time"

	temporalsdkclient "go.temporal.io/sdk/client"

	"github.com/yungbote/marketpulse/internal/platform/logger"
)

// DownstreamInput is the argument of the downstream load workflow.
type DownstreamInput struct {
	JobName    string `json:"job_name"`
	StagingURI string `json:"staging_uri"`
}

// Downstream starts the downstream load workflow after a batch is staged.
// Starting is fire-and-forget: failures are logged and never returned.
type Downstream struct {
	tc  temporalsdkclient.Client
	cfg Config
	log *logger.Logger
}

func NewDownstream(tc temporalsdkclient.Client, cfg Config, baseLog *logger.Logger) *Downstream {
	return &Downstream{tc: tc, cfg: cfg, log: baseLog.With("component", "DownstreamTrigger")}
}

func (d *Downstream) Trigger(ctx context.Context, jobName, stagingURI string) {
	if d == nil || d.tc == nil {
		return
	}
	if d.cfg.DownstreamWorkflow == "" || stagingURI == "" {
		d.log.Debug("downstream trigger skipped", "job_name", jobName, "staging_uri", stagingURI)
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	id := fmt.Sprintf("%s-%s-%d", d.cfg.DownstreamWorkflow, jobName, time.Now().UTC().UnixNano())
	run, err := d.tc.ExecuteWorkflow(ctx, temporalsdkclient.StartWorkflowOptions{
		ID:        id,
		TaskQueue: d.cfg.DownstreamTaskQueue,
	}, d.cfg.DownstreamWorkflow, DownstreamInput{JobName: jobName, StagingURI: stagingURI})
	if err != nil {
		d.log.Warn("downstream trigger failed", "job_name", jobName, "staging_uri", stagingURI, "error", err)
		return
	}
	d.log.Info("downstream load triggered", "job_name", jobName, "workflow_id", run.GetID(), "run_id", run.GetRunID())
}
