package ingestion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/yungbote/marketpulse/internal/clients/newsapi"
	"github.com/yungbote/marketpulse/internal/clients/reddit"
	"github.com/yungbote/marketpulse/internal/data/aggregates"
	"github.com/yungbote/marketpulse/internal/data/repos"
	"github.com/yungbote/marketpulse/internal/domain/pipeline"
	"github.com/yungbote/marketpulse/internal/ingestion/staging"
	"github.com/yungbote/marketpulse/internal/jobs/executor"
	"github.com/yungbote/marketpulse/internal/jobs/fanout"
	"github.com/yungbote/marketpulse/internal/observability"
	"github.com/yungbote/marketpulse/internal/pkg/httpx"
	"github.com/yungbote/marketpulse/internal/platform/logger"
)

const (
	FlowNews   = "news"
	FlowReddit = "reddit"
	FlowMarket = "market"
)

var tracer = otel.Tracer("github.com/yungbote/marketpulse/internal/ingestion")

// Trigger starts downstream processing of a staged batch. Implementations
// must not block the flow on failure.
type Trigger interface {
	Trigger(ctx context.Context, jobName, stagingURI string)
}

// FlowResult summarizes one flow execution.
type FlowResult struct {
	RunID           string        `json:"run_id,omitempty"`
	Flow            string        `json:"flow"`
	Category        string        `json:"category,omitempty"`
	Fetched         int           `json:"fetched"`
	Inserted        int           `json:"inserted"`
	ParentsInserted int           `json:"parents_inserted,omitempty"`
	Skipped         int           `json:"skipped"`
	Dropped         int           `json:"dropped"`
	LinkFailures    int           `json:"link_failures,omitempty"`
	Attempts        int           `json:"attempts"`
	StagingURI      string        `json:"staging_uri,omitempty"`
	Duration        time.Duration `json:"duration"`
}

type Deps struct {
	Exec       executor.Executor
	News       newsapi.Client
	Reddit     reddit.Client
	Companies  repos.CompanyRepo
	Runs       repos.IngestionRunRepo
	Exporter   *staging.Exporter
	Downstream Trigger
	Metrics    *observability.Metrics
	Log        *logger.Logger
}

// Service runs the news, reddit and market flows. Fetch fan-out and commits
// are submitted to the injected executor.
type Service struct {
	cfg  Config
	deps Deps
	log  *logger.Logger
	now  func() time.Time
}

func NewService(cfg Config, deps Deps) (*Service, error) {
	if deps.Exec == nil {
		return nil, fmt.Errorf("ingestion: executor required")
	}
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	if deps.Exporter == nil {
		deps.Exporter = staging.NewExporter(nil, deps.Log)
	}
	return &Service{
		cfg:  cfg.withDefaults(),
		deps: deps,
		log:  deps.Log.With("service", "IngestionService"),
		now:  time.Now,
	}, nil
}

// JobName is the downstream job for a flow's batch.
func JobName(flow, category string) string {
	if category == "" {
		return flow + "_etl"
	}
	return flow + "_" + category + "_etl"
}

// track wraps one flow execution with a span, an IngestionRun row, metrics
// and a summary log line.
func (s *Service) track(ctx context.Context, flow, category string, fn func(ctx context.Context, res *FlowResult) error) (FlowResult, error) {
	start := s.now()
	ctx, span := tracer.Start(ctx, "ingestion."+flow)
	defer span.End()
	span.SetAttributes(attribute.String("flow", flow), attribute.String("category", category))

	res := FlowResult{Flow: flow, Category: category}
	runID := s.beginRun(ctx, flow, category, start)
	if runID != nil {
		res.RunID = runID.String()
	}

	err := fn(ctx, &res)
	res.Duration = s.now().Sub(start)

	status := "succeeded"
	if err != nil {
		status = "failed"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.SetAttributes(
		attribute.Int("fetched", res.Fetched),
		attribute.Int("inserted", res.Inserted),
		attribute.Int("skipped", res.Skipped),
		attribute.Int("dropped", res.Dropped),
	)
	s.finishRun(ctx, runID, res, err)

	m := s.deps.Metrics
	m.ObserveFlow(flow, category, status, res.Duration)
	m.AddRows(flow, "fetched", res.Fetched)
	m.AddRows(flow, "inserted", res.Inserted)
	m.AddRows(flow, "skipped", res.Skipped)
	m.AddRows(flow, "dropped", res.Dropped)

	if err != nil {
		s.log.Error("flow failed",
			"flow", flow,
			"category", category,
			"kind", string(pipeline.KindOf(err)),
			"duration", res.Duration.String(),
			"error", err,
		)
		return res, err
	}
	s.log.Info("flow finished",
		"flow", flow,
		"category", category,
		"fetched", res.Fetched,
		"inserted", res.Inserted,
		"parents_inserted", res.ParentsInserted,
		"skipped", res.Skipped,
		"dropped", res.Dropped,
		"staging_uri", res.StagingURI,
		"duration", res.Duration.String(),
	)
	return res, nil
}

// commit submits a commit task and waits for its terminal outcome. The
// executor bounds each attempt by the policy's hard limit.
func (s *Service) commit(ctx context.Context, name string, payload any, maxRetries int) (aggregates.CommitResult, int, error) {
	var out aggregates.CommitResult
	raw, err := json.Marshal(payload)
	if err != nil {
		return out, 0, pipeline.NewError(pipeline.KindFatal, name, "encode payload", err)
	}
	h, err := s.deps.Exec.Submit(ctx, executor.Task{Name: name, Payload: raw, Policy: s.cfg.policy(maxRetries)})
	if err != nil {
		return out, 0, fmt.Errorf("submit %s: %w", name, err)
	}
	o, err := h.Wait(ctx)
	if err != nil {
		return out, o.Attempts, err
	}
	if o.State != executor.StateSucceeded {
		if o.Err == nil {
			o.Err = pipeline.NewError(pipeline.KindFatal, name, string(o.State), nil)
		}
		return out, o.Attempts, o.Err
	}
	if len(o.Result) > 0 {
		if err := json.Unmarshal(o.Result, &out); err != nil {
			return out, o.Attempts, pipeline.NewError(pipeline.KindFatal, name, "decode result", err)
		}
	}
	return out, o.Attempts, nil
}

// fanOut runs fanout.Run and re-runs the whole fan-out after an aggregation
// timeout or failure, up to FanoutRetries times.
func fanOut[In, Out any](ctx context.Context, s *Service, name string, items []In, k int, maxRetries int, deadline time.Duration) ([]Out, error) {
	policy := s.cfg.policy(maxRetries)
	var lastErr error
	for attempt := 0; attempt <= s.cfg.FanoutRetries; attempt++ {
		out, err := fanout.Run[In, Out](ctx, s.deps.Exec, name, items, k, policy, deadline)
		if err == nil {
			return out, nil
		}
		lastErr = err
		kind := pipeline.KindOf(err)
		if kind != pipeline.KindAggregationTimeout && kind != pipeline.KindAggregationFailure {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, errors.Join(err, ctx.Err())
		}
		s.log.Warn("fan-out did not complete; retrying",
			"task", name,
			"attempt", attempt+1,
			"max_attempts", s.cfg.FanoutRetries+1,
			"kind", string(kind),
			"error", err,
		)
	}
	return nil, lastErr
}

// sourceError tags a source API failure transient when retrying could help.
func sourceError(op string, err error) error {
	if httpx.IsRetryableError(err) {
		return pipeline.Wrap(pipeline.KindTransient, op, err)
	}
	return pipeline.Wrap(pipeline.KindFatal, op, err)
}

// stageAndTrigger exports the committed batch and starts the downstream job.
// An empty batch stages nothing and triggers nothing.
func stageAndTrigger[T any](ctx context.Context, s *Service, flow, category string, records []T) (string, error) {
	uri, err := staging.Export(ctx, s.deps.Exporter, flow, category, records)
	if err != nil {
		return "", err
	}
	if uri != "" && s.deps.Downstream != nil {
		s.deps.Downstream.Trigger(ctx, JobName(flow, category), uri)
	}
	return uri, nil
}
