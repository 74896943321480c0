package ingestion

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	types "github.com/yungbote/marketpulse/internal/domain"
	"github.com/yungbote/marketpulse/internal/domain/pipeline"
	"github.com/yungbote/marketpulse/internal/platform/dbctx"
)

// beginRun records a running IngestionRun. Bookkeeping failures are logged
// and never fail the flow.
func (s *Service) beginRun(ctx context.Context, flow, category string, start time.Time) *uuid.UUID {
	if s.deps.Runs == nil {
		return nil
	}
	payload, _ := json.Marshal(map[string]any{
		"fetch_limit":    s.cfg.FetchLimit,
		"content_chunks": s.cfg.ContentChunks,
		"market_chunks":  s.cfg.MarketChunks,
	})
	run, err := s.deps.Runs.Create(dbctx.Context{Ctx: ctx}, &types.IngestionRun{
		Flow:      flow,
		Category:  category,
		Status:    types.RunStatusRunning,
		Stage:     "extract",
		Payload:   datatypes.JSON(payload),
		StartedAt: start.UTC(),
	})
	if err != nil {
		s.log.Warn("ingestion run create failed", "flow", flow, "category", category, "error", err)
		return nil
	}
	return &run.ID
}

func (s *Service) finishRun(ctx context.Context, id *uuid.UUID, res FlowResult, flowErr error) {
	if s.deps.Runs == nil || id == nil {
		return
	}
	now := s.now().UTC()
	updates := map[string]interface{}{
		"status":      types.RunStatusSucceeded,
		"stage":       "done",
		"attempts":    res.Attempts,
		"fetched":     res.Fetched,
		"inserted":    res.Inserted,
		"skipped":     res.Skipped,
		"dropped":     res.Dropped,
		"staging_uri": res.StagingURI,
		"finished_at": &now,
	}
	if flowErr != nil {
		updates["status"] = types.RunStatusFailed
		updates["stage"] = "failed"
		updates["error"] = flowErr.Error()
		updates["error_kind"] = string(pipeline.KindOf(flowErr))
	}
	// The flow context may already be cancelled; the row still needs closing.
	dbc := dbctx.Context{Ctx: context.WithoutCancel(ctx)}
	if err := s.deps.Runs.UpdateFields(dbc, *id, updates); err != nil {
		s.log.Warn("ingestion run update failed", "run_id", id.String(), "error", err)
	}
}
