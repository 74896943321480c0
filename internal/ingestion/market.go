package ingestion

import (
	"context"
	"strings"
	"time"

	"github.com/yungbote/marketpulse/internal/data/aggregates"
	types "github.com/yungbote/marketpulse/internal/domain"
	"github.com/yungbote/marketpulse/internal/domain/pipeline"
	"github.com/yungbote/marketpulse/internal/normalization"
	"github.com/yungbote/marketpulse/internal/observability"
	"github.com/yungbote/marketpulse/internal/platform/dbctx"
)

// RunMarket fans ticker bar fetches out across MarketChunks tasks and
// commits the bars of tickers that map to a company.
func (s *Service) RunMarket(ctx context.Context) (FlowResult, error) {
	return s.track(ctx, FlowMarket, "", func(ctx context.Context, res *FlowResult) error {
		const op = "ingestion.market"
		if s.deps.Companies == nil {
			return pipeline.NewError(pipeline.KindFatal, op, "company repo not configured", nil)
		}

		tickers := make([]string, 0, len(s.cfg.Tickers))
		for _, t := range s.cfg.Tickers {
			if t = normalization.Ticker(t); t != "" {
				tickers = append(tickers, t)
			}
		}
		companies, err := s.deps.Companies.GetIDsByTickers(dbctx.Context{Ctx: ctx}, tickers)
		if err != nil {
			return aggregates.MapError(op, err)
		}
		if len(companies) < len(tickers) {
			var missing []string
			for _, t := range tickers {
				if _, ok := companies[t]; !ok {
					missing = append(missing, t)
				}
			}
			s.log.Warn("no company for tickers; their bars will be dropped", "tickers", strings.Join(missing, ","))
		}

		end := s.now().UTC()
		start := end.AddDate(0, 0, -s.cfg.MarketLookbackDays).Truncate(24 * time.Hour)
		reqs := make([]BarRequest, 0, len(tickers))
		for _, t := range tickers {
			reqs = append(reqs, BarRequest{Symbol: t, Start: start, End: end})
		}

		results, err := fanOut[BarRequest, SymbolBars](ctx, s, TaskFetchBars, reqs,
			s.cfg.MarketChunks, s.cfg.MarketRetries, s.cfg.MarketDeadline)
		if err != nil {
			return err
		}
		var bars []*types.StockBar
		failed := 0
		for _, r := range results {
			if r.Failed {
				failed++
				continue
			}
			bars = append(bars, r.Bars...)
		}
		res.Fetched = len(bars)
		if failed > 0 {
			s.log.Warn("bar fetch failed for some tickers", "count", failed, "of", len(reqs))
		}
		if len(bars) == 0 {
			return nil
		}

		cr, attempts, err := s.commit(ctx, TaskCommitStockBars, commitBarsInput{Bars: bars, Companies: companies}, s.cfg.MarketRetries)
		res.Attempts = attempts
		if err != nil {
			return err
		}
		res.Inserted = int(cr.Inserted)
		res.Skipped = cr.Skipped
		res.Dropped = len(cr.Dropped)
		if len(cr.Dropped) > 0 {
			samples := make([]string, 0, len(cr.Dropped))
			for _, d := range cr.Dropped {
				samples = append(samples, d.Key)
			}
			observability.ReportDataQuality(ctx, s.log, "market.commit", map[string]int{"unmapped_ticker": len(cr.Dropped)}, samples, nil)
			s.deps.Metrics.AddDrops(FlowMarket, "unmapped_ticker", len(cr.Dropped))
		}

		uri, err := stageAndTrigger(ctx, s, FlowMarket, "", barRecords(bars, companies))
		res.StagingURI = uri
		return err
	})
}
