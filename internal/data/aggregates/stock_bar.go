package aggregates

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/yungbote/marketpulse/internal/data/repos"
	"github.com/yungbote/marketpulse/internal/dedup"
	types "github.com/yungbote/marketpulse/internal/domain"
	"github.com/yungbote/marketpulse/internal/domain/pipeline"
	"github.com/yungbote/marketpulse/internal/platform/dbctx"
)

// StockBarWriter persists bars keyed by (company_id, timestamp). Bars arrive
// carrying their ticker in Symbol and are bound to a company through the
// supplied ticker mapping.
type StockBarWriter interface {
	Commit(ctx context.Context, bars []*types.StockBar, companies map[string]uuid.UUID) (CommitResult, error)
}

type StockBarWriterDeps struct {
	Base BaseDeps

	Bars repos.StockBarRepo
}

type stockBarWriter struct {
	deps StockBarWriterDeps
}

func NewStockBarWriter(deps StockBarWriterDeps) StockBarWriter {
	deps.Base = deps.Base.withDefaults()
	return &stockBarWriter{deps: deps}
}

func (w *stockBarWriter) Commit(ctx context.Context, bars []*types.StockBar, companies map[string]uuid.UUID) (CommitResult, error) {
	const op = "Market.StockBar.Commit"
	var out CommitResult
	if w.deps.Bars == nil {
		return out, pipeline.NewError(pipeline.KindFatal, op, "stock bar repo not configured", nil)
	}
	batch := compact(bars)
	if len(batch) == 0 {
		return out, nil
	}

	mapping := make(map[string]uuid.UUID, len(companies))
	for ticker, id := range companies {
		mapping[strings.ToUpper(strings.TrimSpace(ticker))] = id
	}
	bound, drops := dedup.ForeignMapping(batch,
		func(b *types.StockBar) string { return strings.ToUpper(strings.TrimSpace(b.Symbol)) },
		mapping,
		func(b *types.StockBar, id uuid.UUID) { b.CompanyID = id },
	)
	for _, d := range drops {
		w.deps.Base.Log.Warn("dropping bar without company mapping",
			"ticker", d.Key,
			"reason", d.Reason,
			"error", d.Err(op),
		)
	}

	err := commitOnce(ctx, w.deps.Base, op, func(dbc dbctx.Context) error {
		out = CommitResult{}
		filtered, err := dedup.FilterNew(dbc, bound, barKey, w.deps.Bars.ExistingKeys)
		if err != nil {
			return err
		}
		n, err := w.deps.Bars.CreateMany(dbc, filtered.ToInsert)
		if err != nil {
			return err
		}
		out.Inserted = n
		out.Skipped = filtered.Skipped() + len(filtered.ToInsert) - int(n)
		return nil
	})
	if err != nil {
		return CommitResult{}, err
	}
	out.Dropped = drops
	return out, nil
}

func barKey(b *types.StockBar) types.BarKey { return b.NaturalKey() }
