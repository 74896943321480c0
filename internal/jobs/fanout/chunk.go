package fanout

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/marketpulse/internal/domain/pipeline"
	"github.com/yungbote/marketpulse/internal/jobs/executor"
	"github.com/yungbote/marketpulse/internal/platform/logger"
)

const DefaultConcurrency = 8

// Fetcher retrieves one item. Expected failures are returned as errors and
// turned into sentinels by ProcessChunk; an error tagged fatal aborts the
// chunk.
type Fetcher[In, Out any] func(ctx context.Context, item In) (Out, error)

// Result is one fetch outcome. When Err is set, Value is the sentinel
// default record for the item and Err carries the reason.
type Result[T any] struct {
	Value T
	Err   error
}

func (r Result[T]) Sentinel() bool { return r.Err != nil }

type ChunkOptions[In, Out any] struct {
	// Concurrency caps in-flight fetches. Zero means DefaultConcurrency.
	Concurrency int
	// Sentinel builds the default record for a failed item.
	Sentinel func(item In, err error) Out
	Log      *logger.Logger
}

// ProcessChunk fetches every item with bounded concurrency and returns one
// Result per item, in input order. A failing fetch does not cancel its
// siblings.
func ProcessChunk[In, Out any](ctx context.Context, items []In, fetch Fetcher[In, Out], opts ChunkOptions[In, Out]) ([]Result[Out], error) {
	out := make([]Result[Out], len(items))
	if len(items) == 0 {
		return out, nil
	}
	limit := opts.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	log := opts.Log
	if log == nil {
		log = logger.Nop()
	}

	var g errgroup.Group
	g.SetLimit(limit)
	for i, item := range items {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = pipeline.NewError(pipeline.KindFatal, "fanout.fetch", fmt.Sprintf("panic on item %d: %v", i, r), nil)
				}
			}()
			v, ferr := fetch(ctx, item)
			if ferr == nil {
				out[i] = Result[Out]{Value: v}
				return nil
			}
			if pipeline.IsKind(ferr, pipeline.KindFatal) {
				return ferr
			}
			var sentinel Out
			if opts.Sentinel != nil {
				sentinel = opts.Sentinel(item, ferr)
			}
			out[i] = Result[Out]{Value: sentinel, Err: perItem(ferr)}
			log.Warn("fetch failed; using default record", "index", i, "error", ferr)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func perItem(err error) error {
	if pipeline.IsKind(err, pipeline.KindPerItem) {
		return err
	}
	return pipeline.Wrap(pipeline.KindPerItem, "fanout.fetch", err)
}

// Values drops the per-item reasons and keeps every value, sentinels included.
func Values[T any](results []Result[T]) []T {
	out := make([]T, len(results))
	for i, r := range results {
		out[i] = r.Value
	}
	return out
}

// ChunkTask adapts a Fetcher into an executor work function taking a JSON
// array of In and returning a JSON array of Out in the same order.
func ChunkTask[In, Out any](fetch Fetcher[In, Out], opts ChunkOptions[In, Out]) executor.WorkFunc {
	return func(ctx context.Context, payload json.RawMessage) (json.RawMessage, error) {
		var items []In
		if err := json.Unmarshal(payload, &items); err != nil {
			return nil, pipeline.NewError(pipeline.KindFatal, "fanout.chunk", "decode chunk payload", err)
		}
		results, err := ProcessChunk(ctx, items, fetch, opts)
		if err != nil {
			return nil, err
		}
		b, err := json.Marshal(Values(results))
		if err != nil {
			return nil, pipeline.NewError(pipeline.KindFatal, "fanout.chunk", "encode chunk result", err)
		}
		return b, nil
	}
}
