package ingestion

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/marketpulse/internal/clients/alpaca"
	"github.com/yungbote/marketpulse/internal/clients/webpage"
	"github.com/yungbote/marketpulse/internal/data/aggregates"
	types "github.com/yungbote/marketpulse/internal/domain"
	"github.com/yungbote/marketpulse/internal/domain/pipeline"
	"github.com/yungbote/marketpulse/internal/ingestion/transform"
	"github.com/yungbote/marketpulse/internal/jobs/executor"
	"github.com/yungbote/marketpulse/internal/jobs/fanout"
	"github.com/yungbote/marketpulse/internal/platform/logger"
)

const (
	TaskFetchLinkedArticles = "reddit.fetch_linked_articles"
	TaskFetchBars           = "market.fetch_bars"
	TaskCommitArticles      = "news.commit_articles"
	TaskCommitRedditPosts   = "reddit.commit_posts"
	TaskCommitStockBars     = "market.commit_bars"
)

type PageFetcher interface {
	Fetch(ctx context.Context, url string) (webpage.Page, error)
}

// BarRequest is one market fan-out item.
type BarRequest struct {
	Symbol string    `json:"symbol"`
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
}

// SymbolBars is the fetch result for one BarRequest. Failed marks the
// default record substituted for a fetch error.
type SymbolBars struct {
	Symbol string            `json:"symbol"`
	Bars   []*types.StockBar `json:"bars"`
	Failed bool              `json:"failed,omitempty"`
}

type commitArticlesInput struct {
	Articles []*types.Article `json:"articles"`
}

type commitPostsInput struct {
	Posts []*types.RedditPost `json:"posts"`
}

type commitBarsInput struct {
	Bars      []*types.StockBar    `json:"bars"`
	Companies map[string]uuid.UUID `json:"companies"`
}

// TaskDeps are the collaborators of the registered work functions. A nil
// dependency makes its tasks fail fatally instead of being unregistered, so
// every process exposes the same task names.
type TaskDeps struct {
	Pages PageFetcher
	Bars  alpaca.Client

	Articles  aggregates.ArticleWriter
	Posts     aggregates.RedditWriter
	StockBars aggregates.StockBarWriter

	ChunkConcurrency int
	Log              *logger.Logger
}

// RegisterTasks adds every ingestion work function to reg.
func RegisterTasks(reg *executor.Registry, deps TaskDeps) error {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	log = log.With("component", "IngestionTasks")

	pageOpts := fanout.ChunkOptions[string, webpage.Page]{
		Concurrency: deps.ChunkConcurrency,
		Sentinel:    failedPage,
		Log:         log.With("task", TaskFetchLinkedArticles),
	}
	barOpts := fanout.ChunkOptions[BarRequest, SymbolBars]{
		Concurrency: deps.ChunkConcurrency,
		Sentinel:    func(r BarRequest, _ error) SymbolBars { return SymbolBars{Symbol: r.Symbol, Failed: true} },
		Log:         log.With("task", TaskFetchBars),
	}

	tasks := map[string]executor.WorkFunc{
		TaskFetchLinkedArticles: fanout.ChunkTask(fetchPage(deps.Pages), pageOpts),
		TaskFetchBars:           fanout.ChunkTask(fetchBars(deps.Bars), barOpts),
		TaskCommitArticles:      commitArticles(deps.Articles),
		TaskCommitRedditPosts:   commitPosts(deps.Posts),
		TaskCommitStockBars:     commitBars(deps.StockBars),
	}
	for name, fn := range tasks {
		if err := reg.Register(name, fn); err != nil {
			return err
		}
	}
	return nil
}

func failedPage(u string, err error) webpage.Page {
	p := webpage.Page{URL: u, Failed: true}
	if err != nil {
		p.Reason = err.Error()
	}
	return p
}

func notConfigured(op string) error {
	return pipeline.NewError(pipeline.KindFatal, op, "dependency not configured", nil)
}

func fetchPage(pages PageFetcher) fanout.Fetcher[string, webpage.Page] {
	return func(ctx context.Context, u string) (webpage.Page, error) {
		if pages == nil {
			return webpage.Page{}, notConfigured(TaskFetchLinkedArticles)
		}
		return pages.Fetch(ctx, u)
	}
}

func fetchBars(client alpaca.Client) fanout.Fetcher[BarRequest, SymbolBars] {
	return func(ctx context.Context, r BarRequest) (SymbolBars, error) {
		if client == nil {
			return SymbolBars{}, notConfigured(TaskFetchBars)
		}
		bars, err := client.Bars(ctx, r.Symbol, r.Start, r.End)
		if err != nil {
			return SymbolBars{}, err
		}
		return SymbolBars{Symbol: r.Symbol, Bars: transform.StockBars(r.Symbol, bars)}, nil
	}
}

func decode(op string, payload json.RawMessage, v any) error {
	if err := json.Unmarshal(payload, v); err != nil {
		return pipeline.NewError(pipeline.KindFatal, op, "decode payload", err)
	}
	return nil
}

func encode(op string, res aggregates.CommitResult) (json.RawMessage, error) {
	b, err := json.Marshal(res)
	if err != nil {
		return nil, pipeline.NewError(pipeline.KindFatal, op, "encode result", err)
	}
	return b, nil
}

func commitArticles(w aggregates.ArticleWriter) executor.WorkFunc {
	return func(ctx context.Context, payload json.RawMessage) (json.RawMessage, error) {
		if w == nil {
			return nil, notConfigured(TaskCommitArticles)
		}
		var in commitArticlesInput
		if err := decode(TaskCommitArticles, payload, &in); err != nil {
			return nil, err
		}
		res, err := w.Commit(ctx, in.Articles)
		if err != nil {
			return nil, err
		}
		return encode(TaskCommitArticles, res)
	}
}

func commitPosts(w aggregates.RedditWriter) executor.WorkFunc {
	return func(ctx context.Context, payload json.RawMessage) (json.RawMessage, error) {
		if w == nil {
			return nil, notConfigured(TaskCommitRedditPosts)
		}
		var in commitPostsInput
		if err := decode(TaskCommitRedditPosts, payload, &in); err != nil {
			return nil, err
		}
		res, err := w.Commit(ctx, in.Posts)
		if err != nil {
			return nil, err
		}
		return encode(TaskCommitRedditPosts, res)
	}
}

func commitBars(w aggregates.StockBarWriter) executor.WorkFunc {
	return func(ctx context.Context, payload json.RawMessage) (json.RawMessage, error) {
		if w == nil {
			return nil, notConfigured(TaskCommitStockBars)
		}
		var in commitBarsInput
		if err := decode(TaskCommitStockBars, payload, &in); err != nil {
			return nil, err
		}
		res, err := w.Commit(ctx, in.Bars, in.Companies)
		if err != nil {
			return nil, err
		}
		return encode(TaskCommitStockBars, res)
	}
}
