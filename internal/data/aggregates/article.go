package aggregates

import (
	"context"

	"github.com/yungbote/marketpulse/internal/data/repos"
	"github.com/yungbote/marketpulse/internal/dedup"
	types "github.com/yungbote/marketpulse/internal/domain"
	"github.com/yungbote/marketpulse/internal/domain/pipeline"
	"github.com/yungbote/marketpulse/internal/platform/dbctx"
)

// ArticleWriter persists news articles keyed by url.
type ArticleWriter interface {
	Commit(ctx context.Context, articles []*types.Article) (CommitResult, error)
}

type ArticleWriterDeps struct {
	Base BaseDeps

	Articles repos.ArticleRepo
}

type articleWriter struct {
	deps ArticleWriterDeps
}

func NewArticleWriter(deps ArticleWriterDeps) ArticleWriter {
	deps.Base = deps.Base.withDefaults()
	return &articleWriter{deps: deps}
}

func (w *articleWriter) Commit(ctx context.Context, articles []*types.Article) (CommitResult, error) {
	const op = "Content.Article.Commit"
	var out CommitResult
	if w.deps.Articles == nil {
		return out, pipeline.NewError(pipeline.KindFatal, op, "article repo not configured", nil)
	}
	batch := compact(articles)
	if len(batch) == 0 {
		return out, nil
	}

	err := commitOnce(ctx, w.deps.Base, op, func(dbc dbctx.Context) error {
		out = CommitResult{}
		filtered, err := dedup.FilterNew(dbc, batch, articleURL, w.deps.Articles.ExistingURLs)
		if err != nil {
			return err
		}
		n, err := w.deps.Articles.CreateMany(dbc, filtered.ToInsert)
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
	w.deps.Base.Log.Debug("articles committed", "inserted", out.Inserted, "skipped", out.Skipped)
	return out, nil
}

func articleURL(a *types.Article) string { return a.URL }

func compact[T any](in []*T) []*T {
	out := make([]*T, 0, len(in))
	for _, v := range in {
		if v != nil {
			out = append(out, v)
		}
	}
	return out
}
