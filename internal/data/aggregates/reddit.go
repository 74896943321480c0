package aggregates

import (
	"context"

	"github.com/google/uuid"
	"github.com/yungbote/marketpulse/internal/data/repos"
	"github.com/yungbote/marketpulse/internal/dedup"
	types "github.com/yungbote/marketpulse/internal/domain"
	"github.com/yungbote/marketpulse/internal/domain/pipeline"
	"github.com/yungbote/marketpulse/internal/platform/dbctx"
)

// RedditWriter persists reddit posts together with the articles they link
// to. A post's Article field carries the candidate parent; it is replaced by
// the stored or staged entity for that url.
type RedditWriter interface {
	Commit(ctx context.Context, posts []*types.RedditPost) (CommitResult, error)
}

type RedditWriterDeps struct {
	Base BaseDeps

	Posts    repos.RedditPostRepo
	Articles repos.ArticleRepo
}

type redditWriter struct {
	deps RedditWriterDeps
}

func NewRedditWriter(deps RedditWriterDeps) RedditWriter {
	deps.Base = deps.Base.withDefaults()
	return &redditWriter{deps: deps}
}

func (w *redditWriter) Commit(ctx context.Context, posts []*types.RedditPost) (CommitResult, error) {
	const op = "Content.Reddit.Commit"
	var out CommitResult
	if w.deps.Posts == nil || w.deps.Articles == nil {
		return out, pipeline.NewError(pipeline.KindFatal, op, "reddit writer repos not configured", nil)
	}
	batch := compact(posts)
	if len(batch) == 0 {
		return out, nil
	}

	err := commitOnce(ctx, w.deps.Base, op, func(dbc dbctx.Context) error {
		out = CommitResult{}
		filtered, err := dedup.FilterNew(dbc, batch, redditID, w.deps.Posts.ExistingRedditIDs)
		if err != nil {
			return err
		}
		parents, err := w.linkParents(dbc, filtered.ToInsert)
		if err != nil {
			return err
		}
		out.ParentsInserted = parents

		n, err := w.deps.Posts.CreateMany(dbc, filtered.ToInsert)
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
	w.deps.Base.Log.Debug("reddit posts committed",
		"inserted", out.Inserted,
		"parents_inserted", out.ParentsInserted,
		"skipped", out.Skipped,
	)
	return out, nil
}

// linkParents resolves each post's article by url, inserts the parents that
// are new, and points every post at the persisted parent id.
func (w *redditWriter) linkParents(dbc dbctx.Context, posts []*types.RedditPost) (int64, error) {
	candidates := map[string]*types.Article{}
	urls := make([]string, 0, len(posts))
	for _, p := range posts {
		if p.Article == nil || p.Article.URL == "" {
			p.Article = nil
			p.ArticleID = nil
			continue
		}
		if _, ok := candidates[p.Article.URL]; !ok {
			candidates[p.Article.URL] = p.Article
			urls = append(urls, p.Article.URL)
		}
	}
	if len(urls) == 0 {
		return 0, nil
	}

	cache := dedup.NewLinkCache(
		func(dbc dbctx.Context, keys []string) (map[string]*types.Article, error) {
			return w.articlesByURL(dbc, keys)
		},
		func(url string) (*types.Article, bool) {
			a, ok := candidates[url]
			if ok && a.ID == uuid.Nil {
				a.ID = uuid.New()
			}
			return a, ok
		},
	)
	if err := cache.Prime(dbc, urls); err != nil {
		return 0, err
	}
	for _, p := range posts {
		if p.Article == nil {
			continue
		}
		parent, _, ok, err := cache.Resolve(dbc, p.Article.URL)
		if err != nil {
			return 0, err
		}
		if !ok {
			p.Article = nil
			p.ArticleID = nil
			continue
		}
		p.Article = parent
	}

	staged := cache.Staged()
	inserted, err := w.deps.Articles.CreateMany(dbc, staged)
	if err != nil {
		return 0, err
	}
	if int(inserted) < len(staged) {
		// Some staged urls were inserted concurrently; adopt the stored rows.
		stored, err := w.articlesByURL(dbc, cache.StagedKeys())
		if err != nil {
			return 0, err
		}
		for url, a := range stored {
			cache.Rebind(url, a)
		}
		for _, p := range posts {
			if p.Article == nil {
				continue
			}
			if a, ok := stored[p.Article.URL]; ok {
				p.Article = a
			}
		}
	}
	for _, p := range posts {
		if p.Article != nil {
			id := p.Article.ID
			p.ArticleID = &id
		}
	}
	return inserted, nil
}

func (w *redditWriter) articlesByURL(dbc dbctx.Context, urls []string) (map[string]*types.Article, error) {
	rows, err := w.deps.Articles.GetByURLs(dbc, urls)
	if err != nil {
		return nil, err
	}
	out := make(map[string]*types.Article, len(rows))
	for _, a := range rows {
		out[a.URL] = a
	}
	return out, nil
}

func redditID(p *types.RedditPost) string { return p.RedditID }
