package ingestion

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/marketpulse/internal/clients/reddit"
	"github.com/yungbote/marketpulse/internal/clients/webpage"
	types "github.com/yungbote/marketpulse/internal/domain"
	"github.com/yungbote/marketpulse/internal/domain/pipeline"
	"github.com/yungbote/marketpulse/internal/ingestion/sources"
	"github.com/yungbote/marketpulse/internal/ingestion/transform"
)

type listing struct {
	Subreddit string
	Flair     string
	Posts     []reddit.Post
}

// RunReddit lists posts for every subreddit/flair pair, fetches the articles
// link posts point to, and commits posts with their parent articles.
func (s *Service) RunReddit(ctx context.Context) (FlowResult, error) {
	return s.track(ctx, FlowReddit, "", func(ctx context.Context, res *FlowResult) error {
		const op = "ingestion.reddit"
		if s.deps.Reddit == nil {
			return pipeline.NewError(pipeline.KindFatal, op, "reddit client not configured", nil)
		}

		listings, err := s.listReddit(ctx)
		if err != nil {
			return err
		}

		seen := map[string]struct{}{}
		var urls []string
		for _, l := range listings {
			res.Fetched += len(l.Posts)
			for _, p := range l.Posts {
				link := transform.LinkedURL(p)
				if link == "" {
					continue
				}
				if _, dup := seen[link]; dup {
					continue
				}
				seen[link] = struct{}{}
				urls = append(urls, link)
			}
		}

		pages := map[string]webpage.Page{}
		if len(urls) > 0 {
			fetched, err := fanOut[string, webpage.Page](ctx, s, TaskFetchLinkedArticles, urls,
				s.cfg.ContentChunks, s.cfg.RedditRetries, s.cfg.ContentDeadline)
			if err != nil {
				return err
			}
			if len(fetched) != len(urls) {
				return pipeline.NewError(pipeline.KindAggregationFailure, op,
					fmt.Sprintf("expected %d pages, got %d", len(urls), len(fetched)), nil)
			}
			for i, u := range urls {
				if fetched[i].Failed {
					res.LinkFailures++
					continue
				}
				pages[u] = fetched[i]
			}
			if res.LinkFailures > 0 {
				s.log.Warn("linked article fetches failed", "count", res.LinkFailures, "of", len(urls))
			}
		}

		var posts []*types.RedditPost
		for _, l := range listings {
			posts = append(posts, transform.RedditPosts(l.Posts, l.Flair, pages)...)
		}
		if len(posts) == 0 {
			return nil
		}

		cr, attempts, err := s.commit(ctx, TaskCommitRedditPosts, commitPostsInput{Posts: posts}, s.cfg.RedditRetries)
		res.Attempts = attempts
		if err != nil {
			return err
		}
		res.Inserted = int(cr.Inserted)
		res.ParentsInserted = int(cr.ParentsInserted)
		res.Skipped = cr.Skipped

		uri, err := stageAndTrigger(ctx, s, FlowReddit, "", redditRecords(posts))
		res.StagingURI = uri
		return err
	})
}

// listReddit queries every subreddit/flair pair. A failing listing is logged
// and skipped; the flow fails only when every listing fails.
func (s *Service) listReddit(ctx context.Context) ([]listing, error) {
	var queries []listing
	for _, sub := range sources.Subreddits {
		if len(sub.Flairs) == 0 {
			queries = append(queries, listing{Subreddit: sub.Name})
			continue
		}
		for _, f := range sub.Flairs {
			queries = append(queries, listing{Subreddit: sub.Name, Flair: f})
		}
	}

	var (
		mu   sync.Mutex
		errs []error
	)
	var g errgroup.Group
	g.SetLimit(4)
	for i := range queries {
		q := &queries[i]
		g.Go(func() error {
			posts, err := s.deps.Reddit.Posts(ctx, q.Subreddit, q.Flair, s.cfg.FetchLimit)
			if err != nil {
				s.log.Warn("reddit listing failed", "subreddit", q.Subreddit, "flair", q.Flair, "error", err)
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
				return nil
			}
			q.Posts = posts
			return nil
		})
	}
	_ = g.Wait()
	if len(errs) == len(queries) && len(queries) > 0 {
		return nil, sourceError("ingestion.reddit.list", errors.Join(errs...))
	}
	return queries, nil
}
