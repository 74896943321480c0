package ingestion

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/marketpulse/internal/clients/newsapi"
	"github.com/yungbote/marketpulse/internal/domain/pipeline"
	"github.com/yungbote/marketpulse/internal/ingestion/sources"
	"github.com/yungbote/marketpulse/internal/ingestion/transform"
	"github.com/yungbote/marketpulse/internal/observability"
)

// RunNews runs one news flow per configured category. Categories run
// concurrently and independently; their errors are joined.
func (s *Service) RunNews(ctx context.Context) ([]FlowResult, error) {
	var (
		mu      sync.Mutex
		results = make([]FlowResult, len(s.cfg.Categories))
		errs    []error
	)
	var g errgroup.Group
	g.SetLimit(2)
	for i, name := range s.cfg.Categories {
		g.Go(func() error {
			res, err := s.RunNewsCategory(ctx, name)
			results[i] = res
			if err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("news %s: %w", name, err))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return results, errors.Join(errs...)
}

// RunNewsCategory fetches, cleans, commits and stages one category.
func (s *Service) RunNewsCategory(ctx context.Context, name string) (FlowResult, error) {
	return s.track(ctx, FlowNews, name, func(ctx context.Context, res *FlowResult) error {
		const op = "ingestion.news"
		cat, ok := sources.Category(name)
		if !ok {
			return pipeline.NewError(pipeline.KindFatal, op, "unknown news category "+name, nil)
		}
		if s.deps.News == nil {
			return pipeline.NewError(pipeline.KindFatal, op, "news client not configured", nil)
		}

		now := s.now().UTC()
		q := newsapi.Query{Q: cat.Query, To: now, PageSize: s.cfg.FetchLimit}
		if s.cfg.NewsLookback > 0 {
			q.From = now.Add(-s.cfg.NewsLookback)
		}
		raw, err := s.deps.News.Everything(ctx, q)
		if err != nil {
			return sourceError(op, err)
		}
		res.Fetched = len(raw)

		articles, stats := transform.NewsArticles(raw, cat.Name)
		res.Dropped = stats.Dropped()
		observability.ReportDataQuality(ctx, s.log, "news."+cat.Name, map[string]int{
			"missing_url":     stats.NoURL,
			"missing_content": stats.NoContent,
			"duplicate_url":   stats.DuplicateURL,
		}, nil, nil)
		s.deps.Metrics.AddDrops(FlowNews, "missing_url", stats.NoURL)
		s.deps.Metrics.AddDrops(FlowNews, "missing_content", stats.NoContent)
		s.deps.Metrics.AddDrops(FlowNews, "duplicate_url", stats.DuplicateURL)
		if len(articles) == 0 {
			return nil
		}

		cr, attempts, err := s.commit(ctx, TaskCommitArticles, commitArticlesInput{Articles: articles}, s.cfg.NewsRetries)
		res.Attempts = attempts
		if err != nil {
			return err
		}
		res.Inserted = int(cr.Inserted)
		res.Skipped = cr.Skipped

		uri, err := stageAndTrigger(ctx, s, FlowNews, cat.Name, articleRecords(articles))
		res.StagingURI = uri
		return err
	})
}
