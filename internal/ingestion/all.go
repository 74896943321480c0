package ingestion

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// RunAll runs the news, reddit and market flows concurrently. One flow
// failing does not stop the others; results hold whatever each produced.
func (s *Service) RunAll(ctx context.Context) ([]FlowResult, error) {
	var (
		mu      sync.Mutex
		results []FlowResult
		errs    []error
	)
	collect := func(rs []FlowResult, err error) {
		mu.Lock()
		defer mu.Unlock()
		results = append(results, rs...)
		if err != nil {
			errs = append(errs, err)
		}
	}

	var g errgroup.Group
	g.Go(func() error {
		collect(s.RunNews(ctx))
		return nil
	})
	g.Go(func() error {
		r, err := s.RunReddit(ctx)
		collect([]FlowResult{r}, err)
		return nil
	})
	g.Go(func() error {
		r, err := s.RunMarket(ctx)
		collect([]FlowResult{r}, err)
		return nil
	})
	_ = g.Wait()
	return results, errors.Join(errs...)
}

// Run dispatches a flow by name: news, reddit, market or all.
func (s *Service) Run(ctx context.Context, flow string) ([]FlowResult, error) {
	switch flow {
	case FlowNews:
		return s.RunNews(ctx)
	case FlowReddit:
		r, err := s.RunReddit(ctx)
		return []FlowResult{r}, err
	case FlowMarket:
		r, err := s.RunMarket(ctx)
		return []FlowResult{r}, err
	case "all", "":
		return s.RunAll(ctx)
	default:
		return nil, fmt.Errorf("unknown flow %q", flow)
	}
}
