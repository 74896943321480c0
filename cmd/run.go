package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yungbote/marketpulse/internal/app"
	"github.com/yungbote/marketpulse/internal/ingestion"
)

type runOptions struct {
	appOptions
	categories []string
	tickers    []string
	limit      int
}

func newRunCmd() *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:       "run [news|reddit|market|all]",
		Short:     "Run one ingestion flow, or all of them concurrently",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{ingestion.FlowNews, ingestion.FlowReddit, ingestion.FlowMarket, "all"},
		Example: `  marketpulse run news
  marketpulse run market --tickers AAPL,NVDA
  marketpulse run all --staging none`,
		RunE: func(cmd *cobra.Command, args []string) error {
			flow := "all"
			if len(args) == 1 {
				flow = args[0]
			}

			cfg := app.LoadConfig()
			opts.apply(&cfg)
			if len(opts.categories) > 0 {
				cfg.Ingestion.Categories = opts.categories
			}
			if len(opts.tickers) > 0 {
				cfg.Ingestion.Tickers = opts.tickers
			}
			if opts.limit > 0 {
				cfg.Ingestion.FetchLimit = opts.limit
			}

			ctx := cmd.Context()
			a, err := app.New(ctx, log, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			results, runErr := a.Ingest.Run(ctx, flow)
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(results); err != nil {
				return errors.Join(runErr, err)
			}
			if runErr != nil {
				return fmt.Errorf("run %s: %w", flow, runErr)
			}
			return nil
		},
	}
	opts.bind(cmd)
	flags := cmd.Flags()
	flags.StringSliceVar(&opts.categories, "categories", nil, "news categories to query; overrides NEWS_CATEGORIES")
	flags.StringSliceVar(&opts.tickers, "tickers", nil, "tickers to fetch bars for; overrides STOCK_TICKERS")
	flags.IntVar(&opts.limit, "limit", 0, "per-query fetch limit; overrides DATA_FETCH_LIMIT_PER_FLOW")
	return cmd
}
