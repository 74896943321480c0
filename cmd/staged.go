package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/yungbote/marketpulse/internal/app"
	"github.com/yungbote/marketpulse/internal/ingestion"
)

func newStagedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "staged",
		Short: "Inspect staged batches",
	}
	cmd.AddCommand(newStagedListCmd())
	return cmd
}

func newStagedListCmd() *cobra.Command {
	opts := &appOptions{}
	var day string
	cmd := &cobra.Command{
		Use:       "ls [news|reddit|market]",
		Short:     "List staged objects for a flow and ingestion date",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{ingestion.FlowNews, ingestion.FlowReddit, ingestion.FlowMarket},
		Example:   `  marketpulse staged ls news --date 2024-05-01 --staging s3`,
		RunE: func(cmd *cobra.Command, args []string) error {
			date := time.Now().UTC()
			if day != "" {
				d, err := time.Parse(time.DateOnly, day)
				if err != nil {
					return fmt.Errorf("invalid --date %q: %w", day, err)
				}
				date = d
			}

			cfg := app.LoadConfig()
			opts.apply(&cfg)
			ctx := cmd.Context()
			a, err := app.New(ctx, log, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			if !a.Exporter.Enabled() {
				return fmt.Errorf("no staging provider configured")
			}
			keys, err := a.Exporter.List(ctx, args[0], date)
			if err != nil {
				return err
			}
			for _, k := range keys {
				fmt.Fprintln(cmd.OutOrStdout(), k)
			}
			return nil
		},
	}
	opts.bind(cmd)
	cmd.Flags().StringVar(&day, "date", "", "ingestion date (YYYY-MM-DD); defaults to today UTC")
	return cmd
}
