package main

import (
	"github.com/spf13/cobra"

	"github.com/yungbote/marketpulse/internal/app"
)

func newWorkerCmd() *cobra.Command {
	opts := &appOptions{}
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Consume fan-out and commit tasks for the temporal or redis executor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := app.LoadConfig()
			opts.apply(&cfg)

			ctx := cmd.Context()
			a, err := app.New(ctx, log, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			log.Info("Worker starting", "backend", cfg.ExecutorBackend, "concurrency", cfg.WorkerConcurrency)
			if err := a.RunWorker(ctx); err != nil {
				return err
			}
			log.Info("Worker stopped")
			return nil
		},
	}
	opts.bind(cmd)
	return cmd
}
