package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yungbote/marketpulse/internal/app"
	"github.com/yungbote/marketpulse/internal/platform/envutil"
	"github.com/yungbote/marketpulse/internal/platform/logger"
)

var log *logger.Logger

var rootCmd = &cobra.Command{
	Use:   "marketpulse",
	Short: "Ingest news, reddit and market data into Postgres",
	Long: `marketpulse collects news articles, reddit posts and daily stock bars,
de-duplicates them against the store, commits each batch in one transaction
and stages it for downstream processing.

Examples:
  marketpulse migrate
  marketpulse run news --categories core_financial
  marketpulse run all --executor temporal
  marketpulse worker --executor redis`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := logger.New(envutil.String("LOG_MODE", "development"))
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		log = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			log.Sync()
		}
	},
}

func main() {
	rootCmd.AddCommand(newRunCmd(), newWorkerCmd(), newMigrateCmd(), newStagedCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// appOptions are flag overrides applied on top of the environment config.
type appOptions struct {
	executor  string
	staging   string
	noMigrate bool
}

func (o *appOptions) bind(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&o.executor, "executor", "", "task executor backend (local, temporal, redis); overrides EXECUTOR_BACKEND")
	flags.StringVar(&o.staging, "staging", "", "staging provider (gcs, s3, none); overrides STAGING_PROVIDER")
	flags.BoolVar(&o.noMigrate, "no-migrate", false, "skip schema migration on startup")
}

func (o *appOptions) apply(cfg *app.Config) {
	if o.executor != "" {
		cfg.ExecutorBackend = o.executor
	}
	if o.staging != "" {
		cfg.StagingProvider = o.staging
	}
	if o.noMigrate {
		cfg.AutoMigrate = false
	}
}
