package app

import (
	"context"
	"fmt"
	"io"

	"gorm.io/gorm"

	"github.com/yungbote/marketpulse/internal/clients/redis"
	"github.com/yungbote/marketpulse/internal/data/db"
	"github.com/yungbote/marketpulse/internal/ingestion"
	"github.com/yungbote/marketpulse/internal/ingestion/staging"
	"github.com/yungbote/marketpulse/internal/jobs/executor"
	"github.com/yungbote/marketpulse/internal/observability"
	"github.com/yungbote/marketpulse/internal/platform/logger"
	"github.com/yungbote/marketpulse/internal/temporalx"
	"github.com/yungbote/marketpulse/internal/temporalx/temporalworker"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Cfg      Config
	Repos    Repos
	Writers  Writers
	Clients  Clients
	Registry *executor.Registry
	Exec     executor.Executor
	Exporter *staging.Exporter
	Ingest   *ingestion.Service
	Metrics  *observability.Metrics

	pg           *db.PostgresService
	backend      backend
	bucket       staging.Bucket
	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
}

// OpenDB connects to Postgres and, when migrate is set, runs the schema and
// unique index migrations.
func OpenDB(log *logger.Logger, migrate bool) (*db.PostgresService, error) {
	pg, err := db.NewPostgresService(log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	if migrate {
		if err := pg.AutoMigrateAll(); err != nil {
			_ = pg.Close()
			return nil, fmt.Errorf("postgres automigrate: %w", err)
		}
	}
	return pg, nil
}

func New(ctx context.Context, log *logger.Logger, cfg Config) (*App, error) {
	a := &App{Log: log, Cfg: cfg}
	ctx, a.cancel = context.WithCancel(ctx)

	a.otelShutdown = observability.InitOTel(ctx, log, cfg.Otel)
	a.Metrics = observability.Init(log)
	if a.Metrics != nil && cfg.MetricsAddr != "" {
		a.Metrics.StartServer(ctx, log, cfg.MetricsAddr)
	}

	pg, err := OpenDB(log, cfg.AutoMigrate)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.pg = pg
	a.DB = pg.DB()
	a.Metrics.StartPostgresCollector(ctx, log, a.DB)

	a.Repos = wireRepos(a.DB, log)
	a.Writers = wireWriters(a.DB, log, cfg, a.Repos, a.Metrics)

	if a.Clients, err = wireClients(ctx, log, cfg); err != nil {
		a.Close()
		return nil, err
	}

	a.Registry = executor.NewRegistry()
	taskDeps := ingestion.TaskDeps{
		Pages:            a.Clients.Pages,
		Articles:         a.Writers.Articles,
		Posts:            a.Writers.Posts,
		StockBars:        a.Writers.StockBars,
		Bars:             a.Clients.Alpaca,
		ChunkConcurrency: cfg.Ingestion.ChunkConcurrency,
		Log:              log,
	}
	if err := ingestion.RegisterTasks(a.Registry, taskDeps); err != nil {
		a.Close()
		return nil, fmt.Errorf("register tasks: %w", err)
	}

	if a.backend, err = resolveBackend(ctx, log, cfg, a.Registry, a.Metrics); err != nil {
		a.Close()
		return nil, err
	}
	a.Exec = a.backend.exec

	if a.bucket, err = resolveStagingBucket(ctx, log, cfg); err != nil {
		a.Close()
		return nil, err
	}
	a.Exporter = staging.NewExporter(a.bucket, log)

	deps := ingestion.Deps{
		Exec:      a.Exec,
		News:      a.Clients.News,
		Reddit:    a.Clients.Reddit,
		Companies: a.Repos.Companies,
		Runs:      a.Repos.Runs,
		Exporter:  a.Exporter,
		Metrics:   a.Metrics,
		Log:       log,
	}
	if trigger, err := a.downstream(); err != nil {
		log.Warn("Downstream trigger disabled", "error", err)
	} else if trigger != nil {
		deps.Downstream = trigger
	}

	if a.Ingest, err = ingestion.NewService(cfg.Ingestion, deps); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// downstream returns the Temporal trigger, reusing the executor's client
// when the temporal backend is active.
func (a *App) downstream() (*temporalx.Downstream, error) {
	if !a.Cfg.Temporal.Enabled() || a.Cfg.Temporal.DownstreamWorkflow == "" {
		return nil, nil
	}
	if a.backend.temporal == nil {
		tc, err := temporalx.NewClient(a.Cfg.Temporal, a.Log)
		if err != nil {
			return nil, err
		}
		a.backend.temporal = tc
	}
	return temporalx.NewDownstream(a.backend.temporal, a.Cfg.Temporal, a.Log), nil
}

// RunWorker consumes tasks for the temporal or redis backend until ctx is
// done. The local backend runs tasks in-process and has no worker.
func (a *App) RunWorker(ctx context.Context) error {
	if a == nil {
		return fmt.Errorf("app not initialized")
	}
	switch a.Cfg.ExecutorBackend {
	case BackendTemporal:
		runner, err := temporalworker.NewRunner(a.Log, a.Cfg.Temporal, a.backend.temporal, a.Registry)
		if err != nil {
			return err
		}
		if err := runner.Start(ctx); err != nil {
			return err
		}
		<-ctx.Done()
		return nil
	case BackendRedis:
		w := redis.NewWorker(a.backend.redis, a.Cfg.Redis, a.Registry, a.Log, taskHooks(a.Metrics))
		w.Start(ctx, a.Cfg.WorkerConcurrency)
		w.Wait()
		return nil
	default:
		return fmt.Errorf("executor backend %q runs tasks in-process; no worker to start", a.Cfg.ExecutorBackend)
	}
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if c, ok := a.bucket.(io.Closer); ok {
		_ = c.Close()
	}
	a.backend.close()
	if a.pg != nil {
		_ = a.pg.Close()
	}
	if a.otelShutdown != nil {
		_ = a.otelShutdown(context.Background())
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
