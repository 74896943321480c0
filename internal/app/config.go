package app

import (
	"strings"
	"time"

	"github.com/yungbote/marketpulse/internal/clients/alpaca"
	"github.com/yungbote/marketpulse/internal/clients/newsapi"
	"github.com/yungbote/marketpulse/internal/clients/reddit"
	"github.com/yungbote/marketpulse/internal/clients/redis"
	"github.com/yungbote/marketpulse/internal/clients/s3"
	"github.com/yungbote/marketpulse/internal/clients/webpage"
	"github.com/yungbote/marketpulse/internal/ingestion"
	"github.com/yungbote/marketpulse/internal/observability"
	"github.com/yungbote/marketpulse/internal/platform/envutil"
	"github.com/yungbote/marketpulse/internal/temporalx"
)

const (
	BackendLocal    = "local"
	BackendTemporal = "temporal"
	BackendRedis    = "redis"

	StagingGCS  = "gcs"
	StagingS3   = "s3"
	StagingNone = "none"
)

type Config struct {
	Environment string
	Version     string

	// ExecutorBackend selects where fan-out and commit tasks run.
	ExecutorBackend   string
	WorkerConcurrency int
	StagingProvider   string
	AutoMigrate       bool
	MetricsAddr       string
	// CommitLockTimeout bounds row lock waits inside a batch commit.
	CommitLockTimeout time.Duration

	Ingestion ingestion.Config
	Temporal  temporalx.Config
	Redis     redis.Config
	S3        s3.Config
	Otel      observability.OtelConfig

	NewsAPI newsapi.Config
	Reddit  reddit.Config
	Alpaca  alpaca.Config
	Webpage webpage.Config
}

func LoadConfig() Config {
	env := envutil.String("APP_ENV", "development")
	version := envutil.String("APP_VERSION", "dev")
	return Config{
		Environment: env,
		Version:     version,

		ExecutorBackend:   strings.ToLower(envutil.String("EXECUTOR_BACKEND", BackendLocal)),
		WorkerConcurrency: envutil.Int("WORKER_CONCURRENCY", 4),
		StagingProvider:   strings.ToLower(envutil.String("STAGING_PROVIDER", StagingNone)),
		AutoMigrate:       envutil.Bool("DB_AUTO_MIGRATE", true),
		MetricsAddr:       envutil.String("METRICS_ADDR", ":9090"),
		CommitLockTimeout: envutil.Seconds("COMMIT_LOCK_TIMEOUT_SECONDS", 30),

		Ingestion: ingestion.LoadConfig(),
		Temporal:  temporalx.LoadConfig(),
		Redis:     redis.LoadConfig(),
		S3:        s3.LoadConfig(),
		Otel:      observability.LoadOtelConfig("marketpulse", env, version),

		NewsAPI: newsapi.LoadConfig(),
		Reddit:  reddit.LoadConfig(),
		Alpaca:  alpaca.LoadConfig(),
		Webpage: webpage.LoadConfig(),
	}
}
