package ingestion

import (
	"time"

	"github.com/yungbote/marketpulse/internal/ingestion/sources"
	"github.com/yungbote/marketpulse/internal/jobs/executor"
	"github.com/yungbote/marketpulse/internal/platform/envutil"
)

type Config struct {
	FetchLimit int

	// ContentChunks and MarketChunks set the fan-out degree per batch kind.
	ContentChunks int
	MarketChunks  int

	ContentDeadline time.Duration
	MarketDeadline  time.Duration

	NewsRetries   int
	RedditRetries int
	MarketRetries int
	RetryDelay    time.Duration
	SoftLimit     time.Duration
	HardLimit     time.Duration

	// FanoutRetries re-runs a whole fan-out after an aggregation timeout or
	// failure.
	FanoutRetries int

	ChunkConcurrency int

	NewsLookback       time.Duration
	MarketLookbackDays int

	Categories []string
	Tickers    []string
}

func LoadConfig() Config {
	categories := make([]string, 0, len(sources.NewsCategories))
	for _, c := range sources.NewsCategories {
		categories = append(categories, c.Name)
	}
	return Config{
		FetchLimit:         envutil.Int("DATA_FETCH_LIMIT_PER_FLOW", sources.DefaultFetchLimit),
		ContentChunks:      envutil.Int("CONTENT_CHUNK_COUNT", 4),
		MarketChunks:       envutil.Int("MARKET_CHUNK_COUNT", 4),
		ContentDeadline:    envutil.Seconds("CONTENT_FETCH_DEADLINE_SECONDS", 60),
		MarketDeadline:     envutil.Seconds("MARKET_FETCH_DEADLINE_SECONDS", 300),
		NewsRetries:        envutil.Int("NEWS_TASK_MAX_RETRIES", 3),
		RedditRetries:      envutil.Int("REDDIT_TASK_MAX_RETRIES", 2),
		MarketRetries:      envutil.Int("MARKET_TASK_MAX_RETRIES", 2),
		RetryDelay:         envutil.Seconds("TASK_RETRY_DELAY_SECONDS", 30),
		SoftLimit:          envutil.Seconds("TASK_SOFT_LIMIT_SECONDS", 300),
		HardLimit:          envutil.Seconds("TASK_HARD_LIMIT_SECONDS", 330),
		FanoutRetries:      envutil.Int("FLOW_FANOUT_RETRIES", 1),
		ChunkConcurrency:   envutil.Int("CHUNK_FETCH_CONCURRENCY", 8),
		NewsLookback:       time.Duration(envutil.Int("NEWS_LOOKBACK_HOURS", 24)) * time.Hour,
		MarketLookbackDays: envutil.Int("MARKET_LOOKBACK_DAYS", 30),
		Categories:         envutil.CSV("NEWS_CATEGORIES", categories),
		Tickers:            envutil.CSV("STOCK_TICKERS", sources.StockTickers),
	}
}

func (c Config) withDefaults() Config {
	if c.FetchLimit <= 0 {
		c.FetchLimit = sources.DefaultFetchLimit
	}
	if c.ContentChunks <= 0 {
		c.ContentChunks = 4
	}
	if c.MarketChunks <= 0 {
		c.MarketChunks = 4
	}
	if c.ContentDeadline <= 0 {
		c.ContentDeadline = 60 * time.Second
	}
	if c.MarketDeadline <= 0 {
		c.MarketDeadline = 300 * time.Second
	}
	if c.RetryDelay < 0 {
		c.RetryDelay = 0
	}
	if c.SoftLimit <= 0 {
		c.SoftLimit = executor.DefaultSoftLimit
	}
	if c.HardLimit <= 0 {
		c.HardLimit = executor.DefaultHardLimit
	}
	if c.FanoutRetries < 0 {
		c.FanoutRetries = 0
	}
	if c.MarketLookbackDays <= 0 {
		c.MarketLookbackDays = 30
	}
	if len(c.Tickers) == 0 {
		c.Tickers = sources.StockTickers
	}
	return c
}

func (c Config) policy(maxRetries int) executor.RetryPolicy {
	return executor.RetryPolicy{
		MaxRetries: maxRetries,
		Delay:      c.RetryDelay,
		SoftLimit:  c.SoftLimit,
		HardLimit:  c.HardLimit,
		Retryable:  executor.IsTransient,
	}
}
