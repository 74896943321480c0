package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/marketpulse/internal/data/aggregates"
	"github.com/yungbote/marketpulse/internal/data/repos"
	"github.com/yungbote/marketpulse/internal/observability"
	"github.com/yungbote/marketpulse/internal/platform/logger"
)

type Repos struct {
	Articles    repos.ArticleRepo
	RedditPosts repos.RedditPostRepo
	Companies   repos.CompanyRepo
	StockBars   repos.StockBarRepo
	Runs        repos.IngestionRunRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Articles:    repos.NewArticleRepo(db, log),
		RedditPosts: repos.NewRedditPostRepo(db, log),
		Companies:   repos.NewCompanyRepo(db, log),
		StockBars:   repos.NewStockBarRepo(db, log),
		Runs:        repos.NewIngestionRunRepo(db, log),
	}
}

type Writers struct {
	Articles  aggregates.ArticleWriter
	Posts     aggregates.RedditWriter
	StockBars aggregates.StockBarWriter
}

func wireWriters(db *gorm.DB, log *logger.Logger, cfg Config, r Repos, metrics *observability.Metrics) Writers {
	base := aggregates.BaseDeps{
		DB:          db,
		Log:         log,
		Hooks:       aggregates.NewObservabilityHooks(metrics),
		LockTimeout: cfg.CommitLockTimeout,
	}
	return Writers{
		Articles: aggregates.NewArticleWriter(aggregates.ArticleWriterDeps{Base: base, Articles: r.Articles}),
		Posts: aggregates.NewRedditWriter(aggregates.RedditWriterDeps{
			Base:     base,
			Posts:    r.RedditPosts,
			Articles: r.Articles,
		}),
		StockBars: aggregates.NewStockBarWriter(aggregates.StockBarWriterDeps{Base: base, Bars: r.StockBars}),
	}
}
