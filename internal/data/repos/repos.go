package repos

import (
	"github.com/yungbote/marketpulse/internal/data/repos/content"
	"github.com/yungbote/marketpulse/internal/data/repos/jobs"
	"github.com/yungbote/marketpulse/internal/data/repos/market"
	"github.com/yungbote/marketpulse/internal/platform/logger"
	"gorm.io/gorm"
)

type ArticleRepo = content.ArticleRepo
type RedditPostRepo = content.RedditPostRepo

type CompanyRepo = market.CompanyRepo
type StockBarRepo = market.StockBarRepo

type IngestionRunRepo = jobs.IngestionRunRepo

func NewArticleRepo(db *gorm.DB, baseLog *logger.Logger) ArticleRepo {
	return content.NewArticleRepo(db, baseLog)
}

func NewRedditPostRepo(db *gorm.DB, baseLog *logger.Logger) RedditPostRepo {
	return content.NewRedditPostRepo(db, baseLog)
}

func NewCompanyRepo(db *gorm.DB, baseLog *logger.Logger) CompanyRepo {
	return market.NewCompanyRepo(db, baseLog)
}

func NewStockBarRepo(db *gorm.DB, baseLog *logger.Logger) StockBarRepo {
	return market.NewStockBarRepo(db, baseLog)
}

func NewIngestionRunRepo(db *gorm.DB, baseLog *logger.Logger) IngestionRunRepo {
	return jobs.NewIngestionRunRepo(db, baseLog)
}
