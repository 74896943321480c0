package content

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/marketpulse/internal/domain"
	"github.com/yungbote/marketpulse/internal/platform/dbctx"
	"github.com/yungbote/marketpulse/internal/platform/logger"
)

type ArticleRepo interface {
	CreateMany(dbc dbctx.Context, articles []*types.Article) (int64, error)
	GetByURLs(dbc dbctx.Context, urls []string) ([]*types.Article, error)
	ExistingURLs(dbc dbctx.Context, urls []string) (map[string]struct{}, error)
	Count(dbc dbctx.Context) (int64, error)
}

type articleRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewArticleRepo(db *gorm.DB, baseLog *logger.Logger) ArticleRepo {
	return &articleRepo{db: db, log: baseLog.With("repo", "ArticleRepo")}
}

// CreateMany inserts articles, skipping rows whose url already exists.
// It returns the number of rows actually inserted.
func (r *articleRepo) CreateMany(dbc dbctx.Context, articles []*types.Article) (int64, error) {
	transaction := dbc.DB(r.db)
	if len(articles) == 0 {
		return 0, nil
	}
	res := transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "url"}}, DoNothing: true}).
		CreateInBatches(articles, 200)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *articleRepo) GetByURLs(dbc dbctx.Context, urls []string) ([]*types.Article, error) {
	transaction := dbc.DB(r.db)
	var out []*types.Article
	urls = uniqueNonEmpty(urls)
	if len(urls) == 0 {
		return out, nil
	}
	for _, part := range chunkKeys(urls) {
		var rows []*types.Article
		if err := transaction.WithContext(dbc.Ctx).
			Where("url IN ?", part).
			Find(&rows).Error; err != nil {
			return nil, err
		}
		out = append(out, rows...)
	}
	return out, nil
}

func (r *articleRepo) ExistingURLs(dbc dbctx.Context, urls []string) (map[string]struct{}, error) {
	transaction := dbc.DB(r.db)
	out := map[string]struct{}{}
	urls = uniqueNonEmpty(urls)
	if len(urls) == 0 {
		return out, nil
	}
	for _, part := range chunkKeys(urls) {
		var found []string
		if err := transaction.WithContext(dbc.Ctx).
			Model(&types.Article{}).
			Where("url IN ?", part).
			Pluck("url", &found).Error; err != nil {
			return nil, err
		}
		for _, u := range found {
			out[u] = struct{}{}
		}
	}
	return out, nil
}

func (r *articleRepo) Count(dbc dbctx.Context) (int64, error) {
	var n int64
	err := dbc.DB(r.db).WithContext(dbc.Ctx).Model(&types.Article{}).Count(&n).Error
	return n, err
}
