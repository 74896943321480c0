package content

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/marketpulse/internal/domain"
	"github.com/yungbote/marketpulse/internal/platform/dbctx"
	"github.com/yungbote/marketpulse/internal/platform/logger"
)

type RedditPostRepo interface {
	CreateMany(dbc dbctx.Context, posts []*types.RedditPost) (int64, error)
	ExistingRedditIDs(dbc dbctx.Context, redditIDs []string) (map[string]struct{}, error)
	GetByRedditIDs(dbc dbctx.Context, redditIDs []string) ([]*types.RedditPost, error)
	Count(dbc dbctx.Context) (int64, error)
}

type redditPostRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRedditPostRepo(db *gorm.DB, baseLog *logger.Logger) RedditPostRepo {
	return &redditPostRepo{db: db, log: baseLog.With("repo", "RedditPostRepo")}
}

func (r *redditPostRepo) CreateMany(dbc dbctx.Context, posts []*types.RedditPost) (int64, error) {
	transaction := dbc.DB(r.db)
	if len(posts) == 0 {
		return 0, nil
	}
	// Associations are written by the caller; never let gorm upsert the linked article.
	res := transaction.WithContext(dbc.Ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "reddit_id"}}, DoNothing: true}).
		CreateInBatches(posts, 200)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *redditPostRepo) ExistingRedditIDs(dbc dbctx.Context, redditIDs []string) (map[string]struct{}, error) {
	transaction := dbc.DB(r.db)
	out := map[string]struct{}{}
	redditIDs = uniqueNonEmpty(redditIDs)
	if len(redditIDs) == 0 {
		return out, nil
	}
	for _, part := range chunkKeys(redditIDs) {
		var found []string
		if err := transaction.WithContext(dbc.Ctx).
			Model(&types.RedditPost{}).
			Where("reddit_id IN ?", part).
			Pluck("reddit_id", &found).Error; err != nil {
			return nil, err
		}
		for _, id := range found {
			out[id] = struct{}{}
		}
	}
	return out, nil
}

func (r *redditPostRepo) GetByRedditIDs(dbc dbctx.Context, redditIDs []string) ([]*types.RedditPost, error) {
	transaction := dbc.DB(r.db)
	var out []*types.RedditPost
	redditIDs = uniqueNonEmpty(redditIDs)
	for _, part := range chunkKeys(redditIDs) {
		var rows []*types.RedditPost
		if err := transaction.WithContext(dbc.Ctx).
			Where("reddit_id IN ?", part).
			Find(&rows).Error; err != nil {
			return nil, err
		}
		out = append(out, rows...)
	}
	return out, nil
}

func (r *redditPostRepo) Count(dbc dbctx.Context) (int64, error) {
	var n int64
	err := dbc.DB(r.db).WithContext(dbc.Ctx).Model(&types.RedditPost{}).Count(&n).Error
	return n, err
}
