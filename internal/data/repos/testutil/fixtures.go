package testutil

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/marketpulse/internal/domain"
)

// Key returns a per-test unique natural key so shared databases stay isolated.
func Key(tb testing.TB, name string) string {
	tb.Helper()
	return "https://example.test/" + strings.ReplaceAll(tb.Name(), "/", "_") + "/" + uuid.NewString()[:8] + "/" + name
}

func SeedArticle(tb testing.TB, ctx context.Context, tx *gorm.DB, url string) *types.Article {
	tb.Helper()
	a := &types.Article{
		URL:     url,
		Title:   "seeded",
		Author:  types.DefaultAuthor,
		Content: "seeded content",
	}
	if err := tx.WithContext(ctx).Create(a).Error; err != nil {
		tb.Fatalf("seed article: %v", err)
	}
	return a
}

func SeedCompany(tb testing.TB, ctx context.Context, tx *gorm.DB, ticker string) *types.Company {
	tb.Helper()
	c := &types.Company{
		Name:   ticker + " Corp " + uuid.NewString()[:6],
		Ticker: strings.ToUpper(ticker + "_" + uuid.NewString()[:6]),
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed company: %v", err)
	}
	return c
}

func SeedRedditPost(tb testing.TB, ctx context.Context, tx *gorm.DB, redditID string) *types.RedditPost {
	tb.Helper()
	now := time.Now().UTC()
	p := &types.RedditPost{
		RedditID:    redditID,
		Subreddit:   "StockMarket",
		Title:       "seeded post",
		IsTextPost:  true,
		PublishedAt: &now,
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed reddit post: %v", err)
	}
	return p
}
