package content

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/yungbote/marketpulse/internal/data/repos/testutil"
	types "github.com/yungbote/marketpulse/internal/domain"
	"github.com/yungbote/marketpulse/internal/platform/dbctx"
)

func TestRedditPostRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewRedditPostRepo(db, testutil.Logger(t))

	seen := "t3_" + uuid.NewString()[:8]
	fresh := "t3_" + uuid.NewString()[:8]
	testutil.SeedRedditPost(t, ctx, tx, seen)

	existing, err := repo.ExistingRedditIDs(dbc, []string{seen, fresh})
	if err != nil {
		t.Fatalf("ExistingRedditIDs: %v", err)
	}
	if _, ok := existing[seen]; !ok || len(existing) != 1 {
		t.Fatalf("ExistingRedditIDs: got %v", existing)
	}

	article := testutil.SeedArticle(t, ctx, tx, testutil.Key(t, "linked"))
	n, err := repo.CreateMany(dbc, []*types.RedditPost{
		{RedditID: seen, Subreddit: "news"},
		{RedditID: fresh, Subreddit: "news", ArticleID: &article.ID, Article: article},
	})
	if err != nil {
		t.Fatalf("CreateMany: %v", err)
	}
	if n != 1 {
		t.Fatalf("CreateMany: expected 1, got %d", n)
	}

	rows, err := repo.GetByRedditIDs(dbc, []string{fresh})
	if err != nil || len(rows) != 1 {
		t.Fatalf("GetByRedditIDs: err=%v len=%d", err, len(rows))
	}
	if rows[0].ArticleID == nil || *rows[0].ArticleID != article.ID {
		t.Fatalf("expected post linked to article %s", article.ID)
	}
}
