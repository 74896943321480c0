package transform

import (
	"testing"
	"time"

	"github.com/yungbote/marketpulse/internal/clients/alpaca"
	"github.com/yungbote/marketpulse/internal/clients/newsapi"
	"github.com/yungbote/marketpulse/internal/clients/reddit"
	"github.com/yungbote/marketpulse/internal/clients/webpage"
	types "github.com/yungbote/marketpulse/internal/domain"
)

func strp(s string) *string { return &s }

func TestNewsArticlesDefaultsAndDrops(t *testing.T) {
	in := []newsapi.Article{
		{URL: "https://a", Title: strp("Chips <b>Rally</b>"), Content: strp("Body text [+120 chars]"), PublishedAt: "2024-05-01T10:00:00Z"},
		{URL: "https://b", Description: strp("only a description")},
		{URL: "https://a", Title: strp("dup"), Content: strp("dup")},
		{URL: "https://c"},
		{Title: strp("no url"), Content: strp("x")},
	}
	in[0].Source.Name = "Reuters"

	got, stats := NewsArticles(in, "core_financial")
	if len(got) != 2 {
		t.Fatalf("kept=%d want 2", len(got))
	}
	if stats.DuplicateURL != 1 || stats.NoContent != 1 || stats.NoURL != 1 || stats.Dropped() != 3 {
		t.Fatalf("stats=%+v", stats)
	}
	a := got[0]
	if a.Author != types.DefaultAuthor || a.SourceName != "Reuters" || a.SentimentStrategy != "core_financial" {
		t.Fatalf("unexpected first article: %+v", a)
	}
	if a.TitleCleaned != "chips rally" || a.ContentCleaned != "body text" {
		t.Fatalf("cleaned title=%q content=%q", a.TitleCleaned, a.ContentCleaned)
	}
	if a.PublishedAt == nil || !a.PublishedAt.Equal(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("published=%v", a.PublishedAt)
	}
	b := got[1]
	if b.Title != types.DefaultTitle || b.Content != "only a description" {
		t.Fatalf("unexpected second article: %+v", b)
	}
}

func TestLinkedURL(t *testing.T) {
	cases := []struct {
		post reddit.Post
		want string
	}{
		{reddit.Post{IsSelf: true, URL: "https://example.com/a"}, ""},
		{reddit.Post{URL: "https://example.com/a"}, "https://example.com/a"},
		{reddit.Post{URL: "https://www.reddit.com/r/x/comments/1"}, ""},
		{reddit.Post{URL: "https://i.redd.it/img.png"}, ""},
		{reddit.Post{URL: "/r/x"}, ""},
		{reddit.Post{}, ""},
	}
	for i, tc := range cases {
		if got := LinkedURL(tc.post); got != tc.want {
			t.Fatalf("case %d: got %q want %q", i, got, tc.want)
		}
	}
}

func TestRedditPostsAttachCandidateParents(t *testing.T) {
	posts := []reddit.Post{
		{ID: "1", Subreddit: "StockMarket", Title: "link", URL: "https://news.example/a", Flair: "News", Permalink: "/r/StockMarket/comments/1/"},
		{ID: "2", Subreddit: "StockMarket", Title: "same link", URL: "https://news.example/a"},
		{ID: "3", Subreddit: "news", IsSelf: true, Selftext: "hello"},
		{ID: "", Title: "dropped"},
	}
	pages := map[string]webpage.Page{
		"https://news.example/a": {URL: "https://news.example/a", Headline: "Headline", Content: "Para.", Publisher: "Example"},
	}
	got := RedditPosts(posts, "fallback", pages)
	if len(got) != 3 {
		t.Fatalf("posts=%d", len(got))
	}
	if got[0].Article == nil || got[0].Article.Title != "Headline" || got[0].Article.SentimentStrategy != "News" {
		t.Fatalf("unexpected parent: %+v", got[0].Article)
	}
	if got[0].RedditPostURL != "https://www.reddit.com/r/StockMarket/comments/1/" {
		t.Fatalf("permalink=%s", got[0].RedditPostURL)
	}
	if got[1].SubredditCategory != "fallback" || got[1].Article == nil || got[1].Article.URL != "https://news.example/a" {
		t.Fatalf("unexpected second post: %+v", got[1])
	}
	if got[2].Article != nil || !got[2].IsTextPost || got[2].Author != types.DefaultAuthor {
		t.Fatalf("text post: %+v", got[2])
	}
}

func TestLinkedArticlePlaceholderForMissingPage(t *testing.T) {
	a := LinkedArticle("https://x", webpage.Page{}, "Opinion")
	if a.Title != types.DefaultTitle || a.Author != types.DefaultAuthor || a.URL != "https://x" {
		t.Fatalf("unexpected placeholder: %+v", a)
	}
}

func TestStockBarsTagsSymbol(t *testing.T) {
	ts := time.Date(2024, 5, 1, 4, 0, 0, 0, time.UTC)
	got := StockBars(" aapl ", []alpaca.Bar{{Timestamp: ts, Close: 10}, {}})
	if len(got) != 1 || got[0].Symbol != "AAPL" || got[0].ClosePrice != 10 {
		t.Fatalf("unexpected bars: %+v", got)
	}
}
