// Package transform turns source records into domain entities.
package transform

import (
	"net/url"
	"strings"
	"time"

	"github.com/yungbote/marketpulse/internal/clients/alpaca"
	"github.com/yungbote/marketpulse/internal/clients/newsapi"
	"github.com/yungbote/marketpulse/internal/clients/reddit"
	"github.com/yungbote/marketpulse/internal/clients/webpage"
	types "github.com/yungbote/marketpulse/internal/domain"
	"github.com/yungbote/marketpulse/internal/normalization"
)

// NewsStats reports what NewsArticles discarded.
type NewsStats struct {
	Received     int
	NoURL        int
	NoContent    int
	DuplicateURL int
}

func (s NewsStats) Dropped() int { return s.NoURL + s.NoContent + s.DuplicateURL }

// NewsArticles applies missing-value defaults and text cleaning. Records
// with no content, title or description are dropped, as are repeated urls
// (first one wins).
func NewsArticles(in []newsapi.Article, category string) ([]*types.Article, NewsStats) {
	stats := NewsStats{Received: len(in)}
	seen := make(map[string]struct{}, len(in))
	out := make([]*types.Article, 0, len(in))
	for _, a := range in {
		u := strings.TrimSpace(a.URL)
		if u == "" {
			stats.NoURL++
			continue
		}
		content := normalization.FirstNonEmpty(a.Content, a.Description, a.Title)
		if content == "" {
			stats.NoContent++
			continue
		}
		if _, dup := seen[u]; dup {
			stats.DuplicateURL++
			continue
		}
		seen[u] = struct{}{}

		title := normalization.OrDefault(a.Title, types.DefaultTitle)
		out = append(out, &types.Article{
			URL:               u,
			Title:             title,
			Author:            normalization.OrDefault(a.Author, types.DefaultAuthor),
			Content:           content,
			TitleCleaned:      normalization.CleanText(title),
			ContentCleaned:    normalization.CleanText(content),
			SentimentStrategy: category,
			PublishedAt:       parseTime(a.PublishedAt),
			SourceName:        strings.TrimSpace(a.Source.Name),
		})
	}
	return out, stats
}

// LinkedURL is the external article a post links to, or "" for text posts
// and links back into reddit.
func LinkedURL(p reddit.Post) string {
	if p.IsSelf {
		return ""
	}
	raw := strings.TrimSpace(p.URL)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	if host == "reddit.com" || strings.HasSuffix(host, ".reddit.com") || host == "redd.it" || strings.HasSuffix(host, ".redd.it") {
		return ""
	}
	return raw
}

// RedditPosts builds posts. A link post gets a candidate parent Article
// built from the fetched page for its url; a page missing from pages still
// yields a placeholder parent so the link is kept.
func RedditPosts(in []reddit.Post, category string, pages map[string]webpage.Page) []*types.RedditPost {
	out := make([]*types.RedditPost, 0, len(in))
	for _, p := range in {
		if strings.TrimSpace(p.ID) == "" {
			continue
		}
		created := p.CreatedAt()
		flair := p.Flair
		if flair == "" {
			flair = category
		}
		post := &types.RedditPost{
			RedditID:          p.ID,
			Subreddit:         p.Subreddit,
			Author:            orDefault(p.Author, types.DefaultAuthor),
			Title:             p.Title,
			BodyText:          p.Selftext,
			Score:             p.Score,
			NumberOfComments:  p.NumComments,
			IsTextPost:        p.IsSelf,
			SubredditCategory: flair,
			UpvoteRatio:       p.UpvoteRatio,
			PublishedAt:       &created,
			RedditPostURL:     permalink(p.Permalink),
		}
		if link := LinkedURL(p); link != "" {
			post.Article = LinkedArticle(link, pages[link], flair)
		}
		out = append(out, post)
	}
	return out
}

// LinkedArticle builds the parent article for a reddit link post.
func LinkedArticle(link string, page webpage.Page, category string) *types.Article {
	title := orDefault(page.Headline, types.DefaultTitle)
	return &types.Article{
		URL:               link,
		Title:             title,
		Author:            orDefault(page.Author, types.DefaultAuthor),
		Content:           page.Content,
		TitleCleaned:      normalization.CleanText(title),
		ContentCleaned:    normalization.CleanText(page.Content),
		SentimentStrategy: category,
		PublishedAt:       page.PublishedAt,
		SourceName:        page.Publisher,
	}
}

// StockBars tags each bar with its ticker; CompanyID is bound at commit.
func StockBars(symbol string, in []alpaca.Bar) []*types.StockBar {
	sym := normalization.Ticker(symbol)
	out := make([]*types.StockBar, 0, len(in))
	for _, b := range in {
		if b.Timestamp.IsZero() {
			continue
		}
		out = append(out, &types.StockBar{
			Symbol:     sym,
			Timestamp:  b.Timestamp.UTC(),
			OpenPrice:  b.Open,
			HighPrice:  b.High,
			LowPrice:   b.Low,
			ClosePrice: b.Close,
			Volume:     b.Volume,
			TradeCount: b.TradeCount,
			VWAP:       b.VWAP,
		})
	}
	return out
}

func permalink(p string) string {
	if p == "" || strings.HasPrefix(p, "http") {
		return p
	}
	return "https://www.reddit.com" + p
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func parseTime(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}
