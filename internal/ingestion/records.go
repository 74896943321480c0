package ingestion

import (
	"time"

	"github.com/google/uuid"

	types "github.com/yungbote/marketpulse/internal/domain"
	"github.com/yungbote/marketpulse/internal/normalization"
)

// Staged records carry natural keys and source fields only. Surrogate ids
// and timestamps are assigned by the store inside the commit task and never
// travel back to the flow, so they are left out.

type articleRecord struct {
	URL               string     `json:"url"`
	Title             string     `json:"title"`
	Author            string     `json:"author"`
	Content           string     `json:"content"`
	TitleCleaned      string     `json:"title_cleaned"`
	ContentCleaned    string     `json:"content_cleaned"`
	SentimentStrategy string     `json:"sentiment_strategy,omitempty"`
	PublishedAt       *time.Time `json:"published_at,omitempty"`
	SourceName        string     `json:"source_name,omitempty"`
}

type redditRecord struct {
	RedditID          string     `json:"reddit_id"`
	Subreddit         string     `json:"subreddit"`
	Author            string     `json:"author"`
	Title             string     `json:"title"`
	BodyText          string     `json:"body_text"`
	Score             int        `json:"score"`
	NumberOfComments  int        `json:"number_of_comments"`
	IsTextPost        bool       `json:"is_text_post"`
	SubredditCategory string     `json:"subreddit_category,omitempty"`
	UpvoteRatio       float64    `json:"upvote_ratio"`
	PublishedAt       *time.Time `json:"published_at,omitempty"`
	RedditPostURL     string     `json:"reddit_post_url"`
	// ArticleURL is the natural key of the linked article.
	ArticleURL string `json:"article_url,omitempty"`
}

type barRecord struct {
	Ticker     string    `json:"ticker"`
	CompanyID  uuid.UUID `json:"company_id"`
	Timestamp  time.Time `json:"timestamp"`
	OpenPrice  float64   `json:"open_price"`
	HighPrice  float64   `json:"high_price"`
	LowPrice   float64   `json:"low_price"`
	ClosePrice float64   `json:"close_price"`
	Volume     int64     `json:"volume"`
	TradeCount int64     `json:"trade_count"`
	VWAP       float64   `json:"vwap"`
}

func articleRecords(in []*types.Article) []articleRecord {
	out := make([]articleRecord, 0, len(in))
	for _, a := range in {
		if a == nil {
			continue
		}
		out = append(out, articleRecord{
			URL:               a.URL,
			Title:             a.Title,
			Author:            a.Author,
			Content:           a.Content,
			TitleCleaned:      a.TitleCleaned,
			ContentCleaned:    a.ContentCleaned,
			SentimentStrategy: a.SentimentStrategy,
			PublishedAt:       a.PublishedAt,
			SourceName:        a.SourceName,
		})
	}
	return out
}

func redditRecords(in []*types.RedditPost) []redditRecord {
	out := make([]redditRecord, 0, len(in))
	for _, p := range in {
		if p == nil {
			continue
		}
		r := redditRecord{
			RedditID:          p.RedditID,
			Subreddit:         p.Subreddit,
			Author:            p.Author,
			Title:             p.Title,
			BodyText:          p.BodyText,
			Score:             p.Score,
			NumberOfComments:  p.NumberOfComments,
			IsTextPost:        p.IsTextPost,
			SubredditCategory: p.SubredditCategory,
			UpvoteRatio:       p.UpvoteRatio,
			PublishedAt:       p.PublishedAt,
			RedditPostURL:     p.RedditPostURL,
		}
		if p.Article != nil {
			r.ArticleURL = p.Article.URL
		}
		out = append(out, r)
	}
	return out
}

// barRecords binds every bar to its company and leaves out bars whose ticker
// has no company, matching what the writer drops.
func barRecords(in []*types.StockBar, companies map[string]uuid.UUID) []barRecord {
	out := make([]barRecord, 0, len(in))
	for _, b := range in {
		if b == nil {
			continue
		}
		ticker := normalization.Ticker(b.Symbol)
		id, ok := companies[ticker]
		if !ok {
			continue
		}
		out = append(out, barRecord{
			Ticker:     ticker,
			CompanyID:  id,
			Timestamp:  b.Timestamp.UTC(),
			OpenPrice:  b.OpenPrice,
			HighPrice:  b.HighPrice,
			LowPrice:   b.LowPrice,
			ClosePrice: b.ClosePrice,
			Volume:     b.Volume,
			TradeCount: b.TradeCount,
			VWAP:       b.VWAP,
		})
	}
	return out
}
