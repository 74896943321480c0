package reddit

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/yungbote/marketpulse/internal/pkg/httpx"
	"github.com/yungbote/marketpulse/internal/platform/envutil"
	"github.com/yungbote/marketpulse/internal/platform/logger"
)

type Config struct {
	ClientID      string
	ClientSecret  string
	UserAgent     string
	TokenURL      string
	BaseURL       string
	RatePerSecond float64
	MaxRetries    int
	Timeout       time.Duration
}

func LoadConfig() Config {
	return Config{
		ClientID:      envutil.String("REDDIT_CLIENT_ID", ""),
		ClientSecret:  envutil.String("REDDIT_CLIENT_SECRET", ""),
		UserAgent:     envutil.String("REDDIT_USER_AGENT", "marketpulse-ingest/1.0"),
		TokenURL:      envutil.String("REDDIT_TOKEN_URL", "https://www.reddit.com/api/v1/access_token"),
		BaseURL:       envutil.String("REDDIT_BASE_URL", "https://oauth.reddit.com"),
		RatePerSecond: float64(envutil.Int("REDDIT_RPS", 1)),
		MaxRetries:    envutil.Int("REDDIT_MAX_RETRIES", 2),
		Timeout:       envutil.Seconds("REDDIT_TIMEOUT_SECONDS", 30),
	}
}

// Post is the subset of a reddit link ("t3") the pipeline keeps.
type Post struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Subreddit   string  `json:"subreddit"`
	Author      string  `json:"author"`
	Title       string  `json:"title"`
	Selftext    string  `json:"selftext"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
	IsSelf      bool    `json:"is_self"`
	Flair       string  `json:"link_flair_text"`
	UpvoteRatio float64 `json:"upvote_ratio"`
	CreatedUTC  float64 `json:"created_utc"`
	Permalink   string  `json:"permalink"`
	URL         string  `json:"url"`
}

func (p Post) CreatedAt() time.Time {
	sec := int64(p.CreatedUTC)
	return time.Unix(sec, 0).UTC()
}

type listing struct {
	Data struct {
		After    string `json:"after"`
		Children []struct {
			Kind string `json:"kind"`
			Data Post   `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type Client interface {
	// Posts lists up to limit newest posts of a subreddit, filtered by flair
	// when flair is non-empty.
	Posts(ctx context.Context, subreddit, flair string, limit int) ([]Post, error)
}

type client struct {
	cfg Config
	req *httpx.Requester
	log *logger.Logger
}

type userAgentTransport struct {
	ua   string
	base http.RoundTripper
}

func (t *userAgentTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	r2 := r.Clone(r.Context())
	r2.Header.Set("User-Agent", t.ua)
	return t.base.RoundTrip(r2)
}

// New builds an app-only client. Tokens are fetched with the client
// credentials grant and refreshed on expiry.
func New(ctx context.Context, cfg Config, log *logger.Logger) (Client, error) {
	if strings.TrimSpace(cfg.ClientID) == "" || strings.TrimSpace(cfg.ClientSecret) == "" {
		return nil, fmt.Errorf("missing REDDIT_CLIENT_ID/REDDIT_CLIENT_SECRET")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "marketpulse-ingest/1.0"
	}
	if log == nil {
		log = logger.Nop()
	}

	base := &http.Client{
		Timeout:   cfg.Timeout,
		Transport: &userAgentTransport{ua: cfg.UserAgent, base: http.DefaultTransport},
	}
	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	hc := cc.Client(context.WithValue(ctx, oauth2.HTTPClient, base))
	hc.Timeout = cfg.Timeout

	return &client{
		cfg: cfg,
		req: httpx.NewRequester("reddit", hc, cfg.RatePerSecond, cfg.MaxRetries, log),
		log: log.With("client", "Reddit"),
	}, nil
}

func (c *client) Posts(ctx context.Context, subreddit, flair string, limit int) ([]Post, error) {
	subreddit = strings.TrimSpace(subreddit)
	if subreddit == "" {
		return nil, fmt.Errorf("subreddit required")
	}
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	base := strings.TrimRight(c.cfg.BaseURL, "/") + "/r/" + url.PathEscape(subreddit)
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("raw_json", "1")
	var u string
	if flair = strings.TrimSpace(flair); flair != "" {
		q.Set("q", fmt.Sprintf("flair_name:%q", flair))
		q.Set("restrict_sr", "1")
		q.Set("sort", "new")
		u = base + "/search?" + q.Encode()
	} else {
		u = base + "/new?" + q.Encode()
	}

	var l listing
	if err := c.req.GetJSON(ctx, u, nil, &l); err != nil {
		return nil, fmt.Errorf("reddit r/%s flair=%q: %w", subreddit, flair, err)
	}
	out := make([]Post, 0, len(l.Data.Children))
	for _, ch := range l.Data.Children {
		if ch.Kind != "t3" {
			continue
		}
		out = append(out, ch.Data)
	}
	c.log.Debug("reddit posts fetched", "subreddit", subreddit, "flair", flair, "count", len(out))
	return out, nil
}
