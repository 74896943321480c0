package newsapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/yungbote/marketpulse/internal/pkg/httpx"
	"github.com/yungbote/marketpulse/internal/platform/envutil"
	"github.com/yungbote/marketpulse/internal/platform/logger"
)

type Config struct {
	APIKey        string
	BaseURL       string
	Language      string
	RatePerSecond float64
	MaxRetries    int
	Timeout       time.Duration
}

func LoadConfig() Config {
	return Config{
		APIKey:        envutil.String("NEWS_API_KEY", ""),
		BaseURL:       envutil.String("NEWS_API_BASE_URL", "https://newsapi.org"),
		Language:      envutil.String("NEWS_API_LANGUAGE", "en"),
		RatePerSecond: float64(envutil.Int("NEWS_API_RPS", 1)),
		MaxRetries:    envutil.Int("NEWS_API_MAX_RETRIES", 2),
		Timeout:       envutil.Seconds("NEWS_API_TIMEOUT_SECONDS", 30),
	}
}

// Article is one entry of the /v2/everything response. Nullable fields stay
// pointers so missing values can be told apart from empty ones.
type Article struct {
	Source struct {
		ID   *string `json:"id"`
		Name string  `json:"name"`
	} `json:"source"`
	Author      *string `json:"author"`
	Title       *string `json:"title"`
	Description *string `json:"description"`
	URL         string  `json:"url"`
	URLToImage  *string `json:"urlToImage"`
	PublishedAt string  `json:"publishedAt"`
	Content     *string `json:"content"`
}

type everythingResponse struct {
	Status       string    `json:"status"`
	Code         string    `json:"code"`
	Message      string    `json:"message"`
	TotalResults int       `json:"totalResults"`
	Articles     []Article `json:"articles"`
}

// Query selects articles for /v2/everything. Zero From/To leave the window
// to the API default.
type Query struct {
	Q        string
	From     time.Time
	To       time.Time
	PageSize int
}

type Client interface {
	Everything(ctx context.Context, query Query) ([]Article, error)
}

type client struct {
	cfg Config
	req *httpx.Requester
	log *logger.Logger
}

func New(cfg Config, log *logger.Logger) (Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("missing NEWS_API_KEY")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://newsapi.org"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if log == nil {
		log = logger.Nop()
	}
	hc := &http.Client{Timeout: cfg.Timeout}
	return &client{
		cfg: cfg,
		req: httpx.NewRequester("newsapi", hc, cfg.RatePerSecond, cfg.MaxRetries, log),
		log: log.With("client", "NewsAPI"),
	}, nil
}

func (c *client) Everything(ctx context.Context, query Query) ([]Article, error) {
	pageSize := query.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 100
	}
	q := url.Values{}
	q.Set("q", query.Q)
	if !query.From.IsZero() {
		q.Set("from", query.From.UTC().Format(time.RFC3339))
	}
	if !query.To.IsZero() {
		q.Set("to", query.To.UTC().Format(time.RFC3339))
	}
	if c.cfg.Language != "" {
		q.Set("language", c.cfg.Language)
	}
	q.Set("sortBy", "publishedAt")
	q.Set("pageSize", strconv.Itoa(pageSize))
	u := strings.TrimRight(c.cfg.BaseURL, "/") + "/v2/everything?" + q.Encode()

	h := http.Header{}
	h.Set("X-Api-Key", c.cfg.APIKey)

	var resp everythingResponse
	if err := c.req.GetJSON(ctx, u, h, &resp); err != nil {
		return nil, fmt.Errorf("newsapi everything %q: %w", query.Q, err)
	}
	if resp.Status != "" && resp.Status != "ok" {
		return nil, fmt.Errorf("newsapi everything %q: %s: %s", query.Q, resp.Code, resp.Message)
	}
	c.log.Debug("news fetched", "query", query.Q, "count", len(resp.Articles), "total", resp.TotalResults)
	return resp.Articles, nil
}
