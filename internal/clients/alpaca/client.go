package alpaca

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
	KeyID         string
	SecretKey     string
	BaseURL       string
	Feed          string
	Timeframe     string
	RatePerSecond float64
	MaxRetries    int
	MaxPages      int
	Timeout       time.Duration
}

func LoadConfig() Config {
	return Config{
		KeyID:         envutil.String("ALPACA_API_KEY_ID", ""),
		SecretKey:     envutil.String("ALPACA_SECRET_KEY", ""),
		BaseURL:       envutil.String("ALPACA_DATA_URL", "https://data.alpaca.markets"),
		Feed:          envutil.String("ALPACA_FEED", "iex"),
		Timeframe:     envutil.String("ALPACA_TIMEFRAME", "1Day"),
		RatePerSecond: float64(envutil.Int("ALPACA_RPS", 3)),
		MaxRetries:    envutil.Int("ALPACA_MAX_RETRIES", 2),
		MaxPages:      envutil.Int("ALPACA_MAX_PAGES", 20),
		Timeout:       envutil.Seconds("ALPACA_TIMEOUT_SECONDS", 30),
	}
}

// Bar mirrors the market data API bar object.
type Bar struct {
	Timestamp  time.Time `json:"t"`
	Open       float64   `json:"o"`
	High       float64   `json:"h"`
	Low        float64   `json:"l"`
	Close      float64   `json:"c"`
	Volume     int64     `json:"v"`
	TradeCount int64     `json:"n"`
	VWAP       float64   `json:"vw"`
}

type barsResponse struct {
	Bars          []Bar   `json:"bars"`
	Symbol        string  `json:"symbol"`
	NextPageToken *string `json:"next_page_token"`
}

type Client interface {
	// Bars returns every bar for symbol in [start, end), following page tokens.
	Bars(ctx context.Context, symbol string, start, end time.Time) ([]Bar, error)
}

type client struct {
	cfg Config
	req *httpx.Requester
	log *logger.Logger
}

func New(cfg Config, log *logger.Logger) (Client, error) {
	if strings.TrimSpace(cfg.KeyID) == "" || strings.TrimSpace(cfg.SecretKey) == "" {
		return nil, fmt.Errorf("missing ALPACA_API_KEY_ID/ALPACA_SECRET_KEY")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://data.alpaca.markets"
	}
	if cfg.Timeframe == "" {
		cfg.Timeframe = "1Day"
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 20
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
		req: httpx.NewRequester("alpaca", hc, cfg.RatePerSecond, cfg.MaxRetries, log),
		log: log.With("client", "Alpaca"),
	}, nil
}

func (c *client) Bars(ctx context.Context, symbol string, start, end time.Time) ([]Bar, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, fmt.Errorf("symbol required")
	}
	h := http.Header{}
	h.Set("APCA-API-KEY-ID", c.cfg.KeyID)
	h.Set("APCA-API-SECRET-KEY", c.cfg.SecretKey)

	var out []Bar
	token := ""
	for page := 0; page < c.cfg.MaxPages; page++ {
		q := url.Values{}
		q.Set("timeframe", c.cfg.Timeframe)
		q.Set("start", start.UTC().Format(time.RFC3339))
		if !end.IsZero() {
			q.Set("end", end.UTC().Format(time.RFC3339))
		}
		q.Set("limit", strconv.Itoa(1000))
		q.Set("adjustment", "raw")
		if c.cfg.Feed != "" {
			q.Set("feed", c.cfg.Feed)
		}
		if token != "" {
			q.Set("page_token", token)
		}
		u := strings.TrimRight(c.cfg.BaseURL, "/") + "/v2/stocks/" + url.PathEscape(symbol) + "/bars?" + q.Encode()

		var resp barsResponse
		if err := c.req.GetJSON(ctx, u, h, &resp); err != nil {
			return nil, fmt.Errorf("alpaca bars %s: %w", symbol, err)
		}
		out = append(out, resp.Bars...)
		if resp.NextPageToken == nil || *resp.NextPageToken == "" {
			return out, nil
		}
		token = *resp.NextPageToken
	}
	c.log.Warn("bar pagination truncated", "symbol", symbol, "max_pages", c.cfg.MaxPages, "bars", len(out))
	return out, nil
}
