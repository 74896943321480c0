package app

import (
	"context"
	"fmt"

	"github.com/yungbote/marketpulse/internal/clients/alpaca"
	"github.com/yungbote/marketpulse/internal/clients/newsapi"
	"github.com/yungbote/marketpulse/internal/clients/reddit"
	"github.com/yungbote/marketpulse/internal/clients/webpage"
	"github.com/yungbote/marketpulse/internal/platform/logger"
)

// Clients holds the source API clients. A client whose credentials are not
// configured is left nil and the flow that needs it fails fatally.
type Clients struct {
	News   newsapi.Client
	Reddit reddit.Client
	Alpaca alpaca.Client
	Pages  *webpage.Fetcher
}

func wireClients(ctx context.Context, log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")
	var out Clients

	if cfg.NewsAPI.APIKey != "" {
		c, err := newsapi.New(cfg.NewsAPI, log)
		if err != nil {
			return Clients{}, fmt.Errorf("init news api client: %w", err)
		}
		out.News = c
	} else {
		log.Warn("NEWS_API_KEY not set; news flow disabled")
	}

	if cfg.Reddit.ClientID != "" && cfg.Reddit.ClientSecret != "" {
		c, err := reddit.New(ctx, cfg.Reddit, log)
		if err != nil {
			return Clients{}, fmt.Errorf("init reddit client: %w", err)
		}
		out.Reddit = c
	} else {
		log.Warn("REDDIT_CLIENT_ID/REDDIT_CLIENT_SECRET not set; reddit flow disabled")
	}

	if cfg.Alpaca.KeyID != "" && cfg.Alpaca.SecretKey != "" {
		c, err := alpaca.New(cfg.Alpaca, log)
		if err != nil {
			return Clients{}, fmt.Errorf("init alpaca client: %w", err)
		}
		out.Alpaca = c
	} else {
		log.Warn("ALPACA_API_KEY_ID/ALPACA_SECRET_KEY not set; market fetch tasks disabled")
	}

	out.Pages = webpage.New(cfg.Webpage, log)
	return out, nil
}
