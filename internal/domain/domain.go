package domain

import (
	"github.com/yungbote/marketpulse/internal/domain/content"
	"github.com/yungbote/marketpulse/internal/domain/jobs"
	"github.com/yungbote/marketpulse/internal/domain/market"
)

type (
	Article    = content.Article
	RedditPost = content.RedditPost

	Company  = market.Company
	StockBar = market.StockBar
	BarKey   = market.BarKey

	IngestionRun = jobs.IngestionRun
)

const (
	DefaultAuthor = content.DefaultAuthor
	DefaultTitle  = content.DefaultTitle
)

const (
	RunStatusRunning   = jobs.RunStatusRunning
	RunStatusSucceeded = jobs.RunStatusSucceeded
	RunStatusFailed    = jobs.RunStatusFailed
)
