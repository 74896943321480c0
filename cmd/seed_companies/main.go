package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/yungbote/marketpulse/internal/app"
	"github.com/yungbote/marketpulse/internal/data/repos"
	types "github.com/yungbote/marketpulse/internal/domain"
	"github.com/yungbote/marketpulse/internal/ingestion/sources"
	"github.com/yungbote/marketpulse/internal/normalization"
	"github.com/yungbote/marketpulse/internal/platform/dbctx"
	"github.com/yungbote/marketpulse/internal/platform/envutil"
	"github.com/yungbote/marketpulse/internal/platform/logger"
)

type tickerList []string

func (l *tickerList) String() string { return strings.Join(*l, ",") }
func (l *tickerList) Set(v string) error {
	for _, t := range strings.Split(v, ",") {
		if t = normalization.Ticker(t); t != "" {
			*l = append(*l, t)
		}
	}
	return nil
}

func main() {
	var tickers tickerList
	var dryRun bool
	flag.Var(&tickers, "ticker", "ticker to seed (repeatable or comma separated); defaults to the built-in list")
	flag.BoolVar(&dryRun, "dry-run", false, "print the companies without writing")
	flag.Parse()

	if len(tickers) == 0 {
		tickers = append(tickers, sources.StockTickers...)
	}
	sort.Strings(tickers)

	rows := make([]*types.Company, 0, len(tickers))
	for _, t := range tickers {
		name, ok := sources.CompanyNames[t]
		if !ok {
			fmt.Printf("skip %s: no company name known\n", t)
			continue
		}
		rows = append(rows, &types.Company{Name: name, Ticker: t})
	}
	if dryRun {
		for _, c := range rows {
			fmt.Printf("%-6s %s\n", c.Ticker, c.Name)
		}
		return
	}

	log, err := logger.New(envutil.String("LOG_MODE", "development"))
	if err != nil {
		fmt.Printf("init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	pg, err := app.OpenDB(log, true)
	if err != nil {
		fmt.Printf("open db: %v\n", err)
		os.Exit(1)
	}
	defer pg.Close()

	n, err := repos.NewCompanyRepo(pg.DB(), log).CreateMany(dbctx.Context{Ctx: context.Background()}, rows)
	if err != nil {
		fmt.Printf("seed companies: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("seeded %d of %d companies (existing rows kept)\n", n, len(rows))
}
