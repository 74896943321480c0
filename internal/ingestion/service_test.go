package ingestion

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yungbote/marketpulse/internal/clients/alpaca"
	"github.com/yungbote/marketpulse/internal/clients/newsapi"
	"github.com/yungbote/marketpulse/internal/clients/reddit"
	"github.com/yungbote/marketpulse/internal/clients/webpage"
	"github.com/yungbote/marketpulse/internal/data/aggregates"
	"github.com/yungbote/marketpulse/internal/data/repos"
	"github.com/yungbote/marketpulse/internal/data/repos/testutil"
	types "github.com/yungbote/marketpulse/internal/domain"
	"github.com/yungbote/marketpulse/internal/domain/pipeline"
	"github.com/yungbote/marketpulse/internal/ingestion/staging"
	"github.com/yungbote/marketpulse/internal/jobs/executor"
	"github.com/yungbote/marketpulse/internal/platform/dbctx"
	"gorm.io/gorm"
)

type fakeNews struct{ articles []newsapi.Article }

func (f *fakeNews) Everything(context.Context, newsapi.Query) ([]newsapi.Article, error) {
	return f.articles, nil
}

type fakeReddit struct{ byKey map[string][]reddit.Post }

func (f *fakeReddit) Posts(_ context.Context, sub, flair string, _ int) ([]reddit.Post, error) {
	return f.byKey[sub+"|"+flair], nil
}

type fakePages struct {
	fail  map[string]bool
	empty map[string]bool
}

func (f *fakePages) Fetch(_ context.Context, u string) (webpage.Page, error) {
	if f.fail[u] {
		return webpage.Page{}, errors.New("boom")
	}
	if f.empty[u] {
		return webpage.Page{URL: u}, nil
	}
	return webpage.Page{URL: u, Headline: "Headline for " + u, Content: "Body of " + u}, nil
}

type fakeBars struct{ day time.Time }

func (f *fakeBars) Bars(_ context.Context, symbol string, _, _ time.Time) ([]alpaca.Bar, error) {
	return []alpaca.Bar{
		{Timestamp: f.day, Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 10},
		{Timestamp: f.day.AddDate(0, 0, 1), Open: 1.5, High: 2, Low: 1, Close: 1.8, Volume: 12},
	}, nil
}

type memBucket struct {
	mu      sync.Mutex
	keys    []string
	objects map[string][]byte
}

func (b *memBucket) Put(_ context.Context, key string, data []byte, _ string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.objects == nil {
		b.objects = map[string][]byte{}
	}
	b.keys = append(b.keys, key)
	b.objects[key] = data
	return "mem://staging/" + key, nil
}

// lines decodes the gzipped JSON lines staged under uri.
func (b *memBucket) lines(t *testing.T, uri string) []map[string]any {
	t.Helper()
	b.mu.Lock()
	data, ok := b.objects[strings.TrimPrefix(uri, "mem://staging/")]
	b.mu.Unlock()
	if !ok {
		t.Fatalf("nothing staged at %q", uri)
	}
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("gzip: %v", err)
	}
	var out []map[string]any
	sc := bufio.NewScanner(zr)
	sc.Buffer(make([]byte, 0, 64*1024), 4<<20)
	for sc.Scan() {
		var m map[string]any
		if err := json.Unmarshal(sc.Bytes(), &m); err != nil {
			t.Fatalf("decode staged line: %v", err)
		}
		out = append(out, m)
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scan staged object: %v", err)
	}
	return out
}

func (b *memBucket) List(context.Context, string) ([]string, error) { return nil, nil }

type recordingTrigger struct {
	mu    sync.Mutex
	calls []string
}

func (r *recordingTrigger) Trigger(_ context.Context, job, uri string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, job+"="+uri)
}

type harness struct {
	db      *gorm.DB
	svc     *Service
	bucket  *memBucket
	trigger *recordingTrigger
	runs    repos.IngestionRunRepo
}

func newHarness(t *testing.T, cfg Config, deps Deps, taskDeps TaskDeps) *harness {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	base := aggregates.BaseDeps{DB: db, Log: log}
	articles := repos.NewArticleRepo(db, log)
	taskDeps.Articles = aggregates.NewArticleWriter(aggregates.ArticleWriterDeps{Base: base, Articles: articles})
	taskDeps.Posts = aggregates.NewRedditWriter(aggregates.RedditWriterDeps{Base: base, Posts: repos.NewRedditPostRepo(db, log), Articles: articles})
	taskDeps.StockBars = aggregates.NewStockBarWriter(aggregates.StockBarWriterDeps{Base: base, Bars: repos.NewStockBarRepo(db, log)})
	taskDeps.Log = log

	reg := executor.NewRegistry()
	if err := RegisterTasks(reg, taskDeps); err != nil {
		t.Fatalf("RegisterTasks: %v", err)
	}
	h := &harness{db: db, bucket: &memBucket{}, trigger: &recordingTrigger{}, runs: repos.NewIngestionRunRepo(db, log)}
	deps.Exec = executor.NewLocal(reg, log, nil)
	deps.Companies = repos.NewCompanyRepo(db, log)
	deps.Runs = h.runs
	deps.Exporter = staging.NewExporter(h.bucket, log)
	deps.Downstream = h.trigger
	deps.Log = log
	svc, err := NewService(cfg, deps)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	h.svc = svc
	return h
}

func testConfig() Config {
	return Config{
		ContentChunks:   2,
		MarketChunks:    2,
		ContentDeadline: 10 * time.Second,
		MarketDeadline:  10 * time.Second,
		FanoutRetries:   1,
		Categories:      []string{"core_financial"},
	}
}

func strp(s string) *string { return &s }

func TestRunNewsCategory_CommitsStagesAndIsIdempotent(t *testing.T) {
	a := testutil.Key(t, "https://news/a")
	b := testutil.Key(t, "https://news/b")
	news := &fakeNews{articles: []newsapi.Article{
		{URL: a, Title: strp("A"), Content: strp("alpha")},
		{URL: b, Title: strp("B"), Description: strp("beta")},
		{URL: a, Title: strp("A again"), Content: strp("alpha")},
		{URL: testutil.Key(t, "https://news/c")},
	}}
	h := newHarness(t, testConfig(), Deps{News: news}, TaskDeps{})
	ctx := context.Background()

	res, err := h.svc.RunNewsCategory(ctx, "core_financial")
	if err != nil {
		t.Fatalf("RunNewsCategory: %v", err)
	}
	if res.Fetched != 4 || res.Inserted != 2 || res.Dropped != 2 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if !strings.HasPrefix(res.StagingURI, "mem://staging/news_data/ingestion_date=") {
		t.Fatalf("staging uri=%q", res.StagingURI)
	}
	if len(h.trigger.calls) != 1 || !strings.HasPrefix(h.trigger.calls[0], "news_core_financial_etl=") {
		t.Fatalf("trigger calls=%v", h.trigger.calls)
	}

	again, err := h.svc.RunNewsCategory(ctx, "core_financial")
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if again.Inserted != 0 || again.Skipped != 2 {
		t.Fatalf("second run should skip everything: %+v", again)
	}

	runs, err := h.runs.ListRecent(dbctx.Context{Ctx: ctx}, FlowNews, 10)
	if err != nil || len(runs) < 2 {
		t.Fatalf("expected run rows, err=%v len=%d", err, len(runs))
	}
	for _, r := range runs {
		if r.Status != types.RunStatusSucceeded {
			t.Fatalf("run %s status=%s", r.ID, r.Status)
		}
	}
}

func TestRunNewsCategory_UnknownCategoryFails(t *testing.T) {
	h := newHarness(t, testConfig(), Deps{News: &fakeNews{}}, TaskDeps{})
	_, err := h.svc.RunNewsCategory(context.Background(), "nope")
	if !pipeline.IsKind(err, pipeline.KindFatal) {
		t.Fatalf("expected fatal error, got %v", err)
	}
}

func TestRunReddit_LinksPostsToFetchedArticles(t *testing.T) {
	shared := testutil.Key(t, "https://example.com/shared")
	broken := testutil.Key(t, "https://example.com/broken")
	id := func(s string) string { return testutil.Key(t, s) }
	posts := []reddit.Post{
		{ID: id("p1"), Subreddit: "StockMarket", Title: "one", URL: shared, Flair: "News"},
		{ID: id("p2"), Subreddit: "StockMarket", Title: "two", URL: shared, Flair: "News"},
		{ID: id("p3"), Subreddit: "StockMarket", Title: "three", URL: broken, Flair: "News"},
	}
	text := []reddit.Post{{ID: id("p4"), Subreddit: "news", Title: "text", IsSelf: true, Selftext: "hi"}}
	rd := &fakeReddit{byKey: map[string][]reddit.Post{
		"StockMarket|News": posts,
		"news|":            text,
	}}
	pages := &fakePages{fail: map[string]bool{broken: true}}
	h := newHarness(t, testConfig(), Deps{Reddit: rd}, TaskDeps{Pages: pages})

	res, err := h.svc.RunReddit(context.Background())
	if err != nil {
		t.Fatalf("RunReddit: %v", err)
	}
	if res.Fetched != 4 || res.Inserted != 4 || res.ParentsInserted != 2 || res.LinkFailures != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}

	staged := h.bucket.lines(t, res.StagingURI)
	if len(staged) != 4 {
		t.Fatalf("staged %d posts, want 4", len(staged))
	}
	linked := 0
	for _, line := range staged {
		if _, ok := line["id"]; ok {
			t.Fatalf("staged post carries a store id: %v", line)
		}
		if u, _ := line["article_url"].(string); u != "" {
			linked++
			if u != shared && u != broken {
				t.Fatalf("unexpected article_url %q", u)
			}
		}
	}
	if linked != 3 {
		t.Fatalf("want 3 staged posts linked by article_url, got %d", linked)
	}

	var stored []types.RedditPost
	if err := h.db.Where("reddit_id IN ?", []string{posts[0].ID, posts[1].ID}).Find(&stored).Error; err != nil {
		t.Fatalf("query posts: %v", err)
	}
	if len(stored) != 2 || stored[0].ArticleID == nil || stored[1].ArticleID == nil || *stored[0].ArticleID != *stored[1].ArticleID {
		t.Fatalf("posts sharing a url must share one article: %+v", stored)
	}

	var placeholder types.Article
	if err := h.db.Where("url = ?", broken).First(&placeholder).Error; err != nil {
		t.Fatalf("placeholder article: %v", err)
	}
	if placeholder.Title != types.DefaultTitle {
		t.Fatalf("placeholder title=%q", placeholder.Title)
	}
}

func TestRunMarket_DropsUnmappedTickers(t *testing.T) {
	day := time.Date(2024, 5, 1, 4, 0, 0, 0, time.UTC)
	h := newHarness(t, testConfig(), Deps{}, TaskDeps{Bars: &fakeBars{day: day}})
	company := testutil.SeedCompany(t, context.Background(), h.db, "mp")
	h.svc.cfg.Tickers = []string{company.Ticker, "NOPE_" + company.Ticker}

	res, err := h.svc.RunMarket(context.Background())
	if err != nil {
		t.Fatalf("RunMarket: %v", err)
	}
	if res.Fetched != 4 || res.Inserted != 2 || res.Dropped != 2 {
		t.Fatalf("unexpected result: %+v", res)
	}
	var n int64
	if err := h.db.Model(&types.StockBar{}).Where("company_id = ?", company.ID).Count(&n).Error; err != nil || n != 2 {
		t.Fatalf("stored bars=%d err=%v", n, err)
	}

	staged := h.bucket.lines(t, res.StagingURI)
	if len(staged) != 2 {
		t.Fatalf("staged %d bars, want only the 2 mapped ones", len(staged))
	}
	for _, line := range staged {
		if line["company_id"] != company.ID.String() || line["ticker"] != company.Ticker {
			t.Fatalf("staged bar not bound to its company: %v", line)
		}
		if _, ok := line["created_at"]; ok {
			t.Fatalf("staged bar carries a store timestamp: %v", line)
		}
	}
}

func TestFetchLinkedArticlesTaskMarksFailures(t *testing.T) {
	ok := "https://example.com/ok"
	empty := "https://example.com/empty"
	broken := "https://example.com/broken"
	reg := executor.NewRegistry()
	pages := &fakePages{fail: map[string]bool{broken: true}, empty: map[string]bool{empty: true}}
	if err := RegisterTasks(reg, TaskDeps{Pages: pages, Log: testutil.Logger(t)}); err != nil {
		t.Fatalf("RegisterTasks: %v", err)
	}
	fn, found := reg.Get(TaskFetchLinkedArticles)
	if !found {
		t.Fatalf("%s not registered", TaskFetchLinkedArticles)
	}
	payload, _ := json.Marshal([]string{ok, empty, broken})
	raw, err := fn(context.Background(), payload)
	if err != nil {
		t.Fatalf("work func: %v", err)
	}
	var got []webpage.Page
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("want 3 pages, got %d", len(got))
	}
	if got[0].Failed || got[0].Headline == "" {
		t.Fatalf("fetched page: %+v", got[0])
	}
	if got[1].Failed || got[1].URL != empty {
		t.Fatalf("empty page must not be marked failed: %+v", got[1])
	}
	if !got[2].Failed || got[2].URL != broken || got[2].Reason == "" {
		t.Fatalf("failed fetch must be marked with a reason: %+v", got[2])
	}
}

func TestFanOutRetriesAggregationFailure(t *testing.T) {
	reg := executor.NewRegistry()
	var calls int32
	err := reg.Register("flaky", func(ctx context.Context, payload json.RawMessage) (json.RawMessage, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return nil, pipeline.NewError(pipeline.KindFatal, "flaky", "first call fails", nil)
		}
		return payload, nil
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	log := testutil.Logger(t)
	svc, err := NewService(Config{FanoutRetries: 1}, Deps{Exec: executor.NewLocal(reg, log, nil), Log: log})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	out, err := fanOut[int, int](context.Background(), svc, "flaky", []int{1, 2, 3}, 1, 0, 5*time.Second)
	if err != nil {
		t.Fatalf("fanOut: %v", err)
	}
	if len(out) != 3 || out[0] != 1 || out[2] != 3 {
		t.Fatalf("out=%v", out)
	}

	atomic.StoreInt32(&calls, 0)
	svc.cfg.FanoutRetries = 0
	if _, err := fanOut[int, int](context.Background(), svc, "flaky", []int{1}, 1, 0, 5*time.Second); !pipeline.IsKind(err, pipeline.KindAggregationFailure) {
		t.Fatalf("expected aggregation failure without retries, got %v", err)
	}
}

func TestRunRejectsUnknownFlow(t *testing.T) {
	log := testutil.Logger(t)
	svc, err := NewService(Config{}, Deps{Exec: executor.NewLocal(executor.NewRegistry(), log, nil), Log: log})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	if _, err := svc.Run(context.Background(), "weather"); err == nil {
		t.Fatalf("expected error for unknown flow")
	}
}
