package observability

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	m.ObserveFlow("news", "core_financial", "succeeded", time.Second)
	m.AddRows("news", "inserted", 3)
	m.TaskTransition("x", "running")
	m.ObserveWriterOperation("op", "ok", time.Millisecond)
	m.IncWriterConflict("op")
	m.IncWriterRetry("op")
	if m.Registry() != nil {
		t.Fatalf("expected nil registry")
	}
}

func TestTaskTransitionTracksInflight(t *testing.T) {
	m := New()
	m.TaskTransition("market.fetch_bars", "running")
	m.TaskTransition("market.fetch_bars", "running")
	m.TaskTransition("market.fetch_bars", "succeeded")

	if got := testutil.ToFloat64(m.tasksInflight.WithLabelValues("market.fetch_bars")); got != 1 {
		t.Fatalf("inflight=%v want 1", got)
	}
	if got := testutil.ToFloat64(m.taskTransitions.WithLabelValues("market.fetch_bars", "running")); got != 2 {
		t.Fatalf("running transitions=%v want 2", got)
	}
}

func TestRowsAndDropsIgnoreNonPositive(t *testing.T) {
	m := New()
	m.AddRows("reddit", "inserted", 0)
	m.AddDrops("market", "unmapped_ticker", 2)
	m.AddDrops("market", "unmapped_ticker", -1)
	if got := testutil.ToFloat64(m.drops.WithLabelValues("market", "unmapped_ticker")); got != 2 {
		t.Fatalf("drops=%v want 2", got)
	}
	if n := testutil.CollectAndCount(m.rows); n != 0 {
		t.Fatalf("rows series=%d want 0", n)
	}
}

func TestHandlerExposesNamespace(t *testing.T) {
	m := New()
	m.ObserveWriterOperation("Content.Article.Commit", "ok", 5*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()
	if !strings.Contains(body, "marketpulse_writer_operations_total") {
		t.Fatalf("missing writer metric in exposition")
	}
}
