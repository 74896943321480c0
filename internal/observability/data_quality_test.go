package observability

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yungbote/marketpulse/internal/platform/logger"
)

func TestDQWebhookRateLimitsPerStage(t *testing.T) {
	var hits atomic.Int32
	var last map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_ = json.NewDecoder(r.Body).Decode(&last)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	w := newDQWebhook(srv.URL, time.Hour)
	rep := DataQualityReport{Stage: "news.core_financial", Issues: map[string]int{"missing_content": 2}}
	ctx := context.Background()
	w.notify(ctx, logger.Nop(), rep)
	w.notify(ctx, logger.Nop(), rep)
	if got := hits.Load(); got != 1 {
		t.Fatalf("expected 1 post within interval, got %d", got)
	}
	if last["title"] != "Data quality issue" || last["stage"] != "news.core_financial" {
		t.Fatalf("unexpected payload: %v", last)
	}

	rep.Stage = "market.commit"
	w.notify(ctx, logger.Nop(), rep)
	if got := hits.Load(); got != 2 {
		t.Fatalf("expected separate budget per stage, got %d posts", got)
	}
}

func TestDataQualityReportTotal(t *testing.T) {
	rep := DataQualityReport{Issues: map[string]int{"a": 1, "b": 3}}
	if rep.total() != 4 {
		t.Fatalf("want 4, got %d", rep.total())
	}
	if (DataQualityReport{}).total() != 0 {
		t.Fatalf("empty report should total 0")
	}
}
