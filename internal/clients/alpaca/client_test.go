package alpaca

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestBarsFollowsPageTokens(t *testing.T) {
	var pages []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/stocks/AAPL/bars" {
			t.Errorf("path=%s", r.URL.Path)
		}
		if r.Header.Get("APCA-API-KEY-ID") != "id" || r.Header.Get("APCA-API-SECRET-KEY") != "secret" {
			t.Errorf("missing auth headers")
		}
		tok := r.URL.Query().Get("page_token")
		pages = append(pages, tok)
		switch tok {
		case "":
			_, _ = w.Write([]byte(`{"symbol":"AAPL","bars":[{"t":"2024-05-01T04:00:00Z","o":1,"h":2,"l":0.5,"c":1.5,"v":100,"n":10,"vw":1.2}],"next_page_token":"p2"}`))
		case "p2":
			_, _ = w.Write([]byte(`{"symbol":"AAPL","bars":[{"t":"2024-05-02T04:00:00Z","o":1.5,"h":2,"l":1,"c":1.8,"v":50,"n":5,"vw":1.6}],"next_page_token":null}`))
		default:
			t.Errorf("unexpected token %q", tok)
		}
	}))
	defer srv.Close()

	c, err := New(Config{KeyID: "id", SecretKey: "secret", BaseURL: srv.URL}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	bars, err := c.Bars(context.Background(), "aapl", start, start.AddDate(0, 0, 7))
	if err != nil {
		t.Fatalf("Bars: %v", err)
	}
	if len(bars) != 2 || len(pages) != 2 {
		t.Fatalf("bars=%d pages=%d", len(bars), len(pages))
	}
	if bars[1].Close != 1.8 || bars[1].TradeCount != 5 {
		t.Fatalf("unexpected bar: %+v", bars[1])
	}
}

func TestBarsStopsAtMaxPages(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_, _ = w.Write([]byte(`{"bars":[],"next_page_token":"again"}`))
	}))
	defer srv.Close()

	c, _ := New(Config{KeyID: "id", SecretKey: "s", BaseURL: srv.URL, MaxPages: 3}, nil)
	if _, err := c.Bars(context.Background(), "MSFT", time.Now().AddDate(0, 0, -1), time.Time{}); err != nil {
		t.Fatalf("Bars: %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls=%d want 3", calls)
	}
}
