package newsapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestEverythingSendsQueryAndDecodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/everything" {
			t.Errorf("path=%s", r.URL.Path)
		}
		if r.Header.Get("X-Api-Key") != "k" {
			t.Errorf("missing api key header")
		}
		if got := r.URL.Query().Get("q"); got != "stock market" {
			t.Errorf("q=%q", got)
		}
		if got := r.URL.Query().Get("from"); got != "2024-05-01T00:00:00Z" {
			t.Errorf("from=%q", got)
		}
		if got := r.URL.Query().Get("pageSize"); got != "100" {
			t.Errorf("pageSize=%q", got)
		}
		_, _ = w.Write([]byte(`{"status":"ok","totalResults":2,"articles":[
			{"source":{"id":null,"name":"Reuters"},"author":null,"title":"A","url":"https://a","publishedAt":"2024-05-01T10:00:00Z","content":"x [+12 chars]"},
			{"source":{"name":"AP"},"author":"Jo","title":"B","url":"https://b","publishedAt":"2024-05-01T11:00:00Z"}]}`))
	}))
	defer srv.Close()

	c, err := New(Config{APIKey: "k", BaseURL: srv.URL, Language: "en"}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := c.Everything(context.Background(), Query{Q: "stock market", From: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)})
	if err != nil {
		t.Fatalf("Everything: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len=%d", len(got))
	}
	if got[0].Author != nil || got[0].Source.Name != "Reuters" {
		t.Fatalf("unexpected first article: %+v", got[0])
	}
	if got[1].Content != nil {
		t.Fatalf("expected nil content on second article")
	}
}

func TestEverythingReportsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"error","code":"apiKeyInvalid","message":"bad key"}`))
	}))
	defer srv.Close()

	c, _ := New(Config{APIKey: "k", BaseURL: srv.URL}, nil)
	_, err := c.Everything(context.Background(), Query{Q: "q", PageSize: 10})
	if err == nil || !strings.Contains(err.Error(), "apiKeyInvalid") {
		t.Fatalf("expected api error, got %v", err)
	}
}

func TestNewRequiresKey(t *testing.T) {
	if _, err := New(Config{}, nil); err == nil {
		t.Fatalf("expected error without api key")
	}
}
