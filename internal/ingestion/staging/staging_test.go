package staging

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"
)

type memBucket struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (b *memBucket) Put(_ context.Context, key string, data []byte, _ string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.objects == nil {
		b.objects = map[string][]byte{}
	}
	b.objects[key] = data
	return "mem://bucket/" + key, nil
}

func (b *memBucket) List(_ context.Context, prefix string) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []string
	for k := range b.objects {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	return out, nil
}

func TestKeyLayout(t *testing.T) {
	day := time.Date(2024, 5, 1, 23, 0, 0, 0, time.UTC)
	if got := Key("news", "core_financial", day); got != "news_data/ingestion_date=2024-05-01/news_core_financial_2024-05-01.jsonl.gz" {
		t.Fatalf("key=%s", got)
	}
	if got := Key("market", "", day); got != "market_data/ingestion_date=2024-05-01/market_2024-05-01.jsonl.gz" {
		t.Fatalf("key=%s", got)
	}
}

type row struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

func TestExportWritesGzippedJSONLines(t *testing.T) {
	b := &memBucket{}
	e := NewExporter(b, nil)
	e.now = func() time.Time { return time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC) }

	uri, err := Export(context.Background(), e, "news", "macro_politics", []row{{"https://a", "A"}, {"https://b", "B"}})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if uri != "mem://bucket/news_data/ingestion_date=2024-05-01/news_macro_politics_2024-05-01.jsonl.gz" {
		t.Fatalf("uri=%s", uri)
	}

	var data []byte
	for _, v := range b.objects {
		data = v
	}
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("gzip: %v", err)
	}
	var got []row
	sc := bufio.NewScanner(zr)
	for sc.Scan() {
		var r row
		if err := json.Unmarshal(sc.Bytes(), &r); err != nil {
			t.Fatalf("line: %v", err)
		}
		got = append(got, r)
	}
	if len(got) != 2 || got[1].URL != "https://b" {
		t.Fatalf("unexpected rows: %+v", got)
	}

	keys, err := e.List(context.Background(), "news", e.now())
	if err != nil || len(keys) != 1 {
		t.Fatalf("List: %v %v", keys, err)
	}
}

func TestExportSkipsEmptyOrDisabled(t *testing.T) {
	uri, err := Export[row](context.Background(), NewExporter(nil, nil), "news", "", []row{{URL: "x"}})
	if err != nil || uri != "" {
		t.Fatalf("disabled exporter: %q %v", uri, err)
	}
	b := &memBucket{}
	uri, err = Export[row](context.Background(), NewExporter(b, nil), "news", "", nil)
	if err != nil || uri != "" || len(b.objects) != 0 {
		t.Fatalf("empty batch: %q %v", uri, err)
	}
}
