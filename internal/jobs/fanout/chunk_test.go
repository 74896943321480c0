package fanout

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yungbote/marketpulse/internal/domain/pipeline"
)

type page struct {
	URL   string
	Title string
}

func TestProcessChunk_IsolatesFailure(t *testing.T) {
	items := []string{"u1", "u2", "u3", "u4", "u5"}
	fetch := func(_ context.Context, u string) (page, error) {
		if u == "u3" {
			return page{}, errors.New("404 not found")
		}
		return page{URL: u, Title: "title " + u}, nil
	}
	results, err := ProcessChunk(context.Background(), items, fetch, ChunkOptions[string, page]{
		Concurrency: 2,
		Sentinel:    func(u string, _ error) page { return page{URL: u, Title: "Untitled Article"} },
	})
	if err != nil {
		t.Fatalf("ProcessChunk: %v", err)
	}
	if len(results) != 5 {
		t.Fatalf("expected 5 results, got %d", len(results))
	}
	for i, r := range results {
		if r.Value.URL != items[i] {
			t.Fatalf("result %d out of order: %+v", i, r)
		}
		if i == 2 {
			if !r.Sentinel() || r.Value.Title != "Untitled Article" {
				t.Fatalf("expected sentinel at index 2, got %+v", r)
			}
			if !pipeline.IsKind(r.Err, pipeline.KindPerItem) {
				t.Fatalf("expected per_item reason, got %v", r.Err)
			}
			continue
		}
		if r.Sentinel() || r.Value.Title == "" {
			t.Fatalf("expected populated result at %d, got %+v", i, r)
		}
	}
}

func TestProcessChunk_BoundsConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int32
	fetch := func(_ context.Context, i int) (int, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return i, nil
	}
	items := make([]int, 20)
	if _, err := ProcessChunk(context.Background(), items, fetch, ChunkOptions[int, int]{Concurrency: 3}); err != nil {
		t.Fatalf("ProcessChunk: %v", err)
	}
	if peak.Load() > 3 {
		t.Fatalf("expected at most 3 in flight, saw %d", peak.Load())
	}
}

func TestProcessChunk_FatalAborts(t *testing.T) {
	fetch := func(_ context.Context, i int) (int, error) {
		if i == 1 {
			return 0, pipeline.NewError(pipeline.KindFatal, "fetch", "bad credentials", nil)
		}
		return i, nil
	}
	if _, err := ProcessChunk(context.Background(), []int{0, 1, 2}, fetch, ChunkOptions[int, int]{}); !pipeline.IsKind(err, pipeline.KindFatal) {
		t.Fatalf("expected fatal, got %v", err)
	}
}

func TestProcessChunk_PanicIsFatal(t *testing.T) {
	fetch := func(_ context.Context, i int) (int, error) {
		if i == 2 {
			panic("nil map")
		}
		return i, nil
	}
	if _, err := ProcessChunk(context.Background(), []int{0, 1, 2}, fetch, ChunkOptions[int, int]{}); !pipeline.IsKind(err, pipeline.KindFatal) {
		t.Fatalf("expected fatal from panic, got %v", err)
	}
}
