package testutil

import (
	"sync"
	"time"

	"github.com/yungbote/marketpulse/internal/data/aggregates"
)

// HooksRecorder keeps every commit signal a writer emits.
type HooksRecorder struct {
	mu sync.Mutex

	Commits    []Commit
	Duplicates []string
	Retries    []string
}

type Commit struct {
	Op       string
	Status   string
	Duration time.Duration
}

var _ aggregates.Hooks = (*HooksRecorder)(nil)

func (h *HooksRecorder) ObserveCommit(op, status string, dur time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Commits = append(h.Commits, Commit{Op: op, Status: status, Duration: dur})
}

func (h *HooksRecorder) IncDuplicate(op string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Duplicates = append(h.Duplicates, op)
}

func (h *HooksRecorder) IncRetry(op string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Retries = append(h.Retries, op)
}

// Statuses returns the commit statuses recorded for op, in order.
func (h *HooksRecorder) Statuses(op string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []string
	for _, c := range h.Commits {
		if c.Op == op {
			out = append(out, c.Status)
		}
	}
	return out
}
