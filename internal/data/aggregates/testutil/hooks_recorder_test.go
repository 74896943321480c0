package testutil

import (
	"testing"
	"time"
)

func TestHooksRecorderStatusesPerOp(t *testing.T) {
	h := &HooksRecorder{}
	h.ObserveCommit("article.commit", "duplicate_key", time.Millisecond)
	h.ObserveCommit("reddit.commit", "success", time.Millisecond)
	h.ObserveCommit("article.commit", "success", time.Millisecond)
	h.IncDuplicate("article.commit")

	got := h.Statuses("article.commit")
	if len(got) != 2 || got[0] != "duplicate_key" || got[1] != "success" {
		t.Fatalf("article statuses: %v", got)
	}
	if len(h.Duplicates) != 1 || len(h.Retries) != 0 {
		t.Fatalf("duplicates=%v retries=%v", h.Duplicates, h.Retries)
	}
}
