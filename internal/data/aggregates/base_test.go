package aggregates

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yungbote/marketpulse/internal/domain/pipeline"
	"github.com/yungbote/marketpulse/internal/platform/dbctx"
)

func TestExecuteWriteObservesSuccessStatus(t *testing.T) {
	hooks := &spyHooks{}
	err := executeWrite(context.Background(), BaseDeps{
		Runner: spyTxRunner{},
		Hooks:  hooks,
	}, "aggregate.test.success", func(_ dbctx.Context) error { return nil })
	if err != nil {
		t.Fatalf("executeWrite success: %v", err)
	}
	if len(hooks.Commits) != 1 || hooks.Commits[0].Status != "success" {
		t.Fatalf("unexpected operations: %+v", hooks.Commits)
	}
}

func TestExecuteWriteTracksDuplicateAndRetryCounters(t *testing.T) {
	t.Run("duplicate", func(t *testing.T) {
		hooks := &spyHooks{}
		err := executeWrite(context.Background(), BaseDeps{Runner: spyTxRunner{}, Hooks: hooks},
			"aggregate.test.dup", func(_ dbctx.Context) error {
				return DuplicateError("url already stored")
			})
		if !pipeline.IsKind(err, pipeline.KindDuplicateKey) {
			t.Fatalf("expected duplicate_key, got=%v", err)
		}
		if len(hooks.Duplicates) != 1 || len(hooks.Retries) != 0 {
			t.Fatalf("hooks: duplicates=%v retries=%v", hooks.Duplicates, hooks.Retries)
		}
		if hooks.Commits[0].Status != string(pipeline.KindDuplicateKey) {
			t.Fatalf("unexpected op status: %+v", hooks.Commits)
		}
	})

	t.Run("retryable", func(t *testing.T) {
		hooks := &spyHooks{}
		err := executeWrite(context.Background(), BaseDeps{Runner: spyTxRunner{}, Hooks: hooks},
			"aggregate.test.retry", func(_ dbctx.Context) error {
				return RetryableError("temporary lock timeout")
			})
		if !pipeline.IsKind(err, pipeline.KindTransient) {
			t.Fatalf("expected transient, got=%v", err)
		}
		if len(hooks.Retries) != 1 || hooks.Retries[0] != "aggregate.test.retry" {
			t.Fatalf("retry hooks: %+v", hooks.Retries)
		}
	})
}

func TestCommitOnce(t *testing.T) {
	cases := []struct {
		name      string
		results   []error
		wantCalls int
		wantKind  pipeline.Kind
	}{
		{name: "clean commit", results: []error{nil}, wantCalls: 1},
		{name: "recovers after one duplicate", results: []error{DuplicateError("race"), nil}, wantCalls: 2},
		{name: "repeated duplicate fails the batch", results: []error{DuplicateError("race"), DuplicateError("race")}, wantCalls: 2, wantKind: pipeline.KindTransaction},
		{name: "other failures are not re-run", results: []error{errors.New("disk full")}, wantCalls: 1, wantKind: pipeline.KindTransaction},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			calls := 0
			err := commitOnce(context.Background(), BaseDeps{Runner: spyTxRunner{}},
				"aggregate.test.commit", func(_ dbctx.Context) error {
					calls++
					return tc.results[calls-1]
				})
			if calls != tc.wantCalls {
				t.Fatalf("calls: want=%d got=%d", tc.wantCalls, calls)
			}
			if tc.wantKind == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !pipeline.IsKind(err, tc.wantKind) {
				t.Fatalf("want %s, got %v", tc.wantKind, err)
			}
		})
	}
}

func TestWriteStatus(t *testing.T) {
	if got := writeStatus(nil); got != "success" {
		t.Fatalf("nil status: want=success got=%s", got)
	}
	if got := writeStatus(MapError("op", context.DeadlineExceeded)); got != string(pipeline.KindTransient) {
		t.Fatalf("deadline status: got=%s", got)
	}
	if got := writeStatus(errors.New("untagged")); got != "failure" {
		t.Fatalf("untagged status: got=%s", got)
	}
}

type spyTxRunner struct{}

func (spyTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(dbctx.Context{Ctx: ctx})
}

type spyHooks struct {
	Commits    []spyCommit
	Duplicates []string
	Retries    []string
}

type spyCommit struct {
	Op     string
	Status string
}

func (h *spyHooks) ObserveCommit(op, status string, _ time.Duration) {
	h.Commits = append(h.Commits, spyCommit{Op: op, Status: status})
}

func (h *spyHooks) IncDuplicate(op string) {
	h.Duplicates = append(h.Duplicates, op)
}

func (h *spyHooks) IncRetry(op string) {
	h.Retries = append(h.Retries, op)
}
