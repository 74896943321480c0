package temporalx

import (
	"context"
	"errors"
	"testing"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/yungbote/marketpulse/internal/platform/logger"
)

func TestClampBackoff(t *testing.T) {
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 250 * time.Millisecond},
		{2, 500 * time.Millisecond},
		{3, time.Second},
		{10, 2 * time.Second},
	}
	for _, tc := range cases {
		if got := ClampBackoff(250*time.Millisecond, 2*time.Second, tc.attempt); got != tc.want {
			t.Fatalf("attempt %d: want %s got %s", tc.attempt, tc.want, got)
		}
	}
}

func TestIsRetryableRPC(t *testing.T) {
	if !IsRetryableRPC(status.Error(codes.Unavailable, "down")) {
		t.Fatalf("unavailable should retry")
	}
	if IsRetryableRPC(status.Error(codes.PermissionDenied, "no")) {
		t.Fatalf("permission denied should not retry")
	}
	if !IsRetryableRPC(context.DeadlineExceeded) {
		t.Fatalf("deadline should retry")
	}
	if IsRetryableRPC(errors.New("plain")) || IsRetryableRPC(nil) {
		t.Fatalf("plain and nil errors should not retry")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("TEMPORAL_ADDRESS", "")
	t.Setenv("TEMPORAL_TASK_QUEUE", "ingest-q")
	cfg := LoadConfig()
	if cfg.Enabled() {
		t.Fatalf("expected disabled without address")
	}
	if cfg.Namespace != "marketpulse" || cfg.TaskQueue != "ingest-q" || cfg.DownstreamTaskQueue != "ingest-q" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	c, err := NewClient(cfg, logger.Nop())
	if c != nil || err != nil {
		t.Fatalf("expected nil client and nil error when disabled")
	}
}

func TestDownstreamNilClientIsNoop(t *testing.T) {
	d := NewDownstream(nil, LoadConfig(), logger.Nop())
	d.Trigger(context.Background(), "news", "gs://bucket/x")
}

func TestRetryConnect(t *testing.T) {
	b := Backoff{MaxWait: time.Second, Base: time.Millisecond, Max: 2 * time.Millisecond}
	calls := 0
	err := Retry(context.Background(), b, func(ctx context.Context, attempt int) (bool, error) {
		calls++
		if attempt < 3 {
			return true, errors.New("unreachable")
		}
		return false, nil
	})
	if err != nil || calls != 3 {
		t.Fatalf("want success after 3 calls, got err=%v calls=%d", err, calls)
	}

	permanent := errors.New("denied")
	calls = 0
	err = Retry(context.Background(), b, func(ctx context.Context, attempt int) (bool, error) {
		calls++
		return false, permanent
	})
	if !errors.Is(err, permanent) || calls != 1 {
		t.Fatalf("want permanent error after 1 call, got err=%v calls=%d", err, calls)
	}

	err = Retry(context.Background(), Backoff{}, func(ctx context.Context, attempt int) (bool, error) {
		return true, permanent
	})
	if !errors.Is(err, permanent) {
		t.Fatalf("zero MaxWait should give up after one attempt, got %v", err)
	}
}
