package pipeline

import (
	"errors"
	"fmt"
	"testing"
)

func TestWrapNil(t *testing.T) {
	if Wrap(KindTransient, "op", nil) != nil {
		t.Fatalf("expected nil")
	}
}

func TestKindOfThroughFmtWrap(t *testing.T) {
	base := NewError(KindMissingForeignMapping, "market.resolve", "ticker ZZZZ", nil)
	wrapped := fmt.Errorf("resolve batch: %w", base)
	if !IsKind(wrapped, KindMissingForeignMapping) {
		t.Fatalf("expected missing_foreign_mapping, got %q", KindOf(wrapped))
	}
	if KindOf(errors.New("plain")) != "" {
		t.Fatalf("plain error should have no kind")
	}
}

func TestOutermostKindWins(t *testing.T) {
	inner := NewError(KindTransient, "fetch", "timeout", nil)
	outer := Wrap(KindFatal, "executor", inner)
	if KindOf(outer) != KindFatal {
		t.Fatalf("expected fatal, got %q", KindOf(outer))
	}
	if !errors.Is(outer, inner) {
		t.Fatalf("expected cause chain to be preserved")
	}
	if Retryable(outer) {
		t.Fatalf("fatal must not be retryable")
	}
}

func TestErrorString(t *testing.T) {
	cases := []struct {
		err  *Error
		want string
	}{
		{&Error{Kind: KindTransaction, Op: "commit", Message: "boom"}, "commit: boom (transaction)"},
		{&Error{Kind: KindTransaction, Op: "commit"}, "commit (transaction)"},
		{&Error{Kind: KindTransaction, Message: "boom"}, "boom (transaction)"},
		{&Error{Kind: KindTransaction}, "transaction"},
	}
	for _, tc := range cases {
		if got := tc.err.Error(); got != tc.want {
			t.Fatalf("got %q want %q", got, tc.want)
		}
	}
}
