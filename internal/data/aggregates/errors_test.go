package aggregates

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/yungbote/marketpulse/internal/domain/pipeline"
)

func TestMapError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want pipeline.Kind
	}{
		{"pg unique", &pgconn.PgError{Code: "23505"}, pipeline.KindDuplicateKey},
		{"pg deadlock", &pgconn.PgError{Code: "40P01"}, pipeline.KindTransient},
		{"pg fk", &pgconn.PgError{Code: "23503"}, pipeline.KindTransaction},
		{"sqlite unique", errors.New("UNIQUE constraint failed: article.url"), pipeline.KindDuplicateKey},
		{"sqlite busy", errors.New("database is locked"), pipeline.KindTransient},
		{"canceled", context.Canceled, pipeline.KindTransient},
		{"tagged duplicate", DuplicateError("x"), pipeline.KindDuplicateKey},
		{"other", errors.New("disk full"), pipeline.KindTransaction},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := MapError("op", tc.err)
			if !pipeline.IsKind(got, tc.want) {
				t.Fatalf("want %s, got %q (%v)", tc.want, pipeline.KindOf(got), got)
			}
			if !errors.Is(got, tc.err) {
				t.Fatalf("expected cause preserved")
			}
		})
	}
}

func TestMapError_PassthroughPipelineError(t *testing.T) {
	in := pipeline.NewError(pipeline.KindFatal, "op", "stop", nil)
	if out := MapError("other", in); out != in {
		t.Fatalf("expected passthrough pipeline error")
	}
	if MapError("op", nil) != nil {
		t.Fatalf("expected nil")
	}
}
