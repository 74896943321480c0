package aggregates

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/yungbote/marketpulse/internal/domain/pipeline"
)

var (
	// ErrDuplicate tags a unique-key collision raised by writer code.
	ErrDuplicate = errors.New("aggregate duplicate key")
	// ErrRetryable tags a transient failure raised by writer code.
	ErrRetryable = errors.New("aggregate retryable")
)

func DuplicateError(msg string) error {
	return errors.Join(ErrDuplicate, errors.New(strings.TrimSpace(msg)))
}

func RetryableError(msg string) error {
	return errors.Join(ErrRetryable, errors.New(strings.TrimSpace(msg)))
}

// MapError classifies a commit failure into a pipeline kind. Anything that
// is neither a duplicate key nor transient is a transaction failure.
func MapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*pipeline.Error); ok {
		return err
	}
	switch {
	case errors.Is(err, ErrDuplicate):
		return pipeline.Wrap(pipeline.KindDuplicateKey, op, err)
	case errors.Is(err, ErrRetryable):
		return pipeline.Wrap(pipeline.KindTransient, op, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return pipeline.Wrap(pipeline.KindTransient, op, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch strings.TrimSpace(pgErr.Code) {
		case "23505":
			return pipeline.Wrap(pipeline.KindDuplicateKey, op, err) // unique_violation
		case "40001", "40P01", "55P03":
			return pipeline.Wrap(pipeline.KindTransient, op, err) // serialization/deadlock/lock_not_available
		}
		return pipeline.Wrap(pipeline.KindTransaction, op, err)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "duplicate key"),
		strings.Contains(msg, "unique constraint failed"):
		return pipeline.Wrap(pipeline.KindDuplicateKey, op, err)
	case strings.Contains(msg, "deadlock"),
		strings.Contains(msg, "serialization"),
		strings.Contains(msg, "database is locked"),
		strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "timeout"),
		strings.Contains(msg, "temporar"):
		return pipeline.Wrap(pipeline.KindTransient, op, err)
	default:
		return pipeline.Wrap(pipeline.KindTransaction, op, err)
	}
}
