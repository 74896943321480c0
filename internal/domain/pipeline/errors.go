package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

// Kind is the closed set of failure classes an ingestion run can produce.
type Kind string

const (
	// KindPerItem marks a recoverable single-item fetch failure. It never
	// leaves the chunk worker; the item degrades to its sentinel record.
	KindPerItem Kind = "per_item"
	// KindTransient is retried by the executor according to the task policy.
	KindTransient Kind = "transient"
	// KindFatal is terminal: retry budget exhausted, hard time limit, or a
	// non-retryable error.
	KindFatal Kind = "fatal"
	// KindAggregationTimeout is returned when the fan-in deadline elapses.
	KindAggregationTimeout Kind = "aggregation_timeout"
	// KindAggregationFailure is returned when any fanned-out task fails.
	KindAggregationFailure Kind = "aggregation_failure"
	// KindDuplicateKey is a unique-key collision. Callers treat it as a skip.
	KindDuplicateKey Kind = "duplicate_key"
	// KindMissingForeignMapping drops a dependent record whose required
	// lookup key is unknown.
	KindMissingForeignMapping Kind = "missing_foreign_mapping"
	// KindTransaction is any commit-time failure; the transaction is rolled back.
	KindTransaction Kind = "transaction"
)

// Error is the canonical tagged ingestion error.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	op := strings.TrimSpace(e.Op)
	msg := strings.TrimSpace(e.Message)
	switch {
	case op != "" && msg != "":
		return fmt.Sprintf("%s: %s (%s)", op, msg, e.Kind)
	case op != "":
		return fmt.Sprintf("%s (%s)", op, e.Kind)
	case msg != "":
		return fmt.Sprintf("%s (%s)", msg, e.Kind)
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Cause }

func NewError(kind Kind, op, message string, cause error) error {
	return &Error{
		Kind:    kind,
		Op:      strings.TrimSpace(op),
		Message: strings.TrimSpace(message),
		Cause:   cause,
	}
}

// Wrap tags err with kind. A nil err stays nil.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return NewError(kind, op, err.Error(), err)
}

// IsKind reports whether the outermost tagged error in err's chain has kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

func KindOf(err error) Kind {
	var pe *Error
	if !errors.As(err, &pe) {
		return ""
	}
	return pe.Kind
}

// Retryable reports whether the executor should schedule another attempt.
func Retryable(err error) bool {
	return IsKind(err, KindTransient)
}
