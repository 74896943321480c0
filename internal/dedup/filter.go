// Package dedup decides which records of a batch are new, which parents
// they link to, and which must be dropped for lack of a foreign mapping.
package dedup

import (
	"fmt"

	"github.com/yungbote/marketpulse/internal/platform/dbctx"
)

// ExistingKeysFunc answers, in a single round trip, which of keys are
// already persisted.
type ExistingKeysFunc[K comparable] func(dbc dbctx.Context, keys []K) (map[K]struct{}, error)

// Filtered is the outcome of FilterNew.
type Filtered[R any] struct {
	ToInsert []R
	// Existing counts records whose key was already stored.
	Existing int
	// Repeated counts later occurrences of a key seen earlier in the batch.
	Repeated int
	// Unkeyed counts records with a zero natural key.
	Unkeyed int
}

func (f Filtered[R]) Skipped() int { return f.Existing + f.Repeated + f.Unkeyed }

// FilterNew keeps the first occurrence of every key that is not already
// persisted. Input order is preserved. The store is queried once.
func FilterNew[R any, K comparable](dbc dbctx.Context, records []R, keyOf func(R) K, existing ExistingKeysFunc[K]) (Filtered[R], error) {
	var out Filtered[R]
	if len(records) == 0 {
		return out, nil
	}
	var zero K
	keys := make([]K, 0, len(records))
	seen := make(map[K]struct{}, len(records))
	for _, r := range records {
		k := keyOf(r)
		if k == zero {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}

	stored := map[K]struct{}{}
	if len(keys) > 0 {
		got, err := existing(dbc, keys)
		if err != nil {
			return out, fmt.Errorf("existing keys: %w", err)
		}
		if got != nil {
			stored = got
		}
	}

	taken := make(map[K]struct{}, len(keys))
	out.ToInsert = make([]R, 0, len(keys))
	for _, r := range records {
		k := keyOf(r)
		switch {
		case k == zero:
			out.Unkeyed++
			continue
		case inSet(stored, k):
			out.Existing++
			continue
		case inSet(taken, k):
			out.Repeated++
			continue
		}
		taken[k] = struct{}{}
		out.ToInsert = append(out.ToInsert, r)
	}
	return out, nil
}

func inSet[K comparable](m map[K]struct{}, k K) bool {
	_, ok := m[k]
	return ok
}
