package dedup

import (
	"fmt"

	"github.com/yungbote/marketpulse/internal/domain/pipeline"
)

// Drop is the diagnostic for a record excluded by ForeignMapping.
type Drop struct {
	Key    string
	Reason string
}

func (d Drop) Err(op string) error {
	return pipeline.NewError(pipeline.KindMissingForeignMapping, op, fmt.Sprintf("%s: %s", d.Key, d.Reason), nil)
}

// ForeignMapping binds each record to the value mapping holds for its key.
// Records whose key is absent are dropped and reported; the rest keep their
// input order.
func ForeignMapping[R any, K comparable, V any](records []R, keyOf func(R) K, mapping map[K]V, bind func(R, V)) ([]R, []Drop) {
	kept := make([]R, 0, len(records))
	var drops []Drop
	for _, r := range records {
		k := keyOf(r)
		v, ok := mapping[k]
		if !ok {
			drops = append(drops, Drop{Key: fmt.Sprint(k), Reason: "no mapping for key"})
			continue
		}
		bind(r, v)
		kept = append(kept, r)
	}
	return kept, drops
}
