package dedup

import (
	"fmt"

	"github.com/yungbote/marketpulse/internal/platform/dbctx"
)

// LookupFunc loads already persisted parents by key in one query.
type LookupFunc[K comparable, E any] func(dbc dbctx.Context, keys []K) (map[K]E, error)

// LinkCache memoizes parent entities for the lifetime of one batch so every
// distinct parent key maps to exactly one entity, whether it was loaded from
// the store or staged for insertion. It is not safe for concurrent use.
type LinkCache[K comparable, E any] struct {
	lookup LookupFunc[K, E]
	build  func(K) (E, bool)

	resolved map[K]E
	checked  map[K]struct{}
	staged   []E
	order    []K
}

// NewLinkCache returns a cache that loads parents with lookup and creates
// missing ones with build. build reports false when it cannot produce a
// parent for the key.
func NewLinkCache[K comparable, E any](lookup LookupFunc[K, E], build func(K) (E, bool)) *LinkCache[K, E] {
	return &LinkCache[K, E]{
		lookup:   lookup,
		build:    build,
		resolved: map[K]E{},
		checked:  map[K]struct{}{},
	}
}

// Prime loads every stored parent among keys with a single lookup.
func (c *LinkCache[K, E]) Prime(dbc dbctx.Context, keys []K) error {
	var zero K
	pending := make([]K, 0, len(keys))
	for _, k := range keys {
		if k == zero || inSet(c.checked, k) {
			continue
		}
		c.checked[k] = struct{}{}
		pending = append(pending, k)
	}
	if len(pending) == 0 {
		return nil
	}
	found, err := c.lookup(dbc, pending)
	if err != nil {
		return fmt.Errorf("link lookup: %w", err)
	}
	for k, e := range found {
		if _, ok := c.resolved[k]; !ok {
			c.resolved[k] = e
		}
	}
	return nil
}

// Resolve returns the parent for key. created is true only the first time a
// key is staged; later calls for the same key return the same entity.
func (c *LinkCache[K, E]) Resolve(dbc dbctx.Context, key K) (entity E, created bool, ok bool, err error) {
	var zero K
	if key == zero {
		return entity, false, false, nil
	}
	if e, hit := c.resolved[key]; hit {
		return e, false, true, nil
	}
	if !inSet(c.checked, key) {
		if err := c.Prime(dbc, []K{key}); err != nil {
			return entity, false, false, err
		}
		if e, hit := c.resolved[key]; hit {
			return e, false, true, nil
		}
	}
	e, built := c.build(key)
	if !built {
		return entity, false, false, nil
	}
	c.resolved[key] = e
	c.staged = append(c.staged, e)
	c.order = append(c.order, key)
	return e, true, true, nil
}

// Staged returns the parents created by Resolve, in first-reference order.
func (c *LinkCache[K, E]) Staged() []E {
	return append([]E(nil), c.staged...)
}

// StagedKeys returns the keys of Staged in the same order.
func (c *LinkCache[K, E]) StagedKeys() []K {
	return append([]K(nil), c.order...)
}

// Rebind replaces the cached entity for key, used after insert when the
// store already held a row the batch did not see.
func (c *LinkCache[K, E]) Rebind(key K, e E) {
	c.resolved[key] = e
}
