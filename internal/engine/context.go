package engine

import (
	"github.com/dyluth/warren/pkg/dcop"
	"github.com/dyluth/warren/pkg/wire"
)

// ContextStore tracks a variable's current belief about its ancestors'
// assignments as (value, stamp) pairs. Stamps are monotonically
// non-decreasing per ancestor: a later-stamped entry always overwrites an
// earlier-stamped one, and equal stamps are idempotent.
type ContextStore struct {
	m wire.ContextMap
}

// NewContextStore returns an empty store.
func NewContextStore() *ContextStore {
	return &ContextStore{m: make(wire.ContextMap)}
}

// Merge records (value, stamp) for sender if the stamp is strictly newer
// than the stored one (or nothing is stored). Reports whether the believed
// value actually changed; stamp-only refreshes return false.
func (c *ContextStore) Merge(sender string, value dcop.Value, stamp int64) bool {
	prev, ok := c.m[sender]
	if ok && stamp <= prev.Stamp {
		return false
	}
	c.m[sender] = wire.CtxEntry{Value: value, Stamp: stamp}
	return !ok || prev.Value != value
}

// MergeMany merges every entry of other whose key is not excluded.
// Reports whether any believed value changed.
func (c *ContextStore) MergeMany(other wire.ContextMap, exclude map[string]bool) bool {
	changed := false
	for name, entry := range other {
		if exclude[name] {
			continue
		}
		if c.Merge(name, entry.Value, entry.Stamp) {
			changed = true
		}
	}
	return changed
}

// Replace discards the store's contents in favour of the given context.
// Used when a TERMINATE message dictates the final ancestor context.
func (c *ContextStore) Replace(ctx wire.ContextMap) {
	c.m = ctx.Clone()
}

// Get returns the entry for a name, if present.
func (c *ContextStore) Get(name string) (wire.CtxEntry, bool) {
	e, ok := c.m[name]
	return e, ok
}

// Snapshot returns an independent copy of the store's contents.
func (c *ContextStore) Snapshot() wire.ContextMap {
	return c.m.Clone()
}

// Values returns the store as a plain name-to-value assignment, for
// evaluating constraint spaces.
func (c *ContextStore) Values() map[string]dcop.Value {
	out := make(map[string]dcop.Value, len(c.m))
	for name, entry := range c.m {
		out[name] = entry.Value
	}
	return out
}

// Compatible reports whether two contexts agree on the value of every
// variable present in both. Stamps are ignored: compatibility is about
// what was assigned, not when.
func Compatible(a, b wire.ContextMap) bool {
	for name, ea := range a {
		if eb, ok := b[name]; ok && ea.Value != eb.Value {
			return false
		}
	}
	return true
}
