package testutil

import (
	"sync"

	"github.com/roach88/rewind/internal/ir"
)

// FixedKeys returns predetermined effect keys in order.
//
// Thread-safety: FixedKeys is safe for concurrent use via internal mutex.
type FixedKeys struct {
	mu   sync.Mutex
	keys []ir.EffectKey
	idx  int
}

// NewFixedKeys creates a generator that returns keys in order.
//
//	gen := NewFixedKeys("load-1", "load-2")
//	gen.Next() // "load-1"
//	gen.Next() // "load-2"
//	gen.Next() // panic: all keys exhausted
func NewFixedKeys(keys ...string) *FixedKeys {
	out := make([]ir.EffectKey, len(keys))
	for i, k := range keys {
		out[i] = ir.EffectKey(k)
	}
	return &FixedKeys{keys: out}
}

// Next returns the next predetermined key.
//
// Panics if all keys have been consumed, so a scenario that starts more
// effects than it declared fails loudly.
func (g *FixedKeys) Next() ir.EffectKey {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.keys) {
		panic("FixedKeys: all keys exhausted")
	}
	k := g.keys[g.idx]
	g.idx++
	return k
}
