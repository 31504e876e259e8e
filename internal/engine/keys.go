package engine

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/roach88/rewind/internal/ir"
)

// KeyGenerator assigns effect keys to effect-initiating actions dispatched
// without one.
type KeyGenerator interface {
	Next() ir.EffectKey
}

// UUIDv7Keys generates time-sortable UUIDv7 keys. It is the default.
//
// Thread-safety: UUIDv7Keys is stateless and safe for concurrent use.
type UUIDv7Keys struct{}

// Next returns a new hyphenated UUIDv7.
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Keys) Next() ir.EffectKey {
	return ir.EffectKey(uuid.Must(uuid.NewV7()).String())
}

// SequenceKeys generates "<prefix>-1", "<prefix>-2", ... so that traces of
// the same run are byte-identical.
type SequenceKeys struct {
	prefix string
	n      atomic.Int64
}

// NewSequenceKeys creates a sequence generator. An empty prefix means "fx".
func NewSequenceKeys(prefix string) *SequenceKeys {
	if prefix == "" {
		prefix = "fx"
	}
	return &SequenceKeys{prefix: prefix}
}

// Next returns the next key in the sequence.
func (g *SequenceKeys) Next() ir.EffectKey {
	return ir.EffectKey(fmt.Sprintf("%s-%d", g.prefix, g.n.Add(1)))
}
