package engine

import (
	"log/slog"

	"github.com/roach88/rewind/internal/ir"
	"github.com/roach88/rewind/internal/state"
)

// DeriveFunc computes the inverse of a from the tree as it is immediately
// before a applies. ok=false means a is not invertible.
type DeriveFunc func(t state.Tree, a ir.Action) (inverse ir.Action, description string, ok bool)

// DefaultDerivations returns the inverse table for the thing slice.
// Additive actions invert to an absolute set of the prior value.
//
// Effect-initiating actions and their completions are absent on purpose:
// they are never auto-invertible, callers compensate explicitly with
// CancelStuff or ResetStuff.
func DefaultDerivations() map[ir.Kind]DeriveFunc {
	setA := func(desc string) DeriveFunc {
		return func(t state.Tree, _ ir.Action) (ir.Action, string, bool) {
			return ir.SetA{A: t.Thing.A}, desc, true
		}
	}
	setB := func(desc string) DeriveFunc {
		return func(t state.Tree, _ ir.Action) (ir.Action, string, bool) {
			return ir.SetB{B: t.Thing.B}, desc, true
		}
	}
	return map[ir.Kind]DeriveFunc{
		ir.KindIncA:      setA("inc A"),
		ir.KindAddToA:    setA("add to A"),
		ir.KindSetA:      setA("set A"),
		ir.KindAppendToB: setB("append to B"),
		ir.KindSetB:      setB("set B"),
	}
}

// undoMiddleware records inverses and implements Undo and Redo.
type undoMiddleware struct {
	table  map[ir.Kind]DeriveFunc
	logger *slog.Logger
	hooks  Hooks
}

func (m *undoMiddleware) Handle(api API, a ir.Action, next Next) {
	switch a.(type) {
	case ir.Undo:
		if h := api.State().History; h.CanUndo() {
			m.replay(api, h.Undo[0].Inverse, h.Undo[0].Description)
		}
		next(a)
		return
	case ir.Redo:
		if h := api.State().History; h.CanRedo() {
			m.replay(api, h.Redo[0].Forward, h.Redo[0].Description)
		}
		next(a)
		return
	}

	if a.IsReplay() {
		next(a)
		return
	}

	rec, ok := m.derive(api.State(), a)
	next(a)
	if !ok {
		return
	}
	api.Dispatch(ir.PushUndo{Record: rec})
	m.hooks.recorded(rec)
}

// replay dispatches a stored record action. Records decoded from outside
// the pipeline may lack one; the stacks still move.
func (m *undoMiddleware) replay(api API, a ir.Action, description string) {
	if a == nil {
		m.logger.Warn("undo record has no action to replay", "description", description)
		return
	}
	api.Dispatch(ir.AsReplay(a))
}

// derive looks up a's derivation. A panicking derivation is logged and
// treated as not invertible.
func (m *undoMiddleware) derive(t state.Tree, a ir.Action) (rec ir.UndoRecord, ok bool) {
	fn, found := m.table[a.Kind()]
	if !found || fn == nil {
		return ir.UndoRecord{}, false
	}

	defer func() {
		if r := recover(); r != nil {
			m.logger.Warn("inverse derivation panicked, not recording",
				"kind", a.Kind(),
				"panic", r,
			)
			rec, ok = ir.UndoRecord{}, false
		}
	}()

	inverse, desc, ok := fn(t, a)
	if !ok || inverse == nil {
		return ir.UndoRecord{}, false
	}
	return ir.UndoRecord{Inverse: inverse, Forward: a, Description: desc}, true
}
