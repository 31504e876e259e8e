package engine

import (
	"time"

	"github.com/roach88/rewind/internal/effect"
	"github.com/roach88/rewind/internal/ir"
	"github.com/roach88/rewind/internal/state"
)

// DispatchEvent describes one reducer commit.
// Depth is 0 for an outermost dispatch and grows with nesting.
type DispatchEvent struct {
	Seq    int64
	Depth  int
	Action ir.Action
	Tree   state.Tree
}

// Hooks observe the pipeline. Every field is optional.
//
// OnDispatch and OnRecord run while the pipeline lock is held and must not
// dispatch. OnEffectStart runs on the dispatching goroutine; OnEffectDone
// runs on the effect's goroutine before its completion is queued.
type Hooks struct {
	OnDispatch    func(ev DispatchEvent)
	OnEffectStart func(req effect.Request)
	OnEffectDone  func(req effect.Request, completion ir.Action, elapsed time.Duration)
	OnRecord      func(rec ir.UndoRecord)
}

// JoinHooks returns Hooks that call each of hs in order.
func JoinHooks(hs ...Hooks) Hooks {
	return Hooks{
		OnDispatch: func(ev DispatchEvent) {
			for _, h := range hs {
				if h.OnDispatch != nil {
					h.OnDispatch(ev)
				}
			}
		},
		OnEffectStart: func(req effect.Request) {
			for _, h := range hs {
				if h.OnEffectStart != nil {
					h.OnEffectStart(req)
				}
			}
		},
		OnEffectDone: func(req effect.Request, c ir.Action, d time.Duration) {
			for _, h := range hs {
				if h.OnEffectDone != nil {
					h.OnEffectDone(req, c, d)
				}
			}
		},
		OnRecord: func(rec ir.UndoRecord) {
			for _, h := range hs {
				if h.OnRecord != nil {
					h.OnRecord(rec)
				}
			}
		},
	}
}

func (h Hooks) dispatched(ev DispatchEvent) {
	if h.OnDispatch != nil {
		h.OnDispatch(ev)
	}
}

func (h Hooks) effectStarted(req effect.Request) {
	if h.OnEffectStart != nil {
		h.OnEffectStart(req)
	}
}

func (h Hooks) effectDone(req effect.Request, c ir.Action, d time.Duration) {
	if h.OnEffectDone != nil {
		h.OnEffectDone(req, c, d)
	}
}

func (h Hooks) recorded(rec ir.UndoRecord) {
	if h.OnRecord != nil {
		h.OnRecord(rec)
	}
}
