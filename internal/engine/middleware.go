package engine

import (
	"github.com/roach88/rewind/internal/ir"
	"github.com/roach88/rewind/internal/state"
)

// Next forwards an action to the rest of the pipeline.
type Next func(a ir.Action)

// API is what middleware sees of the engine.
type API interface {
	// State returns the tree as of the last commit.
	State() state.Tree

	// Dispatch runs a through the whole pipeline, nested inside the
	// current dispatch. It returns after a has committed.
	Dispatch(a ir.Action)
}

// Middleware intercepts every action on its way to the reducer. Calling
// next zero times drops the action; calling it more than once applies it
// more than once.
type Middleware interface {
	Handle(api API, a ir.Action, next Next)
}

// MiddlewareFunc adapts a function to Middleware.
type MiddlewareFunc func(api API, a ir.Action, next Next)

// Handle implements Middleware.
func (f MiddlewareFunc) Handle(api API, a ir.Action, next Next) {
	f(api, a, next)
}

// pipelineAPI is the API handed to middleware. Its Dispatch does not take
// the pipeline lock; the outermost Dispatch already holds it.
type pipelineAPI struct {
	e *Engine
}

func (p pipelineAPI) State() state.Tree { return p.e.State() }

func (p pipelineAPI) Dispatch(a ir.Action) { p.e.dispatch(a) }

// compose builds the chain so that mws[0] sees an action first and
// terminal runs last.
func compose(api API, mws []Middleware, terminal Next) Next {
	next := terminal
	for i := len(mws) - 1; i >= 0; i-- {
		mw, n := mws[i], next
		next = func(a ir.Action) { mw.Handle(api, a, n) }
	}
	return next
}
