// Package effect defines the boundary between the engine and the outside
// world: the Performer capability that runs asynchronous operations.
//
// Performers are injected into the engine, so tests can substitute a
// deterministic fake for timers and remote calls.
package effect

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/roach88/rewind/internal/ir"
)

// Operation names understood by the default effect table.
const (
	OpStuffLoad  = "stuff.load"
	OpCounterGet = "counter.get"
	OpCounterInc = "counter.inc"
)

// ErrUnknownOp is returned by a Router for an operation with no handler.
var ErrUnknownOp = errors.New("unknown effect operation")

// Request describes one effect to perform. Key is the effect key of the
// triggering action and is stable for the life of the effect.
type Request struct {
	Op   string
	Key  ir.EffectKey
	Args ir.IRObject
}

// Performer runs a request and eventually returns its result or failure.
// Implementations must honour ctx cancellation.
type Performer interface {
	Perform(ctx context.Context, req Request) (ir.IRValue, error)
}

// PerformerFunc adapts a function to Performer.
type PerformerFunc func(ctx context.Context, req Request) (ir.IRValue, error)

// Perform implements Performer.
func (f PerformerFunc) Perform(ctx context.Context, req Request) (ir.IRValue, error) {
	return f(ctx, req)
}

// Router dispatches requests to a Performer per operation.
type Router struct {
	routes map[string]Performer
}

// NewRouter creates an empty router.
func NewRouter() *Router {
	return &Router{routes: make(map[string]Performer)}
}

// Handle registers p for op, replacing any previous handler.
func (r *Router) Handle(op string, p Performer) *Router {
	r.routes[op] = p
	return r
}

// Ops lists registered operations in lexical order.
func (r *Router) Ops() []string {
	return slices.Sorted(maps.Keys(r.routes))
}

// Perform implements Performer.
func (r *Router) Perform(ctx context.Context, req Request) (ir.IRValue, error) {
	p, ok := r.routes[req.Op]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownOp, req.Op)
	}
	return p.Perform(ctx, req)
}

// Timer resolves with Value after Delay. It stands in for the timed load
// of the stuff slot.
type Timer struct {
	Delay time.Duration
	Value ir.IRValue
}

// Perform implements Performer. A cancelled ctx wins over the timer.
func (t Timer) Perform(ctx context.Context, _ Request) (ir.IRValue, error) {
	timer := time.NewTimer(t.Delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return t.Value, nil
	}
}
