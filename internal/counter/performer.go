package counter

import (
	"context"
	"fmt"

	"github.com/roach88/rewind/internal/effect"
	"github.com/roach88/rewind/internal/ir"
)

// Performer runs counter.get and counter.inc against a Backend.
type Performer struct {
	backend Backend
}

// NewPerformer wraps b.
func NewPerformer(b Backend) *Performer {
	return &Performer{backend: b}
}

// Register routes both counter operations to p.
func (p *Performer) Register(r *effect.Router) *effect.Router {
	return r.Handle(effect.OpCounterGet, p).Handle(effect.OpCounterInc, p)
}

// Perform implements effect.Performer. The result is {id, count}.
func (p *Performer) Perform(ctx context.Context, req effect.Request) (ir.IRValue, error) {
	var (
		c   Count
		err error
	)
	switch req.Op {
	case effect.OpCounterGet:
		c, err = p.backend.Get(ctx)
	case effect.OpCounterInc:
		c, err = p.backend.Inc(ctx)
	default:
		return nil, fmt.Errorf("%w: %q", effect.ErrUnknownOp, req.Op)
	}
	if err != nil {
		return nil, err
	}
	return ir.IRObject{"id": ir.IRString(c.ID), "count": ir.IRInt(c.Count)}, nil
}
