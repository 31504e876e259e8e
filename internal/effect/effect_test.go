package effect

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rewind/internal/ir"
)

func TestRouterDispatchesByOp(t *testing.T) {
	r := NewRouter().
		Handle(OpStuffLoad, PerformerFunc(func(context.Context, Request) (ir.IRValue, error) {
			return ir.IRString("Stuff"), nil
		})).
		Handle(OpCounterGet, PerformerFunc(func(_ context.Context, req Request) (ir.IRValue, error) {
			return ir.IRString(string(req.Key)), nil
		}))

	assert.Equal(t, []string{OpCounterGet, OpStuffLoad}, r.Ops())

	v, err := r.Perform(context.Background(), Request{Op: OpStuffLoad})
	require.NoError(t, err)
	assert.Equal(t, ir.IRString("Stuff"), v)

	v, err = r.Perform(context.Background(), Request{Op: OpCounterGet, Key: "k9"})
	require.NoError(t, err)
	assert.Equal(t, ir.IRString("k9"), v)
}

func TestRouterUnknownOp(t *testing.T) {
	_, err := NewRouter().Perform(context.Background(), Request{Op: "nope"})
	assert.ErrorIs(t, err, ErrUnknownOp)
}

func TestTimerResolves(t *testing.T) {
	v, err := Timer{Delay: time.Millisecond, Value: ir.IRString("Stuff")}.Perform(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, ir.IRString("Stuff"), v)
}

func TestTimerHonoursCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Timer{Delay: time.Hour}.Perform(ctx, Request{})
	assert.ErrorIs(t, err, context.Canceled)
}
