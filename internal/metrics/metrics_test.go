package metrics

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rewind/internal/effect"
	"github.com/roach88/rewind/internal/engine"
	"github.com/roach88/rewind/internal/ir"
	"github.com/roach88/rewind/internal/state"
	fakes "github.com/roach88/rewind/internal/testutil"
)

func newEngine(t *testing.T, m *Metrics, p effect.Performer, keys ...string) *engine.Engine {
	t.Helper()
	e := engine.New(state.Initial(), p,
		engine.WithHooks(m.Hooks()),
		engine.WithKeys(fakes.NewFixedKeys(keys...)),
	)
	t.Cleanup(e.Close)
	return e
}

func settle(t *testing.T, e *engine.Engine) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, e.Settle(ctx))
}

func TestHooks_Dispatches(t *testing.T) {
	m := New()
	e := newEngine(t, m, nil)

	e.Dispatch(ir.IncA{})
	e.Dispatch(ir.Undo{})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.dispatches.WithLabelValues("incA", "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.dispatches.WithLabelValues("PushUndo", "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.dispatches.WithLabelValues("setA", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.dispatches.WithLabelValues("Undo", "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.undoRecords))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.undoDepth))
}

func TestHooks_Effects(t *testing.T) {
	m := New()
	p := fakes.NewFakePerformer()
	e := newEngine(t, m, p, "ok-1", "bad-1")

	e.Dispatch(ir.LoadStuff{})
	e.Dispatch(ir.FetchCount{})
	assert.Equal(t, 2.0, testutil.ToFloat64(m.inFlight))

	require.NoError(t, p.Resolve("ok-1", ir.IRString("stuff")))
	require.NoError(t, p.Fail("bad-1", errors.New("unreachable")))
	settle(t, e)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.effectsStarted.WithLabelValues(effect.OpStuffLoad)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.effectsStarted.WithLabelValues(effect.OpCounterGet)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.effectsDone.WithLabelValues(effect.OpStuffLoad, OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.effectsDone.WithLabelValues(effect.OpCounterGet, OutcomeFailed)))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.inFlight))
	assert.Equal(t, 2, testutil.CollectAndCount(m.effectDuration))
}

func TestHandler(t *testing.T) {
	m := New()
	e := newEngine(t, m, nil)
	e.Dispatch(ir.IncA{})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `rewind_dispatches_total{kind="incA",replay="false"} 1`)
	assert.Contains(t, string(body), "rewind_undo_depth 1")
}
