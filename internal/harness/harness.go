package harness

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"slices"
	"time"

	"github.com/roach88/rewind/internal/engine"
	"github.com/roach88/rewind/internal/ir"
	"github.com/roach88/rewind/internal/logging"
	"github.com/roach88/rewind/internal/state"
	"github.com/roach88/rewind/internal/store"
	"github.com/roach88/rewind/internal/testutil"
)

// DefaultSettleTimeout bounds each settle step.
const DefaultSettleTimeout = 5 * time.Second

// Option configures Run.
type Option func(*runner)

// WithLogger passes l to the engine. Runs are silent by default.
func WithLogger(l *slog.Logger) Option {
	return func(r *runner) {
		r.logger = l
	}
}

// WithSettleTimeout bounds each settle step.
func WithSettleTimeout(d time.Duration) Option {
	return func(r *runner) {
		r.settleTimeout = d
	}
}

// WithJournal also writes every commit to j, e.g. a SQLite store, in
// addition to the in-memory journal the trace is built from.
func WithJournal(j engine.Journal) Option {
	return func(r *runner) {
		r.extra = j
	}
}

type runner struct {
	logger        *slog.Logger
	settleTimeout time.Duration
	extra         engine.Journal

	engine    *engine.Engine
	performer *testutil.FakePerformer
	journal   *store.Memory
}

// teeJournal writes to the in-memory journal and an optional second one.
type teeJournal struct {
	primary *store.Memory
	extra   engine.Journal
}

func (t teeJournal) Append(ctx context.Context, e store.Entry) error {
	if err := t.primary.Append(ctx, e); err != nil {
		return err
	}
	if t.extra != nil {
		return t.extra.Append(ctx, e)
	}
	return nil
}

// Run executes s against a fresh engine and returns the result.
//
// An error means the scenario could not be executed (bad action map,
// settle timeout). Failed expectations and assertions are reported in
// Result.Errors instead.
func Run(ctx context.Context, s *Scenario, opts ...Option) (*Result, error) {
	r := &runner{
		logger:        logging.NewNop(),
		settleTimeout: DefaultSettleTimeout,
		performer:     testutil.NewFakePerformer(),
		journal:       store.NewMemory(),
	}
	for _, opt := range opts {
		opt(r)
	}

	for op, raw := range s.Auto {
		v, err := ir.FromGo(raw)
		if err != nil {
			return nil, fmt.Errorf("auto %s: %w", op, err)
		}
		r.performer.AutoResolve(op, v)
	}

	var keys engine.KeyGenerator = engine.NewSequenceKeys("fx")
	if len(s.Keys) > 0 {
		keys = testutil.NewFixedKeys(s.Keys...)
	}

	r.engine = engine.New(initialTree(s.Initial), r.performer,
		engine.WithLogger(r.logger),
		engine.WithKeys(keys),
		engine.WithJournal(teeJournal{primary: r.journal, extra: r.extra}, s.Name),
	)
	defer r.engine.Close()

	result := NewResult(s.Name)
	for i, step := range s.Steps {
		if err := r.step(ctx, i, step, result); err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
	}

	// Captured before Close, which would cancel and apply any effect the
	// scenario left running.
	trace, err := buildTrace(r.journal.Entries())
	if err != nil {
		return nil, err
	}
	result.Trace = trace
	result.State = r.engine.State()

	for _, msg := range EvaluateAssertions(result, s.Assertions) {
		result.AddError(msg)
	}

	r.logger.Info("scenario finished", "name", s.Name, "pass", result.Pass, "commits", len(result.Trace))
	return result, nil
}

func initialTree(in *Initial) state.Tree {
	t := state.Initial()
	if in == nil {
		return t
	}
	if in.A != nil {
		t.Thing.A = *in.A
	}
	if in.B != nil {
		t.Thing.B = *in.B
	}
	return t
}

func (r *runner) step(ctx context.Context, i int, step Step, result *Result) error {
	switch {
	case step.Dispatch != nil:
		a, err := ir.FromMap(step.Dispatch)
		if err != nil {
			return err
		}
		r.engine.Dispatch(a)

	case step.Resolve != nil:
		v, err := ir.FromGo(step.Resolve.Value)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", step.Resolve.Key, err)
		}
		if err := r.performer.Resolve(ir.EffectKey(step.Resolve.Key), v); err != nil {
			return err
		}

	case step.Fail != nil:
		if err := r.performer.Fail(ir.EffectKey(step.Fail.Key), errors.New(step.Fail.Error)); err != nil {
			return err
		}

	case step.Settle:
		sctx, cancel := context.WithTimeout(ctx, r.settleTimeout)
		defer cancel()
		if err := r.engine.Settle(sctx); err != nil {
			return fmt.Errorf("settle: %w", err)
		}
	}

	for _, path := range sortedKeys(step.Expect) {
		if msg := checkValue(r.engine.State(), path, step.Expect[path]); msg != "" {
			result.AddError(fmt.Sprintf("steps[%d]: %s", i, msg))
		}
	}
	return nil
}

// checkValue compares the value at path with want and returns a failure
// message, or "" if they match.
func checkValue(t state.Tree, path string, want any) string {
	got, err := state.Select(t, path)
	if err != nil {
		return err.Error()
	}
	w, err := state.Generic(want)
	if err != nil {
		return fmt.Sprintf("%s: bad expected value: %v", path, err)
	}
	if !reflect.DeepEqual(got, w) {
		return fmt.Sprintf("%s: expected %v (%T), got %v (%T)", path, w, w, got, got)
	}
	return ""
}

func buildTrace(entries []store.Entry) ([]TraceEvent, error) {
	trace := make([]TraceEvent, 0, len(entries))
	for _, e := range entries {
		generic, err := state.Generic(json.RawMessage(e.Action))
		if err != nil {
			return nil, fmt.Errorf("seq %d: %w", e.Seq, err)
		}
		action, ok := generic.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("seq %d: action is %T, not an object", e.Seq, generic)
		}
		trace = append(trace, TraceEvent{
			Seq:    e.Seq,
			Depth:  e.Depth,
			Kind:   e.Kind,
			Replay: e.Replay,
			Action: action,
		})
	}
	return trace, nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
