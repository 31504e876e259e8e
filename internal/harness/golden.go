package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/rewind/internal/ir"
	"github.com/roach88/rewind/internal/state"
)

// GoldenDir holds golden files relative to the test's package directory.
const GoldenDir = "testdata/golden"

// Golden returns the canonical JSON snapshot of r: the scenario name, the
// final thing slice and every commit of the trace.
func (r *Result) Golden() ([]byte, error) {
	thing, err := state.Generic(r.State.Thing)
	if err != nil {
		return nil, err
	}

	trace := make([]any, len(r.Trace))
	for i, ev := range r.Trace {
		trace[i] = map[string]any{
			"seq":    ev.Seq,
			"depth":  int64(ev.Depth),
			"kind":   ev.Kind,
			"replay": ev.Replay,
			"action": ev.Action,
		}
	}

	return ir.MarshalCanonical(map[string]any{
		"scenario": r.Name,
		"thing":    thing,
		"trace":    trace,
	})
}

// AssertGolden compares r against testdata/golden/<name>.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func AssertGolden(t *testing.T, r *Result) {
	t.Helper()

	data, err := r.Golden()
	if err != nil {
		t.Fatalf("golden snapshot for %s: %v", r.Name, err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir(GoldenDir),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, r.Name, data)
}
