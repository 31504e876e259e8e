package harness

import (
	"github.com/roach88/rewind/internal/state"
)

// TraceEvent is one reducer commit as journaled by the engine.
type TraceEvent struct {
	Seq    int64          `json:"seq"`
	Depth  int            `json:"depth"`
	Kind   string         `json:"kind"`
	Replay bool           `json:"replay"`
	Action map[string]any `json:"action"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Name of the scenario that produced this result.
	Name string `json:"name"`

	// Pass is true if every expect step and assertion held.
	Pass bool `json:"pass"`

	// Trace lists every commit in seq order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// State is the tree after the last step.
	State state.Tree `json:"state"`
}

// NewResult creates a passing result with an empty trace.
func NewResult(name string) *Result {
	return &Result{
		Name:   name,
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError records a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Kinds returns the kind of every trace event, in order.
func (r *Result) Kinds() []string {
	out := make([]string, len(r.Trace))
	for i, ev := range r.Trace {
		out[i] = ev.Kind
	}
	return out
}
