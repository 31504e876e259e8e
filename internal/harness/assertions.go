package harness

import (
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/roach88/rewind/internal/state"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, ev := range e.Trace {
			replay := ""
			if ev.Replay {
				replay = " (replay)"
			}
			fmt.Fprintf(&buf, "  [%d]%s %s%s %v\n", ev.Seq, strings.Repeat("  ", ev.Depth), ev.Kind, replay, ev.Action)
		}
	}

	return buf.String()
}

func matchesReplay(ev TraceEvent, want *bool) bool {
	return want == nil || ev.Replay == *want
}

// assertTraceContains checks for a commit of the given kind whose action
// has every field in a.Fields (subset match).
func assertTraceContains(trace []TraceEvent, a Assertion) error {
	want, err := genericFields(a.Fields)
	if err != nil {
		return err
	}
	for _, ev := range trace {
		if ev.Kind == a.Kind && matchesReplay(ev, a.Replay) && matchFields(ev.Action, want) {
			return nil
		}
	}

	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("%s with fields %v", describeKind(a.Kind, a.Replay), want),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks that the kinds occur as a subsequence of the
// trace. Other commits may come in between.
func assertTraceOrder(trace []TraceEvent, a Assertion) error {
	next := 0
	for _, ev := range trace {
		if next < len(a.Kinds) && ev.Kind == a.Kinds[next] {
			next++
		}
	}
	if next == len(a.Kinds) {
		return nil
	}

	return &AssertionError{
		Type:     AssertTraceOrder,
		Expected: fmt.Sprintf("kinds in order: %v", a.Kinds),
		Actual:   fmt.Sprintf("matched %v, then no %s", a.Kinds[:next], a.Kinds[next]),
		Trace:    trace,
	}
}

// assertTraceCount checks the number of commits of a kind.
func assertTraceCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, ev := range trace {
		if ev.Kind == a.Kind && matchesReplay(ev, a.Replay) {
			count++
		}
	}

	if count != a.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", a.Count, describeKind(a.Kind, a.Replay)),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertFinalState checks one value of the final tree.
func assertFinalState(t state.Tree, a Assertion) error {
	if msg := checkValue(t, a.Path, a.Equals); msg != "" {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("%s = %v", a.Path, a.Equals),
			Actual:   msg,
		}
	}
	return nil
}

// assertHistory checks stack sizes and the undo descriptions.
func assertHistory(h state.History, a Assertion) error {
	fail := func(expected, actual string) error {
		return &AssertionError{Type: AssertHistory, Expected: expected, Actual: actual}
	}

	if a.Undo != nil && len(h.Undo) != *a.Undo {
		return fail(fmt.Sprintf("%d undo records", *a.Undo), fmt.Sprintf("%d", len(h.Undo)))
	}
	if a.Redo != nil && len(h.Redo) != *a.Redo {
		return fail(fmt.Sprintf("%d redo records", *a.Redo), fmt.Sprintf("%d", len(h.Redo)))
	}
	if a.Descriptions != nil {
		got := make([]string, len(h.Undo))
		for i, rec := range h.Undo {
			got[i] = rec.Description
		}
		if !slices.Equal(got, a.Descriptions) {
			return fail(fmt.Sprintf("undo descriptions %q", a.Descriptions), fmt.Sprintf("%q", got))
		}
	}
	return nil
}

func describeKind(kind string, replay *bool) string {
	switch {
	case replay == nil:
		return kind
	case *replay:
		return kind + " (replay)"
	default:
		return kind + " (original)"
	}
}

func genericFields(fields map[string]any) (map[string]any, error) {
	if len(fields) == 0 {
		return nil, nil
	}
	g, err := state.Generic(fields)
	if err != nil {
		return nil, fmt.Errorf("bad fields: %w", err)
	}
	return g.(map[string]any), nil
}

// matchFields reports whether actual has every key of want with an equal
// value. Extra keys in actual are ignored.
func matchFields(actual, want map[string]any) bool {
	for k, v := range want {
		got, ok := actual[k]
		if !ok || !reflect.DeepEqual(got, v) {
			return false
		}
	}
	return true
}

// EvaluateAssertions evaluates all assertions against the result and
// returns a message for each failure.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string

	for i, a := range assertions {
		var err error

		switch a.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, a)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, a)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, a)
		case AssertFinalState:
			err = assertFinalState(result.State, a)
		case AssertHistory:
			err = assertHistory(result.State.History, a)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, a.Type)
		}

		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	return errs
}
