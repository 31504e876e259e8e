// Package harness runs scripted scenarios against a real engine and checks
// the resulting trace and state.
//
// # Scenario Format
//
// Scenarios are YAML (or CUE, or JSON) documents:
//
//	name: load_then_cancel
//	description: "A cancelled load ignores its late completion"
//	initial: { a: 13, b: hello }
//	keys: [load-1]
//	steps:
//	  - dispatch: { kind: LoadStuff }
//	  - dispatch: { kind: CancelStuff, key: load-1 }
//	  - resolve: { key: load-1, value: "late" }
//	  - settle: true
//	  - expect: { thing.stuff.status: cancelled }
//	assertions:
//	  - type: trace_order
//	    kinds: [LoadStuff, CancelStuff, SetStuff]
//	  - type: history
//	    undo: 0
//
// # Steps
//
//   - dispatch: an action as a map with a kind field
//   - resolve: succeed the effect with key, with value
//   - fail: fail the effect with key, with error
//   - settle: apply completions until no effect is in flight
//   - expect: path → value checks against the current state
//
// An expect may share a step with one of the others; it is checked after.
//
// # Assertion Types
//
//   - trace_contains: a commit of kind (and replay, if given) whose action
//     has the given fields
//   - trace_order: kinds committed in this relative order
//   - trace_count: number of commits of kind
//   - final_state: value at path after the last step
//   - history: undo/redo stack sizes and undo descriptions
//
// # Determinism
//
// Effects never run for real: a testutil.FakePerformer holds them until a
// resolve or fail step (or resolves ops listed under auto at once). Effect
// keys come from the scenario's keys list or from "fx-1", "fx-2", ...
// The trace is the engine's journal, so two runs of a scenario produce
// byte-identical goldens.
package harness
