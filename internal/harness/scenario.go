package harness

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/roach88/rewind/internal/ir"
)

// Scenario is a scripted run of the engine.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name" json:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description" json:"description"`

	// Initial overrides the default thing slice.
	Initial *Initial `yaml:"initial,omitempty" json:"initial,omitempty"`

	// Keys are handed out in order as effect keys. When empty, keys are
	// "fx-1", "fx-2", ...
	Keys []string `yaml:"keys,omitempty" json:"keys,omitempty"`

	// Auto maps an effect operation to the value it resolves with at once.
	Auto map[string]any `yaml:"auto,omitempty" json:"auto,omitempty"`

	// Steps run in order.
	Steps []Step `yaml:"steps" json:"steps"`

	// Assertions validate the final trace and state.
	Assertions []Assertion `yaml:"assertions" json:"assertions"`
}

// Initial seeds thing.a and thing.b.
type Initial struct {
	A *int64  `yaml:"a,omitempty" json:"a,omitempty"`
	B *string `yaml:"b,omitempty" json:"b,omitempty"`
}

// Step is one scenario instruction. See the package documentation.
type Step struct {
	Dispatch map[string]any `yaml:"dispatch,omitempty" json:"dispatch,omitempty"`
	Resolve  *Resolve       `yaml:"resolve,omitempty" json:"resolve,omitempty"`
	Fail     *Fail          `yaml:"fail,omitempty" json:"fail,omitempty"`
	Settle   bool           `yaml:"settle,omitempty" json:"settle,omitempty"`
	Expect   map[string]any `yaml:"expect,omitempty" json:"expect,omitempty"`
}

// Resolve succeeds an effect.
type Resolve struct {
	Key   string `yaml:"key" json:"key"`
	Value any    `yaml:"value" json:"value"`
}

// Fail fails an effect.
type Fail struct {
	Key   string `yaml:"key" json:"key"`
	Error string `yaml:"error" json:"error"`
}

// Assertion validates trace or final state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type" json:"type"`

	// Kind is the action kind (trace_contains, trace_count).
	Kind string `yaml:"kind,omitempty" json:"kind,omitempty"`

	// Kinds is the expected relative order (trace_order).
	Kinds []string `yaml:"kinds,omitempty" json:"kinds,omitempty"`

	// Replay restricts trace_contains and trace_count to replayed or
	// original commits.
	Replay *bool `yaml:"replay,omitempty" json:"replay,omitempty"`

	// Fields is a subset of the action's fields (trace_contains).
	Fields map[string]any `yaml:"fields,omitempty" json:"fields,omitempty"`

	// Count is the expected number of commits (trace_count).
	Count int `yaml:"count,omitempty" json:"count,omitempty"`

	// Path and Equals check one state value (final_state).
	Path   string `yaml:"path,omitempty" json:"path,omitempty"`
	Equals any    `yaml:"equals,omitempty" json:"equals,omitempty"`

	// Undo, Redo and Descriptions check the history slice (history).
	// Descriptions are most recent first.
	Undo         *int     `yaml:"undo,omitempty" json:"undo,omitempty"`
	Redo         *int     `yaml:"redo,omitempty" json:"redo,omitempty"`
	Descriptions []string `yaml:"descriptions,omitempty" json:"descriptions,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
	AssertHistory       = "history"
)

// LoadScenario reads a scenario file. The format follows the extension:
// .cue is evaluated with CUE, .json is strict JSON, anything else is YAML.
// Unknown fields are rejected so that typos surface.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var s *Scenario
	switch filepath.Ext(path) {
	case ".cue":
		s, err = ParseCUE(data, path)
	case ".json":
		s, err = ParseJSON(data)
	default:
		s, err = ParseYAML(data)
	}
	if err != nil {
		return nil, err
	}

	if err := validateScenario(s); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return s, nil
}

// ParseYAML decodes a YAML scenario without validating it.
func ParseYAML(data []byte) (*Scenario, error) {
	var s Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &s, nil
}

// ParseJSON decodes a JSON scenario without validating it. Numbers stay
// exact.
func ParseJSON(data []byte) (*Scenario, error) {
	var s Scenario
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	dec.DisallowUnknownFields()
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	return &s, nil
}

// ParseCUE evaluates a CUE scenario, which must be concrete, and decodes
// the result. filename is used in error positions.
func ParseCUE(data []byte, filename string) (*Scenario, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("failed to compile CUE: %w", err)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("CUE scenario is not concrete: %w", err)
	}

	data, err := v.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("failed to export CUE: %w", err)
	}
	return ParseJSON(data)
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, step); err != nil {
			return err
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, a); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(i int, step Step) error {
	verbs := 0
	if step.Dispatch != nil {
		verbs++
		kind, _ := step.Dispatch["kind"].(string)
		if kind == "" {
			return fmt.Errorf("steps[%d]: dispatch needs a kind", i)
		}
		if !ir.Known(ir.Kind(kind)) {
			return fmt.Errorf("steps[%d]: %w: %q", i, ir.ErrUnknownKind, kind)
		}
	}
	if step.Resolve != nil {
		verbs++
		if step.Resolve.Key == "" {
			return fmt.Errorf("steps[%d]: resolve needs a key", i)
		}
	}
	if step.Fail != nil {
		verbs++
		if step.Fail.Key == "" {
			return fmt.Errorf("steps[%d]: fail needs a key", i)
		}
	}
	if step.Settle {
		verbs++
	}

	if verbs > 1 {
		return fmt.Errorf("steps[%d]: only one of dispatch, resolve, fail, settle per step", i)
	}
	if verbs == 0 && len(step.Expect) == 0 {
		return fmt.Errorf("steps[%d]: empty step", i)
	}
	return nil
}

func validateAssertion(i int, a Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", i)
	case AssertTraceContains:
		if a.Kind == "" {
			return fmt.Errorf("assertions[%d]: kind is required for trace_contains", i)
		}
	case AssertTraceOrder:
		if len(a.Kinds) == 0 {
			return fmt.Errorf("assertions[%d]: kinds list is required for trace_order", i)
		}
	case AssertTraceCount:
		if a.Kind == "" {
			return fmt.Errorf("assertions[%d]: kind is required for trace_count", i)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", i)
		}
	case AssertFinalState:
		if a.Path == "" {
			return fmt.Errorf("assertions[%d]: path is required for final_state", i)
		}
	case AssertHistory:
		if a.Undo == nil && a.Redo == nil && a.Descriptions == nil {
			return fmt.Errorf("assertions[%d]: history needs undo, redo or descriptions", i)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", i, a.Type)
	}
	return nil
}
