package ir

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"slices"

	"github.com/mitchellh/mapstructure"
)

// ErrUnknownKind is returned when decoding an action whose kind is not
// registered.
var ErrUnknownKind = errors.New("unknown action kind")

type codec struct {
	fromJSON func(data []byte) (Action, error)
	fromMap  func(m map[string]any) (Action, error)
}

func codecFor[T Action]() codec {
	return codec{
		fromJSON: func(data []byte) (Action, error) {
			var v T
			if err := json.Unmarshal(data, &v); err != nil {
				return nil, err
			}
			return v, nil
		},
		fromMap: func(m map[string]any) (Action, error) {
			var v T
			if err := decodeMap(m, &v); err != nil {
				return nil, err
			}
			return v, nil
		},
	}
}

// registry is filled in init: its codecs reach FromMap through nested
// PushUndo records, which reads registry.
var registry map[Kind]codec

func init() {
	registry = map[Kind]codec{
		KindInit:        codecFor[Init](),
		KindIncA:        codecFor[IncA](),
		KindAddToA:      codecFor[AddToA](),
		KindSetA:        codecFor[SetA](),
		KindAppendToB:   codecFor[AppendToB](),
		KindSetB:        codecFor[SetB](),
		KindLoadStuff:   codecFor[LoadStuff](),
		KindSetStuff:    codecFor[SetStuff](),
		KindStuffFailed: codecFor[StuffFailed](),
		KindResetStuff:  codecFor[ResetStuff](),
		KindCancelStuff: codecFor[CancelStuff](),
		KindFetchCount:  codecFor[FetchCount](),
		KindIncCount:    codecFor[IncCount](),
		KindCountLoaded: codecFor[CountLoaded](),
		KindCountFailed: codecFor[CountFailed](),
		KindPushUndo:    codecFor[PushUndo](),
		KindUndo:        codecFor[Undo](),
		KindRedo:        codecFor[Redo](),
		KindClearUndo:   codecFor[ClearUndo](),
	}
}

// Kinds returns every registered kind in lexical order.
func Kinds() []Kind {
	kinds := make([]Kind, 0, len(registry))
	for k := range registry {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	return kinds
}

// Known reports whether k is a registered kind.
func Known(k Kind) bool {
	_, ok := registry[k]
	return ok
}

// Marshal encodes a as a JSON object with a "kind" discriminator.
// Keys are emitted in sorted order.
func Marshal(a Action) ([]byte, error) {
	if a == nil {
		return nil, errors.New("marshal action: nil action")
	}

	body, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", a.Kind(), err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("marshal %s: %w", a.Kind(), err)
	}
	kind, _ := json.Marshal(string(a.Kind()))
	fields["kind"] = kind

	return json.Marshal(fields)
}

// Unmarshal decodes a JSON object produced by Marshal (or written by hand)
// into the concrete action type named by its "kind" field.
func Unmarshal(data []byte) (Action, error) {
	var head struct {
		Kind Kind `json:"kind"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("unmarshal action: %w", err)
	}
	if head.Kind == "" {
		return nil, errors.New("unmarshal action: missing kind")
	}

	c, ok := registry[head.Kind]
	if !ok {
		return nil, fmt.Errorf("unmarshal action: %w: %q", ErrUnknownKind, head.Kind)
	}

	a, err := c.fromJSON(data)
	if err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", head.Kind, err)
	}
	return a, nil
}

// FromMap decodes a loosely typed map (from YAML, CUE or a form body) into
// an action. Numeric fields accept any integer-like value; unknown fields
// are rejected so that typos surface instead of being ignored.
func FromMap(m map[string]any) (Action, error) {
	raw, ok := m["kind"]
	if !ok {
		return nil, errors.New("decode action: missing kind")
	}
	kindStr, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("decode action: kind must be a string, got %T", raw)
	}

	c, ok := registry[Kind(kindStr)]
	if !ok {
		return nil, fmt.Errorf("decode action: %w: %q", ErrUnknownKind, kindStr)
	}

	fields := make(map[string]any, len(m))
	for k, v := range m {
		if k != "kind" {
			fields[k] = v
		}
	}

	a, err := c.fromMap(fields)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", kindStr, err)
	}
	return a, nil
}

var actionType = reflect.TypeOf((*Action)(nil)).Elem()

// actionHook lets nested actions (PushUndo records) decode from maps.
func actionHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to != actionType {
		return data, nil
	}
	m, ok := data.(map[string]any)
	if !ok {
		return data, nil
	}
	return FromMap(m)
}

func decodeMap(m map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Squash:           true,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook:       actionHook,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(m)
}
