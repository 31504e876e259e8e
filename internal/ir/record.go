package ir

import (
	"encoding/json"
	"fmt"
)

// UndoRecord is one entry of the undo or redo stack.
//
// INVARIANT: applying Inverse to the state produced by Forward reproduces
// the state that existed before Forward, for every kind registered as
// invertible.
type UndoRecord struct {
	Inverse     Action `json:"inverse"`
	Forward     Action `json:"forward"`
	Description string `json:"description"`
}

type undoRecordJSON struct {
	Inverse     json.RawMessage `json:"inverse"`
	Forward     json.RawMessage `json:"forward"`
	Description string          `json:"description"`
}

// MarshalJSON encodes both actions with their kind discriminator.
func (r UndoRecord) MarshalJSON() ([]byte, error) {
	var out undoRecordJSON
	var err error

	if r.Inverse != nil {
		if out.Inverse, err = Marshal(r.Inverse); err != nil {
			return nil, fmt.Errorf("inverse: %w", err)
		}
	}
	if r.Forward != nil {
		if out.Forward, err = Marshal(r.Forward); err != nil {
			return nil, fmt.Errorf("forward: %w", err)
		}
	}
	out.Description = r.Description

	return json.Marshal(out)
}

// UnmarshalJSON decodes both actions through the kind registry.
func (r *UndoRecord) UnmarshalJSON(data []byte) error {
	var in undoRecordJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	rec := UndoRecord{Description: in.Description}
	if len(in.Inverse) > 0 && string(in.Inverse) != "null" {
		a, err := Unmarshal(in.Inverse)
		if err != nil {
			return fmt.Errorf("inverse: %w", err)
		}
		rec.Inverse = a
	}
	if len(in.Forward) > 0 && string(in.Forward) != "null" {
		a, err := Unmarshal(in.Forward)
		if err != nil {
			return fmt.Errorf("forward: %w", err)
		}
		rec.Forward = a
	}

	*r = rec
	return nil
}
