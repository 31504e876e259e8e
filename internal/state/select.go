package state

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrPathNotFound is returned by Select when a path segment does not exist.
var ErrPathNotFound = errors.New("path not found")

// Select reads the value at path from t. Segments are separated by "." or
// "/" and use the JSON field names; array elements are addressed by index
// ("history.undo.0.description"). An empty path selects the whole tree.
//
// The result is a plain JSON-shaped value (map[string]any, []any, string,
// int64, bool or nil) that shares nothing with t.
func Select(t Tree, path string) (any, error) {
	root, err := Generic(t)
	if err != nil {
		return nil, err
	}

	cur := root
	for _, seg := range splitPath(path) {
		switch node := cur.(type) {
		case map[string]any:
			next, ok := node[seg]
			if !ok {
				return nil, fmt.Errorf("%w: %q at %q", ErrPathNotFound, path, seg)
			}
			cur = next
		case []any:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(node) {
				return nil, fmt.Errorf("%w: %q at index %q", ErrPathNotFound, path, seg)
			}
			cur = node[i]
		default:
			return nil, fmt.Errorf("%w: %q descends into a scalar at %q", ErrPathNotFound, path, seg)
		}
	}
	return cur, nil
}

// Generic converts any JSON-encodable value into its JSON-shaped form with
// integers as int64. Used by Select and by callers comparing expected
// values read from YAML against the tree.
func Generic(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return integers(out), nil
}

func integers(v any) any {
	switch val := v.(type) {
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return n
		}
		return val.String()
	case map[string]any:
		for k, elem := range val {
			val[k] = integers(elem)
		}
		return val
	case []any:
		for i, elem := range val {
			val[i] = integers(elem)
		}
		return val
	default:
		return v
	}
}

func splitPath(path string) []string {
	return strings.FieldsFunc(path, func(r rune) bool { return r == '.' || r == '/' })
}
