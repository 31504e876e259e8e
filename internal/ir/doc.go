// Package ir defines the action representation shared by every other
// package in rewind.
//
// Actions are the only way to change the state tree. Each action is an
// immutable value of a closed set of concrete types; the unexported
// withReplay method seals the Action interface so that reducers, the
// inverse-derivation table and the codec can switch over every kind
// exhaustively.
//
// This package contains types and encodings only. All other internal
// packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - NO float types in payloads - counters are int64, results are IRValue
//   - JSON field names are camelCase and every action carries "kind"
//   - The replay flag is never set by callers; only undo/redo sets it
//   - Canonical JSON (RFC 8785) is the only encoding used for digests
package ir
