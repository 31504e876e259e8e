// Package store provides the SQLite dispatch journal.
//
// Every reducer commit the engine performs is appended as one row: the
// run it belongs to, its logical seq, its nesting depth, the canonical
// action JSON and digests of the action and of the resulting state.
//
// The journal is a trace for inspection (rewind trace) and for comparing
// runs. Nothing is restored from it on start-up; undo history lives only
// in memory.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//
// All queries order by seq ASC so that reads are deterministic.
package store
