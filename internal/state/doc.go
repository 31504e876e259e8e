// Package state holds the rewind state tree and its reducers.
//
// A reducer is a pure function (slice, action) -> slice. Reducers never
// mutate their input: every change allocates a new slice value, so a Tree
// handed out to a reader stays valid after the engine replaces it.
// Unknown kinds pass through unchanged.
//
// Slices are independent. A reducer sees only its own slice; derivations
// that need the whole tree live in the engine's undo middleware.
package state
