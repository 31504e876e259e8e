// Package engine implements the rewind dispatch pipeline.
//
// # Pipeline
//
// Every action reaches the state tree through exactly one path:
//
//	Dispatch -> effect middleware -> undo/redo middleware -> [extra middleware] -> reducer
//
// Middleware may dispatch again through the API it is handed. Nested
// dispatches run depth-first on the caller's stack and fully commit before
// the outer dispatch continues; they are not queued. The undo middleware
// relies on this: during Undo the replayed inverse commits before the Undo
// action itself pops the history.
//
// # Effects
//
// Effect-initiating actions are forwarded unchanged (after a key is
// assigned) and their operation is started on its own goroutine. The
// dispatch returns immediately. When the operation finishes, its
// completion action is placed in the inbox. Run and Settle drain the inbox
// through the public Dispatch entry point, one completion at a time, so no
// two completions ever run middleware or reducers concurrently. Exactly one
// completion is produced per scheduled effect, including on failure, panic,
// timeout and Close.
//
// # Concurrency
//
// Dispatch is safe from any goroutine. The outermost call holds the
// pipeline lock for the whole cycle. The current tree is published through
// an atomic pointer, so State never blocks and never observes a partial
// update. Listeners run after the lock is released, once per outermost
// Dispatch, in commit order. Middleware must use the API it is given,
// never Engine.Dispatch, and listeners must not call Dispatch
// synchronously.
package engine
