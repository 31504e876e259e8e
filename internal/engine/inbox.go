package engine

import (
	"sync"

	"github.com/roach88/rewind/internal/ir"
)

// inbox is the FIFO of completion actions waiting to be dispatched.
//
// Besides queued completions it counts effects still running (reserved
// but not yet delivered) and completions taken but not yet applied, so
// that Settle can tell when nothing more can arrive.
//
// Waiters get a channel from state(); it is closed on every change and
// replaced, which wakes all waiters at once.
type inbox struct {
	mu       sync.Mutex
	items    []ir.Action
	inflight int
	applying int
	closed   bool
	changed  chan struct{}
}

func newInbox() *inbox {
	return &inbox{
		items:   make([]ir.Action, 0, 16),
		changed: make(chan struct{}),
	}
}

// broadcast must be called with mu held.
func (q *inbox) broadcast() {
	close(q.changed)
	q.changed = make(chan struct{})
}

// reserve records that an effect has started.
func (q *inbox) reserve() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.inflight++
}

// deliver queues the completion of a reserved effect.
// Returns false if the inbox is closed; the reservation is released either way.
func (q *inbox) deliver(a ir.Action) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.inflight--
	if q.closed {
		q.broadcast()
		return false
	}
	q.items = append(q.items, a)
	q.broadcast()
	return true
}

// take removes the front completion. The caller must call done once the
// completion has been dispatched.
func (q *inbox) take() (ir.Action, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return nil, false
	}
	a := q.items[0]
	q.items[0] = nil
	if len(q.items) == 1 {
		q.items = q.items[:0]
	} else {
		q.items = q.items[1:]
	}
	q.applying++
	return a, true
}

func (q *inbox) done() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.applying--
	q.broadcast()
}

// status reports whether nothing is queued, running or being applied,
// whether the inbox is closed, and a channel closed on the next change.
func (q *inbox) status() (idle, closed bool, changed <-chan struct{}) {
	q.mu.Lock()
	defer q.mu.Unlock()
	idle = len(q.items) == 0 && q.inflight == 0 && q.applying == 0
	return idle, q.closed, q.changed
}

// inFlight returns the number of effects that have not delivered yet.
func (q *inbox) inFlight() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.inflight
}

// close stops accepting completions and wakes every waiter.
func (q *inbox) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.broadcast()
}
