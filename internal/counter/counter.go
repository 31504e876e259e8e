// Package counter is the remote counter service that FetchCount and
// IncCount talk to.
//
// A Backend holds one named counter. Memory and Redis store it; Client
// reaches a Backend served by NewHandler over HTTP. Performer turns any
// Backend into the effect operations counter.get and counter.inc.
package counter

import (
	"context"
	"sync"
)

// DefaultID names the counter when none is configured.
const DefaultID = "main"

// Count is the service's only result shape.
type Count struct {
	ID    string `json:"id"`
	Count int64  `json:"count"`
}

// Backend reads and increments one counter.
type Backend interface {
	Get(ctx context.Context) (Count, error)
	Inc(ctx context.Context) (Count, error)
}

// Memory is an in-process Backend.
type Memory struct {
	mu    sync.Mutex
	id    string
	count int64
}

// NewMemory creates a counter starting at zero. An empty id means DefaultID.
func NewMemory(id string) *Memory {
	if id == "" {
		id = DefaultID
	}
	return &Memory{id: id}
}

// Get implements Backend.
func (m *Memory) Get(ctx context.Context) (Count, error) {
	if err := ctx.Err(); err != nil {
		return Count{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return Count{ID: m.id, Count: m.count}, nil
}

// Inc implements Backend.
func (m *Memory) Inc(ctx context.Context) (Count, error) {
	if err := ctx.Err(); err != nil {
		return Count{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count++
	return Count{ID: m.id, Count: m.count}, nil
}
