package store

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

// Entry is one journaled reducer commit.
type Entry struct {
	Run           string `json:"run"`
	Seq           int64  `json:"seq"`
	Depth         int    `json:"depth"`
	Kind          string `json:"kind"`
	Replay        bool   `json:"replay"`
	Action        string `json:"action"`
	Digest        string `json:"digest"`
	StateDigest   string `json:"state_digest"`
	EngineVersion string `json:"engine_version"`
	SchemaVersion string `json:"schema_version"`
}

// Append writes e. A second write for the same (run, seq) is ignored.
func (s *Store) Append(ctx context.Context, e Entry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO dispatches
		(run, seq, depth, kind, replay, action, digest, state_digest, engine_version, schema_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run, seq) DO NOTHING
	`,
		e.Run,
		e.Seq,
		e.Depth,
		e.Kind,
		e.Replay,
		e.Action,
		e.Digest,
		e.StateDigest,
		e.EngineVersion,
		e.SchemaVersion,
	)
	if err != nil {
		return fmt.Errorf("append dispatch: %w", err)
	}
	return nil
}

// Read returns every entry of run ordered by seq.
// Returns an empty slice (not nil) when the run has no entries.
func (s *Store) Read(ctx context.Context, run string) ([]Entry, error) {
	return s.Query(ctx, Query{Run: run})
}

// Runs lists run identifiers in the order they were first written.
func (s *Store) Runs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run FROM dispatches
		GROUP BY run
		ORDER BY MIN(rowid) ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []string{}
	for rows.Next() {
		var run string
		if err := rows.Scan(&run); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// Memory is an in-process journal for tests and the scenario harness.
type Memory struct {
	mu      sync.Mutex
	entries []Entry
}

// NewMemory creates an empty in-memory journal.
func NewMemory() *Memory {
	return &Memory{}
}

// Append records e. It never fails.
func (m *Memory) Append(_ context.Context, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

// Entries returns a copy of everything appended so far.
func (m *Memory) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.entries)
}
