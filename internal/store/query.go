package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Query selects the entries of one run. Zero fields other than Run match
// everything.
type Query struct {
	Run      string
	Kinds    []string // any of these kinds
	Replay   *bool    // only replays (true) or only originals (false)
	MaxDepth *int     // e.g. 0 for outermost dispatches only
	FromSeq  int64    // inclusive
	ToSeq    int64    // inclusive
	Limit    int
}

// Compile renders q as parameterized SQL for SQLite.
//
// Values are never interpolated, only bound to ? placeholders, and every
// query is ordered by seq so that results are deterministic.
func (q Query) Compile() (string, []any, error) {
	if q.Run == "" {
		return "", nil, errors.New("query: run is required")
	}
	if q.FromSeq < 0 || q.ToSeq < 0 || q.Limit < 0 {
		return "", nil, fmt.Errorf("query: negative bound (from %d, to %d, limit %d)", q.FromSeq, q.ToSeq, q.Limit)
	}

	preds := []string{"run = ?"}
	params := []any{q.Run}

	if len(q.Kinds) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(q.Kinds)), ", ")
		preds = append(preds, "kind IN ("+placeholders+")")
		for _, k := range q.Kinds {
			params = append(params, k)
		}
	}
	if q.Replay != nil {
		preds = append(preds, "replay = ?")
		params = append(params, *q.Replay)
	}
	if q.MaxDepth != nil {
		preds = append(preds, "depth <= ?")
		params = append(params, *q.MaxDepth)
	}
	if q.FromSeq > 0 {
		preds = append(preds, "seq >= ?")
		params = append(params, q.FromSeq)
	}
	if q.ToSeq > 0 {
		preds = append(preds, "seq <= ?")
		params = append(params, q.ToSeq)
	}

	sql := "SELECT " + entryColumns + " FROM dispatches WHERE " +
		strings.Join(preds, " AND ") + " ORDER BY seq ASC"
	if q.Limit > 0 {
		sql += " LIMIT ?"
		params = append(params, q.Limit)
	}
	return sql, params, nil
}

const entryColumns = "run, seq, depth, kind, replay, action, digest, state_digest, engine_version, schema_version"

// Query returns the entries matching q ordered by seq.
// Returns an empty slice (not nil) when nothing matches.
func (s *Store) Query(ctx context.Context, q Query) ([]Entry, error) {
	sql, params, err := q.Compile()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, sql, params...)
	if err != nil {
		return nil, fmt.Errorf("query dispatches: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(
			&e.Run, &e.Seq, &e.Depth, &e.Kind, &e.Replay,
			&e.Action, &e.Digest, &e.StateDigest, &e.EngineVersion, &e.SchemaVersion,
		); err != nil {
			return nil, fmt.Errorf("scan dispatch: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dispatches: %w", err)
	}
	return entries, nil
}
