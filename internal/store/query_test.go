package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryCompile(t *testing.T) {
	replay := true
	depth := 0

	tests := []struct {
		name   string
		q      Query
		where  string
		params []any
	}{
		{
			name:   "run only",
			q:      Query{Run: "r"},
			where:  "WHERE run = ? ORDER BY seq ASC",
			params: []any{"r"},
		},
		{
			name:   "kinds",
			q:      Query{Run: "r", Kinds: []string{"incA", "Undo"}},
			where:  "WHERE run = ? AND kind IN (?, ?) ORDER BY seq ASC",
			params: []any{"r", "incA", "Undo"},
		},
		{
			name:   "every filter",
			q:      Query{Run: "r", Replay: &replay, MaxDepth: &depth, FromSeq: 2, ToSeq: 9, Limit: 5},
			where:  "WHERE run = ? AND replay = ? AND depth <= ? AND seq >= ? AND seq <= ? ORDER BY seq ASC LIMIT ?",
			params: []any{"r", true, 0, int64(2), int64(9), 5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, params, err := tt.q.Compile()
			require.NoError(t, err)
			assert.Equal(t, "SELECT "+entryColumns+" FROM dispatches "+tt.where, sql)
			assert.Equal(t, tt.params, params)
		})
	}
}

func TestQueryCompileNeverInterpolates(t *testing.T) {
	sql, params, err := Query{Run: "x' OR 1=1 --", Kinds: []string{"'; DROP TABLE dispatches; --"}}.Compile()
	require.NoError(t, err)
	assert.NotContains(t, sql, "DROP")
	assert.NotContains(t, sql, "1=1")
	assert.Len(t, params, 2)
}

func TestQueryCompileErrors(t *testing.T) {
	_, _, err := Query{}.Compile()
	assert.ErrorContains(t, err, "run is required")

	_, _, err = Query{Run: "r", Limit: -1}.Compile()
	assert.ErrorContains(t, err, "negative bound")
}

func TestStoreQuery(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	push := entry("r1", 2, "PushUndo")
	push.Depth = 1
	replayed := entry("r1", 3, "setA")
	replayed.Depth = 1
	replayed.Replay = true

	for _, e := range []Entry{entry("r1", 1, "incA"), push, replayed, entry("r1", 4, "Undo"), entry("r2", 1, "incA")} {
		require.NoError(t, s.Append(ctx, e))
	}

	kinds := func(es []Entry) []string {
		out := make([]string, len(es))
		for i, e := range es {
			out[i] = e.Kind
		}
		return out
	}

	yes, zero := true, 0

	got, err := s.Query(ctx, Query{Run: "r1", Replay: &yes})
	require.NoError(t, err)
	assert.Equal(t, []string{"setA"}, kinds(got))

	got, err = s.Query(ctx, Query{Run: "r1", MaxDepth: &zero})
	require.NoError(t, err)
	assert.Equal(t, []string{"incA", "Undo"}, kinds(got))

	got, err = s.Query(ctx, Query{Run: "r1", FromSeq: 2, ToSeq: 3})
	require.NoError(t, err)
	assert.Equal(t, []string{"PushUndo", "setA"}, kinds(got))

	got, err = s.Query(ctx, Query{Run: "r1", Kinds: []string{"incA", "Undo"}, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"incA"}, kinds(got))

	got, err = s.Query(ctx, Query{Run: "r1", Kinds: []string{"ClearUndo"}})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
