package cli

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rewind/internal/engine"
	"github.com/roach88/rewind/internal/ir"
	"github.com/roach88/rewind/internal/state"
	"github.com/roach88/rewind/internal/store"
)

// writeJournal records incA, Undo under run "demo" and returns the path.
func writeJournal(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "journal.db")
	st, err := store.Open(path)
	require.NoError(t, err)

	e := engine.New(state.Initial(), nil, engine.WithJournal(st, "demo"))
	e.Dispatch(ir.IncA{})
	e.Dispatch(ir.Undo{})
	e.Close()
	require.NoError(t, st.Close())
	return path
}

func TestTrace_ListRuns(t *testing.T) {
	path := writeJournal(t)

	out, err := execute(t, "", "trace", "--journal", path)
	require.NoError(t, err)
	assert.Equal(t, "demo\n", out)

	out, err = execute(t, "", "--format", "json", "trace", "--journal", path)
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   RunsResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, []string{"demo"}, resp.Data.Runs)
}

func TestTrace_Text(t *testing.T) {
	path := writeJournal(t)

	out, err := execute(t, "", "trace", "--journal", path, "--run", "demo")
	require.NoError(t, err)

	assert.Contains(t, out, "Trace for run: demo")
	assert.Contains(t, out, "  [1] incA\n")
	assert.Contains(t, out, "  [2]   PushUndo\n")
	assert.Contains(t, out, "  [3]   setA (replay)\n")
	assert.Contains(t, out, "  [4] Undo\n")
	assert.Contains(t, out, "Commits:   4")
	assert.Contains(t, out, "Replays:   1")
	assert.Contains(t, out, "Max depth: 1")
	assert.Less(t, strings.Index(out, "[3]"), strings.Index(out, "[4]"))
}

func TestTrace_JSONKindFilter(t *testing.T) {
	path := writeJournal(t)

	out, err := execute(t, "", "--format", "json", "trace", "--journal", path, "--run", "demo", "--kind", "setA")
	require.NoError(t, err)

	var resp struct {
		Status string      `json:"status"`
		Data   TraceResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data.Entries, 1)
	assert.True(t, resp.Data.Entries[0].Replay)
	assert.JSONEq(t, `{"kind":"setA","a":13,"replay":true}`, resp.Data.Entries[0].Action)
	assert.Equal(t, 4, resp.Data.Stats.Commits)
	assert.Equal(t, int64(4), resp.Data.Stats.LastSeq)
}

func TestTrace_Errors(t *testing.T) {
	path := writeJournal(t)

	tests := []struct {
		name string
		args []string
		msg  string
	}{
		{"no journal", []string{"trace"}, "no journal"},
		{"missing file", []string{"trace", "--journal", filepath.Join(t.TempDir(), "nope.db")}, "journal not found"},
		{"unknown run", []string{"trace", "--journal", path, "--run", "other"}, "no commits for run: other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, "", tt.args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestTrace_Filters(t *testing.T) {
	path := writeJournal(t)

	tests := []struct {
		name string
		args []string
		want []string
		not  []string
	}{
		{"outermost", []string{"--max-depth", "0"}, []string{"[1] incA", "[4] Undo"}, []string{"PushUndo", "setA"}},
		{"replays", []string{"--replays"}, []string{"[3]   setA (replay)"}, []string{"incA\n", "Undo\n"}},
		{"seq range", []string{"--from", "2", "--to", "3"}, []string{"PushUndo", "setA"}, []string{"[1]", "[4]"}},
		{"kinds", []string{"--kind", "incA,Undo"}, []string{"[1] incA", "[4] Undo"}, []string{"PushUndo"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"trace", "--journal", path, "--run", "demo"}, tt.args...)
			out, err := execute(t, "", args...)
			require.NoError(t, err)
			timeline := out[:strings.Index(out, "=== Stats ===")]
			for _, w := range tt.want {
				assert.Contains(t, timeline, w)
			}
			for _, n := range tt.not {
				assert.NotContains(t, timeline, n)
			}
			assert.Contains(t, out, "Commits:   4", "stats cover the whole run")
		})
	}
}
