package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rewind/internal/ir"
)

func rec(prev int64) ir.UndoRecord {
	return ir.UndoRecord{Inverse: ir.SetA{A: prev}, Forward: ir.IncA{}, Description: "inc A"}
}

func TestReduceHistoryPushClearsRedo(t *testing.T) {
	h := History{Redo: []ir.UndoRecord{rec(1)}}

	h = ReduceHistory(h, ir.PushUndo{Record: rec(2)})
	assert.Equal(t, []ir.UndoRecord{rec(2)}, h.Undo)
	assert.Empty(t, h.Redo)
}

func TestReduceHistoryUndoRedoMoveHead(t *testing.T) {
	var h History
	h = ReduceHistory(h, ir.PushUndo{Record: rec(13)})
	h = ReduceHistory(h, ir.PushUndo{Record: rec(14)})
	require.Equal(t, []ir.UndoRecord{rec(14), rec(13)}, h.Undo)

	h = ReduceHistory(h, ir.Undo{})
	assert.Equal(t, []ir.UndoRecord{rec(13)}, h.Undo)
	assert.Equal(t, []ir.UndoRecord{rec(14)}, h.Redo)

	h = ReduceHistory(h, ir.Redo{})
	assert.Equal(t, []ir.UndoRecord{rec(14), rec(13)}, h.Undo)
	assert.Nil(t, h.Redo)
}

func TestReduceHistoryEmptyStacksNoop(t *testing.T) {
	var h History
	assert.Equal(t, h, ReduceHistory(h, ir.Undo{}))
	assert.Equal(t, h, ReduceHistory(h, ir.Redo{}))
	assert.False(t, h.CanUndo())
	assert.False(t, h.CanRedo())
}

func TestReduceHistoryClear(t *testing.T) {
	h := History{Undo: []ir.UndoRecord{rec(1)}, Redo: []ir.UndoRecord{rec(2)}}
	assert.Equal(t, History{}, ReduceHistory(h, ir.ClearUndo{}))
}

func TestReduceHistoryDoesNotAlias(t *testing.T) {
	base := ReduceHistory(History{}, ir.PushUndo{Record: rec(1)})
	a := ReduceHistory(base, ir.PushUndo{Record: rec(2)})
	b := ReduceHistory(base, ir.PushUndo{Record: rec(3)})

	assert.Equal(t, rec(2), a.Undo[0])
	assert.Equal(t, rec(3), b.Undo[0])
	assert.Equal(t, []ir.UndoRecord{rec(1)}, base.Undo)
}
