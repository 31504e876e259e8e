package state

import "github.com/roach88/rewind/internal/ir"

// History holds both stacks, most recent record first.
type History struct {
	Undo []ir.UndoRecord `json:"undo"`
	Redo []ir.UndoRecord `json:"redo"`
}

// CanUndo reports whether Undo would replay anything.
func (h History) CanUndo() bool { return len(h.Undo) > 0 }

// CanRedo reports whether Redo would replay anything.
func (h History) CanRedo() bool { return len(h.Redo) > 0 }

// ReduceHistory is the reducer for the history slice.
//
// PushUndo prepends to undo and clears redo. Undo moves the head of undo
// onto redo and Redo does the reverse; both are no-ops on an empty stack.
func ReduceHistory(h History, a ir.Action) History {
	switch act := a.(type) {
	case ir.PushUndo:
		return History{Undo: push(act.Record, h.Undo)}
	case ir.Undo:
		if len(h.Undo) == 0 {
			return h
		}
		return History{Undo: rest(h.Undo), Redo: push(h.Undo[0], h.Redo)}
	case ir.Redo:
		if len(h.Redo) == 0 {
			return h
		}
		return History{Undo: push(h.Redo[0], h.Undo), Redo: rest(h.Redo)}
	case ir.ClearUndo:
		return History{}
	}
	return h
}

func push(r ir.UndoRecord, stack []ir.UndoRecord) []ir.UndoRecord {
	next := make([]ir.UndoRecord, 0, len(stack)+1)
	next = append(next, r)
	return append(next, stack...)
}

func rest(stack []ir.UndoRecord) []ir.UndoRecord {
	if len(stack) <= 1 {
		return nil
	}
	return append([]ir.UndoRecord(nil), stack[1:]...)
}
