package state

import "github.com/roach88/rewind/internal/ir"

// Tree is the root state. It is a value type: copying a Tree copies every
// slice header, and reducers never write through a shared backing array.
type Tree struct {
	Thing   Thing   `json:"thing"`
	Counter Counter `json:"counter"`
	Effects Effects `json:"effects"`
	History History `json:"history"`
}

// Initial returns the start state {a: 13, b: "hello"} with idle stuff and
// an empty history.
func Initial() Tree {
	return Tree{
		Thing: Thing{A: 13, B: "hello", Stuff: Stuff{Status: StuffIdle}},
		Counter: Counter{
			Status: CountIdle,
		},
	}
}

// Reduce applies a to every slice and assembles the results.
func Reduce(t Tree, a ir.Action) Tree {
	return Tree{
		Thing:   ReduceThing(t.Thing, a),
		Counter: ReduceCounter(t.Counter, a),
		Effects: ReduceEffects(t.Effects, a),
		History: ReduceHistory(t.History, a),
	}
}
