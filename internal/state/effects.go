package state

import (
	"slices"

	"github.com/roach88/rewind/internal/ir"
)

// EffectStatus is the lifecycle of one pending effect.
type EffectStatus string

const (
	EffectPending   EffectStatus = "pending"
	EffectSucceeded EffectStatus = "succeeded"
	EffectFailed    EffectStatus = "failed"
	EffectCancelled EffectStatus = "cancelled"
)

// Terminal reports whether no further transition is possible.
func (s EffectStatus) Terminal() bool {
	return s != EffectPending
}

// PendingEffect correlates an effect key with its trigger and outcome.
// Entries are kept after they reach a terminal status.
type PendingEffect struct {
	Key     ir.EffectKey `json:"key"`
	Trigger ir.Kind      `json:"trigger"`
	Status  EffectStatus `json:"status"`
	Result  ir.IRValue   `json:"result,omitempty"`
	Error   string       `json:"error,omitempty"`
}

// Effects lists pending and settled effects in the order they were first
// scheduled. There is at most one entry per key.
type Effects struct {
	Pending []PendingEffect `json:"pending"`
}

// Find returns the entry for key.
func (s Effects) Find(key ir.EffectKey) (PendingEffect, bool) {
	i := s.index(key)
	if i < 0 {
		return PendingEffect{}, false
	}
	return s.Pending[i], true
}

// InFlight counts entries that are still pending.
func (s Effects) InFlight() int {
	n := 0
	for _, p := range s.Pending {
		if !p.Status.Terminal() {
			n++
		}
	}
	return n
}

func (s Effects) index(key ir.EffectKey) int {
	return slices.IndexFunc(s.Pending, func(p PendingEffect) bool { return p.Key == key })
}

// ReduceEffects is the reducer for the effects slice.
//
// A trigger with a key already present replaces that entry (the caller
// reused the key on purpose). Completions only move pending entries; a
// completion for a cancelled or unknown key is dropped.
func ReduceEffects(s Effects, a ir.Action) Effects {
	switch act := a.(type) {
	case ir.Trigger:
		if act.EffectKey() == "" {
			return s
		}
		return s.put(PendingEffect{Key: act.EffectKey(), Trigger: act.Kind(), Status: EffectPending})
	case ir.SetStuff:
		return s.settle(act.Key, EffectSucceeded, ir.IRString(act.Stuff), "")
	case ir.StuffFailed:
		return s.settle(act.Key, EffectFailed, nil, act.Error)
	case ir.CountLoaded:
		result := ir.IRObject{"id": ir.IRString(act.ID), "count": ir.IRInt(act.Count)}
		return s.settle(act.Key, EffectSucceeded, result, "")
	case ir.CountFailed:
		return s.settle(act.Key, EffectFailed, nil, act.Error)
	case ir.CancelStuff:
		return s.cancelLoads(act.Key)
	}
	return s
}

func (s Effects) put(p PendingEffect) Effects {
	next := slices.Clone(s.Pending)
	if i := s.index(p.Key); i >= 0 {
		next[i] = p
	} else {
		next = append(next, p)
	}
	return Effects{Pending: next}
}

func (s Effects) settle(key ir.EffectKey, status EffectStatus, result ir.IRValue, errMsg string) Effects {
	i := s.index(key)
	if key == "" || i < 0 || s.Pending[i].Status.Terminal() {
		return s
	}
	next := slices.Clone(s.Pending)
	next[i].Status = status
	next[i].Result = result
	next[i].Error = errMsg
	return Effects{Pending: next}
}

func (s Effects) cancelLoads(key ir.EffectKey) Effects {
	var next []PendingEffect
	for i, p := range s.Pending {
		if p.Trigger != ir.KindLoadStuff || p.Status.Terminal() {
			continue
		}
		if key != "" && p.Key != key {
			continue
		}
		if next == nil {
			next = slices.Clone(s.Pending)
		}
		next[i].Status = EffectCancelled
	}
	if next == nil {
		return s
	}
	return Effects{Pending: next}
}
