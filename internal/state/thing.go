package state

import "github.com/roach88/rewind/internal/ir"

// StuffStatus is the lifecycle of the timed stuff load.
type StuffStatus string

const (
	StuffIdle      StuffStatus = "idle"
	StuffLoading   StuffStatus = "loading"
	StuffLoaded    StuffStatus = "loaded"
	StuffFailed    StuffStatus = "failed"
	StuffCancelled StuffStatus = "cancelled"
)

// Thing is the main editable slice.
//
// A is int64 and wraps on overflow.
type Thing struct {
	A     int64  `json:"a"`
	B     string `json:"b"`
	Stuff Stuff  `json:"stuff"`
}

// Stuff tracks the most recent LoadStuff. Key is the effect key of the
// load that owns the slot; completions carrying another key are ignored.
type Stuff struct {
	Status StuffStatus  `json:"status"`
	Value  string       `json:"value"`
	Error  string       `json:"error"`
	Key    ir.EffectKey `json:"key"`
}

// ReduceThing is the reducer for the thing slice.
func ReduceThing(s Thing, a ir.Action) Thing {
	switch act := a.(type) {
	case ir.IncA:
		s.A++
	case ir.AddToA:
		s.A += act.Amount
	case ir.SetA:
		s.A = act.A
	case ir.AppendToB:
		s.B += act.Suffix
	case ir.SetB:
		s.B = act.B
	case ir.LoadStuff:
		s.Stuff = Stuff{Status: StuffLoading, Key: act.Key}
	case ir.SetStuff:
		if owns(s.Stuff, act.Key) {
			s.Stuff = Stuff{Status: StuffLoaded, Value: act.Stuff, Key: act.Key}
		}
	case ir.StuffFailed:
		if owns(s.Stuff, act.Key) {
			s.Stuff = Stuff{Status: StuffFailed, Error: act.Error, Key: act.Key}
		}
	case ir.CancelStuff:
		if s.Stuff.Status == StuffLoading && (act.Key == "" || act.Key == s.Stuff.Key) {
			s.Stuff.Status = StuffCancelled
		}
	case ir.ResetStuff:
		s.Stuff = Stuff{Status: StuffIdle}
	}
	return s
}

// owns reports whether a completion for key may update stuff. An unkeyed
// completion is a direct set and always applies.
func owns(s Stuff, key ir.EffectKey) bool {
	if key == "" {
		return true
	}
	return s.Status == StuffLoading && s.Key == key
}
