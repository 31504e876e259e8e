package state

import "github.com/roach88/rewind/internal/ir"

// CountStatus is the lifecycle of the remote counter view.
type CountStatus string

const (
	CountIdle    CountStatus = "idle"
	CountLoading CountStatus = "loading"
	CountLoaded  CountStatus = "loaded"
	CountFailed  CountStatus = "failed"
)

// Counter mirrors the remote counter service. Count keeps the last known
// value while a request is in flight.
type Counter struct {
	ID     string       `json:"id"`
	Count  int64        `json:"count"`
	Status CountStatus  `json:"status"`
	Error  string       `json:"error"`
	Key    ir.EffectKey `json:"key"`
}

// ReduceCounter is the reducer for the counter slice. Only the completion
// of the latest request is applied.
func ReduceCounter(s Counter, a ir.Action) Counter {
	switch act := a.(type) {
	case ir.FetchCount:
		s.Status, s.Key, s.Error = CountLoading, act.Key, ""
	case ir.IncCount:
		s.Status, s.Key, s.Error = CountLoading, act.Key, ""
	case ir.CountLoaded:
		if act.Key == "" || act.Key == s.Key {
			s.ID, s.Count, s.Status, s.Error = act.ID, act.Count, CountLoaded, ""
		}
	case ir.CountFailed:
		if act.Key == "" || act.Key == s.Key {
			s.Status, s.Error = CountFailed, act.Error
		}
	}
	return s
}
