package testutil

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/roach88/rewind/internal/effect"
	"github.com/roach88/rewind/internal/ir"
)

// ErrAlreadySettled is returned by Resolve and Fail for a key that was
// already given an outcome.
var ErrAlreadySettled = errors.New("effect already settled")

type outcome struct {
	value ir.IRValue
	err   error
}

type slot struct {
	ch      chan outcome
	settled bool
}

// FakePerformer is an effect.Performer whose effects block until the test
// resolves or fails them by key. Resolve may be called before the engine's
// goroutine reaches Perform; the outcome is kept until it does.
//
// Operations registered with AutoResolve complete immediately instead.
type FakePerformer struct {
	mu       sync.Mutex
	slots    map[ir.EffectKey]*slot
	auto     map[string]ir.IRValue
	requests []effect.Request
}

// NewFakePerformer creates a performer with nothing auto-resolved.
func NewFakePerformer() *FakePerformer {
	return &FakePerformer{
		slots: make(map[ir.EffectKey]*slot),
		auto:  make(map[string]ir.IRValue),
	}
}

// AutoResolve makes every request for op succeed with v at once.
func (f *FakePerformer) AutoResolve(op string, v ir.IRValue) *FakePerformer {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.auto[op] = v
	return f
}

func (f *FakePerformer) slot(key ir.EffectKey) *slot {
	s, ok := f.slots[key]
	if !ok {
		s = &slot{ch: make(chan outcome, 1)}
		f.slots[key] = s
	}
	return s
}

// Perform implements effect.Performer.
func (f *FakePerformer) Perform(ctx context.Context, req effect.Request) (ir.IRValue, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	if v, ok := f.auto[req.Op]; ok {
		f.mu.Unlock()
		return v, nil
	}
	s := f.slot(req.Key)
	f.mu.Unlock()

	select {
	case o := <-s.ch:
		return o.value, o.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Resolve completes the effect for key with v.
func (f *FakePerformer) Resolve(key ir.EffectKey, v ir.IRValue) error {
	return f.settle(key, outcome{value: v})
}

// Fail completes the effect for key with err.
func (f *FakePerformer) Fail(key ir.EffectKey, err error) error {
	if err == nil {
		err = errors.New("failed")
	}
	return f.settle(key, outcome{err: err})
}

func (f *FakePerformer) settle(key ir.EffectKey, o outcome) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	s := f.slot(key)
	if s.settled {
		return fmt.Errorf("%w: %s", ErrAlreadySettled, key)
	}
	s.settled = true
	s.ch <- o
	return nil
}

// Requests returns every request received so far, in arrival order.
func (f *FakePerformer) Requests() []effect.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.requests)
}
