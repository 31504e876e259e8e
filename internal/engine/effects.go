package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/rewind/internal/effect"
	"github.com/roach88/rewind/internal/ir"
)

// DefaultEffectTimeout bounds a single effect unless WithEffectTimeout
// overrides it.
const DefaultEffectTimeout = 30 * time.Second

// EffectSpec maps an effect-initiating kind to an operation and to the
// completion built from its outcome.
//
// Complete must return a completion for every input, including a nil
// value with a non-nil err.
type EffectSpec struct {
	Op       string
	Args     func(t ir.Trigger) ir.IRObject
	Complete func(req effect.Request, v ir.IRValue, err error) ir.Action
}

// DefaultEffects returns the table for LoadStuff, FetchCount and IncCount.
func DefaultEffects() map[ir.Kind]EffectSpec {
	return map[ir.Kind]EffectSpec{
		ir.KindLoadStuff:  {Op: effect.OpStuffLoad, Complete: completeStuff},
		ir.KindFetchCount: {Op: effect.OpCounterGet, Complete: completeCount},
		ir.KindIncCount:   {Op: effect.OpCounterInc, Complete: completeCount},
	}
}

func completeStuff(req effect.Request, v ir.IRValue, err error) ir.Action {
	if err != nil {
		return ir.StuffFailed{Key: req.Key, Error: err.Error()}
	}
	s, ok := v.(ir.IRString)
	if !ok {
		return ir.StuffFailed{Key: req.Key, Error: badResult(req, "string", v).Error()}
	}
	return ir.SetStuff{Key: req.Key, Stuff: string(s)}
}

func completeCount(req effect.Request, v ir.IRValue, err error) ir.Action {
	if err != nil {
		return ir.CountFailed{Key: req.Key, Error: err.Error()}
	}
	obj, ok := v.(ir.IRObject)
	if !ok {
		return ir.CountFailed{Key: req.Key, Error: badResult(req, "object", v).Error()}
	}
	id, idOK := obj.String("id")
	count, countOK := obj.Int("count")
	if !idOK || !countOK {
		return ir.CountFailed{Key: req.Key, Error: badResult(req, "{id, count}", v).Error()}
	}
	return ir.CountLoaded{Key: req.Key, ID: id, Count: count}
}

func badResult(req effect.Request, want string, got ir.IRValue) error {
	return &EffectError{
		Code: ErrCodeBadResult,
		Op:   req.Op,
		Key:  string(req.Key),
		Err:  fmt.Errorf("want %s, got %T", want, got),
	}
}

// effectMiddleware assigns effect keys, forwards the trigger and starts
// its operation.
type effectMiddleware struct {
	e *Engine
}

func (m *effectMiddleware) Handle(_ API, a ir.Action, next Next) {
	t, ok := a.(ir.Trigger)
	if !ok {
		next(a)
		return
	}
	spec, ok := m.e.effects[a.Kind()]
	if !ok {
		next(a)
		return
	}

	if t.EffectKey() == "" {
		a = ir.WithEffectKey(t, m.e.keys.Next())
		t = a.(ir.Trigger)
	}

	next(a)
	m.e.schedule(t, spec)
}

// schedule starts the effect on its own goroutine. The completion inherits
// the trigger's replay flag.
func (e *Engine) schedule(t ir.Trigger, spec EffectSpec) {
	req := effect.Request{Op: spec.Op, Key: t.EffectKey()}
	if spec.Args != nil {
		req.Args = spec.Args(t)
	}

	// Called with mu held, so Close cannot cancel between this check and
	// wg.Add. After Close the trigger still gets its one completion,
	// applied as a nested dispatch.
	if err := e.ctx.Err(); err != nil {
		e.logger.Warn("effect not started: engine closed", "op", req.Op, "key", req.Key)
		c := spec.Complete(req, nil, &EffectError{
			Code: ErrCodeEffectCancelled,
			Op:   req.Op,
			Key:  string(req.Key),
			Err:  err,
		})
		e.dispatch(ir.WithReplay(c, t.IsReplay()))
		return
	}

	e.inbox.reserve()
	e.hooks.effectStarted(req)
	e.logger.Debug("effect scheduled", "op", req.Op, "key", req.Key)

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()

		start := time.Now()
		c := ir.WithReplay(e.perform(req, spec), t.IsReplay())
		e.hooks.effectDone(req, c, time.Since(start))

		if !e.inbox.deliver(c) {
			e.logger.Warn("completion dropped: engine closed", "op", req.Op, "key", req.Key)
		}
	}()
}

// perform runs the performer and always returns a completion.
func (e *Engine) perform(req effect.Request, spec EffectSpec) (c ir.Action) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("effect panicked", "op", req.Op, "key", req.Key, "panic", r)
			c = spec.Complete(req, nil, &EffectError{
				Code: ErrCodeEffectPanic,
				Op:   req.Op,
				Key:  string(req.Key),
				Err:  fmt.Errorf("%v", r),
			})
		}
	}()

	if e.performer == nil {
		return spec.Complete(req, nil, &EffectError{
			Code: ErrCodeEffectFailed,
			Op:   req.Op,
			Key:  string(req.Key),
			Err:  errors.New("no performer configured"),
		})
	}

	ctx, cancel := e.ctx, context.CancelFunc(func() {})
	if e.timeout > 0 {
		ctx, cancel = context.WithTimeout(e.ctx, e.timeout)
	}
	defer cancel()

	v, err := e.performer.Perform(ctx, req)
	if err != nil {
		err = &EffectError{Code: classify(err), Op: req.Op, Key: string(req.Key), Err: err}
		e.logger.Warn("effect failed", "op", req.Op, "key", req.Key, "error", err)
	}
	return spec.Complete(req, v, err)
}
