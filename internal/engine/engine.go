package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/rewind/internal/effect"
	"github.com/roach88/rewind/internal/ir"
	"github.com/roach88/rewind/internal/logging"
	"github.com/roach88/rewind/internal/state"
	"github.com/roach88/rewind/internal/store"
)

// Snapshot is the result of a dispatch cycle: the tree after the cycle and
// the seq of its last commit.
type Snapshot struct {
	Seq  int64      `json:"seq"`
	Tree state.Tree `json:"state"`
}

// Listener is notified once per completed dispatch cycle.
type Listener func(Snapshot)

// Journal receives one entry per reducer commit.
// Implemented by *store.Store and *store.Memory.
type Journal interface {
	Append(ctx context.Context, e store.Entry) error
}

type subscription struct {
	id int
	fn Listener
}

// Engine is a single-writer, action-sourced state container.
//
// Thread-safety model:
//   - Dispatch, State, Select, Subscribe: safe from any goroutine
//   - Run: at most one goroutine at a time
//   - Settle: may run alongside Run
type Engine struct {
	mu    sync.Mutex // pipeline lock, held by the outermost Dispatch
	depth int        // guarded by mu

	// Snapshots waiting for listeners, in commit order. Appended with mu
	// held; drained by whichever Dispatch set notifying.
	notifyMu  sync.Mutex
	pending   []Snapshot
	notifying bool

	tree  atomic.Pointer[state.Tree]
	clock *Clock
	chain Next

	performer   effect.Performer
	effects     map[ir.Kind]EffectSpec
	derivations map[ir.Kind]DeriveFunc
	extra       []Middleware
	keys        KeyGenerator
	timeout     time.Duration

	logger  *slog.Logger
	hooks   Hooks
	journal Journal
	run     string

	inbox  *inbox
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	subMu   sync.Mutex
	subs    []subscription
	nextSub int

	closeOnce sync.Once
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. Default: discard.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithHooks installs lifecycle hooks. Use JoinHooks to combine several.
func WithHooks(h Hooks) Option {
	return func(e *Engine) { e.hooks = h }
}

// WithKeys sets the effect key generator. Default: UUIDv7Keys.
func WithKeys(k KeyGenerator) Option {
	return func(e *Engine) { e.keys = k }
}

// WithDerivations merges table into the default inverse table. A nil
// DeriveFunc makes its kind non-invertible.
func WithDerivations(table map[ir.Kind]DeriveFunc) Option {
	return func(e *Engine) { maps.Copy(e.derivations, table) }
}

// WithEffects merges table into the default effect table.
func WithEffects(table map[ir.Kind]EffectSpec) Option {
	return func(e *Engine) { maps.Copy(e.effects, table) }
}

// WithJournal appends every commit to j under run. An empty run gets a
// fresh UUIDv7.
func WithJournal(j Journal, run string) Option {
	return func(e *Engine) {
		e.journal = j
		e.run = run
	}
}

// WithEffectTimeout bounds each effect. Zero disables the bound.
func WithEffectTimeout(d time.Duration) Option {
	return func(e *Engine) { e.timeout = d }
}

// WithMiddleware appends interceptors after the effect and undo/redo
// middleware, just before the reducer.
func WithMiddleware(mws ...Middleware) Option {
	return func(e *Engine) { e.extra = append(e.extra, mws...) }
}

// WithClock sets the logical clock, e.g. to continue numbering.
func WithClock(c *Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// New creates an Engine holding initial. performer runs every effect; a
// nil performer fails every effect.
func New(initial state.Tree, performer effect.Performer, opts ...Option) *Engine {
	ctx, cancel := context.WithCancel(context.Background())

	e := &Engine{
		clock:       NewClock(),
		performer:   performer,
		effects:     DefaultEffects(),
		derivations: DefaultDerivations(),
		keys:        UUIDv7Keys{},
		timeout:     DefaultEffectTimeout,
		logger:      logging.NewNop(),
		inbox:       newInbox(),
		ctx:         ctx,
		cancel:      cancel,
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.journal != nil && e.run == "" {
		e.run = uuid.Must(uuid.NewV7()).String()
	}

	e.tree.Store(&initial)

	mws := []Middleware{
		&effectMiddleware{e: e},
		&undoMiddleware{table: e.derivations, logger: e.logger, hooks: e.hooks},
	}
	mws = append(mws, e.extra...)
	e.chain = compose(pipelineAPI{e: e}, mws, e.commit)

	return e
}

// RunID returns the journal run identifier, or "" without a journal.
func (e *Engine) RunID() string {
	return e.run
}

// Dispatch runs a through the pipeline and returns the resulting snapshot.
// It never waits for effects.
//
// Listeners see every cycle's snapshot in commit order and are called
// without the pipeline lock, so a listener may Dispatch. When another
// Dispatch is already delivering (or a listener dispatches re-entrantly)
// that delivery loop notifies for this cycle too; otherwise listeners are
// notified before Dispatch returns.
func (e *Engine) Dispatch(a ir.Action) Snapshot {
	snap := func() Snapshot {
		e.mu.Lock()
		defer e.mu.Unlock()

		e.dispatch(a)
		snap := Snapshot{Seq: e.clock.Last(), Tree: *e.tree.Load()}

		// Queued before mu is released so that pending stays in commit order.
		e.notifyMu.Lock()
		e.pending = append(e.pending, snap)
		e.notifyMu.Unlock()
		return snap
	}()

	e.deliver()
	return snap
}

// deliver drains pending unless another goroutine, or an outer frame of
// this one, is already draining it.
func (e *Engine) deliver() {
	e.notifyMu.Lock()
	if e.notifying {
		e.notifyMu.Unlock()
		return
	}
	e.notifying = true
	for len(e.pending) > 0 {
		snap := e.pending[0]
		e.pending[0] = Snapshot{}
		e.pending = e.pending[1:]
		e.notifyMu.Unlock()

		e.notify(snap)

		e.notifyMu.Lock()
	}
	e.pending = nil
	e.notifying = false
	e.notifyMu.Unlock()
}

// dispatch runs a through the chain. Called with mu held.
func (e *Engine) dispatch(a ir.Action) {
	if a == nil {
		e.logger.Warn("nil action ignored")
		return
	}
	e.depth++
	defer func() { e.depth-- }()

	e.chain(a)
}

// commit is the end of the chain: apply the root reducer and publish.
func (e *Engine) commit(a ir.Action) {
	next := state.Reduce(*e.tree.Load(), a)
	e.tree.Store(&next)

	ev := DispatchEvent{
		Seq:    e.clock.Tick(),
		Depth:  e.depth - 1,
		Action: a,
		Tree:   next,
	}

	e.logger.Debug("action committed",
		"seq", ev.Seq,
		"kind", a.Kind(),
		"replay", a.IsReplay(),
		"depth", ev.Depth,
	)

	e.hooks.dispatched(ev)
	e.appendJournal(ev)
}

// appendJournal writes ev to the journal. Failures are logged and the
// dispatch continues.
func (e *Engine) appendJournal(ev DispatchEvent) {
	if e.journal == nil {
		return
	}

	entry, err := journalEntry(e.run, ev)
	if err != nil {
		e.logger.Error("journal entry encoding failed", "seq", ev.Seq, "kind", ev.Action.Kind(), "error", err)
		return
	}
	if err := e.journal.Append(context.Background(), entry); err != nil {
		e.logger.Error("journal append failed", "seq", ev.Seq, "kind", ev.Action.Kind(), "error", err)
	}
}

func journalEntry(run string, ev DispatchEvent) (store.Entry, error) {
	action, err := ir.MarshalCanonical(ev.Action)
	if err != nil {
		return store.Entry{}, fmt.Errorf("encode action: %w", err)
	}
	digest, err := ir.ActionDigest(ev.Action)
	if err != nil {
		return store.Entry{}, err
	}
	tree, err := json.Marshal(ev.Tree)
	if err != nil {
		return store.Entry{}, fmt.Errorf("encode state: %w", err)
	}

	return store.Entry{
		Run:           run,
		Seq:           ev.Seq,
		Depth:         ev.Depth,
		Kind:          string(ev.Action.Kind()),
		Replay:        ev.Action.IsReplay(),
		Action:        string(action),
		Digest:        digest,
		StateDigest:   ir.StateDigest(tree),
		EngineVersion: ir.EngineVersion,
		SchemaVersion: ir.SchemaVersion,
	}, nil
}

// State returns the current tree. It never blocks.
func (e *Engine) State() state.Tree {
	return *e.tree.Load()
}

// Seq returns the seq of the last commit, 0 before the first.
func (e *Engine) Seq() int64 {
	return e.clock.Last()
}

// Select reads path from the current tree. See state.Select.
func (e *Engine) Select(path string) (any, error) {
	return state.Select(e.State(), path)
}

// InFlight returns the number of effects whose completion has not been
// queued yet.
func (e *Engine) InFlight() int {
	return e.inbox.inFlight()
}

// Subscribe registers l and returns a function that removes it. Calling
// the returned function more than once is harmless.
func (e *Engine) Subscribe(l Listener) (unsubscribe func()) {
	e.subMu.Lock()
	id := e.nextSub
	e.nextSub++
	e.subs = append(e.subs, subscription{id: id, fn: l})
	e.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.subMu.Lock()
			defer e.subMu.Unlock()
			e.subs = slices.DeleteFunc(e.subs, func(s subscription) bool { return s.id == id })
		})
	}
}

func (e *Engine) notify(snap Snapshot) {
	e.subMu.Lock()
	subs := slices.Clone(e.subs)
	e.subMu.Unlock()

	for _, s := range subs {
		e.callListener(s, snap)
	}
}

func (e *Engine) callListener(s subscription, snap Snapshot) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("listener panicked", "subscription", s.id, "seq", snap.Seq, "panic", r)
		}
	}()
	s.fn(snap)
}

// Run applies completions as they arrive until ctx is cancelled or the
// engine is closed.
//
// ERROR HANDLING: nothing inside the pipeline returns an error; failures
// surface as state. Run only returns ctx.Err() or nil after Close.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info("engine starting", "run", e.run)

	for {
		if e.applyNext() {
			continue
		}

		_, closed, changed := e.inbox.status()
		if closed {
			e.logger.Info("engine stopping: closed")
			return nil
		}

		select {
		case <-ctx.Done():
			e.logger.Info("engine stopping: context cancelled")
			return ctx.Err()
		case <-changed:
		}
	}
}

// Settle applies completions until no effect is running and none is
// queued. It returns ctx.Err() if ctx ends first.
func (e *Engine) Settle(ctx context.Context) error {
	for {
		if e.applyNext() {
			continue
		}

		idle, closed, changed := e.inbox.status()
		if idle || closed {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-changed:
		}
	}
}

// applyNext dispatches one queued completion, if any.
func (e *Engine) applyNext() bool {
	a, ok := e.inbox.take()
	if !ok {
		return false
	}
	defer e.inbox.done()

	e.logger.Debug("applying completion", "kind", a.Kind())
	e.Dispatch(a)
	return true
}

// Close cancels running effects, waits for their completions, applies
// them and stops Run. Safe to call more than once, including from a
// listener; not from middleware.
func (e *Engine) Close() {
	e.closeOnce.Do(func() {
		// Under mu so that no schedule sits between its ctx check and
		// wg.Add while we Wait.
		e.mu.Lock()
		e.cancel()
		e.mu.Unlock()

		e.wg.Wait()
		for e.applyNext() {
		}
		e.inbox.close()
	})
}
