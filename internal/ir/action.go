package ir

// Kind is the discriminator of an action. It is serialized as the "kind"
// field and is the key used by reducers, derivations and effect tables.
type Kind string

// Thing family.
const (
	KindInit        Kind = "init"
	KindIncA        Kind = "incA"
	KindAddToA      Kind = "addToA"
	KindSetA        Kind = "setA"
	KindAppendToB   Kind = "appendToB"
	KindSetB        Kind = "setB"
	KindLoadStuff   Kind = "LoadStuff"
	KindSetStuff    Kind = "SetStuff"
	KindStuffFailed Kind = "StuffFailed"
	KindResetStuff  Kind = "ResetStuff"
	KindCancelStuff Kind = "CancelStuff"
)

// Counter family (remote counter service).
const (
	KindFetchCount  Kind = "FetchCount"
	KindIncCount    Kind = "IncCount"
	KindCountLoaded Kind = "CountLoaded"
	KindCountFailed Kind = "CountFailed"
)

// History family (undo/redo meta actions).
const (
	KindPushUndo  Kind = "PushUndo"
	KindUndo      Kind = "Undo"
	KindRedo      Kind = "Redo"
	KindClearUndo Kind = "ClearUndo"
)

// Action is an immutable request to change the state tree.
//
// The interface is sealed: only the types in this file implement it.
// Use AsReplay / WithReplay to obtain a copy with a different replay flag;
// there is no way to mutate an action in place.
type Action interface {
	// Kind returns the discriminator.
	Kind() Kind

	// IsReplay reports whether the action is being re-dispatched by
	// undo/redo. Original callers never set it.
	IsReplay() bool

	withReplay(replay bool) Action
}

// Meta carries the fields common to every action.
type Meta struct {
	Replay bool `json:"replay,omitempty"`
}

// IsReplay implements Action.
func (m Meta) IsReplay() bool { return m.Replay }

// AsReplay returns a copy of a marked as an undo/redo replay.
func AsReplay(a Action) Action {
	return WithReplay(a, true)
}

// WithReplay returns a copy of a with the replay flag set to replay.
// Effect completions use it to inherit the flag of their trigger.
func WithReplay(a Action, replay bool) Action {
	if a == nil {
		return nil
	}
	return a.withReplay(replay)
}

// EffectKey identifies one pending effect. Identity is by key, not by
// payload: two LoadStuff actions with different keys are distinct effects
// even if every other field is equal.
type EffectKey string

// Trigger is implemented by effect-initiating actions.
type Trigger interface {
	Action
	EffectKey() EffectKey
	withKey(key EffectKey) Action
}

// WithEffectKey returns a copy of t carrying key.
func WithEffectKey(t Trigger, key EffectKey) Action {
	return t.withKey(key)
}

// Completion is implemented by actions that report the outcome of an
// effect back into the pipeline.
type Completion interface {
	Action
	EffectKey() EffectKey
	Failed() bool
}

// Init is dispatched once when a store starts. Every reducer ignores it.
type Init struct {
	Meta
}

// IncA increments thing.a by one.
type IncA struct {
	Meta
}

// AddToA adds Amount to thing.a.
type AddToA struct {
	Meta
	Amount int64 `json:"amount"`
}

// SetA sets thing.a to an absolute value. It is the inverse of every
// thing.a mutation.
type SetA struct {
	Meta
	A int64 `json:"a"`
}

// AppendToB appends Suffix to thing.b.
type AppendToB struct {
	Meta
	Suffix string `json:"suffix"`
}

// SetB sets thing.b to an absolute value.
type SetB struct {
	Meta
	B string `json:"b"`
}

// LoadStuff starts the timed "stuff" load.
type LoadStuff struct {
	Meta
	Key EffectKey `json:"key,omitempty"`
}

// SetStuff completes a LoadStuff with its result.
type SetStuff struct {
	Meta
	Key   EffectKey `json:"key,omitempty"`
	Stuff string    `json:"stuff"`
}

// StuffFailed completes a LoadStuff with a failure.
type StuffFailed struct {
	Meta
	Key   EffectKey `json:"key,omitempty"`
	Error string    `json:"error"`
}

// ResetStuff returns thing.stuff to idle.
type ResetStuff struct {
	Meta
}

// CancelStuff marks the load identified by Key as cancelled so that its
// late completion is ignored. An empty Key cancels whatever is loading.
type CancelStuff struct {
	Meta
	Key EffectKey `json:"key,omitempty"`
}

// FetchCount queries the remote counter.
type FetchCount struct {
	Meta
	Key EffectKey `json:"key,omitempty"`
}

// IncCount increments the remote counter.
type IncCount struct {
	Meta
	Key EffectKey `json:"key,omitempty"`
}

// CountLoaded completes FetchCount or IncCount.
type CountLoaded struct {
	Meta
	Key   EffectKey `json:"key,omitempty"`
	ID    string    `json:"id"`
	Count int64     `json:"count"`
}

// CountFailed completes FetchCount or IncCount with a failure.
type CountFailed struct {
	Meta
	Key   EffectKey `json:"key,omitempty"`
	Error string    `json:"error"`
}

// PushUndo records one reversible step. It is synthesized by the undo
// middleware, never by callers.
type PushUndo struct {
	Meta
	Record UndoRecord `json:"record"`
}

// Undo replays the inverse of the most recent record.
type Undo struct {
	Meta
}

// Redo replays the forward action of the most recently undone record.
type Redo struct {
	Meta
}

// ClearUndo empties both history stacks.
type ClearUndo struct {
	Meta
}

func (Init) Kind() Kind        { return KindInit }
func (IncA) Kind() Kind        { return KindIncA }
func (AddToA) Kind() Kind      { return KindAddToA }
func (SetA) Kind() Kind        { return KindSetA }
func (AppendToB) Kind() Kind   { return KindAppendToB }
func (SetB) Kind() Kind        { return KindSetB }
func (LoadStuff) Kind() Kind   { return KindLoadStuff }
func (SetStuff) Kind() Kind    { return KindSetStuff }
func (StuffFailed) Kind() Kind { return KindStuffFailed }
func (ResetStuff) Kind() Kind  { return KindResetStuff }
func (CancelStuff) Kind() Kind { return KindCancelStuff }
func (FetchCount) Kind() Kind  { return KindFetchCount }
func (IncCount) Kind() Kind    { return KindIncCount }
func (CountLoaded) Kind() Kind { return KindCountLoaded }
func (CountFailed) Kind() Kind { return KindCountFailed }
func (PushUndo) Kind() Kind    { return KindPushUndo }
func (Undo) Kind() Kind        { return KindUndo }
func (Redo) Kind() Kind        { return KindRedo }
func (ClearUndo) Kind() Kind   { return KindClearUndo }

func (a Init) withReplay(r bool) Action        { a.Replay = r; return a }
func (a IncA) withReplay(r bool) Action        { a.Replay = r; return a }
func (a AddToA) withReplay(r bool) Action      { a.Replay = r; return a }
func (a SetA) withReplay(r bool) Action        { a.Replay = r; return a }
func (a AppendToB) withReplay(r bool) Action   { a.Replay = r; return a }
func (a SetB) withReplay(r bool) Action        { a.Replay = r; return a }
func (a LoadStuff) withReplay(r bool) Action   { a.Replay = r; return a }
func (a SetStuff) withReplay(r bool) Action    { a.Replay = r; return a }
func (a StuffFailed) withReplay(r bool) Action { a.Replay = r; return a }
func (a ResetStuff) withReplay(r bool) Action  { a.Replay = r; return a }
func (a CancelStuff) withReplay(r bool) Action { a.Replay = r; return a }
func (a FetchCount) withReplay(r bool) Action  { a.Replay = r; return a }
func (a IncCount) withReplay(r bool) Action    { a.Replay = r; return a }
func (a CountLoaded) withReplay(r bool) Action { a.Replay = r; return a }
func (a CountFailed) withReplay(r bool) Action { a.Replay = r; return a }
func (a PushUndo) withReplay(r bool) Action    { a.Replay = r; return a }
func (a Undo) withReplay(r bool) Action        { a.Replay = r; return a }
func (a Redo) withReplay(r bool) Action        { a.Replay = r; return a }
func (a ClearUndo) withReplay(r bool) Action   { a.Replay = r; return a }

// Effect-initiating actions.

func (a LoadStuff) EffectKey() EffectKey  { return a.Key }
func (a FetchCount) EffectKey() EffectKey { return a.Key }
func (a IncCount) EffectKey() EffectKey   { return a.Key }

func (a LoadStuff) withKey(k EffectKey) Action  { a.Key = k; return a }
func (a FetchCount) withKey(k EffectKey) Action { a.Key = k; return a }
func (a IncCount) withKey(k EffectKey) Action   { a.Key = k; return a }

// Completions.

func (a SetStuff) EffectKey() EffectKey    { return a.Key }
func (a StuffFailed) EffectKey() EffectKey { return a.Key }
func (a CountLoaded) EffectKey() EffectKey { return a.Key }
func (a CountFailed) EffectKey() EffectKey { return a.Key }

func (SetStuff) Failed() bool    { return false }
func (StuffFailed) Failed() bool { return true }
func (CountLoaded) Failed() bool { return false }
func (CountFailed) Failed() bool { return true }

var (
	_ Trigger    = LoadStuff{}
	_ Trigger    = FetchCount{}
	_ Trigger    = IncCount{}
	_ Completion = SetStuff{}
	_ Completion = StuffFailed{}
	_ Completion = CountLoaded{}
	_ Completion = CountFailed{}
)
