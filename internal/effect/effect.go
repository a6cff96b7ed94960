// Package effect implements the arity-5 monadic effect-propagation process
// from spec.md §4.1: a carrier of (Value, State, Context, Error, Log) with
// Pure/Bind/FMap/WithState/Intervene combinators, sticky error short-circuit,
// and left-to-right log accumulation.
package effect

import (
	"github.com/google/uuid"

	"github.com/deepcausality-go/deepcausality/internal/causerr"
)

// State is the stateful slot threaded through a Process. It is a plain
// mapping rather than a fixed struct so causaloids can carry whatever
// bookkeeping they need without this package knowing about it.
type State map[string]interface{}

// Clone returns a shallow copy of s, used whenever a continuation must not
// be able to mutate the caller's state map out from under it.
func (s State) Clone() State {
	if s == nil {
		return nil
	}
	out := make(State, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Process is the generic effect-propagation carrier: CausalEffectPropagationProcess
// <Value,State,Context,Error,Log> from spec.md §4.1, with Error and Log
// fixed to causerr.Causerr and Log respectively (only Value/State/Context
// vary by call site).
type Process[V any, C any] struct {
	value    V
	hasValue bool
	State    State
	ctx      C
	hasCtx   bool
	Err      *causerr.Causerr
	Logs     Log
	RunID    uuid.UUID
}

// Value returns the carried value and whether one is present. A Process
// produced by Bind or FMap's error short-circuit carries the zero value of
// V and hasValue==false; a Process whose Err was set by other code keeps
// whatever value it already held.
func (p Process[V, C]) Value() (V, bool) {
	return p.value, p.hasValue
}

// MustValue returns the carried value, ignoring presence; callers that
// already checked Failed() or hasValue via Value() can use this for
// brevity.
func (p Process[V, C]) MustValue() V {
	return p.value
}

// Context returns the carried context and whether one is present.
func (p Process[V, C]) Context() (C, bool) {
	return p.ctx, p.hasCtx
}

// Failed reports whether the carrier is in the failed state (spec.md
// §3.1: "if error is present the effect is in a failed state").
func (p Process[V, C]) Failed() bool {
	return p.Err != nil
}

// Pure lifts a value into a Process with zero-value State/Context, no
// error, and an empty log (spec.md §4.1).
func Pure[V any, C any](v V) Process[V, C] {
	return Process[V, C]{value: v, hasValue: true, RunID: uuid.New()}
}

// PureWithRunID is Pure but reusing an existing correlation id, used when
// chaining a new carrier type (V changes) while keeping one evaluation's
// log lines correlated under a single RunID.
func PureWithRunID[V any, C any](v V, runID uuid.UUID) Process[V, C] {
	return Process[V, C]{value: v, hasValue: true, RunID: runID}
}

// WithState lifts a stateless carrier into a stateful one by injecting the
// initial state and context, per spec.md §4.1's "boundary between pure
// effects and stateful processes."
func WithState[V any, C any](p Process[V, C], state0 State, ctx0 C, hasCtx bool) Process[V, C] {
	p.State = state0
	p.ctx = ctx0
	p.hasCtx = hasCtx
	return p
}

// Bind sequences p into a continuation f. If p carries an error, f is
// never invoked: the result carries the same error, p's state/context/logs,
// and the zero value of W (spec.md invariant 4). Otherwise f runs against
// p's value/state/context, and the result's logs are p's logs followed by
// f's own logs (left-to-right append, spec.md invariant 3's associativity
// note).
//
// State and Context carry forward unless the continuation overrides them:
// a result with a nil State keeps p's State, and a result with no context
// keeps p's context (the Open Question #2 resolution recorded in
// DESIGN.md).
func Bind[V any, W any, C any](p Process[V, C], f func(value V, state State, ctx C, hasCtx bool) Process[W, C]) Process[W, C] {
	if p.Err != nil {
		return Process[W, C]{
			State: p.State,
			ctx:   p.ctx, hasCtx: p.hasCtx,
			Err:   p.Err,
			Logs:  p.Logs,
			RunID: p.RunID,
		}
	}

	if !p.hasValue {
		err := causerr.New(causerr.InternalLogicError, "bind: value absent without error set")
		return Process[W, C]{
			State: p.State,
			ctx:   p.ctx, hasCtx: p.hasCtx,
			Err:   &err,
			Logs:  p.Logs,
			RunID: p.RunID,
		}
	}

	result := f(p.value, p.State, p.ctx, p.hasCtx)
	if result.State == nil {
		result.State = p.State
	}
	if !result.hasCtx {
		result.ctx, result.hasCtx = p.ctx, p.hasCtx
	}
	result.Logs = p.Logs.Append(result.Logs)
	if result.RunID == uuid.Nil {
		result.RunID = p.RunID
	}
	return result
}

// FMap maps p's value through a pure function g. Error short-circuits
// exactly as in Bind, and g is never invoked when an error is present or
// when the value is unexpectedly absent (spec.md §4.1).
func FMap[V any, W any, C any](p Process[V, C], g func(V) W) Process[W, C] {
	return Bind(p, func(v V, state State, ctx C, hasCtx bool) Process[W, C] {
		out := Process[W, C]{
			value: g(v), hasValue: true,
			State: state, ctx: ctx, hasCtx: hasCtx,
			RunID: p.RunID,
		}
		return out
	})
}

// stringer mirrors fmt.Stringer, kept package-local so Intervene's type
// constraint reads without an extra import.
type stringer interface {
	String() string
}

// Intervenable is the counterfactual capability, kept distinct from the
// monadic Bind/FMap capability per spec.md §4.7.
type Intervenable[V any, C any] interface {
	Intervene(v V) Process[V, C]
}

// Intervene replaces p's value with v, preserves the error state
// unconditionally (a failed chain cannot be repaired by an intervention),
// leaves State/Context untouched, and appends a single "Intervention: <v>"
// log entry (spec.md §4.7, invariant 10).
func Intervene[V stringer, C any](p Process[V, C], v V) Process[V, C] {
	out := p
	out.value = v
	out.hasValue = true
	out.Logs = p.Logs.AddTagged("Intervention", v.String())
	return out
}
