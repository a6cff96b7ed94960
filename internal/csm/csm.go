// Package csm implements the Causal State Machine from spec.md §4.4: a
// concurrent registry of (CausalState -> CausalAction) pairs keyed by the
// state's own id, with single-write-lock check-and-act mutation and
// read-lock-then-clone-then-unlock evaluation.
package csm

import (
	"sort"
	"sync"

	"github.com/deepcausality-go/deepcausality/internal/causality"
	"github.com/deepcausality-go/deepcausality/internal/causerr"
	"github.com/deepcausality-go/deepcausality/internal/telemetry"
)

// CausalState is the state half of a CSM entry: an id, a version, a seed
// effect, and the causaloid itself (spec.md §4.4). EvalSingleState and
// EvalAllStates evaluate the causaloid against their own effect argument;
// SeedEffect is stored but not read by the CSM.
type CausalState struct {
	ID        uint64
	Version   uint64
	SeedEffect causality.PE
	Causaloid *causality.Causaloid
}

// Id reports the state's identity key (state.id() in spec.md's notation).
func (s CausalState) Id() uint64 { return s.ID }

// CausalAction is invoked when a CSM evaluation's causaloid output is
// truthy. It receives the causaloid's resulting effect and reports
// whether it ran to completion.
type CausalAction func(result causality.PE) error

// stateAction is one registry entry: a state paired with the action it
// triggers on a truthy evaluation.
type stateAction struct {
	state  CausalState
	action CausalAction
}

// CSM is the concurrent state/action registry. The zero value is not
// usable; construct with New.
type CSM struct {
	mu      sync.RWMutex
	entries map[uint64]stateAction

	metrics *telemetry.Metrics
}

// SetMetrics attaches m so every causaloid evaluation performed by
// EvalSingleState/EvalAllStates is counted. Nil (the zero value) makes
// this a no-op, so SetMetrics is optional.
func (c *CSM) SetMetrics(m *telemetry.Metrics) { c.metrics = m }

// New constructs a CSM, optionally seeded with an initial set of
// (state, action) pairs. Duplicate ids among the seed set are rejected
// before any entry is inserted, matching the "new([(state,action)])"
// all-or-nothing contract of spec.md's operations table.
func New(seed ...struct {
	State  CausalState
	Action CausalAction
}) (*CSM, error) {
	c := &CSM{entries: make(map[uint64]stateAction, len(seed))}
	for _, sa := range seed {
		if _, exists := c.entries[sa.State.Id()]; exists {
			return nil, causerr.Newf(causerr.StateAlreadyExists, "state id %d already present in seed set", sa.State.Id()).WithIDs(sa.State.Id())
		}
		c.entries[sa.State.Id()] = stateAction{state: sa.State, action: sa.Action}
	}
	return c, nil
}

// AddSingleState inserts (state, action) keyed by state.Id(). The
// existence check and the insertion happen under one write-lock
// acquisition (contract C2): a read-lock-then-write-lock sequence would
// let two concurrent callers both pass the check before either writes,
// which is exactly the race spec.md forbids.
func (c *CSM) AddSingleState(state CausalState, action CausalAction) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[state.Id()]; exists {
		return causerr.Newf(causerr.StateAlreadyExists, "state id %d already exists", state.Id()).WithIDs(state.Id())
	}
	c.entries[state.Id()] = stateAction{state: state, action: action}
	return nil
}

// UpdateSingleState replaces the (state, action) pair at state.Id().
// Requires the id to already be present.
func (c *CSM) UpdateSingleState(state CausalState, action CausalAction) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[state.Id()]; !exists {
		return causerr.Newf(causerr.StateNotFound, "state id %d not found", state.Id()).WithIDs(state.Id())
	}
	c.entries[state.Id()] = stateAction{state: state, action: action}
	return nil
}

// RemoveSingleState deletes the entry keyed by id. Requires the id to
// already be present.
func (c *CSM) RemoveSingleState(id uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[id]; !exists {
		return causerr.Newf(causerr.StateNotFound, "state id %d not found", id).WithIDs(id)
	}
	delete(c.entries, id)
	return nil
}

// EvalSingleState evaluates the causaloid registered at id against effect,
// and invokes its action if the result is truthy (threshold 0.5). The
// registry is only held under a read lock long enough to clone the
// (state, action) pair; the causaloid evaluation and the action call both
// happen after the lock is released (spec.md §4.4's "evaluation
// isolation" contract), so a slow or blocking causaloid function never
// holds up concurrent add/update/remove callers.
func (c *CSM) EvalSingleState(id uint64, in causality.PE) (causality.PE, error) {
	c.mu.RLock()
	entry, exists := c.entries[id]
	c.mu.RUnlock()

	if !exists {
		return in, causerr.Newf(causerr.StateNotFound, "state id %d not found", id).WithIDs(id)
	}
	return c.evalEntry(entry, in)
}

func (c *CSM) evalEntry(entry stateAction, in causality.PE) (causality.PE, error) {
	if c.metrics != nil {
		c.metrics.CSMEvaluations.Inc()
	}
	out := entry.state.Causaloid.Evaluate(in)
	if out.Failed() {
		return out, nil
	}
	val, ok := out.Value()
	if ok && val.Truthy(0.5) && entry.action != nil {
		if err := entry.action(out); err != nil {
			return out, err
		}
	}
	return out, nil
}

// EvalAllStates evaluates every registered state against in, in ascending
// id order (a stable, reproducible substitute for "insertion order" once
// ids may be added/removed over the registry's lifetime). The first
// action error encountered stops the sweep and is returned alongside the
// ids already evaluated.
func (c *CSM) EvalAllStates(in causality.PE) (map[uint64]causality.PE, error) {
	c.mu.RLock()
	entries := make([]stateAction, 0, len(c.entries))
	for _, e := range c.entries {
		entries = append(entries, e)
	}
	c.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool { return entries[i].state.Id() < entries[j].state.Id() })

	results := make(map[uint64]causality.PE, len(entries))
	for _, entry := range entries {
		out, err := c.evalEntry(entry, in)
		results[entry.state.Id()] = out
		if err != nil {
			return results, err
		}
	}
	return results, nil
}

// Len reports the number of registered states (supplemented operation).
func (c *CSM) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Ids returns the sorted ids of every registered state (supplemented
// operation, useful for diagnostics and tests).
func (c *CSM) Ids() []uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make([]uint64, 0, len(c.entries))
	for id := range c.entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
