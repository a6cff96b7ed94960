// Package causality implements the Causaloid evaluation kernel (spec.md
// §4.2) and the CausaloidGraph reasoning engine (spec.md §4.3) in one
// package: a Causaloid of kind Graph owns a *CausaloidGraph, and a
// CausaloidGraph's nodes are *Causaloid, so the two types are mutually
// recursive and belong together the way the original crate keeps them in
// one module.
package causality

import (
	"fmt"

	"github.com/deepcausality-go/deepcausality/internal/causerr"
	"github.com/deepcausality-go/deepcausality/internal/contextgraph"
	"github.com/deepcausality-go/deepcausality/internal/effect"
	"github.com/deepcausality-go/deepcausality/internal/logging"
	"github.com/deepcausality-go/deepcausality/internal/telemetry"
)

// causaloidLogger is shared by every Causaloid; package-scoped rather than
// per-instance so a "causality" override in internal/logging's
// per-package levels governs every kind (Singleton/Collection/Graph)
// uniformly. A "causality.*" pattern does not match this logger's name.
var causaloidLogger = logging.GetLogger("causality")

// PE is the concrete PropagatingEffect used throughout the causality
// kernel: EffectValue carried against an optional *contextgraph.Context.
type PE = effect.Process[effect.EffectValue, *contextgraph.Context]

// SingletonFn is a singleton causaloid's cause-effect function: it takes
// the incoming effect (whose optional context handle is read through
// in.Context()) and produces the resulting effect (spec.md §3.1).
type SingletonFn func(in PE) PE

// Kind tags which of the three evaluation strategies a Causaloid uses.
type Kind int

const (
	// Singleton invokes a user-supplied cause-effect function directly.
	Singleton Kind = iota
	// Collection aggregates an ordered sequence of child Causaloids.
	Collection
	// Graph delegates to an embedded CausaloidGraph.
	Graph
)

func (k Kind) String() string {
	switch k {
	case Singleton:
		return "Singleton"
	case Collection:
		return "Collection"
	case Graph:
		return "Graph"
	default:
		return "Unknown"
	}
}

// Causaloid is the polymorphic causal unit from spec.md §3.1/§4.2: a
// singleton function, an aggregated collection, or an embedded sub-graph.
// Values are built once and never mutated; "activation" is a property of
// the last evaluation, recorded by the caller, not by the Causaloid.
type Causaloid struct {
	ID          uint64
	Description string

	kind Kind

	singletonFn SingletonFn

	children []*Causaloid
	agg      AggregationLogic
	// threshold is the Probabilistic-reduction cutoff used when reducing a
	// child's EffectValue to a boolean (distinct from agg's Majority
	// threshold, which compares counts rather than probabilities).
	threshold float64

	graph *CausaloidGraph

	metrics *telemetry.Metrics
}

// SetMetrics attaches m so Collection evaluations record their child
// fan-out. Returns c so it composes with WithThreshold. Nil (the zero
// value) makes this a no-op, so SetMetrics is optional.
func (c *Causaloid) SetMetrics(m *telemetry.Metrics) *Causaloid {
	c.metrics = m
	return c
}

// NewSingletonCausaloid constructs a Singleton-kind Causaloid around fn.
func NewSingletonCausaloid(id uint64, description string, fn SingletonFn) *Causaloid {
	return &Causaloid{ID: id, Description: description, kind: Singleton, singletonFn: fn, threshold: 0.5}
}

// NewCollectionCausaloid constructs a Collection-kind Causaloid. children
// must be non-empty and logic's Kind must not be AggNone for Evaluate to
// succeed (a None logic is accepted at construction time and rejected at
// evaluation time, matching the Rust source's lazy-validation style).
func NewCollectionCausaloid(id uint64, description string, children []*Causaloid, logic AggregationLogic) (*Causaloid, error) {
	if len(children) == 0 {
		return nil, causerr.Newf(causerr.ConstructionError, "collection causaloid %d has no children", id).WithIDs(id)
	}
	return &Causaloid{
		ID: id, Description: description, kind: Collection,
		children: children, agg: logic, threshold: 0.5,
	}, nil
}

// NewGraphCausaloid constructs a Graph-kind Causaloid. g must be non-nil
// and contain at least one node.
func NewGraphCausaloid(id uint64, description string, g *CausaloidGraph) (*Causaloid, error) {
	if g == nil || g.NodeCount() == 0 {
		return nil, causerr.Newf(causerr.ConstructionError, "graph causaloid %d has an empty graph", id).WithIDs(id)
	}
	return &Causaloid{ID: id, Description: description, kind: Graph, graph: g, threshold: 0.5}, nil
}

// Kind reports which evaluation strategy this Causaloid uses.
func (c *Causaloid) Kind() Kind { return c.kind }

// WithThreshold returns c with its Probabilistic-reduction threshold set
// to t (defaults to 0.5).
func (c *Causaloid) WithThreshold(t float64) *Causaloid {
	c.threshold = t
	return c
}

// Evaluate runs the Causaloid against an incoming effect and returns the
// resulting effect, per spec.md §4.2. Every evaluation appends a log entry
// tagged with the causaloid's id.
func (c *Causaloid) Evaluate(in PE) PE {
	switch c.kind {
	case Singleton:
		return c.evaluateSingleton(in)
	case Collection:
		return c.evaluateCollection(in)
	case Graph:
		return c.evaluateGraph(in)
	default:
		err := causerr.Newf(causerr.InternalLogicError, "causaloid %d has unknown kind", c.ID).WithIDs(c.ID)
		out := in
		out.Err = &err
		out.Logs = in.Logs.AddTagged(idTag(c.ID), "unknown kind")
		return out
	}
}

func (c *Causaloid) evaluateSingleton(in PE) PE {
	if in.Failed() {
		out := in
		out.Logs = in.Logs.AddTagged(idTag(c.ID), "skipped: incoming error")
		return out
	}
	if c.singletonFn == nil {
		err := causerr.Newf(causerr.InternalLogicError, "singleton causaloid %d has no function", c.ID).WithIDs(c.ID)
		out := in
		out.Err = &err
		out.Logs = in.Logs.AddTagged(idTag(c.ID), "missing singleton function")
		return out
	}
	out := c.singletonFn(in)
	status := "ok"
	if out.Failed() {
		status = fmt.Sprintf("error: %s", out.Err.Error())
	}
	out.Logs = out.Logs.AddTagged(idTag(c.ID), status)
	return out
}

func (c *Causaloid) evaluateGraph(in PE) PE {
	out, err := c.graph.ReasonAllCauses(in)
	if err != nil {
		if ce, ok := causerr.Of(err); ok {
			out.Err = &ce
		} else {
			ce := causerr.Newf(causerr.InternalLogicError, "%s", err.Error())
			out.Err = &ce
		}
	}
	out.Logs = out.Logs.AddTagged(idTag(c.ID), "graph evaluated")
	return out
}

func idTag(id uint64) string {
	return fmt.Sprintf("causaloid-%d", id)
}
