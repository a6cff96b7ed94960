package causality

import (
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/deepcausality-go/deepcausality/internal/causerr"
	"github.com/deepcausality-go/deepcausality/internal/effect"
)

// AggregationKind tags a Collection causaloid's combining rule (spec.md
// §3.1).
type AggregationKind int

const (
	// AggAll requires every child to be truthy.
	AggAll AggregationKind = iota
	// AggAny requires at least one child to be truthy.
	AggAny
	// AggMajority requires more than Threshold*n children truthy.
	AggMajority
	// AggNone is the absence of an aggregation rule; evaluating a
	// Collection with AggNone always fails with causerr.AggregationError.
	AggNone
)

// AggregationLogic is the rule combining a Collection's children into a
// single Deterministic EffectValue.
type AggregationLogic struct {
	Kind      AggregationKind
	Threshold float64
}

// All builds the All aggregation rule.
func All() AggregationLogic { return AggregationLogic{Kind: AggAll} }

// Any builds the Any aggregation rule.
func Any() AggregationLogic { return AggregationLogic{Kind: AggAny} }

// Majority builds the Majority(threshold) aggregation rule.
func Majority(threshold float64) AggregationLogic {
	return AggregationLogic{Kind: AggMajority, Threshold: threshold}
}

// NoAggregation builds the explicit "no aggregation logic supplied" rule,
// which always fails at evaluation time.
func NoAggregation() AggregationLogic { return AggregationLogic{Kind: AggNone} }

// ParallelOptions configures the optional parallel aggregation mode for a
// Collection causaloid (spec.md §5). Children must be pure (no shared
// mutable state) when Parallel is true.
type ParallelOptions struct {
	Parallel bool
	// Workers bounds concurrency; 0 means unbounded (errgroup.SetLimit is
	// not called).
	Workers int
}

func (c *Causaloid) evaluateCollection(in PE) PE {
	return c.evaluateCollectionWith(in, ParallelOptions{})
}

// EvaluateCollectionParallel evaluates a Collection causaloid's children
// concurrently via golang.org/x/sync/errgroup, then combines the results
// with the same AggregationLogic a sequential evaluation would use.
// Children must be pure: the only correctness requirement the parallel
// mode adds over the sequential path is that children not share mutable
// state, since completion order is no longer deterministic across runs
// (see DESIGN.md's Open Question #1 resolution: results and their logs are
// still combined in original child order, only the wall-clock evaluation
// order is nondeterministic). Unlike the sequential path, every child is
// evaluated even after one fails; the first failure in child order wins.
func (c *Causaloid) EvaluateCollectionParallel(in PE, opts ParallelOptions) PE {
	opts.Parallel = true
	return c.evaluateCollectionWith(in, opts)
}

func (c *Causaloid) evaluateCollectionWith(in PE, opts ParallelOptions) PE {
	if in.Failed() {
		out := in
		out.Logs = in.Logs.AddTagged(idTag(c.ID), "skipped: incoming error")
		return out
	}

	if c.agg.Kind == AggNone {
		err := causerr.Newf(causerr.AggregationError, "collection causaloid %d has no aggregation logic", c.ID).WithIDs(c.ID)
		out := in
		out.Err = &err
		out.Logs = in.Logs.AddTagged(idTag(c.ID), "no aggregation logic")
		return out
	}

	results := make([]PE, len(c.children))
	if c.metrics != nil {
		c.metrics.AggregationFanOut.Observe(float64(len(c.children)))
	}

	if opts.Parallel {
		g := new(errgroup.Group)
		if opts.Workers > 0 {
			g.SetLimit(opts.Workers)
		}
		for i, child := range c.children {
			i, child := i, child
			g.Go(func() error {
				results[i] = child.Evaluate(in)
				return nil
			})
		}
		_ = g.Wait() // children never return a Go error; failures ride PE.Err
	} else {
		for i, child := range c.children {
			results[i] = child.Evaluate(in)
			if results[i].Failed() {
				break // first child error wins: skip remaining children.
			}
		}
	}

	// Every child evaluates independently against the same in, so each
	// result's Logs carries a full copy of in.Logs as its prefix (the log
	// is never chained between siblings the way graph traversal chains
	// between nodes). Strip that shared prefix before appending so the
	// merged log lists in.Logs once, followed by each child's own new
	// entries in child order, rather than duplicating in.Logs per child.
	baseLen := in.Logs.Len()
	logs := in.Logs
	truthy := 0
	for i, r := range results {
		newEntries := effect.Log(nil)
		if r.Logs.Len() > baseLen {
			newEntries = r.Logs[baseLen:]
		}
		logs = logs.Append(newEntries)
		if r.Failed() {
			out := in
			out.Err = r.Err
			out.Logs = logs.AddTagged(idTag(c.ID), fmt.Sprintf("aggregation failed at child %d", c.children[i].ID))
			return out
		}
		val, ok := r.Value()
		if ok && val.Truthy(c.threshold) {
			truthy++
		}
	}

	verdict := c.combine(truthy, len(results))

	out := effect.FMap(in, func(effect.EffectValue) effect.EffectValue {
		return effect.Deterministic(verdict)
	})
	out.Logs = logs.AddTagged(idTag(c.ID), fmt.Sprintf("aggregated %d/%d truthy -> %t", truthy, len(results), verdict))
	return out
}

// combine applies the aggregation rule to a truthy count out of n
// children. Majority and the θ=0.5 tie case both use a strict comparison
// (count > threshold*n): this is the form that satisfies spec.md's
// testable invariant 5 and the "Majority(0.5) even split -> false"
// boundary behavior simultaneously (see DESIGN.md).
func (c *Causaloid) combine(truthy, n int) bool {
	switch c.agg.Kind {
	case AggAll:
		return truthy == n
	case AggAny:
		return truthy > 0
	case AggMajority:
		return float64(truthy) > c.agg.Threshold*float64(n)
	default:
		return false
	}
}
