package causality

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/deepcausality-go/deepcausality/internal/causerr"
	"github.com/deepcausality-go/deepcausality/internal/effect"
	"github.com/deepcausality-go/deepcausality/internal/telemetry"
)

// incrementFn returns a SingletonFn that adds delta to the incoming
// Numeric effect (treating a non-Numeric incoming value as 0), used to
// make chained-effect-propagation observable across graph traversal.
func incrementFn(delta float64) SingletonFn {
	return func(in PE) PE {
		return effect.FMap(in, func(v effect.EffectValue) effect.EffectValue {
			cur, _ := v.AsNumeric()
			return effect.Numeric(cur + delta)
		})
	}
}

func numericCausaloid(id uint64, delta float64) *Causaloid {
	return NewSingletonCausaloid(id, "increment", incrementFn(delta))
}

func TestGraph_ReasonAllCausesChainsEffectsAlongLinearPath(t *testing.T) {
	g := NewCausaloidGraph()
	a := g.AddCausaloid(numericCausaloid(1, 1))
	b := g.AddCausaloid(numericCausaloid(2, 10))
	c := g.AddCausaloid(numericCausaloid(3, 100))
	require.NoError(t, g.AddEdge(a, b))
	require.NoError(t, g.AddEdge(b, c))

	out, err := g.ReasonAllCauses(pure(effect.Numeric(0)))
	require.NoError(t, err)
	require.False(t, out.Failed())

	val, ok := out.Value()
	require.True(t, ok)
	num, ok := val.AsNumeric()
	require.True(t, ok)
	assert.Equal(t, 111.0, num)
}

func TestGraph_ReasonSingleCauseDoesNotTraverseEdges(t *testing.T) {
	g := NewCausaloidGraph()
	a := g.AddCausaloid(numericCausaloid(1, 1))
	b := g.AddCausaloid(numericCausaloid(2, 10))
	require.NoError(t, g.AddEdge(a, b))

	out, err := g.ReasonSingleCause(a, pure(effect.Numeric(0)))
	require.NoError(t, err)
	num, _ := out.MustValue().AsNumeric()
	assert.Equal(t, 1.0, num)
}

func TestGraph_ReasonSingleCauseOutOfBounds(t *testing.T) {
	g := NewCausaloidGraph()
	g.AddCausaloid(numericCausaloid(1, 1))

	_, err := g.ReasonSingleCause(5, pure(effect.Numeric(0)))
	require.Error(t, err)
	ce, ok := causerr.Of(err)
	require.True(t, ok)
	assert.Equal(t, causerr.StartNodeOutOfBounds, ce.Code)
}

// diamond builds 0 -> {1, 2} -> ... -> 4, where the 0->1->4 arm is shorter
// in edge count than a padded 0->2->3->4 arm, to exercise shortest-path
// selection distinctly from plain reachability.
func diamond(t *testing.T) (*CausaloidGraph, int, int, int, int, int) {
	t.Helper()
	g := NewCausaloidGraph()
	start := g.AddCausaloid(numericCausaloid(0, 1))
	short := g.AddCausaloid(numericCausaloid(1, 10))
	longA := g.AddCausaloid(numericCausaloid(2, 100))
	longB := g.AddCausaloid(numericCausaloid(3, 1000))
	stop := g.AddCausaloid(numericCausaloid(4, 10000))

	require.NoError(t, g.AddEdge(start, short))
	require.NoError(t, g.AddEdge(short, stop))
	require.NoError(t, g.AddEdge(start, longA))
	require.NoError(t, g.AddEdge(longA, longB))
	require.NoError(t, g.AddEdge(longB, stop))

	return g, start, short, longA, longB, stop
}

func TestGraph_ReasonShortestPathBetweenCausesTakesFewestEdges(t *testing.T) {
	g, start, _, _, _, stop := diamond(t)

	out, err := g.ReasonShortestPathBetweenCauses(start, stop, pure(effect.Numeric(0)))
	require.NoError(t, err)

	num, _ := out.MustValue().AsNumeric()
	// start(1) -> short(10) -> stop(10000) = 10011, never touching the
	// longer start -> longA -> longB -> stop arm.
	assert.Equal(t, 10011.0, num)
}

func TestGraph_ReasonAllCausesHandlesDiamondReconvergenceWithoutFalseCycle(t *testing.T) {
	g, start, _, _, _, _ := diamond(t)

	_, err := g.ReasonAllCauses(pure(effect.Numeric(0)))
	require.NoError(t, err, "legitimate DAG reconvergence must not be reported as a cycle")
	_ = start
}

func TestGraph_SelfLoopIsCycleDetected(t *testing.T) {
	g := NewCausaloidGraph()
	a := g.AddCausaloid(numericCausaloid(1, 1))
	require.NoError(t, g.AddEdge(a, a))

	_, err := g.ReasonAllCauses(pure(effect.Numeric(0)))
	require.Error(t, err)
	ce, ok := causerr.Of(err)
	require.True(t, ok)
	assert.Equal(t, causerr.CycleDetected, ce.Code)
}

func TestGraph_MaxStepsExceeded(t *testing.T) {
	g := NewCausaloidGraph()
	var last int
	for i := 0; i < 10; i++ {
		idx := g.AddCausaloid(numericCausaloid(uint64(i), 1))
		if i > 0 {
			require.NoError(t, g.AddEdge(last, idx))
		}
		last = idx
	}
	g.SetMaxSteps(3)

	_, err := g.ReasonAllCauses(pure(effect.Numeric(0)))
	require.Error(t, err)
	ce, ok := causerr.Of(err)
	require.True(t, ok)
	assert.Equal(t, causerr.MaxStepsExceeded, ce.Code)
}

func TestGraph_ReasonSubgraphBetweenCausesFindsAPath(t *testing.T) {
	g, start, _, _, _, stop := diamond(t)

	out, err := g.ReasonSubgraphBetweenCauses(start, stop, pure(effect.Numeric(0)))
	require.NoError(t, err)
	assert.False(t, out.Failed())
}

func TestGraph_ReasonSubgraphBetweenCausesNoPathFails(t *testing.T) {
	g := NewCausaloidGraph()
	a := g.AddCausaloid(numericCausaloid(1, 1))
	b := g.AddCausaloid(numericCausaloid(2, 1))

	_, err := g.ReasonSubgraphBetweenCauses(a, b, pure(effect.Numeric(0)))
	require.Error(t, err)
	ce, ok := causerr.Of(err)
	require.True(t, ok)
	assert.Equal(t, causerr.GraphProducedNoResult, ce.Code)
}

func TestGraph_TopologicalOrderAndHasCycle(t *testing.T) {
	g := NewCausaloidGraph()
	a := g.AddCausaloid(numericCausaloid(1, 1))
	b := g.AddCausaloid(numericCausaloid(2, 1))
	c := g.AddCausaloid(numericCausaloid(3, 1))
	require.NoError(t, g.AddEdge(a, b))
	require.NoError(t, g.AddEdge(b, c))

	assert.False(t, g.HasCycle())
	order, err := g.TopologicalOrder()
	require.NoError(t, err)
	assert.Equal(t, []int{a, b, c}, order)

	require.NoError(t, g.AddEdge(c, a))
	assert.True(t, g.HasCycle())
	_, err = g.TopologicalOrder()
	require.Error(t, err)
}

func TestGraph_ExplainAllCausesRendersLog(t *testing.T) {
	g := NewCausaloidGraph()
	a := g.AddCausaloid(numericCausaloid(1, 1))
	_ = a

	explanation, err := g.ExplainAllCauses(pure(effect.Numeric(0)))
	require.NoError(t, err)
	assert.Contains(t, explanation, "causaloid-1")
}

func TestGraph_SetMetricsRecordsTraversalStepsAndDuration(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := telemetry.NewMetrics(reg)
	defer m.Unregister()

	g := NewCausaloidGraph()
	g.SetMetrics(m)
	g.AddCausaloid(numericCausaloid(1, 1))
	g.AddCausaloid(numericCausaloid(2, 1))
	require.NoError(t, g.AddEdge(0, 1))

	_, err := g.ReasonAllCauses(pure(effect.Numeric(0)))
	require.NoError(t, err)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.TraversalSteps))
}
