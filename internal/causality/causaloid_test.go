package causality

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepcausality-go/deepcausality/internal/causerr"
	"github.com/deepcausality-go/deepcausality/internal/contextgraph"
	"github.com/deepcausality-go/deepcausality/internal/effect"
)

func pure(ev effect.EffectValue) PE {
	return effect.Pure[effect.EffectValue, *contextgraph.Context](ev)
}

func detFn(b bool) SingletonFn {
	return func(in PE) PE {
		return effect.FMap(in, func(effect.EffectValue) effect.EffectValue {
			return effect.Deterministic(b)
		})
	}
}

func failingFn(code causerr.Code) SingletonFn {
	return func(in PE) PE {
		out := in
		err := causerr.New(code, "forced failure")
		out.Err = &err
		return out
	}
}

func TestCausaloid_SingletonEvaluatesFunction(t *testing.T) {
	c := NewSingletonCausaloid(1, "always true", detFn(true))

	out := c.Evaluate(pure(effect.Deterministic(false)))
	val, ok := out.Value()
	require.True(t, ok)
	assert.True(t, val.Truthy(0.5))
	assert.False(t, out.Failed())
}

func TestCausaloid_SingletonMissingFunctionFails(t *testing.T) {
	c := &Causaloid{ID: 2, kind: Singleton}
	out := c.Evaluate(pure(effect.NoneValue()))
	require.True(t, out.Failed())
	ce, ok := causerr.Of(out.Err)
	require.True(t, ok)
	assert.Equal(t, causerr.InternalLogicError, ce.Code)
}

func TestCausaloid_SingletonSkipsOnIncomingError(t *testing.T) {
	c := NewSingletonCausaloid(3, "never runs", detFn(true))

	var ran bool
	c.singletonFn = func(in PE) PE {
		ran = true
		return in
	}

	failed := pure(effect.NoneValue())
	err := causerr.New(causerr.InternalLogicError, "seed error")
	failed.Err = &err

	out := c.Evaluate(failed)
	assert.False(t, ran)
	assert.True(t, out.Failed())
}

func TestNewCollectionCausaloid_RejectsEmptyChildren(t *testing.T) {
	_, err := NewCollectionCausaloid(4, "empty", nil, All())
	require.Error(t, err)
	ce, ok := causerr.Of(err)
	require.True(t, ok)
	assert.Equal(t, causerr.ConstructionError, ce.Code)
}

func TestNewGraphCausaloid_RejectsEmptyGraph(t *testing.T) {
	_, err := NewGraphCausaloid(5, "empty graph", NewCausaloidGraph())
	require.Error(t, err)
}

func TestCausaloid_KindString(t *testing.T) {
	assert.Equal(t, "Singleton", Singleton.String())
	assert.Equal(t, "Collection", Collection.String())
	assert.Equal(t, "Graph", Graph.String())
	assert.Equal(t, "Unknown", Kind(99).String())
}
