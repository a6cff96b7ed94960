package contextgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContext_AddNodeAndGet(t *testing.T) {
	ctx := New(NewRootContextoid(1))

	require.NoError(t, ctx.AddNode(NewDatoid(2, "payload")))

	got, ok := ctx.Get(2)
	require.True(t, ok)
	assert.Equal(t, "payload", got.Payload)
}

func TestContext_AddNodeDuplicateRejected(t *testing.T) {
	ctx := New(NewRootContextoid(1))
	require.NoError(t, ctx.AddNode(NewDatoid(2, "a")))

	err := ctx.AddNode(NewDatoid(2, "b"))
	require.Error(t, err)
}

func TestContext_AddEdgeRequiresExistingNodes(t *testing.T) {
	ctx := New(NewRootContextoid(1))
	require.NoError(t, ctx.AddNode(NewDatoid(2, "a")))

	require.NoError(t, ctx.AddEdge(1, 2))
	assert.Equal(t, []uint64{2}, ctx.Successors(1))

	require.Error(t, ctx.AddEdge(1, 99))
}

func TestContext_AdjustProducesNewVersionWithoutMutatingParent(t *testing.T) {
	ctx := New(NewRootContextoid(1))
	require.NoError(t, ctx.AddNode(NewDatoid(2, "old")))

	next, err := ctx.Adjust(NewDatoid(2, "new"))
	require.NoError(t, err)

	assert.Equal(t, uint64(1), next.Version())
	assert.Equal(t, uint64(0), ctx.Version())

	oldVal, ok := ctx.Get(2)
	require.True(t, ok)
	assert.Equal(t, "old", oldVal.Payload)

	newVal, ok := next.Get(2)
	require.True(t, ok)
	assert.Equal(t, "new", newVal.Payload)
}

func TestContext_AdjustUnknownIDFails(t *testing.T) {
	ctx := New(NewRootContextoid(1))
	_, err := ctx.Adjust(NewDatoid(42, "x"))
	require.Error(t, err)
}

func TestContext_GetWalksParentChainAndCaches(t *testing.T) {
	ctx := New(NewRootContextoid(1))
	require.NoError(t, ctx.AddNode(NewDatoid(2, "v0")))

	v1, err := ctx.Adjust(NewDatoid(2, "v1"))
	require.NoError(t, err)
	require.NoError(t, v1.AddNode(NewDatoid(3, "only-in-v1")))

	// id 1 (the root) lives only in the parent; v1 must resolve it by
	// walking the parent chain.
	root, ok := v1.Get(1)
	require.True(t, ok)
	assert.Equal(t, Root, root.Kind)

	// second lookup should hit the cache and return the same result.
	root2, ok := v1.Get(1)
	require.True(t, ok)
	assert.Equal(t, root, root2)
}
