package contextgraph

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/deepcausality-go/deepcausality/internal/causerr"
)

// defaultCacheSize bounds the per-Context id-resolution cache. Contexts are
// read-mostly and shared across many causaloid evaluations, so a modest
// cache absorbs repeated lookups of the same hot contextoids without
// growing unbounded (mirrors internal/graph/query_cache.go's sizing).
const defaultCacheSize = 1024

// Context is a versioned hypergraph of Contextoid values. Adjusting a
// contextoid never mutates an existing Context in place: Adjust returns a
// new *Context, linked to its parent version, so callers already holding
// the prior version keep observing it unchanged (spec.md §3.2, "adjustments
// produce new versions rather than mutating in place").
type Context struct {
	version uint64
	root    uint64
	nodes   map[uint64]Contextoid
	edges   map[uint64][]uint64
	parent  *Context
	cache   *lru.Cache[uint64, Contextoid]
}

// New constructs a Context at version 0 with the given root contextoid.
func New(root Contextoid) *Context {
	cache, _ := lru.New[uint64, Contextoid](defaultCacheSize)
	return &Context{
		version: 0,
		root:    root.ID,
		nodes:   map[uint64]Contextoid{root.ID: root},
		edges:   map[uint64][]uint64{},
		cache:   cache,
	}
}

// Version returns this Context's version counter.
func (c *Context) Version() uint64 { return c.version }

// RootID returns the id of the distinguished root contextoid.
func (c *Context) RootID() uint64 { return c.root }

// AddNode inserts a new contextoid at the current version. Returns an
// error if the id already exists (ids are unique within a Context).
func (c *Context) AddNode(ctxoid Contextoid) error {
	if _, exists := c.Get(ctxoid.ID); exists {
		return causerr.Newf(causerr.ConstructionError, "contextoid id %d already exists", ctxoid.ID).WithIDs(ctxoid.ID)
	}
	c.nodes[ctxoid.ID] = ctxoid
	c.cache.Remove(ctxoid.ID)
	return nil
}

// AddEdge adds a directed hyperedge from src to dst. Both ids must already
// exist in this Context's node set.
func (c *Context) AddEdge(src, dst uint64) error {
	if _, ok := c.nodes[src]; !ok {
		return causerr.Newf(causerr.ConstructionError, "edge source %d not in context", src).WithIDs(src)
	}
	if _, ok := c.nodes[dst]; !ok {
		return causerr.Newf(causerr.ConstructionError, "edge destination %d not in context", dst).WithIDs(dst)
	}
	c.edges[src] = append(c.edges[src], dst)
	return nil
}

// Successors returns the ordered, edge-insertion-order successor ids of id.
func (c *Context) Successors(id uint64) []uint64 {
	return c.edges[id]
}

// Get resolves a contextoid by id, first against this Context's own node
// set (and cache), then walking parent versions. The cache stores the
// *resolved* contextoid so repeated lookups for an id introduced in an
// ancestor version don't re-walk the parent chain every time.
func (c *Context) Get(id uint64) (Contextoid, bool) {
	if ctxoid, ok := c.nodes[id]; ok {
		return ctxoid, true
	}
	if cached, ok := c.cache.Get(id); ok {
		return cached, true
	}
	for p := c.parent; p != nil; p = p.parent {
		if ctxoid, ok := p.nodes[id]; ok {
			c.cache.Add(id, ctxoid)
			return ctxoid, true
		}
	}
	return Contextoid{}, false
}

// Adjust produces a new Context version with ctxoid.ID's payload replaced
// by ctxoid, without mutating the receiver. The new version shares the
// receiver's edges (hyperedges are not invalidated by a payload adjustment)
// and gets its own empty node overlay plus a fresh cache, per spec.md
// §3.1's "per-node adjustable(old,new) transitions."
func (c *Context) Adjust(ctxoid Contextoid) (*Context, error) {
	if _, ok := c.Get(ctxoid.ID); !ok {
		return nil, causerr.Newf(causerr.ConstructionError, "cannot adjust unknown contextoid %d", ctxoid.ID).WithIDs(ctxoid.ID)
	}
	cache, _ := lru.New[uint64, Contextoid](defaultCacheSize)
	next := &Context{
		version: c.version + 1,
		root:    c.root,
		nodes:   map[uint64]Contextoid{ctxoid.ID: ctxoid},
		edges:   c.edges,
		parent:  c,
		cache:   cache,
	}
	return next, nil
}
