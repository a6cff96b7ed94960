package causality

import (
	"github.com/deepcausality-go/deepcausality/internal/causerr"
	"github.com/deepcausality-go/deepcausality/internal/telemetry"
)

// defaultMaxSteps bounds a graph traversal when no explicit budget is set
// via SetMaxSteps, guarding against runaway traversal on a malformed graph
// that DFS cycle detection somehow missed.
const defaultMaxSteps = 4096

// CausaloidGraph is the hypergraph reasoning engine from spec.md §4.3:
// nodes are Causaloids, edges are directed and insertion-ordered, and
// traversal chains each node's output effect into the next node's input
// (the system-overview table's "propagates effects between causaloids").
//
// Cycle detection is path-based (DFS on-stack), not a global visited set:
// a global visited set would misclassify legitimate DAG reconvergence (two
// paths rejoining at a shared descendant) as a cycle, which a diamond-shaped
// graph exercises directly.
type CausaloidGraph struct {
	nodes    []*Causaloid
	edges    map[int][]int
	maxSteps int

	metrics *telemetry.Metrics
}

// NewCausaloidGraph constructs an empty graph. Node 0, once added, is the
// default root for ReasonAllCauses.
func NewCausaloidGraph() *CausaloidGraph {
	return &CausaloidGraph{edges: map[int][]int{}, maxSteps: defaultMaxSteps}
}

// SetMetrics attaches m so every DFS traversal (ReasonAllCauses,
// ReasonSubgraphFromCause, ReasonSubgraphBetweenCauses) records its step
// count and wall-clock duration; ReasonSingleCause and
// ReasonShortestPathBetweenCauses record nothing. A nil graph metrics field (the zero value) makes
// walk a no-op on the metrics side, so SetMetrics is optional.
func (g *CausaloidGraph) SetMetrics(m *telemetry.Metrics) { g.metrics = m }

// AddCausaloid appends c as a new node and returns its index.
func (g *CausaloidGraph) AddCausaloid(c *Causaloid) int {
	g.nodes = append(g.nodes, c)
	return len(g.nodes) - 1
}

// AddEdge adds a directed edge from the node at srcIdx to the node at
// dstIdx. Both indices must be in range.
func (g *CausaloidGraph) AddEdge(srcIdx, dstIdx int) error {
	if srcIdx < 0 || srcIdx >= len(g.nodes) {
		return causerr.Newf(causerr.StartNodeOutOfBounds, "edge source index %d out of bounds", srcIdx)
	}
	if dstIdx < 0 || dstIdx >= len(g.nodes) {
		return causerr.Newf(causerr.StartNodeOutOfBounds, "edge destination index %d out of bounds", dstIdx)
	}
	g.edges[srcIdx] = append(g.edges[srcIdx], dstIdx)
	return nil
}

// SetMaxSteps overrides the traversal step budget (0 disables the budget).
func (g *CausaloidGraph) SetMaxSteps(n int) { g.maxSteps = n }

// NodeCount reports the number of nodes in the graph.
func (g *CausaloidGraph) NodeCount() int { return len(g.nodes) }

func (g *CausaloidGraph) checkIndex(idx int) error {
	if idx < 0 || idx >= len(g.nodes) {
		return causerr.Newf(causerr.StartNodeOutOfBounds, "node index %d out of bounds", idx)
	}
	return nil
}

// walk performs a path-based DFS from start, evaluating each node it enters
// by chaining the previous node's output effect as the next node's input
// (a node reachable along several paths is entered, and evaluated, once
// per path), until either the traversal is exhausted, stop (if >= 0) is
// reached, or the step budget is spent. It returns the ordered list of
// visited node indices and the final PE produced, or a causerr on
// CycleDetected/MaxStepsExceeded.
func (g *CausaloidGraph) walk(start, stop int, in PE) ([]int, PE, error) {
	if err := g.checkIndex(start); err != nil {
		return nil, in, err
	}

	var order []int
	onStack := make(map[int]bool, len(g.nodes))
	steps := 0
	current := in

	var stopTimer func(steps int)
	if g.metrics != nil {
		stopTimer = g.metrics.TraversalTimer()
	}

	var visit func(idx int) (bool, error)
	visit = func(idx int) (bool, error) {
		if onStack[idx] {
			return false, causerr.Newf(causerr.CycleDetected, "cycle detected at node index %d", idx).WithIDs(uint64(idx))
		}
		if g.maxSteps > 0 && steps >= g.maxSteps {
			return false, causerr.New(causerr.MaxStepsExceeded, "graph traversal exceeded max steps")
		}
		onStack[idx] = true
		steps++
		order = append(order, idx)
		causaloidLogger.WithField("causaloid_id", g.nodes[idx].ID).WithField("traversal_step", steps).Debug("visiting causaloid at node index %d", idx)
		current = g.nodes[idx].Evaluate(current)
		if current.Failed() {
			return true, nil
		}
		if stop >= 0 && idx == stop {
			return true, nil
		}
		for _, next := range g.edges[idx] {
			done, err := visit(next)
			if err != nil {
				return false, err
			}
			if done {
				return true, nil
			}
		}
		onStack[idx] = false
		return false, nil
	}

	done, err := visit(start)
	if stopTimer != nil {
		stopTimer(steps)
	}
	if err != nil {
		return order, current, err
	}
	if stop >= 0 && !done {
		return order, current, causerr.Newf(causerr.GraphProducedNoResult, "no path from node %d to node %d", start, stop).WithIDs(uint64(start), uint64(stop))
	}
	return order, current, nil
}

// ReasonAllCauses evaluates every node reachable from index 0 (the root),
// chaining effects along edges in insertion order, and returns the final
// node's resulting effect.
func (g *CausaloidGraph) ReasonAllCauses(in PE) (PE, error) {
	return g.ReasonSubgraphFromCause(0, in)
}

// ReasonSingleCause evaluates exactly the node at idx against in, without
// traversing any edges.
func (g *CausaloidGraph) ReasonSingleCause(idx int, in PE) (PE, error) {
	if err := g.checkIndex(idx); err != nil {
		return in, err
	}
	return g.nodes[idx].Evaluate(in), nil
}

// ReasonSubgraphFromCause evaluates the subgraph reachable from startIdx,
// chaining effects node to node in DFS pre-order, and returns the last
// evaluated node's effect.
func (g *CausaloidGraph) ReasonSubgraphFromCause(startIdx int, in PE) (PE, error) {
	_, out, err := g.walk(startIdx, -1, in)
	return out, err
}

// ReasonSubgraphBetweenCauses runs the same DFS as ReasonSubgraphFromCause
// from startIdx (edge-insertion order, path-based cycle detection),
// chaining effects through every node it enters, and stops as soon as it
// evaluates stopIdx. Branches explored before stopIdx is reached, dead
// ends included, are evaluated and feed the chain. It returns
// GraphProducedNoResult when stopIdx is never reached.
func (g *CausaloidGraph) ReasonSubgraphBetweenCauses(startIdx, stopIdx int, in PE) (PE, error) {
	if err := g.checkIndex(stopIdx); err != nil {
		return in, err
	}
	_, out, err := g.walk(startIdx, stopIdx, in)
	return out, err
}

// ReasonShortestPathBetweenCauses finds the fewest-edges path from startIdx
// to stopIdx via BFS and evaluates exactly that path, chaining effects node
// to node (spec.md invariant 9: "shortest-path reasoning visits exactly one
// path").
func (g *CausaloidGraph) ReasonShortestPathBetweenCauses(startIdx, stopIdx int, in PE) (PE, error) {
	if err := g.checkIndex(startIdx); err != nil {
		return in, err
	}
	if err := g.checkIndex(stopIdx); err != nil {
		return in, err
	}

	path, err := g.shortestPath(startIdx, stopIdx)
	if err != nil {
		return in, err
	}

	current := in
	for _, idx := range path {
		current = g.nodes[idx].Evaluate(current)
		if current.Failed() {
			return current, nil
		}
	}
	return current, nil
}

// shortestPath runs a plain BFS over node indices and reconstructs the
// fewest-edges path from start to stop (inclusive of both endpoints).
func (g *CausaloidGraph) shortestPath(start, stop int) ([]int, error) {
	if start == stop {
		return []int{start}, nil
	}

	prev := make(map[int]int, len(g.nodes))
	visited := make(map[int]bool, len(g.nodes))
	visited[start] = true
	queue := []int{start}

	for len(queue) > 0 {
		idx := queue[0]
		queue = queue[1:]
		for _, next := range g.edges[idx] {
			if visited[next] {
				continue
			}
			visited[next] = true
			prev[next] = idx
			if next == stop {
				queue = nil
				break
			}
			queue = append(queue, next)
		}
	}

	if !visited[stop] {
		return nil, causerr.Newf(causerr.GraphProducedNoResult, "no path from node %d to node %d", start, stop).WithIDs(uint64(start), uint64(stop))
	}

	var path []int
	for at := stop; ; {
		path = append([]int{at}, path...)
		if at == start {
			break
		}
		at = prev[at]
	}
	return path, nil
}

// TopologicalOrder returns a Kahn's-algorithm topological ordering of node
// indices, or a CycleDetected error if the graph is not a DAG. This is a
// supplemented operation (not named by the distilled spec) useful for
// validating a graph before wiring it into a Graph-kind Causaloid.
func (g *CausaloidGraph) TopologicalOrder() ([]int, error) {
	indegree := make([]int, len(g.nodes))
	for _, dsts := range g.edges {
		for _, d := range dsts {
			indegree[d]++
		}
	}

	var queue []int
	for i, deg := range indegree {
		if deg == 0 {
			queue = append(queue, i)
		}
	}

	order := make([]int, 0, len(g.nodes))
	for len(queue) > 0 {
		idx := queue[0]
		queue = queue[1:]
		order = append(order, idx)
		for _, next := range g.edges[idx] {
			indegree[next]--
			if indegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	if len(order) != len(g.nodes) {
		return nil, causerr.New(causerr.CycleDetected, "graph is not acyclic")
	}
	return order, nil
}

// HasCycle reports whether the graph contains a cycle.
func (g *CausaloidGraph) HasCycle() bool {
	_, err := g.TopologicalOrder()
	return err != nil
}

// ExplainAllCauses runs ReasonAllCauses and renders the resulting log as a
// human-readable explanation string (supplemented operation, spec.md §7's
// "Explain" surface extended to the graph engine).
func (g *CausaloidGraph) ExplainAllCauses(in PE) (string, error) {
	out, err := g.ReasonAllCauses(in)
	if err != nil {
		return "", err
	}
	return out.Logs.String(), nil
}

// ExplainShortestPathBetweenCauses is ExplainAllCauses for
// ReasonShortestPathBetweenCauses.
func (g *CausaloidGraph) ExplainShortestPathBetweenCauses(startIdx, stopIdx int, in PE) (string, error) {
	out, err := g.ReasonShortestPathBetweenCauses(startIdx, stopIdx, in)
	if err != nil {
		return "", err
	}
	return out.Logs.String(), nil
}
