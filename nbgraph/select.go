package nbgraph

import "sort"

// IDSet is a set of node ids.
type IDSet map[string]struct{}

func (set IDSet) Contains(id string) bool {
	_, ok := set[id]
	return ok
}

func (set IDSet) Add(id string) {
	set[id] = struct{}{}
}

// Ancestors collects every cell that can reach targetID, following
// edges backwards.  The target itself is excluded; callers wanting
// "ancestors plus self" add it explicitly.  Visited cells are never
// re-expanded, so traversal terminates even on cyclic input.
func Ancestors(g Graph, targetID string) IDSet {
	rev := make(map[string][]string, len(g.Nodes))
	for _, e := range g.Edges {
		rev[e.Target] = append(rev[e.Target], e.Source)
	}

	seen := make(IDSet)
	stack := append([]string{}, rev[targetID]...)
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen.Contains(id) {
			continue
		}
		seen.Add(id)
		stack = append(stack, rev[id]...)
	}

	// A cycle through the target would have re-collected it.
	delete(seen, targetID)
	return seen
}

// Project returns the subgraph induced by ids: the named cells plus
// every edge whose endpoints are both named.  Relative order follows g.
func Project(g Graph, ids IDSet) Graph {
	nodes := make([]Node, 0, len(ids))
	for _, n := range g.Nodes {
		if ids.Contains(n.ID) {
			nodes = append(nodes, n)
		}
	}
	edges := make([]Edge, 0, len(g.Edges))
	for _, e := range g.Edges {
		if ids.Contains(e.Source) && ids.Contains(e.Target) {
			edges = append(edges, e)
		}
	}
	return Graph{Nodes: nodes, Edges: edges}
}

// FullProjection returns the whole graph reordered by OrderKey: nodes
// in key order, edges by source key then target key.  This is the
// payload order for "run everything".
func FullProjection(g Graph) Graph {
	nodes := make([]Node, len(g.Nodes))
	copy(nodes, g.Nodes)
	sort.Slice(nodes, func(i, j int) bool {
		return KeyLess(nodes[i].ID, nodes[j].ID)
	})

	edges := make([]Edge, len(g.Edges))
	copy(edges, g.Edges)
	sort.SliceStable(edges, func(i, j int) bool {
		if edges[i].Source != edges[j].Source {
			return KeyLess(edges[i].Source, edges[j].Source)
		}
		return KeyLess(edges[i].Target, edges[j].Target)
	})

	return Graph{Nodes: nodes, Edges: edges}
}

// NewRunRequest strips a graph down to its executable payload.
func NewRunRequest(g Graph) RunRequest {
	req := RunRequest{
		Nodes: make([]RunNode, len(g.Nodes)),
		Edges: make([]RunEdge, len(g.Edges)),
	}
	for i, n := range g.Nodes {
		req.Nodes[i] = RunNode{ID: n.ID, Code: n.Code}
	}
	for i, e := range g.Edges {
		req.Edges[i] = RunEdge{Source: e.Source, Target: e.Target}
	}
	return req
}
