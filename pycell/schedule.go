package pycell

import (
	"github.com/pkg/errors"

	"github.com/notebook-systems/nbdag/nbgraph"
)

// unionFind groups cells into connected components for run reporting.
// Single-owner, one instance per scheduling pass.
type unionFind struct {
	parent []int
	rank   []int
}

func newUnionFind(n int) *unionFind {
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	return &unionFind{parent: parent, rank: make([]int, n)}
}

func (uf *unionFind) find(i int) int {
	if uf.parent[i] != i {
		uf.parent[i] = uf.find(uf.parent[i])
	}
	return uf.parent[i]
}

func (uf *unionFind) union(i, j int) {
	ri := uf.find(i)
	rj := uf.find(j)
	if ri == rj {
		return
	}
	if uf.rank[ri] < uf.rank[rj] {
		ri, rj = rj, ri
	}
	uf.parent[rj] = ri
	if uf.rank[ri] == uf.rank[rj] {
		uf.rank[ri]++
	}
}

// executionOrder resolves req into the sequence the engine runs: a
// topological order over the submitted cells, plus each cell's component
// label for reporting.  A component is labeled by its first member in cell
// order, so the label is stable no matter how the request was assembled.
//
// Duplicate edges collapse, and edges naming a cell outside the request are
// ignored.  Between cells with no ordering constraint the earlier cell id
// runs first, which keeps the order reproducible run over run.  A dependency
// cycle yields ErrCycle before anything executes.
func executionOrder(req nbgraph.RunRequest) ([]nbgraph.RunNode, map[string]string, error) {
	idx := make(map[string]int, len(req.Nodes))
	for i, n := range req.Nodes {
		idx[n.ID] = i
	}

	indegree := make([]int, len(req.Nodes))
	children := make([][]int, len(req.Nodes))
	groups := newUnionFind(len(req.Nodes))

	seen := make(map[[2]int]struct{}, len(req.Edges))
	for _, e := range req.Edges {
		src, srcOK := idx[e.Source]
		dst, dstOK := idx[e.Target]
		if !srcOK || !dstOK || src == dst {
			continue
		}
		if _, dup := seen[[2]int{src, dst}]; dup {
			continue
		}
		seen[[2]int{src, dst}] = struct{}{}

		children[src] = append(children[src], dst)
		indegree[dst]++
		groups.union(src, dst)
	}

	label := make([]string, len(req.Nodes))
	for i, n := range req.Nodes {
		root := groups.find(i)
		if label[root] == "" || nbgraph.KeyLess(n.ID, label[root]) {
			label[root] = n.ID
		}
	}
	componentOf := make(map[string]string, len(req.Nodes))
	for i, n := range req.Nodes {
		componentOf[n.ID] = label[groups.find(i)]
	}

	ready := make([]int, 0, len(req.Nodes))
	for i, deg := range indegree {
		if deg == 0 {
			ready = append(ready, i)
		}
	}

	order := make([]nbgraph.RunNode, 0, len(req.Nodes))
	for len(ready) > 0 {
		next := 0
		for k := 1; k < len(ready); k++ {
			if nbgraph.KeyLess(req.Nodes[ready[k]].ID, req.Nodes[ready[next]].ID) {
				next = k
			}
		}
		i := ready[next]
		ready = append(ready[:next], ready[next+1:]...)

		order = append(order, req.Nodes[i])
		for _, child := range children[i] {
			indegree[child]--
			if indegree[child] == 0 {
				ready = append(ready, child)
			}
		}
	}

	if len(order) < len(req.Nodes) {
		return nil, nil, errors.WithStack(nbgraph.ErrCycle)
	}
	return order, componentOf, nil
}
