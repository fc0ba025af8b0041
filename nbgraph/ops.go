package nbgraph

// GetNode returns the node with the given id, if present.
func GetNode(g Graph, id string) (Node, bool) {
	at := findNode(g.Nodes, id)
	if at < 0 {
		return Node{}, false
	}
	return g.Nodes[at], true
}

// HasEdge reports whether the ordered edge (src, dst) exists.
func HasEdge(g Graph, src, dst string) bool {
	for _, e := range g.Edges {
		if e.Source == src && e.Target == dst {
			return true
		}
	}
	return false
}

func findNode(nodes []Node, id string) int {
	for i, n := range nodes {
		if n.ID == id {
			return i
		}
	}
	return -1
}

// AddNode returns a copy of g with a freshly numbered cell appended.
// The new cell has empty code and no edges.
func AddNode(g Graph) (Graph, string) {
	num := nextCellNum(g.Nodes)
	node := Node{
		ID:    CellID(num),
		Label: CellLabel(num),
	}
	nodes := make([]Node, 0, len(g.Nodes)+1)
	nodes = append(nodes, g.Nodes...)
	nodes = append(nodes, node)
	return Graph{Nodes: nodes, Edges: g.Edges}, node.ID
}

// RemoveNode removes the cell and every edge touching it, then bridges
// each former predecessor to each former successor so that transitive
// reachability across the deleted cell is preserved.  Bridge edges are
// only inserted where no edge already exists.  Removing an unknown id
// leaves g unchanged and reports ErrNodeNotFound.
func RemoveNode(g Graph, id string) (Graph, error) {
	if findNode(g.Nodes, id) < 0 {
		return g, ErrNodeNotFound
	}

	nodes := make([]Node, 0, len(g.Nodes)-1)
	for _, n := range g.Nodes {
		if n.ID != id {
			nodes = append(nodes, n)
		}
	}

	var sources, targets []string
	edges := make([]Edge, 0, len(g.Edges))
	for _, e := range g.Edges {
		switch {
		case e.Target == id && e.Source == id:
			// self-loops cannot be constructed; drop if present anyway
		case e.Target == id:
			sources = append(sources, e.Source)
		case e.Source == id:
			targets = append(targets, e.Target)
		default:
			edges = append(edges, e)
		}
	}

	out := Graph{Nodes: nodes, Edges: edges}
	for _, s := range sources {
		for _, t := range targets {
			if s != t {
				out = Connect(out, s, t)
			}
		}
	}
	return out, nil
}

// Connect appends the ordered edge (src, dst) with no labels.  A
// self-loop, a missing endpoint, or an already-present edge leaves g
// unchanged.
func Connect(g Graph, src, dst string) Graph {
	if src == dst || HasEdge(g, src, dst) {
		return g
	}
	if findNode(g.Nodes, src) < 0 || findNode(g.Nodes, dst) < 0 {
		return g
	}
	edges := make([]Edge, 0, len(g.Edges)+1)
	edges = append(edges, g.Edges...)
	edges = append(edges, Edge{Source: src, Target: dst})
	return Graph{Nodes: g.Nodes, Edges: edges}
}

// Disconnect removes the ordered edge (src, dst) if present.
func Disconnect(g Graph, src, dst string) Graph {
	at := -1
	for i, e := range g.Edges {
		if e.Source == src && e.Target == dst {
			at = i
			break
		}
	}
	if at < 0 {
		return g
	}
	edges := make([]Edge, 0, len(g.Edges)-1)
	edges = append(edges, g.Edges[:at]...)
	edges = append(edges, g.Edges[at+1:]...)
	return Graph{Nodes: g.Nodes, Edges: edges}
}

// SetCode replaces one cell's code text, leaving everything else
// untouched.  An unknown id leaves g unchanged and reports
// ErrNodeNotFound.
func SetCode(g Graph, id, code string) (Graph, error) {
	at := findNode(g.Nodes, id)
	if at < 0 {
		return g, ErrNodeNotFound
	}
	nodes := make([]Node, len(g.Nodes))
	copy(nodes, g.Nodes)
	nodes[at].Code = code
	return Graph{Nodes: nodes, Edges: g.Edges}, nil
}
