// Package layout turns a cell graph into a drawing plan: one x position per
// cell and one curvature descriptor per edge.  The plan is derived state and
// is recomputed wholesale after every graph change, so for a given graph
// value it must come out identical every time.
package layout

import (
	"strings"

	"github.com/emirpasic/gods/trees/redblacktree"

	"github.com/notebook-systems/nbdag/nbgraph"
)

// RankSpacing is the fixed x distance between adjacent ranks.
const RankSpacing = 180

// Curvature model: an edge bows out from the baseline by a distance that
// grows with the rank span it crosses and with how many edges already share
// its (source rank, target rank) pair.
const (
	curveBase    = 80
	curvePerSpan = 70
	curvePerLane = 30
)

// NodePlot places one cell on the single-row baseline.
type NodePlot struct {
	ID    string  `json:"id"`
	Label string  `json:"label"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

// EdgePlot describes how to draw one edge: its lane among parallel edges and
// the arc it bows along.  Distance is signed; the sign picks the side of the
// baseline.  Weight is where along the edge the bow peaks (0..1).
type EdgePlot struct {
	Source   string  `json:"source"`
	Target   string  `json:"target"`
	Label    string  `json:"label,omitempty"`
	Lane     int     `json:"lane"`
	Distance float64 `json:"distance"`
	Weight   float64 `json:"weight"`
}

// DrawingPlan is the full renderable layout for one graph value.
type DrawingPlan struct {
	Nodes []NodePlot `json:"nodes"`
	Edges []EdgePlot `json:"edges"`
}

// Plan lays out g.  Cells are ranked by their id order key and placed left to
// right at rank * RankSpacing on a single row.  Edges whose endpoints are
// both ranked get a lane and a curvature; dangling edges are dropped.
//
// Plan is a pure function of the graph value.  Same nodes, same edge order in,
// identical plan out.
func Plan(g nbgraph.Graph) DrawingPlan {
	ranked := redblacktree.Tree{
		Comparator: func(A, B interface{}) int {
			a := A.(string)
			b := B.(string)
			if nbgraph.KeyLess(a, b) {
				return -1
			}
			if nbgraph.KeyLess(b, a) {
				return 1
			}
			return 0
		},
	}
	for _, n := range g.Nodes {
		ranked.Put(n.ID, n)
	}

	plan := DrawingPlan{
		Nodes: make([]NodePlot, 0, len(g.Nodes)),
		Edges: make([]EdgePlot, 0, len(g.Edges)),
	}

	rank := make(map[string]int, len(g.Nodes))
	{
		itr := ranked.Iterator()
		for itr.Next() {
			n := itr.Value().(nbgraph.Node)
			r := len(plan.Nodes)
			rank[n.ID] = r
			plan.Nodes = append(plan.Nodes, NodePlot{
				ID:    n.ID,
				Label: n.Label,
				X:     float64(r * RankSpacing),
				Y:     0,
			})
		}
	}

	// Lane counters keyed by the ordered (source rank, target rank) pair.
	lanes := make(map[[2]int]int)

	for _, e := range g.Edges {
		i, iOK := rank[e.Source]
		j, jOK := rank[e.Target]
		if !iOK || !jOK {
			continue
		}

		k := lanes[[2]int{i, j}]
		lanes[[2]int{i, j}] = k + 1

		span := j - i
		if span < 0 {
			span = -span
		}
		if span < 1 {
			span = 1
		}

		dist := float64(curveBase + curvePerSpan*span + curvePerLane*k)
		if (i+j+k)%2 == 1 {
			dist = -dist
		}

		weight := 0.48 + 0.02*float64(span)
		if weight > 0.60 {
			weight = 0.60
		}

		plan.Edges = append(plan.Edges, EdgePlot{
			Source:   e.Source,
			Target:   e.Target,
			Label:    strings.Join(e.Labels, ", "),
			Lane:     k,
			Distance: dist,
			Weight:   weight,
		})
	}

	return plan
}
