package nbgraph_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notebook-systems/nbdag/nbgraph"
)

func TestAncestors(t *testing.T) {
	t.Run("collects both parents but not the target", func(t *testing.T) {
		g := nbgraph.Graph{
			Nodes: cells("cell-1", "cell-2", "cell-3"),
			Edges: []nbgraph.Edge{edge("cell-1", "cell-2"), edge("cell-3", "cell-2")},
		}
		anc := nbgraph.Ancestors(g, "cell-2")
		assert.True(t, anc.Contains("cell-1"))
		assert.True(t, anc.Contains("cell-3"))
		assert.False(t, anc.Contains("cell-2"))
		assert.Len(t, anc, 2)
	})

	t.Run("closed under parent edges", func(t *testing.T) {
		g := nbgraph.Graph{
			Nodes: cells("cell-1", "cell-2", "cell-3", "cell-4"),
			Edges: []nbgraph.Edge{
				edge("cell-1", "cell-2"),
				edge("cell-2", "cell-3"),
				edge("cell-4", "cell-1"),
			},
		}
		anc := nbgraph.Ancestors(g, "cell-3")
		for _, id := range []string{"cell-1", "cell-2", "cell-4"} {
			assert.True(t, anc.Contains(id), "missing ancestor %s", id)
		}
	})

	t.Run("ignores descendants and unrelated cells", func(t *testing.T) {
		g := nbgraph.Graph{
			Nodes: cells("cell-1", "cell-2", "cell-3", "cell-4"),
			Edges: []nbgraph.Edge{edge("cell-1", "cell-2"), edge("cell-2", "cell-3")},
		}
		anc := nbgraph.Ancestors(g, "cell-2")
		assert.False(t, anc.Contains("cell-3"))
		assert.False(t, anc.Contains("cell-4"))
		assert.Len(t, anc, 1)
	})

	t.Run("terminates on cycles", func(t *testing.T) {
		g := nbgraph.Graph{
			Nodes: cells("cell-1", "cell-2", "cell-3"),
			Edges: []nbgraph.Edge{
				edge("cell-1", "cell-2"),
				edge("cell-2", "cell-3"),
				edge("cell-3", "cell-1"),
			},
		}
		anc := nbgraph.Ancestors(g, "cell-2")
		assert.True(t, anc.Contains("cell-1"))
		assert.True(t, anc.Contains("cell-3"))
		assert.False(t, anc.Contains("cell-2"))
	})

	t.Run("source cell has no ancestors", func(t *testing.T) {
		g := nbgraph.Graph{
			Nodes: cells("cell-1", "cell-2"),
			Edges: []nbgraph.Edge{edge("cell-1", "cell-2")},
		}
		assert.Empty(t, nbgraph.Ancestors(g, "cell-1"))
	})
}

func TestProject(t *testing.T) {
	g := nbgraph.Graph{
		Nodes: cells("cell-1", "cell-2", "cell-3"),
		Edges: []nbgraph.Edge{
			edge("cell-1", "cell-2"),
			edge("cell-2", "cell-3"),
			edge("cell-1", "cell-3"),
		},
	}

	ids := nbgraph.IDSet{}
	ids.Add("cell-1")
	ids.Add("cell-3")

	sub := nbgraph.Project(g, ids)
	assert.Equal(t, cells("cell-1", "cell-3"), sub.Nodes)
	require.Len(t, sub.Edges, 1)
	assert.True(t, nbgraph.HasEdge(sub, "cell-1", "cell-3"))

	t.Run("keeps the host graph's node order", func(t *testing.T) {
		rev := nbgraph.IDSet{}
		rev.Add("cell-3")
		rev.Add("cell-1")
		assert.Equal(t, sub.Nodes, nbgraph.Project(g, rev).Nodes)
	})
}

func TestFullProjection(t *testing.T) {
	g := nbgraph.Graph{
		Nodes: cells("cell-10", "cell-2", "cell-1"),
		Edges: []nbgraph.Edge{
			edge("cell-2", "cell-10"),
			edge("cell-1", "cell-10"),
			edge("cell-1", "cell-2"),
		},
	}

	out := nbgraph.FullProjection(g)
	assert.Equal(t, cells("cell-1", "cell-2", "cell-10"), out.Nodes)
	require.Len(t, out.Edges, 3)
	assert.Equal(t, edge("cell-1", "cell-2"), out.Edges[0])
	assert.Equal(t, edge("cell-1", "cell-10"), out.Edges[1])
	assert.Equal(t, edge("cell-2", "cell-10"), out.Edges[2])

	t.Run("insertion order does not leak through", func(t *testing.T) {
		shuffled := nbgraph.Graph{
			Nodes: cells("cell-2", "cell-1", "cell-10"),
			Edges: []nbgraph.Edge{
				edge("cell-1", "cell-2"),
				edge("cell-2", "cell-10"),
				edge("cell-1", "cell-10"),
			},
		}
		assert.Equal(t, out, nbgraph.FullProjection(shuffled))
	})
}

func TestNewRunRequest(t *testing.T) {
	g := nbgraph.Graph{
		Nodes: []nbgraph.Node{
			{ID: "cell-1", Label: "Cell 1", Code: "x = 1"},
			{ID: "cell-2", Label: "Cell 2", Code: "print(x)"},
		},
		Edges: []nbgraph.Edge{{Source: "cell-1", Target: "cell-2", Labels: []string{"x"}}},
	}

	req := nbgraph.NewRunRequest(g)
	require.Len(t, req.Nodes, 2)
	assert.Equal(t, nbgraph.RunNode{ID: "cell-1", Code: "x = 1"}, req.Nodes[0])
	assert.Equal(t, nbgraph.RunNode{ID: "cell-2", Code: "print(x)"}, req.Nodes[1])
	require.Len(t, req.Edges, 1)
	assert.Equal(t, nbgraph.RunEdge{Source: "cell-1", Target: "cell-2"}, req.Edges[0])
}
