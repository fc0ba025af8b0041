// Package pycell runs notebook cells on an embedded Python interpreter and
// derives the def/use relationships that wire cells into a graph.
package pycell

import (
	"sort"
	"strings"

	"github.com/go-python/gpython/ast"
	"github.com/go-python/gpython/parser"
	"github.com/go-python/gpython/py"

	"github.com/notebook-systems/nbdag/nbgraph"
)

// Analyze parses one cell and reports which top-level names it binds and
// which outside names it reads.  Unparseable code yields two empty sets, so
// a broken cell simply participates in no dependencies.
//
// The analysis is a name-level heuristic, not a data-flow one: a name read
// anywhere in the cell (including inside a function body) counts as used
// unless the same cell also binds it.
func Analyze(code string) (defined, used map[string]struct{}) {
	defined = make(map[string]struct{})
	used = make(map[string]struct{})

	tree, err := parser.ParseString(code, py.ExecMode)
	if err != nil {
		return defined, used
	}

	ast.Walk(tree, func(node ast.Ast) bool {
		switch n := node.(type) {
		case *ast.Name:
			if n.Ctx == ast.Load {
				used[string(n.Id)] = struct{}{}
			}
		case *ast.Assign:
			for _, target := range n.Targets {
				collectTarget(target, defined)
			}
		case *ast.AugAssign:
			collectTarget(n.Target, defined)
		case *ast.FunctionDef:
			defined[string(n.Name)] = struct{}{}
		case *ast.ClassDef:
			defined[string(n.Name)] = struct{}{}
		case *ast.Import:
			for _, alias := range n.Names {
				name := string(alias.AsName)
				if name == "" {
					name, _, _ = strings.Cut(string(alias.Name), ".")
				}
				defined[name] = struct{}{}
			}
		case *ast.ImportFrom:
			for _, alias := range n.Names {
				name := string(alias.AsName)
				if name == "" {
					name = string(alias.Name)
				}
				defined[name] = struct{}{}
			}
		}
		return true
	})

	for name := range defined {
		delete(used, name)
	}
	return defined, used
}

// collectTarget records the names bound by one assignment target, unpacking
// tuple and list targets recursively.  Attribute and subscript targets bind
// no new name and are skipped.
func collectTarget(target ast.Expr, defined map[string]struct{}) {
	switch t := target.(type) {
	case *ast.Name:
		defined[string(t.Id)] = struct{}{}
	case *ast.Tuple:
		for _, elt := range t.Elts {
			collectTarget(elt, defined)
		}
	case *ast.List:
		for _, elt := range t.Elts {
			collectTarget(elt, defined)
		}
	}
}

// BuildGraph infers a dependency graph from an ordered list of cell sources.
// Blank cells are dropped before numbering, so ids are dense.  An edge runs
// from an earlier cell to a later one when the later cell reads a name the
// earlier one binds; the shared names become the edge labels, sorted.
//
// Only forward edges are emitted.  A name bound by a later cell cannot feed
// an earlier one, which also makes the inferred graph acyclic.
func BuildGraph(cells []string) nbgraph.Graph {
	kept := make([]string, 0, len(cells))
	for _, code := range cells {
		if strings.TrimSpace(code) == "" {
			continue
		}
		kept = append(kept, code)
	}

	defs := make([]map[string]struct{}, len(kept))
	uses := make([]map[string]struct{}, len(kept))
	for i, code := range kept {
		defs[i], uses[i] = Analyze(code)
	}

	g := nbgraph.Graph{
		Nodes: make([]nbgraph.Node, len(kept)),
		Edges: make([]nbgraph.Edge, 0, len(kept)),
	}
	for i, code := range kept {
		g.Nodes[i] = nbgraph.Node{
			ID:    nbgraph.CellID(i + 1),
			Label: nbgraph.CellLabel(i + 1),
			Code:  code,
		}
	}

	for i := range kept {
		for j := i + 1; j < len(kept); j++ {
			var shared []string
			for name := range defs[i] {
				if _, ok := uses[j][name]; ok {
					shared = append(shared, name)
				}
			}
			if len(shared) == 0 {
				continue
			}
			sort.Strings(shared)
			g.Edges = append(g.Edges, nbgraph.Edge{
				Source: nbgraph.CellID(i + 1),
				Target: nbgraph.CellID(j + 1),
				Labels: shared,
			})
		}
	}

	return g
}
