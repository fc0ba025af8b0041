package nbgraph

import (
	"context"
)

// Node is one code cell in the workspace graph.
type Node struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Code  string `json:"code"`
}

// Edge is a directed dependency: Source must run before Target.
// Labels name the values that flow across the edge (display only).
type Edge struct {
	Source string   `json:"source"`
	Target string   `json:"target"`
	Labels []string `json:"labels,omitempty"`
}

// Graph is a snapshot of cells and their dependencies.
//
// Snapshots are values: edit operations copy whatever they change and
// never write through slices of the version passed in, so two snapshots
// may share unchanged backing arrays safely.  Consumers must treat the
// returned graph as the new authoritative version.
//
// Invariants maintained by the edit operations:
//   - node ids are unique
//   - at most one edge per ordered (source, target) pair
//   - no self-loop edges
//   - every edge endpoint names a present node
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// RunNode is the executable slice of a Node shipped to an executor.
type RunNode struct {
	ID   string `json:"id"`
	Code string `json:"code"`
}

type RunEdge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// RunRequest is the subgraph payload submitted for execution.
type RunRequest struct {
	Nodes []RunNode `json:"nodes"`
	Edges []RunEdge `json:"edges"`
}

// RunLog is one executed cell's captured output, in execution order.
// Component labels the weakly-connected group the cell was scheduled in.
type RunLog struct {
	Node      string `json:"node"`
	Component string `json:"component"`
	Stdout    string `json:"stdout"`
}

// RunResult reports a graph execution.  Either every submitted cell ran
// (OK set, Logs complete) or execution stopped at FailedNode, in which
// case Logs holds the cells that succeeded before it and Stdout the
// failing cell's partial output with the traceback appended.
type RunResult struct {
	OK         bool     `json:"ok"`
	Logs       []RunLog `json:"logs"`
	FailedNode string   `json:"failed_node,omitempty"`
	Component  string   `json:"component,omitempty"`
	Stdout     string   `json:"stdout,omitempty"`
}

// CellLog and CellRunResult mirror the sequential runner's report,
// which numbers cells by position instead of graph identity.
type CellLog struct {
	Cell   string `json:"cell"`
	Stdout string `json:"stdout"`
}

type CellRunResult struct {
	OK         bool      `json:"ok"`
	Logs       []CellLog `json:"logs"`
	FailedCell string    `json:"failed_cell,omitempty"`
	Stdout     string    `json:"stdout,omitempty"`
}

// Runner executes a submitted subgraph in dependency order and reports
// per-cell output.  Implementations decide scheduling; callers only
// shape the payload and render the report.
type Runner interface {
	RunGraph(ctx context.Context, req RunRequest) (RunResult, error)
}

// CellRunner is the legacy sequential variant: cells run in the order
// given, sharing one environment, with no dependency analysis.
type CellRunner interface {
	RunCells(ctx context.Context, cells []string) (CellRunResult, error)
}

// CatalogOpts specifies params for opening a notebook Catalog
type CatalogOpts struct {
	DBPath   string // omit for in-memory db
	ReadOnly bool   // open in read-only mode
}

// CatalogEntry describes one archived notebook document.
type CatalogEntry struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// Catalog archives uploaded notebook documents by filename.
type Catalog interface {

	// Put stores a notebook document, overwriting any previous copy
	// under the same name.  isNew reports whether the name was unseen.
	Put(name string, data []byte) (isNew bool, err error)

	// Get returns the stored document, or ErrNotebookNotFound.
	Get(name string) ([]byte, error)

	// List enumerates archived notebooks in name order.
	List() ([]CatalogEntry, error)

	// NumSaved returns how many distinct names have been archived.
	NumSaved() int64

	// Returns true if this catalog was opened for read-only access.
	IsReadOnly() bool

	Close() error
}
