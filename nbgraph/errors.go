package nbgraph

import "errors"

// Errors
var (
	ErrNodeNotFound     = errors.New("no such cell")
	ErrNoSelection      = errors.New("no cell is selected")
	ErrCycle            = errors.New("dependency cycle detected")
	ErrBadCatalogParam  = errors.New("bad catalog param")
	ErrNotebookNotFound = errors.New("notebook not found")
	ErrBadNotebook      = errors.New("unreadable notebook file")
)
