package pycell

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/go-python/gpython/ast"
	"github.com/go-python/gpython/compile"
	"github.com/go-python/gpython/parser"
	"github.com/go-python/gpython/py"
	"github.com/pkg/errors"

	"github.com/notebook-systems/nbdag/nbgraph"

	_ "github.com/go-python/gpython/stdlib"
)

// Engine executes notebook cells on an embedded Python interpreter.  Each
// run gets a fresh interpreter context; cells within a run share one module
// environment, the way a notebook kernel shares its globals.
//
// Cell output is captured by rebinding the interpreter's sys.stdout and the
// process-level stdout (gpython builtins write through either) to a pipe.
// That rebinding is process-global, so runs serialize on gRunMu across all
// Engine instances.
type Engine struct{}

var gRunMu sync.Mutex

func NewEngine() *Engine {
	return &Engine{}
}

// RunGraph executes the cells of req in dependency order and reports one
// log entry per completed cell.  Execution stops at the first cell that
// raises; the result then carries the failing cell's id, component, and
// partial output.  A cycle in req surfaces as ErrCycle before anything runs.
func (eng *Engine) RunGraph(ctx context.Context, req nbgraph.RunRequest) (nbgraph.RunResult, error) {
	return eng.run(ctx, req, nil)
}

// RunGraphTo is RunGraph with each completed cell's log entry additionally
// pushed to tap as the run progresses.  The tap is closed when the run
// finishes, so the consumer must drain it concurrently.
func (eng *Engine) RunGraphTo(ctx context.Context, req nbgraph.RunRequest, tap *LogStream) (nbgraph.RunResult, error) {
	defer tap.Close()
	return eng.run(ctx, req, tap)
}

func (eng *Engine) run(ctx context.Context, req nbgraph.RunRequest, tap *LogStream) (nbgraph.RunResult, error) {
	order, componentOf, err := executionOrder(req)
	if err != nil {
		return nbgraph.RunResult{}, err
	}

	gRunMu.Lock()
	defer gRunMu.Unlock()

	state, err := newRunState()
	if err != nil {
		return nbgraph.RunResult{}, err
	}
	defer state.close()

	result := nbgraph.RunResult{
		OK:   true,
		Logs: make([]nbgraph.RunLog, 0, len(order)),
	}

	for _, cell := range order {
		if err := ctx.Err(); err != nil {
			return nbgraph.RunResult{}, errors.WithStack(err)
		}

		stdout, runErr := state.execCell(cell.Code)
		entry := nbgraph.RunLog{
			Node:      cell.ID,
			Component: componentOf[cell.ID],
			Stdout:    stdout,
		}
		if runErr != nil {
			result.OK = false
			result.FailedNode = cell.ID
			result.Component = entry.Component
			result.Stdout = stdout
			break
		}
		result.Logs = append(result.Logs, entry)
		if tap != nil {
			tap.Outlet <- entry
		}
	}

	return result, nil
}

// RunCells is the legacy linear runner: cells execute in list order in one
// shared environment, no graph involved.  Blank cells are dropped before
// numbering, matching how inferred graphs number them.
func (eng *Engine) RunCells(ctx context.Context, cells []string) (nbgraph.CellRunResult, error) {
	gRunMu.Lock()
	defer gRunMu.Unlock()

	state, err := newRunState()
	if err != nil {
		return nbgraph.CellRunResult{}, err
	}
	defer state.close()

	result := nbgraph.CellRunResult{
		OK:   true,
		Logs: make([]nbgraph.CellLog, 0, len(cells)),
	}

	n := 0
	for _, code := range cells {
		if strings.TrimSpace(code) == "" {
			continue
		}
		n++

		if err := ctx.Err(); err != nil {
			return nbgraph.CellRunResult{}, errors.WithStack(err)
		}

		stdout, runErr := state.execCell(code)
		if runErr != nil {
			result.OK = false
			result.FailedCell = nbgraph.CellID(n)
			result.Stdout = stdout
			break
		}
		result.Logs = append(result.Logs, nbgraph.CellLog{
			Cell:   nbgraph.CellID(n),
			Stdout: stdout,
		})
	}

	return result, nil
}

// runState is one interpreter session: a context plus the module whose
// globals persist across cells.
type runState struct {
	pyCtx py.Context
	mod   *py.Module
}

func newRunState() (*runState, error) {
	pyCtx := py.NewContext(py.DefaultContextOpts())

	mod, err := py.RunSrc(pyCtx, "pass", "<notebook>", nil)
	if err != nil {
		pyCtx.Close()
		return nil, errors.Wrap(err, "init cell environment")
	}
	return &runState{pyCtx: pyCtx, mod: mod}, nil
}

func (state *runState) close() {
	state.pyCtx.Close()
	<-state.pyCtx.Done()
}

// execCell runs one cell and returns everything it wrote to stdout/stderr.
// On a raise, the returned text additionally carries the interpreter
// traceback and runErr is non-nil.
func (state *runState) execCell(code string) (string, error) {
	rd, wr, err := os.Pipe()
	if err != nil {
		return "", errors.Wrap(err, "cell capture")
	}

	// Drain concurrently so a chatty cell can't fill the pipe and stall.
	var captured bytes.Buffer
	done := make(chan struct{})
	go func() {
		io.Copy(&captured, rd)
		close(done)
	}()

	sys := state.pyCtx.Store().MustGetModule("sys")
	prevOut := sys.Globals["stdout"]
	prevErr := sys.Globals["stderr"]
	pyWr := &py.File{File: wr, FileMode: py.FileWrite}
	sys.Globals["stdout"] = pyWr
	sys.Globals["stderr"] = pyWr

	prevStdout := os.Stdout
	prevStderr := os.Stderr
	os.Stdout = wr
	os.Stderr = wr

	runErr := state.runCell(code, wr)
	if runErr != nil {
		// Lands in the capture while stderr is still rebound.
		py.TracebackDump(runErr)
	}

	os.Stdout = prevStdout
	os.Stderr = prevStderr
	sys.Globals["stdout"] = prevOut
	sys.Globals["stderr"] = prevErr

	wr.Close()
	<-done
	rd.Close()

	return captured.String(), runErr
}

// runCell compiles and executes one cell in the shared module.  When the
// cell ends in a bare expression, the expression's repr is echoed to the
// capture, notebook style, unless it evaluates to None.
func (state *runState) runCell(code string, echo io.Writer) error {
	tree, err := parser.ParseString(code, py.ExecMode)
	if err != nil {
		return err
	}

	module, _ := tree.(*ast.Module)
	var last *ast.ExprStmt
	if module != nil && len(module.Body) > 0 {
		last, _ = module.Body[len(module.Body)-1].(*ast.ExprStmt)
	}

	if last == nil {
		prog, err := compile.CompileAst(tree, "<cell>", 0, true)
		if err != nil {
			return err
		}
		_, err = state.pyCtx.RunCode(prog, state.mod.Globals, state.mod.Globals, nil)
		return err
	}

	module.Body = module.Body[:len(module.Body)-1]
	if len(module.Body) > 0 {
		prefix, err := compile.CompileAst(module, "<cell>", 0, true)
		if err != nil {
			return err
		}
		if _, err = state.pyCtx.RunCode(prefix, state.mod.Globals, state.mod.Globals, nil); err != nil {
			return err
		}
	}

	tail, err := compile.CompileAst(&ast.Expression{Body: last.Value}, "<cell>", 0, true)
	if err != nil {
		return err
	}
	value, err := state.pyCtx.RunCode(tail, state.mod.Globals, state.mod.Globals, nil)
	if err != nil {
		return err
	}
	if value != py.None {
		repr, err := py.Repr(value)
		if err != nil {
			return err
		}
		fmt.Fprintf(echo, "%v\n", repr)
	}
	return nil
}
