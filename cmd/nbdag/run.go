package main

import (
	"fmt"
	"io"
	"os"

	"github.com/plan-systems/klog"
	"github.com/spf13/cobra"

	"github.com/notebook-systems/nbdag/nbgraph"
	"github.com/notebook-systems/nbdag/pycell"
)

var (
	runTarget     string
	runSequential bool
	runFollow     bool
)

var runCmd = &cobra.Command{
	Use:   "run <notebook.ipynb>",
	Short: "Execute a notebook's cells in dependency order",
	Long: `Execute the cells of a notebook, ordered by the inferred dependency
graph rather than by cell position.  Cells run on the embedded
interpreter, or on a remote backend when one is configured.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cells, err := readCells(args[0])
		if err != nil {
			fatal(err)
		}
		ctx := cmd.Context()

		if runSequential {
			res, err := cellRunnerFromConfig().RunCells(ctx, cells)
			if err != nil {
				fatal(err)
			}
			printCellLogs(os.Stdout, res)
			if !res.OK {
				os.Exit(1)
			}
			return
		}

		g := pycell.BuildGraph(cells)
		sub := nbgraph.FullProjection(g)
		if runTarget != "" {
			if _, ok := nbgraph.GetNode(g, runTarget); !ok {
				fatal(fmt.Errorf("%q: no such cell", runTarget))
			}
			ids := nbgraph.Ancestors(g, runTarget)
			ids.Add(runTarget)
			sub = nbgraph.FullProjection(nbgraph.Project(g, ids))
		}
		req := nbgraph.NewRunRequest(sub)

		runner := runnerFromConfig()
		engine, local := runner.(*pycell.Engine)
		if runFollow && !local {
			klog.Warningf("--follow needs the in-process engine; ignoring")
		}

		var res nbgraph.RunResult
		if runFollow && local {
			// Logs print as cells complete; the engine closes the tap
			// when the run finishes.
			tap := pycell.NewLogStream()
			sink := tap.Print(os.Stdout)

			errCh := make(chan error, 1)
			go func() {
				var runErr error
				res, runErr = engine.RunGraphTo(ctx, req, tap)
				errCh <- runErr
			}()
			sink.PullAll()
			err = <-errCh
		} else {
			res, err = runner.RunGraph(ctx, req)
			if err == nil {
				printRunLogs(os.Stdout, res)
			}
		}
		if err != nil {
			fatal(err)
		}

		printOutcome(os.Stdout, res)
		if !res.OK {
			os.Exit(1)
		}
	},
}

func init() {
	runCmd.Flags().StringVar(&runTarget, "cell", "", "run only this cell and its ancestors")
	runCmd.Flags().BoolVar(&runSequential, "sequential", false, "run cells in notebook order, no dependency analysis")
	runCmd.Flags().BoolVar(&runFollow, "follow", false, "print each cell's output as it completes")
}

func printRunLogs(out io.Writer, res nbgraph.RunResult) {
	for _, entry := range res.Logs {
		fmt.Fprintf(out, "=== %s (%s)\n", entry.Node, entry.Component)
		if len(entry.Stdout) > 0 {
			io.WriteString(out, entry.Stdout)
		}
	}
}

func printOutcome(out io.Writer, res nbgraph.RunResult) {
	if res.OK {
		fmt.Fprintf(out, "ok: %d cells\n", len(res.Logs))
		return
	}
	fmt.Fprintf(out, "=== %s (%s) FAILED\n", res.FailedNode, res.Component)
	if len(res.Stdout) > 0 {
		io.WriteString(out, res.Stdout)
	}
}

func printCellLogs(out io.Writer, res nbgraph.CellRunResult) {
	for _, entry := range res.Logs {
		fmt.Fprintf(out, "=== %s\n", entry.Cell)
		if len(entry.Stdout) > 0 {
			io.WriteString(out, entry.Stdout)
		}
	}
	if res.OK {
		fmt.Fprintf(out, "ok: %d cells\n", len(res.Logs))
		return
	}
	fmt.Fprintf(out, "=== %s FAILED\n", res.FailedCell)
	if len(res.Stdout) > 0 {
		io.WriteString(out, res.Stdout)
	}
}
