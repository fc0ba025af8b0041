package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/notebook-systems/nbdag/nbgraph"
	"github.com/notebook-systems/nbdag/pycell"
	"github.com/notebook-systems/nbdag/session"
)

var shellCmd = &cobra.Command{
	Use:   "shell [notebook.ipynb]",
	Short: "Edit and run a notebook graph interactively",
	Long: `Open an interactive session on a notebook graph.  Commands:

  add                        append a new cell
  remove <cell>              delete a cell, bridging its edges
  connect <src> <dst>        add a dependency edge
  disconnect <src> <dst>     remove a dependency edge
  code <cell> "<source>"     replace a cell's code
  run all | run <cell>       execute cells in dependency order
  show | plan | quit`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		sess := session.New(runnerFromConfig())
		if len(args) > 0 {
			cells, err := readCells(args[0])
			if err != nil {
				fatal(err)
			}
			sess.SetGraph(pycell.BuildGraph(cells))
		}

		out := cmd.OutOrStdout()
		printGraph(out, sess.Graph())

		in := bufio.NewScanner(os.Stdin)
		fmt.Fprint(out, "> ")
		for in.Scan() {
			line := strings.TrimSpace(in.Text())
			switch line {
			case "":
			case "quit", "exit":
				return
			case "show":
				printGraph(out, sess.Graph())
			case "plan":
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				enc.Encode(sess.Plan())
			default:
				applyLine(out, sess, cmd, line)
			}
			fmt.Fprint(out, "> ")
		}
	},
}

func applyLine(out io.Writer, sess *session.Session, cmd *cobra.Command, line string) {
	parsed, err := session.ParseCommand(line)
	if err != nil {
		fmt.Fprintf(out, "?: %v\n", err)
		return
	}

	res, err := sess.Apply(cmd.Context(), parsed)
	if err != nil {
		fmt.Fprintf(out, "error: %v\n", err)
		return
	}
	if res != nil {
		printRunLogs(out, *res)
		printOutcome(out, *res)
		return
	}
	printGraph(out, sess.Graph())
}

func printGraph(out io.Writer, g nbgraph.Graph) {
	for _, n := range g.Nodes {
		fmt.Fprintf(out, "%-8s %s\n", n.ID, firstLine(n.Code))
	}
	for _, e := range g.Edges {
		arrow := e.Source + " -> " + e.Target
		if len(e.Labels) > 0 {
			arrow += "  [" + strings.Join(e.Labels, ", ") + "]"
		}
		fmt.Fprintf(out, "  %s\n", arrow)
	}
}

func firstLine(code string) string {
	if i := strings.IndexByte(code, '\n'); i >= 0 {
		return code[:i]
	}
	return code
}
