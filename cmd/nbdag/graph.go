package main

import (
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/notebook-systems/nbdag/client"
	"github.com/notebook-systems/nbdag/layout"
	"github.com/notebook-systems/nbdag/nbgraph"
	"github.com/notebook-systems/nbdag/pycell"
)

var graphPlan bool

var graphCmd = &cobra.Command{
	Use:   "graph <notebook.ipynb>",
	Short: "Print a notebook's dependency graph as JSON",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cells, err := readCells(args[0])
		if err != nil {
			fatal(err)
		}

		var g nbgraph.Graph
		if backend := viper.GetString("backend"); backend != "" {
			g, err = client.New(backend).GraphFromCells(cmd.Context(), cells)
			if err != nil {
				fatal(err)
			}
		} else {
			g = pycell.BuildGraph(cells)
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if graphPlan {
			err = enc.Encode(struct {
				Graph nbgraph.Graph      `json:"graph"`
				Plan  layout.DrawingPlan `json:"plan"`
			}{g, layout.Plan(g)})
		} else {
			err = enc.Encode(g)
		}
		if err != nil {
			fatal(err)
		}
	},
}

func init() {
	graphCmd.Flags().BoolVar(&graphPlan, "plan", false, "include the drawing plan (positions, edge curvature)")
}
