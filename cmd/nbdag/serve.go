package main

import (
	"net/http"

	"github.com/plan-systems/klog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/notebook-systems/nbdag/catalog"
	"github.com/notebook-systems/nbdag/nbgraph"
	"github.com/notebook-systems/nbdag/pycell"
	"github.com/notebook-systems/nbdag/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the backend API and frontend",
	Long: `Start the HTTP backend: graph analysis, notebook upload, and cell
execution endpoints, plus static frontend files when a directory is
configured.`,
	Run: func(cmd *cobra.Command, args []string) {
		cat, err := catalog.OpenCatalog(nbgraph.CatalogOpts{
			DBPath: viper.GetString("catalog"),
		})
		if err != nil {
			fatal(err)
		}

		engine := pycell.NewEngine()
		srv := server.New(server.Opts{
			Runner:     engine,
			CellRunner: engine,
			Catalog:    cat,
			StaticDir:  viper.GetString("frontend"),
		})

		addr := viper.GetString("listen")
		klog.Infof("listening on %v", addr)
		if dir := viper.GetString("frontend"); dir != "" {
			klog.Infof("serving static from: %v", dir)
		}

		err = http.ListenAndServe(addr, srv)
		cat.Close()
		fatal(err)
	},
}

func init() {
	serveCmd.Flags().String("listen", ":8000", "address to listen on")
	serveCmd.Flags().String("frontend", "", "directory of frontend files served at / and /static/")
	bindFlags(serveCmd.Flags())
}
