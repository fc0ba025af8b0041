package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/plan-systems/klog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/notebook-systems/nbdag/client"
	"github.com/notebook-systems/nbdag/nbgraph"
	"github.com/notebook-systems/nbdag/notebook"
	"github.com/notebook-systems/nbdag/pycell"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "nbdag",
	Short: "Notebook dependency graph toolkit",
	Long: `nbdag turns notebook cells into a dependency graph: infer which
cells feed which, lay the graph out for drawing, and execute cells in
dependency order on an embedded Python interpreter.`,
	Version: "0.2.0",
	// Run: nil (Forces help output).
	Run: nil,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		klog.Flush()
		os.Exit(1)
	}
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	klog.Flush()
	os.Exit(1)
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.nbdag.yaml)")
	rootCmd.PersistentFlags().String("catalog", "", "notebook catalog db path (empty for in-memory)")
	rootCmd.PersistentFlags().String("backend", "", "remote backend base URL (empty runs cells in-process)")
	bindFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(graphCmd)
	rootCmd.AddCommand(shellCmd)
}

// bindFlags mirrors a flag set into viper keys.  The config-file selector
// stays out: it picks where viper reads from, it is not a config value.
func bindFlags(flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		if f.Name != "config" {
			viper.BindPFlag(f.Name, f)
		}
	})
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.SetConfigFile(filepath.Join(home, ".nbdag.yaml"))
			viper.SetConfigType("yaml")
		}
	}
	viper.SetEnvPrefix("NBDAG")
	viper.AutomaticEnv()
	viper.ReadInConfig()
}

func readCells(path string) ([]string, error) {
	doc, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return notebook.Cells(doc)
}

func runnerFromConfig() nbgraph.Runner {
	if backend := viper.GetString("backend"); backend != "" {
		return client.New(backend)
	}
	return pycell.NewEngine()
}

func cellRunnerFromConfig() nbgraph.CellRunner {
	if backend := viper.GetString("backend"); backend != "" {
		return client.New(backend)
	}
	return pycell.NewEngine()
}
