package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	version string
	commit  string
	date    string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "warren",
	Short: "Warren - Distributed constraint optimization solver",
	Long: `Warren solves Distributed Constraint Optimization Problems (DCOPs)
with the asynchronous, complete BnB-ADOPT algorithm: one agent per group of
variables, message passing along a depth-first pseudo-tree, and a globally
optimal assignment at termination.

Agents run in-process and exchange messages over channels by default, or
through a shared Redis server; all agents of a run live in one process.`,
	Version: version,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}
