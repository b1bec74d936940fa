// Package cli implements the dataflow command-line interface.
//
// Graphs, executor settings and fed values are declared in a TOML file (see
// package config). The CLI is built using cobra and logs through
// charmbracelet/log.
//
// # Commands
//
//   - run: build the graph, feed values, execute it and print the fetches
//   - plan: print the evaluation order and recipient counts
//   - layers: list the registered layer types
//   - version: print build information
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. Without it the
// config's executor.log_level applies. Loggers are passed through
// context.Context.
package cli

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	version = "dev" // semantic version (e.g., "v1.2.3")
	commit  string  // git commit SHA
	date    string  // build timestamp
)

// SetVersion sets the version information displayed by --version and the
// version command. Values are usually injected via ldflags.
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
}

// Execute runs the dataflow CLI and returns an error if any command fails.
// Canceling ctx interrupts a running graph between nodes.
//
// Example:
//
//	func main() {
//	    cli.SetVersion("v1.0.0", "abc123", "2025-12-20")
//	    if err := cli.Execute(context.Background()); err != nil {
//	        os.Exit(1)
//	    }
//	}
func Execute(ctx context.Context) error {
	return newRootCmd().ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:          "dataflow",
		Short:        "Execute symbolic dataflow graphs",
		Long:         `dataflow evaluates a graph of layer calls declared in TOML, feeding concrete tensors in and releasing intermediates as soon as their last consumer has run.`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := log.InfoLevel
			if verbose {
				level = log.DebugLevel
			}
			ctx := withLogger(cmd.Context(), newLogger(cmd.ErrOrStderr(), level))
			cmd.SetContext(ctx)
		},
	}

	root.SetVersionTemplate(versionString())
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(newRunCmd())
	root.AddCommand(newPlanCmd())
	root.AddCommand(newLayersCmd())
	root.AddCommand(newVersionCmd())

	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprint(cmd.OutOrStdout(), versionString())
		},
	}
}

func versionString() string {
	return fmt.Sprintf("dataflow %s\ncommit: %s\nbuilt: %s\n", version, commit, date)
}
