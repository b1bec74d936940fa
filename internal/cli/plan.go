package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/born-ml/dataflow/internal/executor"
	"github.com/born-ml/dataflow/internal/graph"
	"github.com/born-ml/dataflow/internal/layers"
)

func newPlanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plan <config.toml>",
		Short: "Print the evaluation order and recipient counts",
		Long: `Print the order in which tensors of the configured graph would be evaluated
for its fetches and feeds, followed by how many consumers each tensor has.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printPlan(cmd, args[0])
		},
	}
}

func printPlan(cmd *cobra.Command, path string) error {
	cfg, prog, err := loadProgram(cmd, path)
	if err != nil {
		return err
	}
	feed, err := cfg.NewFeedDict(prog)
	if err != nil {
		return err
	}
	defer feed.DisposeMasks()

	sorted, counts, err := executor.TopologicalSort(prog.Fetches, feed)
	if err != nil {
		return err
	}
	loggerFromContext(cmd.Context()).Debug("sorted graph", "tensors", len(sorted), "feeds", feed.Len())

	lines := []string{"order:"}
	for i, t := range sorted {
		lines = append(lines, fmt.Sprintf("  %d. %s", i+1, describe(t, feed)))
	}

	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)
	lines = append(lines, "recipients:")
	for _, name := range names {
		lines = append(lines, fmt.Sprintf("  %s %d", name, counts[name]))
	}

	writeLines(cmd.OutOrStdout(), lines)
	return nil
}

// describe renders a tensor as "name = Kind(inputs)", or "name (fed)".
func describe(t *graph.SymbolicTensor, feed *executor.FeedDict) string {
	if feed.HasKey(t) {
		return t.Name + " (fed)"
	}
	kind := fmt.Sprintf("%T", t.Layer())
	if i := strings.LastIndexByte(kind, '.'); i >= 0 {
		kind = kind[i+1:]
	}
	inputs := make([]string, len(t.Inputs()))
	for i, in := range t.Inputs() {
		inputs[i] = in.Name
	}
	return fmt.Sprintf("%s = %s(%s)", t.Name, kind, strings.Join(inputs, ", "))
}

func newLayersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "layers",
		Short: "List the layer types usable in a graph config",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			writeLines(cmd.OutOrStdout(), layers.NewRegistry().SupportedTypes())
		},
	}
}
