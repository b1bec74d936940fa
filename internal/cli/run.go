package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/born-ml/dataflow/internal/config"
	"github.com/born-ml/dataflow/internal/executor"
	"github.com/born-ml/dataflow/internal/graph"
	"github.com/born-ml/dataflow/internal/layers"
	"github.com/born-ml/dataflow/internal/tensor"
)

type runOpts struct {
	training bool
	stats    bool
	repeat   int
}

func newRunCmd() *cobra.Command {
	var opts runOpts

	cmd := &cobra.Command{
		Use:   "run <config.toml>",
		Short: "Execute a graph and print the fetched values",
		Long: `Build the graph declared in a TOML file, feed the configured values, execute
it and print one line per fetched tensor.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGraph(cmd, args[0], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.training, "training", false, "run layers in training mode (overrides executor.training)")
	cmd.Flags().BoolVar(&opts.stats, "stats", false, "report live tensor counts sampled during execution")
	cmd.Flags().IntVar(&opts.repeat, "repeat", 1, "execute the graph this many times, reusing the cached plan")

	return cmd
}

// loadProgram reads a config file and builds its graph.
func loadProgram(cmd *cobra.Command, path string) (*config.Config, *config.Program, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	applyLogLevel(cmd, loggerFromContext(cmd.Context()), cfg.Executor.LogLevel)

	prog, err := cfg.Build(layers.NewRegistry())
	if err != nil {
		return nil, nil, fmt.Errorf("build graph: %w", err)
	}
	return cfg, prog, nil
}

func runGraph(cmd *cobra.Command, path string, opts runOpts) error {
	if opts.repeat < 1 {
		return fmt.Errorf("--repeat must be positive, got %d", opts.repeat)
	}

	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	cfg, prog, err := loadProgram(cmd, path)
	if err != nil {
		return err
	}
	feed, err := cfg.NewFeedDict(prog)
	if err != nil {
		return err
	}
	defer feed.DisposeMasks()

	cache, err := executor.NewPlanCache(cfg.Executor.CacheMaxEntries)
	if err != nil {
		return err
	}
	exec := executor.New(executor.WithPlanCache(cache), executor.WithLogger(logger))
	args := graph.CallArgs{Training: opts.training || cfg.Executor.Training}

	var (
		live executor.ExecutionStats
		outs []*tensor.RawTensor
	)
	p := newProgress(logger)
	for i := 0; i < opts.repeat; i++ {
		releaseFetched(prog.Fetches, outs, feed)
		outs, err = exec.Execute(ctx, prog.Fetches, feed, executor.WithArgs(args), executor.WithStats(&live))
		if err != nil {
			return err
		}
	}
	defer releaseFetched(prog.Fetches, outs, feed)
	stats := cache.Stats()
	logger.Debug("plan cache", "hits", stats.Hits, "misses", stats.Misses, "entries", stats.Entries)
	p.done(fmt.Sprintf("Executed %d fetches from %s", len(prog.Fetches), path))

	w := cmd.OutOrStdout()
	for i, f := range prog.Fetches {
		fmt.Fprintf(w, "%s %s %s\n", f.Name, outs[i], formatValues(outs[i]))
	}
	if opts.stats {
		fmt.Fprintf(w, "live tensors: min %d, max %d over %d samples\n",
			live.MinNumTensors, live.MaxNumTensors, live.Samples)
	}
	return nil
}

// releaseFetched releases computed fetch values. Fed values belong to feed.
func releaseFetched(fetches []*graph.SymbolicTensor, outs []*tensor.RawTensor, feed *executor.FeedDict) {
	for i, v := range outs {
		if feed.HasKey(fetches[i]) || v.IsReleased() {
			continue
		}
		v.Release()
	}
}

// formatValues renders the flat contents of t.
func formatValues(t *tensor.RawTensor) string {
	if t.DType() == tensor.Bool {
		return fmt.Sprint(t.AsBool())
	}
	return fmt.Sprint(t.AsFloat32())
}

func writeLines(w io.Writer, lines []string) {
	for _, l := range lines {
		fmt.Fprintln(w, l)
	}
}
