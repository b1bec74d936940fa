package executor

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/born-ml/dataflow/internal/graph"
	"github.com/born-ml/dataflow/internal/tensor"
)

// Executor evaluates fetches of a symbolic graph against a FeedDict.
//
// Intermediate values are released as soon as their last consumer has run,
// unless they are fetched, fed by the caller, or produced by a stateful layer.
// An Executor holds no per-call state; it is not designed for concurrent
// Execute calls on the same graph.
type Executor struct {
	cache  *PlanCache
	logger *log.Logger
}

// Option configures an Executor.
type Option func(*Executor)

// WithPlanCache uses c instead of the process-wide plan cache.
func WithPlanCache(c *PlanCache) Option {
	return func(e *Executor) {
		e.cache = c
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(l *log.Logger) Option {
	return func(e *Executor) {
		e.logger = l
	}
}

// New creates an Executor.
func New(opts ...Option) *Executor {
	e := &Executor{}
	for _, opt := range opts {
		opt(e)
	}
	if e.cache == nil {
		e.cache = DefaultPlanCache()
	}
	if e.logger == nil {
		e.logger = log.Default()
	}
	return e
}

// Cache returns the plan cache used by e.
func (e *Executor) Cache() *PlanCache {
	return e.cache
}

// ExecutionStats records the range of live tensor counts observed while
// executing, sampled before each node.
type ExecutionStats struct {
	MaxNumTensors int
	MinNumTensors int
	Samples       int
}

func (p *ExecutionStats) sample() {
	n := tensor.Memory().NumTensors
	if p.Samples == 0 || n > p.MaxNumTensors {
		p.MaxNumTensors = n
	}
	if p.Samples == 0 || n < p.MinNumTensors {
		p.MinNumTensors = n
	}
	p.Samples++
}

type execConfig struct {
	args  graph.CallArgs
	stats *ExecutionStats
}

// ExecuteOption configures a single Execute call.
type ExecuteOption func(*execConfig)

// WithArgs forwards args to every layer call. args.Training disables
// disposal of intermediates.
func WithArgs(args graph.CallArgs) ExecuteOption {
	return func(c *execConfig) {
		c.args = args
	}
}

// WithStats samples live tensor counts into p.
func WithStats(p *ExecutionStats) ExecuteOption {
	return func(c *execConfig) {
		c.stats = p
	}
}

// ExecuteOne is Execute for a single fetch.
func (e *Executor) ExecuteOne(ctx context.Context, fetch *graph.SymbolicTensor, feed *FeedDict, opts ...ExecuteOption) (*tensor.RawTensor, error) {
	out, err := e.Execute(ctx, []*graph.SymbolicTensor{fetch}, feed, opts...)
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// Execute computes the values of fetches, index-aligned with the fetches.
//
// The caller's feed is never modified; evaluation happens on a private copy
// that is discarded when the call returns. On error, every value produced by
// this call is released and nothing is returned.
//
//nolint:gocognit // Execute interleaves evaluation and disposal in one pass.
func (e *Executor) Execute(ctx context.Context, fetches []*graph.SymbolicTensor, feed *FeedDict, opts ...ExecuteOption) ([]*tensor.RawTensor, error) {
	var cfg execConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	training := cfg.args.Training

	if feed == nil {
		feed, _ = NewFeedDict() //nolint:errcheck // no feeds, cannot fail
	}

	outputs := make([]*tensor.RawTensor, len(fetches))
	fetchSlots := make(map[string][]int, len(fetches))
	for i, f := range fetches {
		fetchSlots[f.Name] = append(fetchSlots[f.Name], i)
		if feed.HasKey(f) {
			outputs[i], _ = feed.Value(ByTensor(f)) //nolint:errcheck // checked by HasKey
		}
	}

	plan, err := e.plan(fetches, feed)
	if err != nil {
		return nil, err
	}
	counts := plan.Counts.clone()

	work := feed.Clone()
	defer work.DisposeMasks()

	var produced []*tensor.RawTensor
	fail := func(err error) ([]*tensor.RawTensor, error) {
		for _, v := range produced {
			v.Release()
		}
		return nil, err
	}

	disposed := 0
	for _, t := range plan.Sorted {
		if err := ctx.Err(); err != nil {
			return fail(fmt.Errorf("execution interrupted before %s: %w", t.Name, err))
		}
		if t.IsInput() {
			if !work.HasKey(t) {
				return fail(newError(ErrCodeMissingInput, "input %s was not fed", t.Name))
			}
			continue
		}
		if cfg.stats != nil {
			cfg.stats.sample()
		}

		node := t.Node
		values := make([]*tensor.RawTensor, len(node.Inputs))
		masks := make([]*tensor.RawTensor, len(node.Inputs))
		maskExists := false
		var toDispose []*tensor.RawTensor
		decremented := make(map[string]bool, len(node.Inputs))
		for i, in := range node.Inputs {
			v, err := work.Value(ByTensor(in))
			if err != nil {
				return fail(wrapError(ErrCodeMissingInput, err, "node %s: input %s not computed", t.Name, in.Name))
			}
			values[i] = v
			masks[i] = work.Mask(ByTensor(in))
			if masks[i] != nil {
				maskExists = true
			}

			// Counts hold distinct consumers, so a node reading the same
			// tensor twice decrements it once.
			if training || decremented[in.Name] {
				continue
			}
			decremented[in.Name] = true
			counts[in.Name]--
			if counts[in.Name] == 0 && e.disposable(in, v, feed, fetchSlots) {
				toDispose = append(toDispose, v)
			}
		}

		var outs []*tensor.RawTensor
		if !allPresent(work, node.Outputs) {
			args := cfg.args
			args.Mask = nil
			if maskExists {
				args.Mask = masks
			}
			outs, err = node.Layer.Apply(values, args)
			if err != nil {
				return fail(wrapError(ErrCodeLayerFailed, err, "node %s (%T)", t.Name, node.Layer))
			}
			if len(outs) != len(node.Outputs) {
				releaseAll(outs, values)
				return fail(newError(ErrCodeLayerFailed, "node %s (%T): returned %d outputs, want %d",
					t.Name, node.Layer, len(outs), len(node.Outputs)))
			}

			var outMasks []*tensor.RawTensor
			if masker, ok := node.Layer.(graph.Masker); ok {
				outMasks, err = masker.ComputeMask(values, masks)
				if err != nil {
					releaseAll(outs, values)
					return fail(wrapError(ErrCodeLayerFailed, err, "node %s (%T): compute mask", t.Name, node.Layer))
				}
			}

			var dropped []*tensor.RawTensor
			for i, out := range node.Outputs {
				if work.HasKey(out) {
					if !contains(values, outs[i]) {
						outs[i].Release()
					}
					if m := maskAt(outMasks, i); m != nil && !contains(masks, m) {
						dropped = append(dropped, m)
					}
					continue
				}
				if err := work.Add(out, outs[i], maskAt(outMasks, i)); err != nil {
					return fail(err)
				}
				if !graph.IsStateful(node.Layer) && !contains(values, outs[i]) {
					produced = append(produced, outs[i])
				}
			}

			for _, m := range dropped {
				if !work.holdsMask(m) && !m.IsReleased() {
					m.Release()
				}
			}

			// Outputs nobody in this plan reads or fetches.
			if !training && !graph.IsStateful(node.Layer) {
				for i, out := range node.Outputs {
					if counts[out.Name] > 0 || len(fetchSlots[out.Name]) > 0 || contains(values, outs[i]) {
						continue
					}
					if v, _ := work.Value(ByTensor(out)); v == outs[i] && !v.IsReleased() { //nolint:errcheck // stored above
						v.Release()
						disposed++
					}
				}
			}
		}

		for _, out := range node.Outputs {
			for _, slot := range fetchSlots[out.Name] {
				outputs[slot], _ = work.Value(ByTensor(out)) //nolint:errcheck // stored above
			}
		}

		if !training {
			for _, v := range toDispose {
				if contains(outs, v) || v.IsReleased() {
					continue
				}
				v.Release()
				disposed++
			}
		}
	}

	for i, out := range outputs {
		if out == nil {
			return fail(newError(ErrCodeMissingInput, "fetch %s was not computed", fetches[i].Name))
		}
	}

	e.logger.Debug("executed graph",
		"fetches", len(fetches),
		"nodes", len(plan.Sorted),
		"disposed", disposed,
		"training", training)
	if cfg.stats != nil {
		e.logger.Debug("execution stats",
			"max_tensors", cfg.stats.MaxNumTensors,
			"min_tensors", cfg.stats.MinNumTensors)
	}
	return outputs, nil
}

// disposable reports whether in's value may be released once its last
// consumer has run.
func (e *Executor) disposable(in *graph.SymbolicTensor, v *tensor.RawTensor, feed *FeedDict, fetchSlots map[string][]int) bool {
	if feed.HasKey(in) || v.IsReleased() {
		return false
	}
	if _, fetched := fetchSlots[in.Name]; fetched {
		return false
	}
	return !graph.IsStateful(in.Layer())
}

// plan returns the cached evaluation plan for this fetch/feed shape,
// computing it on a miss.
func (e *Executor) plan(fetches []*graph.SymbolicTensor, feed *FeedDict) (*Plan, error) {
	if len(fetches) == 0 {
		return nil, newError(ErrCodeEmptyFetchSet, "expected at least one fetch, got none")
	}
	key := planKey(fetches, feed)
	if p, ok := e.cache.Get(key); ok {
		e.logger.Debug("plan cache hit", "fetches", len(fetches), "nodes", len(p.Sorted))
		return p, nil
	}

	sorted, counts, err := TopologicalSort(fetches, feed)
	if err != nil {
		return nil, err
	}
	p := &Plan{Sorted: sorted, Counts: counts}
	e.cache.Add(key, p)
	e.logger.Debug("plan cache miss", "fetches", len(fetches), "nodes", len(sorted))
	return p, nil
}

func allPresent(d *FeedDict, ts []*graph.SymbolicTensor) bool {
	for _, t := range ts {
		if !d.HasKey(t) {
			return false
		}
	}
	return true
}

func maskAt(masks []*tensor.RawTensor, i int) *tensor.RawTensor {
	if i < len(masks) {
		return masks[i]
	}
	return nil
}

func contains(vs []*tensor.RawTensor, v *tensor.RawTensor) bool {
	for _, x := range vs {
		if x == v {
			return true
		}
	}
	return false
}

// releaseAll releases layer outputs that are not aliases of its inputs.
func releaseAll(outs, inputs []*tensor.RawTensor) {
	for _, o := range outs {
		if o != nil && !contains(inputs, o) {
			o.Release()
		}
	}
}
