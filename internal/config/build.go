package config

import (
	"fmt"

	"github.com/born-ml/dataflow/internal/executor"
	"github.com/born-ml/dataflow/internal/graph"
	"github.com/born-ml/dataflow/internal/layers"
	"github.com/born-ml/dataflow/internal/tensor"
)

// Program is a graph built from a configuration, ready to execute.
type Program struct {
	Graph   *graph.Graph
	Fetches []*graph.SymbolicTensor
}

// Build constructs the declared graph using layer types from registry.
func (c *Config) Build(registry *layers.Registry) (*Program, error) {
	g := graph.New()
	for _, in := range c.Graph.Inputs {
		if _, err := g.Input(in.Name, in.Shape); err != nil {
			return nil, err
		}
	}

	for _, n := range c.Graph.Nodes {
		layer, err := registry.Build(layers.Spec{
			Type:      n.Type,
			Name:      n.Name,
			Weights:   n.Weights,
			Bias:      n.Bias,
			Factor:    n.Factor,
			MaskValue: n.MaskValue,
			Parts:     n.Parts,
		})
		if err != nil {
			return nil, err
		}
		inputs, err := lookup(g, n.Inputs)
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", n.Name, err)
		}
		if _, err := g.Apply(layer, inputs...); err != nil {
			return nil, err
		}
	}

	fetches, err := lookup(g, c.Graph.Fetch)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	return &Program{Graph: g, Fetches: fetches}, nil
}

// NewFeedDict converts the configured feeds into a FeedDict for p.
// Values without a shape are fed as vectors. On error every tensor created
// by the call is released.
func (c *Config) NewFeedDict(p *Program) (*executor.FeedDict, error) {
	feed, err := executor.NewFeedDict()
	if err != nil {
		return nil, err
	}
	var created []*tensor.RawTensor
	fail := func(err error) (*executor.FeedDict, error) {
		for _, t := range created {
			t.Release()
		}
		return nil, err
	}

	for _, f := range c.Feed {
		key, ok := p.Graph.Tensor(f.Name)
		if !ok {
			return fail(fmt.Errorf("feed %s: unknown tensor", f.Name))
		}
		shape := tensor.Shape(f.Shape)
		if len(shape) == 0 {
			shape = tensor.Shape{len(f.Values)}
		}
		if len(f.Mask) > 0 && len(f.Mask) != len(f.Values) {
			return fail(fmt.Errorf("feed %s: mask has %d entries, want %d", f.Name, len(f.Mask), len(f.Values)))
		}

		value, err := tensor.FromFloat32(shape, f.Values)
		if err != nil {
			return fail(fmt.Errorf("feed %s: %w", f.Name, err))
		}
		created = append(created, value)

		var mask *tensor.RawTensor
		if len(f.Mask) > 0 {
			mask, err = tensor.NewRaw(shape, tensor.Bool, tensor.CPU)
			if err != nil {
				return fail(fmt.Errorf("feed %s: %w", f.Name, err))
			}
			created = append(created, mask)
			copy(mask.AsBool(), f.Mask)
		}

		if err := feed.Add(key, value, mask); err != nil {
			return fail(err)
		}
	}
	return feed, nil
}

func lookup(g *graph.Graph, refs []string) ([]*graph.SymbolicTensor, error) {
	out := make([]*graph.SymbolicTensor, len(refs))
	for i, ref := range refs {
		t, ok := g.Tensor(ref)
		if !ok {
			return nil, fmt.Errorf("unknown tensor %q", ref)
		}
		out[i] = t
	}
	return out, nil
}
