package layers

import (
	"fmt"
	"sort"

	"github.com/born-ml/dataflow/internal/graph"
)

// Spec describes a layer declaratively.
type Spec struct {
	Type      string
	Name      string
	Weights   [][]float32 // dense
	Bias      []float32   // dense
	Factor    float32     // scale
	MaskValue float32     // masking
	Parts     int         // split
}

// Factory builds a layer from its spec.
type Factory func(spec Spec) (graph.Layer, error)

// Registry maps layer type names to factories.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry creates a registry with all built-in layers.
func NewRegistry() *Registry {
	r := &Registry{
		factories: make(map[string]Factory),
	}

	r.Register("dense", func(s Spec) (graph.Layer, error) {
		return NewDense(s.Name, s.Weights, s.Bias)
	})
	r.Register("add", func(s Spec) (graph.Layer, error) {
		return NewAdd(s.Name), nil
	})
	r.Register("relu", func(s Spec) (graph.Layer, error) {
		return NewReLU(s.Name), nil
	})
	r.Register("scale", func(s Spec) (graph.Layer, error) {
		return NewScale(s.Name, s.Factor), nil
	})
	r.Register("masking", func(s Spec) (graph.Layer, error) {
		return NewMasking(s.Name, s.MaskValue), nil
	})
	r.Register("split", func(s Spec) (graph.Layer, error) {
		return NewSplit(s.Name, s.Parts)
	})
	r.Register("accumulator", func(s Spec) (graph.Layer, error) {
		return NewAccumulator(s.Name), nil
	})

	return r
}

// Register adds or replaces a layer factory.
func (r *Registry) Register(layerType string, f Factory) {
	r.factories[layerType] = f
}

// Get returns the factory for a layer type.
func (r *Registry) Get(layerType string) (Factory, bool) {
	f, ok := r.factories[layerType]
	return f, ok
}

// Build creates a layer from spec.
func (r *Registry) Build(spec Spec) (graph.Layer, error) {
	f, ok := r.factories[spec.Type]
	if !ok {
		return nil, fmt.Errorf("unsupported layer type: %s", spec.Type)
	}
	l, err := f(spec)
	if err != nil {
		return nil, fmt.Errorf("layer %s (%s): %w", spec.Name, spec.Type, err)
	}
	return l, nil
}

// SupportedTypes returns the registered layer types, sorted.
func (r *Registry) SupportedTypes() []string {
	types := make([]string, 0, len(r.factories))
	for t := range r.factories {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
