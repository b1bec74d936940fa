// Package graph implements the symbolic dataflow graph evaluated by the executor.
//
// A Graph is an append-only arena of SymbolicTensors. Each tensor is an output
// of a LayerNode, which records one call of a Layer on an ordered list of
// input tensors. Because inputs must already exist when a node is added, a
// graph assembled through the builder methods is acyclic.
//
// Example:
//
//	g := graph.New()
//	x, _ := g.Input("x", nil)
//	h, _ := g.ApplyOne(layers.NewReLU("relu"), x)
package graph

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/born-ml/dataflow/internal/tensor"
)

// Graph construction errors.
var (
	ErrDuplicateName = errors.New("duplicate tensor name")
	ErrForeignTensor = errors.New("tensor belongs to another graph")
	ErrNoInputs      = errors.New("layer applied to no inputs")
)

// TensorID is the arena index of a SymbolicTensor within its Graph.
type TensorID int

// SymbolicTensor is a not-yet-computed value in a Graph.
// Fields are read-only once the tensor has been added to a graph.
type SymbolicTensor struct {
	ID    TensorID
	Name  string
	Node  *LayerNode // Producing node.
	Index int        // Output index within Node.Outputs.
	Graph *Graph
}

// Inputs returns the producer tensors this tensor depends on directly.
func (t *SymbolicTensor) Inputs() []*SymbolicTensor {
	return t.Node.Inputs
}

// Layer returns the layer that produces this tensor.
func (t *SymbolicTensor) Layer() Layer {
	return t.Node.Layer
}

// IsInput reports whether the tensor is produced by an InputLayer.
func (t *SymbolicTensor) IsInput() bool {
	_, ok := t.Node.Layer.(*InputLayer)
	return ok
}

// String returns the tensor name.
func (t *SymbolicTensor) String() string {
	return t.Name
}

// LayerNode is one application of a Layer.
type LayerNode struct {
	Layer   Layer
	Inputs  []*SymbolicTensor
	Outputs []*SymbolicTensor
}

// Graph is an arena of symbolic tensors.
type Graph struct {
	id      uuid.UUID
	tensors []*SymbolicTensor
	byName  map[string]*SymbolicTensor
	nodes   []*LayerNode
}

// New creates an empty graph with a fresh identity.
func New() *Graph {
	return &Graph{
		id:     uuid.New(),
		byName: make(map[string]*SymbolicTensor),
	}
}

// ID returns the graph's unique identity.
func (g *Graph) ID() uuid.UUID {
	return g.id
}

// Len returns the number of symbolic tensors in the graph.
func (g *Graph) Len() int {
	return len(g.tensors)
}

// Tensors returns all tensors in creation order.
func (g *Graph) Tensors() []*SymbolicTensor {
	return g.tensors
}

// Nodes returns all layer nodes in creation order.
func (g *Graph) Nodes() []*LayerNode {
	return g.nodes
}

// Tensor looks up a tensor by name.
func (g *Graph) Tensor(name string) (*SymbolicTensor, bool) {
	t, ok := g.byName[name]
	return t, ok
}

// Input adds a placeholder tensor that must be fed at execution time.
func (g *Graph) Input(name string, shape tensor.Shape) (*SymbolicTensor, error) {
	outs, err := g.add(&InputLayer{name: name, shape: shape.Clone()}, nil)
	if err != nil {
		return nil, err
	}
	return outs[0], nil
}

// Apply adds a node calling layer on inputs and returns its output tensors.
//
// A single output is named after the layer; multiple outputs are named
// "<layer>:<index>".
func (g *Graph) Apply(layer Layer, inputs ...*SymbolicTensor) ([]*SymbolicTensor, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("layer %s: %w", layer.Name(), ErrNoInputs)
	}
	for _, in := range inputs {
		if in == nil || in.Graph != g {
			return nil, fmt.Errorf("layer %s: input %v: %w", layer.Name(), in, ErrForeignTensor)
		}
	}
	return g.add(layer, inputs)
}

// ApplyOne is Apply for single-output layers.
func (g *Graph) ApplyOne(layer Layer, inputs ...*SymbolicTensor) (*SymbolicTensor, error) {
	outs, err := g.Apply(layer, inputs...)
	if err != nil {
		return nil, err
	}
	if len(outs) != 1 {
		return nil, fmt.Errorf("layer %s: expected 1 output, has %d", layer.Name(), len(outs))
	}
	return outs[0], nil
}

func (g *Graph) add(layer Layer, inputs []*SymbolicTensor) ([]*SymbolicTensor, error) {
	n := numOutputs(layer)
	names := make([]string, n)
	for i := range names {
		names[i] = layer.Name()
		if n > 1 {
			names[i] = fmt.Sprintf("%s:%d", layer.Name(), i)
		}
		if _, exists := g.byName[names[i]]; exists {
			return nil, fmt.Errorf("%q: %w", names[i], ErrDuplicateName)
		}
	}

	node := &LayerNode{
		Layer:   layer,
		Inputs:  append([]*SymbolicTensor(nil), inputs...),
		Outputs: make([]*SymbolicTensor, n),
	}
	for i, name := range names {
		t := &SymbolicTensor{
			ID:    TensorID(len(g.tensors)),
			Name:  name,
			Node:  node,
			Index: i,
			Graph: g,
		}
		node.Outputs[i] = t
		g.tensors = append(g.tensors, t)
		g.byName[name] = t
	}
	g.nodes = append(g.nodes, node)
	return node.Outputs, nil
}
