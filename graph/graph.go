// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package graph provides the symbolic graph that the executor evaluates.
//
// Graphs are built by declaring inputs and applying layers to existing
// tensors, so every graph assembled this way is acyclic:
//
//	g := graph.New()
//	x, _ := g.Input("x", tensor.Shape{4})
//	h, _ := g.ApplyOne(layers.NewReLU("h"), x)
//	y, _ := g.ApplyOne(layers.NewScale("y", 0.5), h)
//
// Custom layers implement Layer, and optionally Masker, Stateful and
// MultiOutput.
package graph

import (
	"github.com/born-ml/dataflow/internal/graph"
)

// Graph construction errors.
var (
	ErrDuplicateName = graph.ErrDuplicateName
	ErrForeignTensor = graph.ErrForeignTensor
	ErrNoInputs      = graph.ErrNoInputs
)

// Graph is an append-only arena of symbolic tensors.
type Graph = graph.Graph

// SymbolicTensor is a not-yet-computed value in a Graph.
type SymbolicTensor = graph.SymbolicTensor

// TensorID identifies a SymbolicTensor within its Graph.
type TensorID = graph.TensorID

// LayerNode records one application of a Layer.
type LayerNode = graph.LayerNode

// CallArgs are passed to every Layer.Apply call.
type CallArgs = graph.CallArgs

// Layer computes concrete outputs from concrete inputs.
type Layer = graph.Layer

// Masker is implemented by layers that propagate or create masks.
type Masker = graph.Masker

// Stateful is implemented by layers whose outputs must outlive a single
// consumer, such as running accumulators.
type Stateful = graph.Stateful

// MultiOutput is implemented by layers producing more than one tensor.
type MultiOutput = graph.MultiOutput

// InputLayer produces graph inputs. It is never applied.
type InputLayer = graph.InputLayer

// New creates an empty graph with a fresh identity.
func New() *Graph {
	return graph.New()
}
