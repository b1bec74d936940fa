// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package layers provides reference layers for building dataflow graphs.
package layers

import (
	"github.com/born-ml/dataflow/internal/layers"
)

// ReLU clamps negative values to zero.
type ReLU = layers.ReLU

// NewReLU creates a ReLU layer.
func NewReLU(name string) *ReLU {
	return layers.NewReLU(name)
}

// Scale multiplies its input by a constant.
type Scale = layers.Scale

// NewScale creates a Scale layer.
func NewScale(name string, factor float32) *Scale {
	return layers.NewScale(name, factor)
}

// Add sums same-shaped inputs.
type Add = layers.Add

// NewAdd creates an Add layer.
func NewAdd(name string) *Add {
	return layers.NewAdd(name)
}

// Dense computes x @ W.T + b for a [batch, in] input.
type Dense = layers.Dense

// NewDense creates a Dense layer with weights of shape [out][in].
//
// Example:
//
//	fc, err := layers.NewDense("fc", [][]float32{{1, 0}, {0, 1}}, []float32{0.5, 0.5})
func NewDense(name string, weights [][]float32, bias []float32) (*Dense, error) {
	return layers.NewDense(name, weights, bias)
}

// Masking zeroes entries equal to a mask value and masks them out downstream.
type Masking = layers.Masking

// NewMasking creates a Masking layer.
func NewMasking(name string, maskValue float32) *Masking {
	return layers.NewMasking(name, maskValue)
}

// Split cuts its input into equal parts along the first axis.
type Split = layers.Split

// NewSplit creates a Split layer with parts outputs.
func NewSplit(name string, parts int) (*Split, error) {
	return layers.NewSplit(name, parts)
}

// Accumulator keeps a running sum across executions.
type Accumulator = layers.Accumulator

// NewAccumulator creates an Accumulator layer.
func NewAccumulator(name string) *Accumulator {
	return layers.NewAccumulator(name)
}

// Spec describes a layer declaratively.
type Spec = layers.Spec

// Factory builds a layer from its Spec.
type Factory = layers.Factory

// Registry maps layer type names to factories.
type Registry = layers.Registry

// NewRegistry creates a registry with all built-in layers.
func NewRegistry() *Registry {
	return layers.NewRegistry()
}
