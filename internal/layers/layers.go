// Package layers provides reference layers for the dataflow executor.
//
// All kernels operate on float32 CPU tensors. Dense splits its batch rows
// across goroutines.
package layers

import (
	"fmt"

	"github.com/born-ml/dataflow/internal/graph"
	"github.com/born-ml/dataflow/internal/tensor"
)

// base carries the layer name.
type base struct {
	name string
}

func (b base) Name() string { return b.name }

// passMask forwards the first input's mask unchanged.
type passMask struct{}

func (passMask) ComputeMask(_, masks []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if len(masks) == 0 {
		return nil, nil
	}
	return []*tensor.RawTensor{masks[0]}, nil
}

// mapFloat32 applies f element-wise into a new tensor.
func mapFloat32(in *tensor.RawTensor, f func(float32) float32) (*tensor.RawTensor, error) {
	out, err := tensor.NewRaw(in.Shape(), tensor.Float32, in.Device())
	if err != nil {
		return nil, err
	}
	src, dst := in.AsFloat32(), out.AsFloat32()
	for i, v := range src {
		dst[i] = f(v)
	}
	return out, nil
}

func expectInputs(name string, inputs []*tensor.RawTensor, n int) error {
	if len(inputs) != n {
		return fmt.Errorf("%s: expected %d inputs, got %d", name, n, len(inputs))
	}
	return nil
}

// ReLU computes max(0, x).
type ReLU struct {
	base
	passMask
}

// NewReLU creates a ReLU layer.
func NewReLU(name string) *ReLU {
	return &ReLU{base: base{name: name}}
}

// Apply implements graph.Layer.
func (l *ReLU) Apply(inputs []*tensor.RawTensor, _ graph.CallArgs) ([]*tensor.RawTensor, error) {
	if err := expectInputs(l.name, inputs, 1); err != nil {
		return nil, err
	}
	out, err := mapFloat32(inputs[0], func(v float32) float32 {
		if v > 0 {
			return v
		}
		return 0
	})
	if err != nil {
		return nil, err
	}
	return []*tensor.RawTensor{out}, nil
}

// Scale multiplies its input by a constant factor.
type Scale struct {
	base
	passMask
	Factor float32
}

// NewScale creates a Scale layer.
func NewScale(name string, factor float32) *Scale {
	return &Scale{base: base{name: name}, Factor: factor}
}

// Apply implements graph.Layer.
func (l *Scale) Apply(inputs []*tensor.RawTensor, _ graph.CallArgs) ([]*tensor.RawTensor, error) {
	if err := expectInputs(l.name, inputs, 1); err != nil {
		return nil, err
	}
	out, err := mapFloat32(inputs[0], func(v float32) float32 { return v * l.Factor })
	if err != nil {
		return nil, err
	}
	return []*tensor.RawTensor{out}, nil
}

// Add sums any number of same-shaped inputs.
type Add struct {
	base
}

// NewAdd creates an Add layer.
func NewAdd(name string) *Add {
	return &Add{base: base{name: name}}
}

// Apply implements graph.Layer.
func (l *Add) Apply(inputs []*tensor.RawTensor, _ graph.CallArgs) ([]*tensor.RawTensor, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("%s: expected at least 1 input", l.name)
	}
	shape := inputs[0].Shape()
	out, err := tensor.NewRaw(shape, tensor.Float32, inputs[0].Device())
	if err != nil {
		return nil, err
	}
	dst := out.AsFloat32()
	for _, in := range inputs {
		if !in.Shape().Equal(shape) {
			out.Release()
			return nil, fmt.Errorf("%s: shape mismatch %v vs %v", l.name, in.Shape(), shape)
		}
		for i, v := range in.AsFloat32() {
			dst[i] += v
		}
	}
	return []*tensor.RawTensor{out}, nil
}

// ComputeMask combines input masks with logical AND. Inputs without a mask
// count as fully valid.
func (l *Add) ComputeMask(_, masks []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	var present []*tensor.RawTensor
	for _, m := range masks {
		if m != nil {
			present = append(present, m)
		}
	}
	if len(present) == 0 {
		return nil, nil
	}
	out, err := tensor.NewRaw(present[0].Shape(), tensor.Bool, present[0].Device())
	if err != nil {
		return nil, err
	}
	dst := out.AsBool()
	for i := range dst {
		dst[i] = true
	}
	for _, m := range present {
		for i, v := range m.AsBool() {
			dst[i] = dst[i] && v
		}
	}
	return []*tensor.RawTensor{out}, nil
}
