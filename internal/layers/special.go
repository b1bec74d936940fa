package layers

import (
	"fmt"

	"github.com/born-ml/dataflow/internal/graph"
	"github.com/born-ml/dataflow/internal/tensor"
)

// Masking marks elements equal to MaskValue as invalid.
// The output zeroes masked elements; the mask is true where valid.
type Masking struct {
	base
	MaskValue float32
}

// NewMasking creates a Masking layer.
func NewMasking(name string, maskValue float32) *Masking {
	return &Masking{base: base{name: name}, MaskValue: maskValue}
}

// Apply implements graph.Layer.
func (l *Masking) Apply(inputs []*tensor.RawTensor, _ graph.CallArgs) ([]*tensor.RawTensor, error) {
	if err := expectInputs(l.name, inputs, 1); err != nil {
		return nil, err
	}
	out, err := mapFloat32(inputs[0], func(v float32) float32 {
		if v == l.MaskValue {
			return 0
		}
		return v
	})
	if err != nil {
		return nil, err
	}
	return []*tensor.RawTensor{out}, nil
}

// ComputeMask implements graph.Masker.
func (l *Masking) ComputeMask(inputs, _ []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if err := expectInputs(l.name, inputs, 1); err != nil {
		return nil, err
	}
	in := inputs[0]
	mask, err := tensor.NewRaw(in.Shape(), tensor.Bool, in.Device())
	if err != nil {
		return nil, err
	}
	dst := mask.AsBool()
	for i, v := range in.AsFloat32() {
		dst[i] = v != l.MaskValue
	}
	return []*tensor.RawTensor{mask}, nil
}

// Split cuts its input into equal parts along the first axis.
type Split struct {
	base
	parts int
}

// NewSplit creates a Split layer producing parts outputs.
func NewSplit(name string, parts int) (*Split, error) {
	if parts < 1 {
		return nil, fmt.Errorf("%s: parts must be positive, got %d", name, parts)
	}
	return &Split{base: base{name: name}, parts: parts}, nil
}

// NumOutputs implements graph.MultiOutput.
func (l *Split) NumOutputs() int { return l.parts }

// Apply implements graph.Layer.
func (l *Split) Apply(inputs []*tensor.RawTensor, _ graph.CallArgs) ([]*tensor.RawTensor, error) {
	if err := expectInputs(l.name, inputs, 1); err != nil {
		return nil, err
	}
	in := inputs[0]
	shape := in.Shape()
	if len(shape) == 0 || shape[0]%l.parts != 0 {
		return nil, fmt.Errorf("%s: cannot split shape %v into %d parts", l.name, shape, l.parts)
	}

	partShape := shape.Clone()
	partShape[0] /= l.parts
	n := partShape.NumElements()
	src := in.AsFloat32()
	outs := make([]*tensor.RawTensor, l.parts)
	for p := range outs {
		out, err := tensor.FromFloat32(partShape, src[p*n:(p+1)*n])
		if err != nil {
			for _, o := range outs[:p] {
				o.Release()
			}
			return nil, err
		}
		outs[p] = out
	}
	return outs, nil
}

// Accumulator keeps a running sum of everything it has seen.
// It is stateful: its output is the state carried into the next call and
// must never be released by the executor. The layer keeps its own handle on
// the state, so callers may release returned values freely.
type Accumulator struct {
	base
	state *tensor.RawTensor
}

// NewAccumulator creates an Accumulator layer.
func NewAccumulator(name string) *Accumulator {
	return &Accumulator{base: base{name: name}}
}

// Stateful implements graph.Stateful.
func (l *Accumulator) Stateful() bool { return true }

// State returns the layer's handle on the last output, or nil before the
// first call.
func (l *Accumulator) State() *tensor.RawTensor { return l.state }

// Reset releases the carried state.
func (l *Accumulator) Reset() {
	if l.state != nil {
		l.state.Release()
		l.state = nil
	}
}

// Apply implements graph.Layer.
func (l *Accumulator) Apply(inputs []*tensor.RawTensor, _ graph.CallArgs) ([]*tensor.RawTensor, error) {
	if err := expectInputs(l.name, inputs, 1); err != nil {
		return nil, err
	}
	in := inputs[0]
	if l.state != nil && !l.state.Shape().Equal(in.Shape()) {
		return nil, fmt.Errorf("%s: state shape %v does not match input %v", l.name, l.state.Shape(), in.Shape())
	}
	next, err := tensor.FromFloat32(in.Shape(), in.AsFloat32())
	if err != nil {
		return nil, err
	}
	if l.state != nil {
		dst := next.AsFloat32()
		for i, v := range l.state.AsFloat32() {
			dst[i] += v
		}
		l.state.Release()
	}
	l.state = next.Clone()
	return []*tensor.RawTensor{next}, nil
}
