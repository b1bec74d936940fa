package graph

import (
	"errors"

	"github.com/born-ml/dataflow/internal/tensor"
)

// CallArgs are the keyword arguments forwarded to every layer call.
type CallArgs struct {
	// Training selects training-mode behaviour. Executions in training mode
	// keep every intermediate alive.
	Training bool

	// Mask holds the masks of the node's inputs, index-aligned with the
	// input values. It is nil when none of the inputs carries a mask.
	Mask []*tensor.RawTensor

	// Extra carries layer-specific arguments untouched.
	Extra map[string]any
}

// Layer is the capability every graph operation provides.
//
// Apply must not retain or release its inputs; the executor owns them.
// It returns one value per symbolic output of the node.
type Layer interface {
	Name() string
	Apply(inputs []*tensor.RawTensor, args CallArgs) ([]*tensor.RawTensor, error)
}

// Masker is implemented by layers that propagate masks.
// ComputeMask returns one mask per output; nil entries mean "no mask".
type Masker interface {
	ComputeMask(inputs, masks []*tensor.RawTensor) ([]*tensor.RawTensor, error)
}

// Stateful is implemented by layers whose last output must survive the call
// that produced it (e.g. recurrent state).
type Stateful interface {
	Stateful() bool
}

// MultiOutput is implemented by layers producing more than one tensor.
type MultiOutput interface {
	NumOutputs() int
}

// IsStateful reports whether l declares itself stateful.
func IsStateful(l Layer) bool {
	s, ok := l.(Stateful)
	return ok && s.Stateful()
}

// SupportsMasking reports whether l can compute output masks.
func SupportsMasking(l Layer) bool {
	_, ok := l.(Masker)
	return ok
}

func numOutputs(l Layer) int {
	if m, ok := l.(MultiOutput); ok && m.NumOutputs() > 0 {
		return m.NumOutputs()
	}
	return 1
}

// errInputApply is returned if an InputLayer is ever applied.
var errInputApply = errors.New("input layers are fed, not applied")

// InputLayer produces graph placeholders. Its outputs are always satisfied
// by the feed and it is never applied.
type InputLayer struct {
	name  string
	shape tensor.Shape
}

// Name returns the layer name.
func (l *InputLayer) Name() string { return l.name }

// Shape returns the declared per-example shape (may be nil).
func (l *InputLayer) Shape() tensor.Shape { return l.shape }

// Apply always fails.
func (l *InputLayer) Apply(_ []*tensor.RawTensor, _ CallArgs) ([]*tensor.RawTensor, error) {
	return nil, errInputApply
}
