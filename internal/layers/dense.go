package layers

import (
	"fmt"

	"github.com/born-ml/dataflow/internal/graph"
	"github.com/born-ml/dataflow/internal/parallel"
	"github.com/born-ml/dataflow/internal/tensor"
)

// Dense implements a fully connected layer.
//
// Performs y = x @ W.T + b where:
//   - x has shape [batch_size, in_features]
//   - W has shape [out_features, in_features]
//   - b has shape [out_features]
//   - y has shape [batch_size, out_features]
//
// Dense forwards its input mask.
type Dense struct {
	base
	passMask
	inFeatures  int
	outFeatures int
	weight      []float32 // row-major [out_features, in_features]
	bias        []float32
	rows        parallel.Config
}

// NewDense creates a Dense layer from explicit weights.
// weights is [out_features][in_features]; bias may be nil.
func NewDense(name string, weights [][]float32, bias []float32) (*Dense, error) {
	if len(weights) == 0 || len(weights[0]) == 0 {
		return nil, fmt.Errorf("%s: empty weight matrix", name)
	}
	out, in := len(weights), len(weights[0])
	flat := make([]float32, 0, out*in)
	for i, row := range weights {
		if len(row) != in {
			return nil, fmt.Errorf("%s: weight row %d has %d columns, want %d", name, i, len(row), in)
		}
		flat = append(flat, row...)
	}
	if bias == nil {
		bias = make([]float32, out)
	}
	if len(bias) != out {
		return nil, fmt.Errorf("%s: bias has %d entries, want %d", name, len(bias), out)
	}
	return &Dense{
		base:        base{name: name},
		inFeatures:  in,
		outFeatures: out,
		weight:      flat,
		bias:        append([]float32(nil), bias...),
		rows:        parallel.DefaultConfig(),
	}, nil
}

// Apply implements graph.Layer.
func (l *Dense) Apply(inputs []*tensor.RawTensor, _ graph.CallArgs) ([]*tensor.RawTensor, error) {
	if err := expectInputs(l.name, inputs, 1); err != nil {
		return nil, err
	}
	x := inputs[0]
	shape := x.Shape()
	if len(shape) != 2 || shape[1] != l.inFeatures {
		return nil, fmt.Errorf("%s: expected input [batch, %d], got %v", l.name, l.inFeatures, shape)
	}

	batch := shape[0]
	out, err := tensor.NewRaw(tensor.Shape{batch, l.outFeatures}, tensor.Float32, x.Device())
	if err != nil {
		return nil, err
	}
	src, dst := x.AsFloat32(), out.AsFloat32()
	parallel.Rows(batch, l.rows, func(lo, hi int) {
		for b := lo; b < hi; b++ {
			row := src[b*l.inFeatures : (b+1)*l.inFeatures]
			for o := 0; o < l.outFeatures; o++ {
				w := l.weight[o*l.inFeatures : (o+1)*l.inFeatures]
				sum := l.bias[o]
				for i, v := range row {
					sum += v * w[i]
				}
				dst[b*l.outFeatures+o] = sum
			}
		}
	})
	return []*tensor.RawTensor{out}, nil
}
