package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/dataflow/internal/tensor"
)

type stubLayer struct {
	name     string
	outputs  int
	stateful bool
}

func (l *stubLayer) Name() string    { return l.name }
func (l *stubLayer) NumOutputs() int { return l.outputs }
func (l *stubLayer) Stateful() bool  { return l.stateful }

func (l *stubLayer) Apply(inputs []*tensor.RawTensor, _ CallArgs) ([]*tensor.RawTensor, error) {
	return inputs, nil
}

func TestGraphBuild(t *testing.T) {
	g := New()
	x, err := g.Input("x", tensor.Shape{4})
	require.NoError(t, err)
	assert.True(t, x.IsInput())
	assert.Empty(t, x.Inputs())

	y, err := g.ApplyOne(&stubLayer{name: "y"}, x)
	require.NoError(t, err)
	assert.Equal(t, TensorID(1), y.ID)
	assert.False(t, y.IsInput())
	assert.Equal(t, []*SymbolicTensor{x}, y.Inputs())

	got, ok := g.Tensor("y")
	require.True(t, ok)
	assert.Same(t, y, got)
	assert.Equal(t, 2, g.Len())
	assert.Len(t, g.Nodes(), 2)
}

func TestGraphMultiOutputNames(t *testing.T) {
	g := New()
	x, _ := g.Input("x", nil)

	outs, err := g.Apply(&stubLayer{name: "split", outputs: 2}, x)
	require.NoError(t, err)
	require.Len(t, outs, 2)
	assert.Equal(t, "split:0", outs[0].Name)
	assert.Equal(t, "split:1", outs[1].Name)
	assert.Same(t, outs[0].Node, outs[1].Node)
	assert.Equal(t, 1, outs[1].Index)

	_, err = g.ApplyOne(&stubLayer{name: "again", outputs: 2}, x)
	assert.Error(t, err)
}

func TestGraphDuplicateName(t *testing.T) {
	g := New()
	x, _ := g.Input("x", nil)
	_, err := g.Input("x", nil)
	require.ErrorIs(t, err, ErrDuplicateName)

	_, err = g.ApplyOne(&stubLayer{name: "x"}, x)
	assert.ErrorIs(t, err, ErrDuplicateName)
}

func TestGraphRejectsForeignAndEmptyInputs(t *testing.T) {
	g1, g2 := New(), New()
	x, _ := g1.Input("x", nil)

	_, err := g2.ApplyOne(&stubLayer{name: "y"}, x)
	assert.ErrorIs(t, err, ErrForeignTensor)

	_, err = g1.ApplyOne(&stubLayer{name: "z"})
	assert.ErrorIs(t, err, ErrNoInputs)

	assert.NotEqual(t, g1.ID(), g2.ID())
}

func TestLayerCapabilities(t *testing.T) {
	assert.True(t, IsStateful(&stubLayer{stateful: true}))
	assert.False(t, IsStateful(&stubLayer{}))
	assert.False(t, SupportsMasking(&stubLayer{}))

	in := &InputLayer{name: "in"}
	_, err := in.Apply(nil, CallArgs{})
	assert.Error(t, err)
	assert.False(t, IsStateful(in))
}
