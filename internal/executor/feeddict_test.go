package executor

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/dataflow/internal/graph"
	"github.com/born-ml/dataflow/internal/tensor"
)

func boolMask(t *testing.T, vals ...bool) *tensor.RawTensor {
	t.Helper()
	m, err := tensor.NewRaw(tensor.Shape{len(vals)}, tensor.Bool, tensor.CPU)
	require.NoError(t, err)
	copy(m.AsBool(), vals)
	return m
}

func TestFeedDictAddAndLookup(t *testing.T) {
	g := graph.New()
	x, _ := g.Input("x", nil)
	y, _ := g.Input("y", nil)

	xv, yv := tensor.Scalar(1), tensor.Scalar(2)
	mask := boolMask(t, true)
	d, err := NewFeedDict(Feed{Key: x, Value: xv}, Feed{Key: y, Value: yv, Mask: mask})
	require.NoError(t, err)

	assert.True(t, d.HasKey(x))
	assert.Equal(t, 2, d.Len())

	got, err := d.Value(ByTensor(x))
	require.NoError(t, err)
	assert.Same(t, xv, got)

	got, err = d.Value(ByName("y"))
	require.NoError(t, err)
	assert.Same(t, yv, got)

	assert.Nil(t, d.Mask(ByTensor(x)))
	assert.Same(t, mask, d.Mask(ByName("y")))

	names := d.Names()
	sort.Strings(names)
	assert.Equal(t, []string{"x", "y"}, names)
}

func TestFeedDictDuplicateKey(t *testing.T) {
	g := graph.New()
	x, _ := g.Input("x", nil)
	v := tensor.Scalar(1)

	d, err := NewFeedDict(Feed{Key: x, Value: v})
	require.NoError(t, err)

	// Same tensor, same value: still a duplicate.
	err = d.Add(x, v, nil)
	require.Error(t, err)
	assert.True(t, Is(err, ErrCodeDuplicateKey))

	_, err = NewFeedDict(Feed{Key: x, Value: v}, Feed{Key: x, Value: tensor.Scalar(2)})
	assert.Equal(t, ErrCodeDuplicateKey, GetCode(err))
}

func TestFeedDictNonexistentKey(t *testing.T) {
	g := graph.New()
	x, _ := g.Input("x", nil)
	d, _ := NewFeedDict()

	_, err := d.Value(ByTensor(x))
	assert.True(t, Is(err, ErrCodeNonexistentKey))

	_, err = d.Value(ByName("nope"))
	assert.True(t, Is(err, ErrCodeNonexistentKey))
	assert.Contains(t, err.Error(), "nope")

	assert.Nil(t, d.Mask(ByName("nope")))
}

func TestFeedDictCloneIsIndependent(t *testing.T) {
	g := graph.New()
	x, _ := g.Input("x", nil)
	y, _ := g.Input("y", nil)

	d, _ := NewFeedDict(Feed{Key: x, Value: tensor.Scalar(1)})
	c := d.Clone()
	require.NoError(t, c.Add(y, tensor.Scalar(2), nil))

	assert.True(t, c.HasKey(x))
	assert.True(t, c.HasKey(y))
	assert.False(t, d.HasKey(y))
}

func TestFeedDictDisposeMasks(t *testing.T) {
	g := graph.New()
	x, _ := g.Input("x", nil)
	y, _ := g.Input("y", nil)
	z, _ := g.Input("z", nil)

	callerMask := boolMask(t, true)
	d, _ := NewFeedDict(Feed{Key: x, Value: tensor.Scalar(1), Mask: callerMask})

	work := d.Clone()
	ownMask := boolMask(t, false)
	require.NoError(t, work.Add(y, tensor.Scalar(2), ownMask))
	// A pass-through mask aliasing the caller's mask.
	require.NoError(t, work.Add(z, tensor.Scalar(3), callerMask))

	work.DisposeMasks()
	assert.True(t, ownMask.IsReleased())
	assert.False(t, callerMask.IsReleased())
	assert.Nil(t, work.Mask(ByTensor(y)))

	// Idempotent.
	work.DisposeMasks()

	d.DisposeMasks()
	assert.True(t, callerMask.IsReleased())
}
