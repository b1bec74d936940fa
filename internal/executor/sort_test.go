package executor

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/dataflow/internal/graph"
	"github.com/born-ml/dataflow/internal/layers"
	"github.com/born-ml/dataflow/internal/tensor"
)

// diamond builds A -> B -> D and A -> C -> D.
type diamond struct {
	g          *graph.Graph
	a, b, c, d *graph.SymbolicTensor
}

func newDiamond(t *testing.T, wrap func(graph.Layer) graph.Layer) diamond {
	t.Helper()
	if wrap == nil {
		wrap = func(l graph.Layer) graph.Layer { return l }
	}
	g := graph.New()
	a, err := g.Input("A", nil)
	require.NoError(t, err)
	b, err := g.ApplyOne(wrap(layers.NewScale("B", 2)), a)
	require.NoError(t, err)
	c, err := g.ApplyOne(wrap(layers.NewScale("C", 3)), a)
	require.NoError(t, err)
	d, err := g.ApplyOne(wrap(layers.NewAdd("D")), b, c)
	require.NoError(t, err)
	return diamond{g: g, a: a, b: b, c: c, d: d}
}

func names(ts []*graph.SymbolicTensor) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.Name
	}
	return out
}

// assertTopological checks that every sorted tensor comes after its unfed inputs.
func assertTopological(t *testing.T, sorted []*graph.SymbolicTensor, feed *FeedDict) {
	t.Helper()
	pos := make(map[string]int)
	for i, s := range sorted {
		pos[s.Name] = i
	}
	for i, s := range sorted {
		for _, in := range s.Inputs() {
			if feed != nil && feed.HasKey(in) {
				continue
			}
			p, ok := pos[in.Name]
			if assert.True(t, ok, "%s: input %s missing from order", s.Name, in.Name) {
				assert.Less(t, p, i, "%s must come before %s", in.Name, s.Name)
			}
		}
	}
}

func TestTopologicalSortDiamond(t *testing.T) {
	dm := newDiamond(t, nil)
	feed, _ := NewFeedDict(Feed{Key: dm.a, Value: tensor.Scalar(1)})

	sorted, counts, err := TopologicalSort([]*graph.SymbolicTensor{dm.d}, feed)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"B", "C", "D"}, names(sorted))
	assert.Equal(t, "D", sorted[len(sorted)-1].Name)
	assertTopological(t, sorted, feed)

	assert.Equal(t, RecipientCounts{"A": 2, "B": 1, "C": 1}, counts)
}

func TestTopologicalSortWithoutFeed(t *testing.T) {
	dm := newDiamond(t, nil)

	sorted, counts, err := TopologicalSort([]*graph.SymbolicTensor{dm.d}, nil)
	require.NoError(t, err)
	assert.Equal(t, "A", sorted[0].Name)
	assert.Len(t, sorted, 4)
	assert.Equal(t, 2, counts["A"])
}

func TestTopologicalSortFedFetch(t *testing.T) {
	dm := newDiamond(t, nil)
	feed, _ := NewFeedDict(Feed{Key: dm.b, Value: tensor.Scalar(1)})

	sorted, counts, err := TopologicalSort([]*graph.SymbolicTensor{dm.b}, feed)
	require.NoError(t, err)
	assert.Empty(t, sorted)
	assert.Empty(t, counts)
}

func TestTopologicalSortEmptyFetchSet(t *testing.T) {
	sorted, counts, err := TopologicalSort(nil, nil)
	require.Error(t, err)
	assert.True(t, Is(err, ErrCodeEmptyFetchSet))
	assert.Nil(t, sorted)
	assert.Nil(t, counts)
}

func TestTopologicalSortMultiFetch(t *testing.T) {
	g := graph.New()
	x, _ := g.Input("x", nil)
	h, _ := g.ApplyOne(layers.NewReLU("h"), x)
	y1, _ := g.ApplyOne(layers.NewScale("y1", 2), h)
	y2, _ := g.ApplyOne(layers.NewScale("y2", 3), h)
	feed, _ := NewFeedDict(Feed{Key: x, Value: tensor.Scalar(1)})

	sorted, counts, err := TopologicalSort([]*graph.SymbolicTensor{y1, y2}, feed)
	require.NoError(t, err)

	assert.Equal(t, []string{"h", "y1", "y2"}, names(sorted))
	assert.Equal(t, RecipientCounts{"x": 1, "h": 2}, counts)
}

func TestTopologicalSortCycleDetected(t *testing.T) {
	g := graph.New()
	x, _ := g.Input("x", nil)
	a, _ := g.ApplyOne(layers.NewScale("a", 1), x)
	b, _ := g.ApplyOne(layers.NewScale("b", 1), a)
	a.Node.Inputs = []*graph.SymbolicTensor{b} // a <- b <- a

	_, _, err := TopologicalSort([]*graph.SymbolicTensor{b}, nil)
	require.Error(t, err)
	assert.True(t, Is(err, ErrCodeCycleDetected))
	assert.Contains(t, err.Error(), "b <- a <- b")
}

func TestTopologicalSortSelfLoop(t *testing.T) {
	g := graph.New()
	x, _ := g.Input("x", nil)
	a, _ := g.ApplyOne(layers.NewScale("a", 1), x)
	a.Node.Inputs = []*graph.SymbolicTensor{x, a}

	_, _, err := TopologicalSort([]*graph.SymbolicTensor{a}, nil)
	assert.True(t, Is(err, ErrCodeCycleDetected))
}

func TestTopologicalSortDeepChain(t *testing.T) {
	const depth = 20000
	g := graph.New()
	cur, _ := g.Input("x", nil)
	for i := 0; i < depth; i++ {
		next, err := g.ApplyOne(layers.NewScale(fmt.Sprintf("n%d", i), 1), cur)
		require.NoError(t, err)
		cur = next
	}

	sorted, counts, err := TopologicalSort([]*graph.SymbolicTensor{cur}, nil)
	require.NoError(t, err)
	assert.Len(t, sorted, depth+1)
	assert.Equal(t, "x", sorted[0].Name)
	assert.Equal(t, 1, counts["n0"])
}

func TestTopologicalSortRandomDAGs(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for trial := 0; trial < 20; trial++ {
		g := graph.New()
		var all []*graph.SymbolicTensor
		for i := 0; i < 3; i++ {
			in, _ := g.Input(fmt.Sprintf("in%d", i), nil)
			all = append(all, in)
		}
		for i := 0; i < 40; i++ {
			k := 1 + rng.Intn(3)
			inputs := make([]*graph.SymbolicTensor, k)
			for j := range inputs {
				inputs[j] = all[rng.Intn(len(all))]
			}
			n, err := g.ApplyOne(layers.NewAdd(fmt.Sprintf("n%d", i)), inputs...)
			require.NoError(t, err)
			all = append(all, n)
		}

		feed, _ := NewFeedDict(
			Feed{Key: all[0], Value: tensor.Scalar(0)},
			Feed{Key: all[1], Value: tensor.Scalar(0)},
			Feed{Key: all[2], Value: tensor.Scalar(0)},
		)
		fetches := []*graph.SymbolicTensor{all[len(all)-1], all[len(all)-5], all[10+rng.Intn(20)]}

		sorted, counts, err := TopologicalSort(fetches, feed)
		require.NoError(t, err)
		assertTopological(t, sorted, feed)

		// Each tensor's count equals its number of distinct consumers in the order.
		want := make(RecipientCounts)
		seen := make(map[string]bool)
		for _, s := range sorted {
			require.False(t, seen[s.Name], "%s sorted twice", s.Name)
			seen[s.Name] = true
			distinct := make(map[string]bool)
			for _, in := range s.Inputs() {
				distinct[in.Name] = true
			}
			for name := range distinct {
				want[name]++
			}
		}
		assert.Equal(t, want, counts, "trial %d", trial)

		for _, f := range fetches {
			assert.True(t, seen[f.Name], "fetch %s missing", f.Name)
		}
	}
}
