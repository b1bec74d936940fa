package executor

import (
	"github.com/born-ml/dataflow/internal/graph"
	"github.com/born-ml/dataflow/internal/tensor"
)

// Ref addresses a feed entry either by tensor or by tensor name.
type Ref struct {
	tensor *graph.SymbolicTensor
	name   string
}

// ByTensor refers to a feed entry by its symbolic tensor.
func ByTensor(t *graph.SymbolicTensor) Ref {
	return Ref{tensor: t}
}

// ByName refers to a feed entry by tensor name.
func ByName(name string) Ref {
	return Ref{name: name}
}

// String returns the referenced name.
func (r Ref) String() string {
	if r.tensor != nil {
		return r.tensor.Name
	}
	return r.name
}

// Feed is one binding passed to NewFeedDict.
type Feed struct {
	Key   *graph.SymbolicTensor
	Value *tensor.RawTensor
	Mask  *tensor.RawTensor // optional
}

// FeedDict binds symbolic tensors of one graph to concrete values and
// optional masks.
//
// A FeedDict never overwrites a binding: adding a tensor that is already
// bound fails with DUPLICATE_KEY.
type FeedDict struct {
	values    map[graph.TensorID]*tensor.RawTensor
	masks     map[graph.TensorID]*tensor.RawTensor
	ids       map[string]graph.TensorID
	inherited map[*tensor.RawTensor]bool // masks copied in by Clone
}

// NewFeedDict creates a FeedDict and adds feeds in order.
func NewFeedDict(feeds ...Feed) (*FeedDict, error) {
	d := &FeedDict{
		values:    make(map[graph.TensorID]*tensor.RawTensor),
		masks:     make(map[graph.TensorID]*tensor.RawTensor),
		ids:       make(map[string]graph.TensorID),
		inherited: make(map[*tensor.RawTensor]bool),
	}
	for _, f := range feeds {
		if err := d.Add(f.Key, f.Value, f.Mask); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// Clone copy-constructs a FeedDict sharing the same values and masks.
// Masks present at clone time are not released by the clone's DisposeMasks.
func (d *FeedDict) Clone() *FeedDict {
	c := &FeedDict{
		values:    make(map[graph.TensorID]*tensor.RawTensor, len(d.values)),
		masks:     make(map[graph.TensorID]*tensor.RawTensor, len(d.masks)),
		ids:       make(map[string]graph.TensorID, len(d.ids)),
		inherited: make(map[*tensor.RawTensor]bool, len(d.masks)),
	}
	for id, v := range d.values {
		c.values[id] = v
	}
	for name, id := range d.ids {
		c.ids[name] = id
	}
	for id, m := range d.masks {
		c.masks[id] = m
		c.inherited[m] = true
	}
	return c
}

// Add binds key to value and an optional mask.
func (d *FeedDict) Add(key *graph.SymbolicTensor, value, mask *tensor.RawTensor) error {
	if _, ok := d.values[key.ID]; ok {
		return newError(ErrCodeDuplicateKey, "duplicate key: name=%s, id=%d", key.Name, key.ID)
	}
	d.values[key.ID] = value
	d.ids[key.Name] = key.ID
	if mask != nil {
		d.masks[key.ID] = mask
	}
	return nil
}

// HasKey reports whether key is bound.
func (d *FeedDict) HasKey(key *graph.SymbolicTensor) bool {
	_, ok := d.values[key.ID]
	return ok
}

// Len returns the number of bound tensors.
func (d *FeedDict) Len() int {
	return len(d.values)
}

// Names returns the names of all bound tensors, in no particular order.
func (d *FeedDict) Names() []string {
	names := make([]string, 0, len(d.ids))
	for name := range d.ids {
		names = append(names, name)
	}
	return names
}

func (d *FeedDict) resolve(ref Ref) (graph.TensorID, bool) {
	if ref.tensor != nil {
		_, ok := d.values[ref.tensor.ID]
		return ref.tensor.ID, ok
	}
	id, ok := d.ids[ref.name]
	return id, ok
}

// Value returns the value bound to ref.
func (d *FeedDict) Value(ref Ref) (*tensor.RawTensor, error) {
	id, ok := d.resolve(ref)
	if !ok {
		return nil, newError(ErrCodeNonexistentKey, "nonexistent key: %s", ref)
	}
	return d.values[id], nil
}

// Mask returns the mask bound to ref, or nil if there is none.
func (d *FeedDict) Mask(ref Ref) *tensor.RawTensor {
	id, ok := d.resolve(ref)
	if !ok {
		return nil
	}
	return d.masks[id]
}

// holdsMask reports whether m is bound as the mask of any entry.
func (d *FeedDict) holdsMask(m *tensor.RawTensor) bool {
	for _, bound := range d.masks {
		if bound == m {
			return true
		}
	}
	return false
}

// DisposeMasks releases every mask this FeedDict added itself and forgets
// all masks. Masks inherited through Clone, including layers passing such a
// mask through unchanged, are left to their owner. Calling it again has no
// effect.
func (d *FeedDict) DisposeMasks() {
	for _, m := range d.masks {
		if m != nil && !d.inherited[m] {
			m.Release()
		}
	}
	d.masks = make(map[graph.TensorID]*tensor.RawTensor)
	d.inherited = make(map[*tensor.RawTensor]bool)
}
