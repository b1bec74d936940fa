// Package tensor provides the concrete values evaluated by the dataflow executor.
//
// A RawTensor is a handle onto a reference-counted byte buffer. Release is the
// disposal primitive the executor calls once a value has no remaining readers,
// and Memory reports live allocations for execution stats.
package tensor

// DataType represents runtime type information for tensors.
type DataType int

// Supported data types for tensors.
const (
	Float32 DataType = iota
	Bool
)

// Size returns the byte size of the data type.
func (dt DataType) Size() int {
	switch dt {
	case Float32:
		return 4
	case Bool:
		return 1
	default:
		panic("unknown data type")
	}
}

// String returns a human-readable name for the data type.
func (dt DataType) String() string {
	switch dt {
	case Float32:
		return "float32"
	case Bool:
		return "bool"
	default:
		return "unknown"
	}
}
