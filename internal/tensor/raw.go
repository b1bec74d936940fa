package tensor

import (
	"fmt"
	"sync"
	"sync/atomic"
	"unsafe"
)

// Device represents the compute device for tensor operations.
type Device int

// Supported compute devices.
const (
	CPU Device = iota
	WebGPU
)

// String returns a human-readable device name.
func (d Device) String() string {
	switch d {
	case CPU:
		return "CPU"
	case WebGPU:
		return "WebGPU"
	default:
		return "Unknown"
	}
}

// tensorBuffer is a reference-counted shared buffer.
// Handles created by Clone share one buffer; the bytes are dropped when the
// last handle is released.
type tensorBuffer struct {
	data     []byte
	refCount atomic.Int32
	mu       sync.Mutex // For safe deallocation
}

// newTensorBuffer creates a new reference-counted buffer with refCount = 1.
func newTensorBuffer(size int) *tensorBuffer {
	buf := &tensorBuffer{
		data: make([]byte, size),
	}
	buf.refCount.Store(1)
	liveBuffers.Add(1)
	return buf
}

func (tb *tensorBuffer) addRef() {
	tb.refCount.Add(1)
}

// release decrements the reference count and deallocates if it reaches 0.
func (tb *tensorBuffer) release() {
	if tb.refCount.Add(-1) == 0 {
		tb.mu.Lock()
		defer tb.mu.Unlock()
		tb.data = nil
		liveBuffers.Add(-1)
	}
}

func (tb *tensorBuffer) isUnique() bool {
	return tb.refCount.Load() == 1
}

// RawTensor is a concrete value flowing through a graph execution.
//
// Each RawTensor is a handle onto a shared reference-counted buffer. Release
// drops this handle's reference exactly once; further calls are no-ops, so a
// value can never be double-freed through the same handle.
type RawTensor struct {
	buffer   *tensorBuffer
	shape    Shape
	stride   []int
	dtype    DataType
	device   Device
	released atomic.Bool
}

// NewRaw creates a new RawTensor with the given shape and type.
// Memory is allocated and zeroed.
func NewRaw(shape Shape, dtype DataType, device Device) (*RawTensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}

	byteSize := shape.NumElements() * dtype.Size()

	liveTensors.Add(1)
	return &RawTensor{
		buffer: newTensorBuffer(byteSize),
		shape:  shape.Clone(),
		stride: shape.ComputeStrides(),
		dtype:  dtype,
		device: device,
	}, nil
}

// FromFloat32 creates a Float32 CPU tensor holding a copy of data.
func FromFloat32(shape Shape, data []float32) (*RawTensor, error) {
	if shape.NumElements() != len(data) {
		return nil, fmt.Errorf("shape %v needs %d elements, got %d", shape, shape.NumElements(), len(data))
	}
	r, err := NewRaw(shape, Float32, CPU)
	if err != nil {
		return nil, err
	}
	copy(r.AsFloat32(), data)
	return r, nil
}

// Scalar creates a Float32 tensor of shape [1].
func Scalar(v float32) *RawTensor {
	r, _ := FromFloat32(Shape{1}, []float32{v}) //nolint:errcheck // shape is always valid
	return r
}

// Shape returns the tensor's shape.
func (r *RawTensor) Shape() Shape {
	return r.shape
}

// Strides returns the tensor's memory strides.
func (r *RawTensor) Strides() []int {
	return r.stride
}

// DType returns the tensor's data type.
func (r *RawTensor) DType() DataType {
	return r.dtype
}

// Device returns the tensor's compute device.
func (r *RawTensor) Device() Device {
	return r.device
}

// NumElements returns the total number of elements.
func (r *RawTensor) NumElements() int {
	return r.shape.NumElements()
}

// ByteSize returns the total memory size in bytes.
func (r *RawTensor) ByteSize() int {
	return r.NumElements() * r.dtype.Size()
}

// Data returns the raw byte slice.
// WARNING: Direct access to underlying memory. Use with caution.
func (r *RawTensor) Data() []byte {
	r.mustBeLive()
	return r.buffer.data
}

// AsFloat32 interprets the data as []float32.
// Panics if the tensor's dtype is not Float32 or the tensor was released.
func (r *RawTensor) AsFloat32() []float32 {
	if r.dtype != Float32 {
		panic(fmt.Sprintf("tensor dtype is %s, not float32", r.dtype))
	}
	data := r.Data()
	//nolint:gosec // unsafe.Slice for zero-copy performance, bounds checked by NumElements()
	return unsafe.Slice((*float32)(unsafe.Pointer(&data[0])), r.NumElements())
}

// AsBool interprets the data as []bool.
// Panics if the tensor's dtype is not Bool or the tensor was released.
func (r *RawTensor) AsBool() []bool {
	if r.dtype != Bool {
		panic(fmt.Sprintf("tensor dtype is %s, not bool", r.dtype))
	}
	data := r.Data()
	//nolint:gosec // unsafe.Slice for zero-copy performance, bounds checked by NumElements()
	return unsafe.Slice((*bool)(unsafe.Pointer(&data[0])), r.NumElements())
}

// Clone creates a new handle sharing this tensor's buffer.
//
// Example:
//
//	a, _ := tensor.FromFloat32(tensor.Shape{2}, []float32{1, 2})
//	b := a.Clone() // shares buffer with a
//	a.Release()    // b stays readable
func (r *RawTensor) Clone() *RawTensor {
	r.mustBeLive()
	r.buffer.addRef()
	liveTensors.Add(1)
	return &RawTensor{
		buffer: r.buffer,
		shape:  r.shape.Clone(),
		stride: append([]int(nil), r.stride...),
		dtype:  r.dtype,
		device: r.device,
	}
}

// Release drops this handle's reference to the buffer.
// Only the first call has an effect.
func (r *RawTensor) Release() {
	if r.released.Swap(true) {
		return
	}
	liveTensors.Add(-1)
	r.buffer.release()
}

// IsReleased reports whether Release has been called on this handle.
func (r *RawTensor) IsReleased() bool {
	return r.released.Load()
}

// IsUnique returns true if this tensor is the only reference to the buffer.
func (r *RawTensor) IsUnique() bool {
	return r.buffer.isUnique()
}

// String returns a short description such as "float32[2 3]".
func (r *RawTensor) String() string {
	if r.IsReleased() {
		return fmt.Sprintf("%s%v(released)", r.dtype, []int(r.shape))
	}
	return fmt.Sprintf("%s%v", r.dtype, []int(r.shape))
}

func (r *RawTensor) mustBeLive() {
	if r.IsReleased() {
		panic("tensor: use of released tensor")
	}
}
