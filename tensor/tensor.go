// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the concrete values flowing through a dataflow graph.
//
// A RawTensor is a handle onto a reference-counted buffer. Clone creates a
// second handle onto the same buffer; Release drops a handle, and the bytes
// are freed once the last handle is gone. The executor releases
// intermediates as soon as their last consumer has run, which is observable
// through Memory.
//
// Example:
//
//	x, _ := tensor.FromFloat32(tensor.Shape{2, 3}, []float32{1, 2, 3, 4, 5, 6})
//	defer x.Release()
//	fmt.Println(x, tensor.Memory().NumTensors)
package tensor

import (
	"github.com/born-ml/dataflow/internal/tensor"
)

// DataType represents the element type of a tensor.
type DataType = tensor.DataType

// Data type constants.
const (
	Float32 DataType = tensor.Float32
	Bool    DataType = tensor.Bool
)

// Device represents the device where tensor data resides.
type Device = tensor.Device

// Device constants.
const (
	CPU    Device = tensor.CPU
	WebGPU Device = tensor.WebGPU
)

// Shape represents the dimensions of a tensor.
// Example: Shape{2, 3, 4} represents a 3D tensor with dimensions 2×3×4.
type Shape = tensor.Shape

// RawTensor is a handle onto a reference-counted buffer.
//
// Using a released handle panics; Release itself is idempotent.
type RawTensor = tensor.RawTensor

// MemoryInfo reports the number of live tensor handles and buffers.
type MemoryInfo = tensor.MemoryInfo

// NewRaw allocates a zeroed tensor.
func NewRaw(shape Shape, dtype DataType, device Device) (*RawTensor, error) {
	return tensor.NewRaw(shape, dtype, device)
}

// FromFloat32 creates a Float32 tensor holding a copy of data.
func FromFloat32(shape Shape, data []float32) (*RawTensor, error) {
	return tensor.FromFloat32(shape, data)
}

// Scalar creates a Float32 tensor of shape [1].
func Scalar(v float32) *RawTensor {
	return tensor.Scalar(v)
}

// Memory returns a snapshot of live tensor counts.
func Memory() MemoryInfo {
	return tensor.Memory()
}
