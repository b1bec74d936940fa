package tensor

import "sync/atomic"

var (
	liveTensors atomic.Int64
	liveBuffers atomic.Int64
)

// MemoryInfo is a snapshot of tensor allocations in this process.
type MemoryInfo struct {
	NumTensors int // Live (unreleased) tensor handles.
	NumBuffers int // Buffers still holding data.
}

// Memory returns the current allocation counters.
func Memory() MemoryInfo {
	return MemoryInfo{
		NumTensors: int(liveTensors.Load()),
		NumBuffers: int(liveBuffers.Load()),
	}
}
