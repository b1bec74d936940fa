// Package parallel splits row-oriented kernel work across goroutines.
package parallel

import (
	"runtime"
	"sync"
)

// Config controls how rows are spread over workers.
type Config struct {
	Workers int // Upper bound on goroutines; <= 1 runs inline.
	MinRows int // Rows per chunk below which work is not split.
}

// DefaultConfig uses one worker per CPU.
func DefaultConfig() Config {
	return Config{
		Workers: runtime.NumCPU(),
		MinRows: 16,
	}
}

// Sequential runs everything on the calling goroutine.
func Sequential() Config {
	return Config{Workers: 1}
}

// Rows calls f on disjoint half-open ranges [lo, hi) that together cover
// [0, n). It returns once every call has finished. f must only write to
// state owned by its range.
func Rows(n int, cfg Config, f func(lo, hi int)) {
	if n <= 0 {
		return
	}
	minRows := max(cfg.MinRows, 1)
	if cfg.Workers <= 1 || n < 2*minRows {
		f(0, n)
		return
	}

	chunk := max((n+cfg.Workers-1)/cfg.Workers, minRows)
	var wg sync.WaitGroup
	for lo := 0; lo < n; lo += chunk {
		hi := min(lo+chunk, n)
		wg.Add(1)
		go func() {
			defer wg.Done()
			f(lo, hi)
		}()
	}
	wg.Wait()
}
