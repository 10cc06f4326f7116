// Package parallel splits index ranges across goroutines.
//
// Whitening transforms operate independently on each column (AR differencing)
// or each row (diagonal weights), so large inputs are chunked over the
// available CPUs. Every index is handled by exactly one call, so results are
// identical to sequential processing.
package parallel

import (
	"runtime"
	"sync"
)

// DefaultThreshold is the number of items at or below which work runs on the
// calling goroutine.
const DefaultThreshold = 1024

// Parallelize divides [0, items) into at most runtime.NumCPU() contiguous
// chunks and runs fn on each chunk concurrently. It returns when every chunk
// is done.
func Parallelize(items int, fn func(start, end int)) {
	if items <= 0 {
		return
	}

	numWorkers := runtime.NumCPU()
	if numWorkers > items {
		numWorkers = items
	}
	chunkSize := (items + numWorkers - 1) / numWorkers

	var wg sync.WaitGroup
	for start := 0; start < items; start += chunkSize {
		end := start + chunkSize
		if end > items {
			end = items
		}
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(start, end)
	}
	wg.Wait()
}

// ParallelizeWithThreshold runs fn(0, items) directly when items does not
// exceed threshold and falls back to Parallelize otherwise.
func ParallelizeWithThreshold(items int, threshold int, fn func(start, end int)) {
	if items <= 0 {
		return
	}
	if items <= threshold {
		fn(0, items)
		return
	}
	Parallelize(items, fn)
}
