// Package parallel provides helpers for splitting row-range work across CPUs.
package parallel

import (
	"runtime"
	"sync"
)

// Parallelize splits the half-open range [0, n) into contiguous chunks, one
// per logical CPU, and runs fn(start, end) for each chunk on its own
// goroutine. It blocks until all chunks complete.
func Parallelize(n int, fn func(start, end int)) {
	ParallelizeWorkers(n, runtime.NumCPU(), fn)
}

// ParallelizeWithThreshold runs fn sequentially as fn(0, n) when n is below
// threshold, avoiding goroutine overhead for small inputs, and parallelizes
// otherwise.
func ParallelizeWithThreshold(n, threshold int, fn func(start, end int)) {
	if n < threshold {
		if n > 0 {
			fn(0, n)
		}
		return
	}
	Parallelize(n, fn)
}

// ParallelizeWorkers is like Parallelize but with an explicit worker count.
// Worker counts below 1 run sequentially.
func ParallelizeWorkers(n, workers int, fn func(start, end int)) {
	if n <= 0 {
		return
	}
	if workers > n {
		workers = n
	}
	if workers <= 1 {
		fn(0, n)
		return
	}

	chunk := (n + workers - 1) / workers
	var wg sync.WaitGroup
	for start := 0; start < n; start += chunk {
		end := start + chunk
		if end > n {
			end = n
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			fn(start, end)
		}(start, end)
	}
	wg.Wait()
}
