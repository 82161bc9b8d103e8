package parallel_test

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/ezoic/treesplit/core/parallel"
)

// coverage records which indices fn visited and whether any overlapped.
type coverage struct {
	mu   sync.Mutex
	seen []int
}

func (c *coverage) visit(start, end int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := start; i < end; i++ {
		c.seen[i]++
	}
}

func (c *coverage) exactlyOnce(t *testing.T) {
	t.Helper()
	for i, n := range c.seen {
		if n != 1 {
			t.Fatalf("index %d visited %d times", i, n)
		}
	}
}

func TestParallelize_CoversRangeExactlyOnce(t *testing.T) {
	for _, n := range []int{1, 7, 100, 10001} {
		c := &coverage{seen: make([]int, n)}
		parallel.Parallelize(n, c.visit)
		c.exactlyOnce(t)
	}
}

func TestParallelizeWorkers(t *testing.T) {
	for _, workers := range []int{-1, 0, 1, 3, 16, 200} {
		c := &coverage{seen: make([]int, 100)}
		parallel.ParallelizeWorkers(100, workers, c.visit)
		c.exactlyOnce(t)
	}
}

func TestParallelizeWorkers_ZeroLength(t *testing.T) {
	called := false
	parallel.ParallelizeWorkers(0, 4, func(start, end int) { called = true })
	if called {
		t.Errorf("fn must not run for an empty range")
	}
}

func TestParallelizeWithThreshold(t *testing.T) {
	// Below the threshold the whole range arrives in a single call.
	var calls atomic.Int64
	parallel.ParallelizeWithThreshold(5, 10, func(start, end int) {
		calls.Add(1)
		if start != 0 || end != 5 {
			t.Errorf("expected one call with [0, 5), got [%d, %d)", start, end)
		}
	})
	if calls.Load() != 1 {
		t.Errorf("expected 1 call, got %d", calls.Load())
	}

	parallel.ParallelizeWithThreshold(0, 10, func(start, end int) {
		t.Errorf("fn must not run for an empty range")
	})

	c := &coverage{seen: make([]int, 1000)}
	parallel.ParallelizeWithThreshold(1000, 10, c.visit)
	c.exactlyOnce(t)
}
