package histogram

import (
	"math"

	"github.com/ezoic/treesplit/pkg/errors"
)

// Update accumulates one row into the bin found via linear interpolation,
// tracking the observed lower and upper bound as a side effect. It is done
// racily by many workers on a shared instance, so every write is atomic.
//
// A zero response or zero weight still records the weighted count but skips
// the response moments. The histogram must be Init'ed first.
func (h *Histogram) Update(value, response, weight float64) {
	if h.w == nil {
		panic(errors.NewNotInitializedError("Histogram.Update", h.Name))
	}
	b := h.Bin(value)
	atomicAddFloat64(&h.w[b], weight)
	if !math.IsInf(value, 0) {
		// NaN falls through harmlessly: it never improves either bound.
		ratchetMin(&h.minObserved, value)
		ratchetMax(&h.maxObserved, value)
	}
	if response != 0 && weight != 0 {
		wy := weight * response
		atomicAddFloat64(&h.wY[b], wy)
		atomicAddFloat64(&h.wYY[b], wy*response)
	}
}

// Scratch is a per-worker accumulation buffer. A worker adds its row range
// locally and flushes once, turning per-row atomic traffic into one atomic
// add per non-empty bin. The observable result is the same as calling Update
// row by row.
//
// A Scratch belongs to a single goroutine; only Flush touches the shared
// histogram.
type Scratch struct {
	h          *Histogram
	w, wY, wYY []float64
	min, max   float64
}

// NewScratch creates a scratch buffer bound to h, which must be Init'ed.
func (h *Histogram) NewScratch() *Scratch {
	if h.w == nil {
		panic(errors.NewNotInitializedError("Histogram.NewScratch", h.Name))
	}
	return &Scratch{
		h:   h,
		w:   make([]float64, h.nbin),
		wY:  make([]float64, h.nbin),
		wYY: make([]float64, h.nbin),
		min: math.MaxFloat64,
		max: -math.MaxFloat64,
	}
}

// Add accumulates one row into the local buffer. Zero-weight rows are
// dropped entirely.
func (s *Scratch) Add(value, response, weight float64) {
	if weight == 0 {
		return
	}
	if !math.IsInf(value, 0) {
		if value < s.min {
			s.min = value
		}
		if value > s.max {
			s.max = value
		}
	}
	b := s.h.Bin(value)
	wy := weight * response
	s.w[b] += weight
	s.wY[b] += wy
	s.wYY[b] += wy * response
}

// Flush pushes the local sums into the shared histogram with one atomic add
// per non-empty bin and a single bounds update, then resets the buffer to
// zero for reuse on the next row range.
func (s *Scratch) Flush() {
	ratchetMin(&s.h.minObserved, s.min)
	ratchetMax(&s.h.maxObserved, s.max)
	s.min = math.MaxFloat64
	s.max = -math.MaxFloat64

	for b := range s.w {
		if s.w[b] != 0 {
			atomicAddFloat64(&s.h.w[b], s.w[b])
			s.w[b] = 0
		}
	}
	for b := range s.wY {
		if s.wY[b] != 0 || s.wYY[b] != 0 {
			atomicAddFloat64(&s.h.wY[b], s.wY[b])
			atomicAddFloat64(&s.h.wYY[b], s.wYY[b])
			s.wY[b], s.wYY[b] = 0, 0
		}
	}
}
