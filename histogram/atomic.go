package histogram

import (
	"math"
	"sync/atomic"
	"unsafe"
)

// Lock-free float64 arithmetic over the shared statistics arrays. The
// platform has no native float atomics, so each update is a compare-and-swap
// retry loop over the value's bit image. float64 and uint64 share size and
// alignment, which makes the pointer reinterpretation below well defined.

// atomicAddFloat64 adds delta to *addr under arbitrary concurrent
// interleaving. Totals are exact (non-lossy); only ordering between updates
// is unspecified.
func atomicAddFloat64(addr *float64, delta float64) {
	p := (*uint64)(unsafe.Pointer(addr))
	for {
		old := atomic.LoadUint64(p)
		next := math.Float64bits(math.Float64frombits(old) + delta)
		if atomic.CompareAndSwapUint64(p, old, next) {
			return
		}
	}
}

// ratchetMin lowers the stored bound to v if v strictly improves it. The
// bound never regresses under concurrent races; NaN never improves a bound
// and is ignored by the comparison.
func ratchetMin(bound *atomic.Uint64, v float64) {
	for {
		old := bound.Load()
		if !(v < math.Float64frombits(old)) {
			return
		}
		if bound.CompareAndSwap(old, math.Float64bits(v)) {
			return
		}
	}
}

// ratchetMax raises the stored bound to v if v strictly improves it.
func ratchetMax(bound *atomic.Uint64, v float64) {
	for {
		old := bound.Load()
		if !(v > math.Float64frombits(old)) {
			return
		}
		if bound.CompareAndSwap(old, math.Float64bits(v)) {
			return
		}
	}
}
