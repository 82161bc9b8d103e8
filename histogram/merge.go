package histogram

import (
	"gonum.org/v1/gonum/floats"

	"github.com/ezoic/treesplit/pkg/errors"
)

// Merge folds other into h element-wise. It is the reduction step of a
// cross-shard sum: both operands must have finished all accumulation, and
// they must share identical binning parameters, which is guaranteed when both
// were built from the same construction inputs. A shape mismatch is an
// internal consistency failure and panics; the public reduce surface converts
// the panic to an error via errors.Recover.
//
// Merge is single-threaded and must not be interleaved with Update or Flush
// on either operand.
func (h *Histogram) Merge(other *Histogram) {
	if h.Kind != other.Kind || h.nbin != other.nbin || h.step != other.step ||
		h.Min != other.Min || h.MaxEx != other.MaxEx {
		panic(errors.NewHistogramError("Histogram.Merge", h.Name, errors.ErrShapeMismatch))
	}
	if (h.w == nil) != (other.w == nil) {
		panic(errors.NewHistogramError("Histogram.Merge", h.Name, errors.ErrNotInitialized))
	}
	if h.w == nil {
		return
	}

	floats.Add(h.w, other.w)
	floats.Add(h.wY, other.wY)
	floats.Add(h.wYY, other.wYY)

	if m := other.ObservedMin(); m < h.ObservedMin() {
		h.minObserved.Store(other.minObserved.Load())
	}
	if m := other.ObservedMaxIn(); m > h.ObservedMaxIn() {
		h.maxObserved.Store(other.maxObserved.Load())
	}
}
