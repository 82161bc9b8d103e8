package histogram

import (
	"fmt"
	"math"
	"sort"

	"github.com/ezoic/treesplit/pkg/errors"
)

// SplitKind describes how a Split partitions rows between the children.
type SplitKind uint8

const (
	// SplitLessThan sends values binning below the boundary left.
	SplitLessThan SplitKind = iota
	// SplitEqual sends values equal to the boundary bin's value right,
	// everything else left.
	SplitEqual
	// SplitBitSet sends the categories in the set right; the category span
	// fits the compact bitset representation.
	SplitBitSet
	// SplitBitSetLarge is SplitBitSet with a span too wide for the compact
	// representation.
	SplitBitSetLarge
)

func (k SplitKind) String() string {
	switch k {
	case SplitLessThan:
		return "less_than"
	case SplitEqual:
		return "equal"
	case SplitBitSet:
		return "bitset"
	case SplitBitSetLarge:
		return "bitset_large"
	default:
		return fmt.Sprintf("SplitKind(%d)", uint8(k))
	}
}

// Split is the best single-point partition found for one column. It is
// consumed by the tree-growth loop to route rows into child nodes.
type Split struct {
	Column int       // Column index the split is on
	Bin    int       // Boundary bin (or the equality bin for SplitEqual)
	Kind   SplitKind // How rows are routed

	// Categories holds the right-child category set for bitset splits,
	// nil otherwise.
	Categories *CategorySet

	SE      float64 // Squared error with no split
	LeftSE  float64 // Squared error of the left child
	RightSE float64 // Squared error of the right child

	LeftWeight  float64 // Weighted row count going left
	RightWeight float64 // Weighted row count going right

	LeftPrediction  float64 // Mean response of the left child
	RightPrediction float64 // Mean response of the right child
}

// Improvement returns the relative reduction of squared error.
func (s *Split) Improvement() float64 {
	if s.SE == 0 {
		return 0
	}
	return (s.SE - s.LeftSE - s.RightSE) / s.SE
}

// Threshold returns the split value for less-than splits, using the
// histogram the split was scored on.
func (s *Split) Threshold(h *Histogram) float64 {
	return h.BinAt(s.Bin)
}

func (s *Split) String() string {
	return fmt.Sprintf("Split{col=%d bin=%d kind=%s se=%g left=%g/%g right=%g/%g}",
		s.Column, s.Bin, s.Kind, s.SE, s.LeftWeight, s.LeftPrediction, s.RightWeight, s.RightPrediction)
}

// ScoreMSE scans the accumulated histogram for the single split point that
// minimizes the summed squared error of the two children; lower is better.
// The candidate at boundary b partitions bins [0,b) from [b,nbins).
//
// Categorical columns with one bin per category are first mean-sorted so the
// optimal binary category partition falls out of the same linear scan;
// integer columns additionally try equality splits ("value == k" vs
// everything else).
//
// minRows is the minimum weighted observation count each child must retain.
// A nil result means no acceptable split exists, a normal outcome: the total
// weight cannot cover two children, the response is constant at single
// precision, every candidate violates minRows, or the best improvement does
// not clear the configured minimum. The caller then leaves the node as is.
//
// ScoreMSE must only run after all accumulation and merging has completed.
func (h *Histogram) ScoreMSE(col int, minRows float64) *Split {
	if h.w == nil {
		panic(errors.NewNotInitializedError("Histogram.ScoreMSE", h.Name))
	}
	nbins := h.nbin

	// Either the original bins (ordered predictor) or bins sorted by mean
	// response (unordered categorical predictor), plus a reverse index.
	w, wY, wYY := h.w, h.wY, h.wYY
	var idxs []int

	// Sorting pays off only with one category per bin and at least 4 bins;
	// all 3 partitions of 3 bins get tested without it.
	if h.Kind == KindCategorical && h.step == 1 && nbins >= 4 {
		idxs = make([]int, nbins+1)
		avgs := make([]float64, nbins+1)
		for i := range idxs {
			idxs[i] = i
		}
		for i := 0; i < nbins; i++ {
			if h.w[i] != 0 {
				avgs[i] = h.wY[i] / h.w[i]
			}
		}
		avgs[nbins] = math.MaxFloat64
		sort.SliceStable(idxs, func(a, b int) bool { return avgs[idxs[a]] < avgs[idxs[b]] })

		// Work on a sorted copy; the histogram keeps its original order.
		w = make([]float64, nbins)
		wY = make([]float64, nbins)
		wYY = make([]float64, nbins)
		for i := 0; i < nbins; i++ {
			w[i] = h.w[idxs[i]]
			wY[i] = h.wY[idxs[i]]
			wYY[i] = h.wYY[idxs[i]]
		}
	}

	// Cumulative sums over bins [0,b) for b = 0..nbins. Transitions where
	// neither side contributes weight are skipped, leaving zeros in place.
	w0 := make([]float64, nbins+1)
	wY0 := make([]float64, nbins+1)
	wYY0 := make([]float64, nbins+1)
	for b := 1; b <= nbins; b++ {
		if w0[b-1] == 0 && w[b-1] == 0 {
			continue
		}
		w0[b] = w0[b-1] + w[b-1]
		wY0[b] = wY0[b-1] + wY[b-1]
		wYY0[b] = wYY0[b-1] + wYY[b-1]
	}
	tot := w0[nbins]
	// No split can give both children minRows observations.
	if tot < 2*minRows {
		return nil
	}
	// Zero variance means a constant response in this column. Normally cut
	// out before scoring, but NA routing can still produce it here. The
	// single-precision re-check catches variance so small that the
	// children's predictions would collapse to the same float32 value.
	variance := wYY0[nbins]*tot - wY0[nbins]*wY0[nbins]
	if variance == 0 {
		return nil
	}
	if float32(variance) == 0 {
		return nil
	}

	// Cumulative sums over bins [b,nbins) for b = nbins..0.
	w1 := make([]float64, nbins+1)
	wY1 := make([]float64, nbins+1)
	wYY1 := make([]float64, nbins+1)
	for b := nbins - 1; b >= 0; b-- {
		if w1[b+1] == 0 && w[b] == 0 {
			continue
		}
		w1[b] = w1[b+1] + w[b]
		wY1[b] = wY1[b+1] + wY[b]
		wYY1[b] = wYY1[b+1] + wYY[b]
	}

	// Roll the boundary across the bins, less-than splits first. Squared
	// error per side is sum(wYY) - sum(wY)^2/sum(w): an unbiased estimator,
	// so MSE*N == Var*N == the squared error being minimized.
	best := 0 // 0 is the no-split
	bestSE0 := math.MaxFloat64
	bestSE1 := math.MaxFloat64
	kind := SplitLessThan
	for b := 1; b <= nbins-1; b++ {
		if w[b] == 0 {
			continue // Ignore empty splits
		}
		if w0[b] < minRows {
			continue
		}
		if w1[b] < minRows {
			break // w1 shrinks with b, so one failure is a permanent one
		}
		se0 := wYY0[b] - wY0[b]*wY0[b]/w0[b]
		se1 := wYY1[b] - wY1[b]*wY1[b]/w1[b]
		if se0 < 0 {
			se0 = 0 // Roundoff; sometimes goes negative
		}
		if se1 < 0 {
			se1 = 0
		}
		if se0+se1 < bestSE0+bestSE1 ||
			// Tied error: prefer the boundary closest to the middle bin,
			// which balances the resulting subtrees.
			(se0+se1 == bestSE0+bestSE1 && abs(b-nbins>>1) < abs(best-nbins>>1)) {
			bestSE0, bestSE1 = se0, se1
			best = b
		}
	}

	// When each bin covers a single integer value, an equality split is also
	// worth trying. More than 2 choices are needed for it to differ from the
	// less-than patterns already scanned, and mean-sorted categoricals are
	// handled by the bitset path instead.
	if h.Kind != KindFloat && h.step == 1 && h.MaxEx-h.Min > 2 && idxs == nil {
		for b := 1; b <= nbins-1; b++ {
			if w[b] < minRows {
				continue
			}
			n := w0[b] + w1[b+1]
			if n < minRows {
				continue
			}
			wY2 := wY0[b] + wY1[b+1]
			wYY2 := wYY0[b] + wYY1[b+1]
			si := wYY2 - wY2*wY2/n          // Left+right, excluding b
			sx := wYY[b] - wY[b]*wY[b]/w[b] // Just b
			if si < 0 {
				si = 0
			}
			if sx < 0 {
				sx = 0
			}
			if si+sx < bestSE0+bestSE1 {
				bestSE0, bestSE1 = si, sx
				best = b
				kind = SplitEqual
			}
		}
	}

	// The sorted-categorical scan found a boundary in mean-sorted order;
	// translate the right side back to original category indices.
	var cats *CategorySet
	if idxs != nil {
		cats = NewCategorySet()
		for i := best; i < nbins; i++ {
			cats.Add(idxs[i])
		}
		if cats.Small() {
			kind = SplitBitSet
		} else {
			kind = SplitBitSetLarge
		}
	}

	if best == 0 {
		return nil // No place to split
	}
	se := wYY1[0] - wY1[0]*wY1[0]/w1[0] // Squared error with no split
	// Ultimately roundoff loses: require the improvement to clear the
	// configured fraction of the no-split error.
	if !(bestSE0+bestSE1 < se*(1-h.minSplitImprovement)) {
		return nil
	}
	var n0, n1, p0, p1 float64
	if kind == SplitEqual {
		n0 = w0[best] + w1[best+1]
		n1 = w[best]
		p0 = wY0[best] + wY1[best+1]
		p1 = wY[best]
	} else {
		n0, n1 = w0[best], w1[best]
		p0, p1 = wY0[best], wY1[best]
	}
	// Predictions live at single precision; children indistinguishable at
	// one float32 ulp would make the split pure roundoff noise.
	if equalsWithinOneSmallUlp(float32(p0/n0), float32(p1/n1)) {
		return nil
	}

	return &Split{
		Column:          col,
		Bin:             best,
		Kind:            kind,
		Categories:      cats,
		SE:              se,
		LeftSE:          bestSE0,
		RightSE:         bestSE1,
		LeftWeight:      n0,
		RightWeight:     n1,
		LeftPrediction:  p0 / n0,
		RightPrediction: p1 / n1,
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// ulp32 is the distance from |f| to the next larger float32.
func ulp32(f float32) float32 {
	f = float32(math.Abs(float64(f)))
	return math.Nextafter32(f, float32(math.Inf(1))) - f
}

// equalsWithinOneSmallUlp reports whether a and b differ by at most the
// smaller of their ulps.
func equalsWithinOneSmallUlp(a, b float32) bool {
	u := ulp32(a)
	if v := ulp32(b); v < u {
		u = v
	}
	return float32(math.Abs(float64(a-b))) <= u
}
