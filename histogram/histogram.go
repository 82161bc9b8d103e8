// Package histogram implements histogram-based split finding for tree
// ensemble training.
//
// A Histogram bins every value added to it, tracks the observed column
// min and max (for use in the next split), and accumulates weighted response
// mean and variance per bin. Histograms are created with a min, max and bin
// count, generally available from column rollups. Bins run from min to max in
// uniform sizes unless a random or quantile-based binning strategy supplies
// explicit split points.
//
// Histograms are shared across workers and atomically updated. A Merge call
// supports cross-shard reductions: disjoint row ranges are accumulated into
// per-shard instances which are then summed pairwise. The merged histogram is
// scored once with ScoreMSE to find the best squared-error split for the
// column.
//
// If rows are split successively (as in a decision tree), a fresh Histogram
// for each node dynamically re-bins the data: each level logarithmically
// divides the rows, so full bins at one level get refined at the next. This
// uniform-adaptive binning generally matches any fancy fixed-size binning
// strategy after a few extra tree levels.
//
// Example usage:
//
//	h, err := histogram.New("age", histogram.KindFloat, 0, 100, histogram.Params{NBins: 20})
//	if err != nil {
//		log.Fatal(err)
//	}
//	h.Init()
//	for _, row := range rows {
//		h.Update(row.Value, row.Response, row.Weight)
//	}
//	split := h.ScoreMSE(0, 10) // nil means no acceptable split
package histogram

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/ezoic/treesplit/pkg/errors"
)

// ColumnKind describes the value domain of a column.
type ColumnKind uint8

const (
	// KindFloat is a continuous numeric column.
	KindFloat ColumnKind = iota
	// KindInt is an integer-valued numeric column.
	KindInt
	// KindCategorical is an integer-coded categorical column.
	KindCategorical
)

func (k ColumnKind) String() string {
	switch k {
	case KindFloat:
		return "float"
	case KindInt:
		return "int"
	case KindCategorical:
		return "categorical"
	default:
		return fmt.Sprintf("ColumnKind(%d)", uint8(k))
	}
}

// BinningType selects how bin boundaries are chosen.
type BinningType uint8

const (
	// BinningAuto resolves to BinningUniformAdaptive.
	BinningAuto BinningType = iota
	// BinningUniformAdaptive uses uniform bins over [min, maxEx).
	BinningUniformAdaptive
	// BinningRandom draws random interior split points, deterministic per seed.
	BinningRandom
	// BinningQuantilesGlobal uses precomputed global quantiles from a
	// QuantileStore, falling back to uniform bins when too few survive
	// clipping to the node range.
	BinningQuantilesGlobal
	// BinningRoundRobin rotates deterministically through the concrete
	// strategies based on the seed.
	BinningRoundRobin

	numBinningTypes = 5
)

func (t BinningType) String() string {
	switch t {
	case BinningAuto:
		return "auto"
	case BinningUniformAdaptive:
		return "uniform_adaptive"
	case BinningRandom:
		return "random"
	case BinningQuantilesGlobal:
		return "quantiles_global"
	case BinningRoundRobin:
		return "round_robin"
	default:
		return fmt.Sprintf("BinningType(%d)", uint8(t))
	}
}

// Default bin counts for numeric and categorical columns.
const (
	DefaultBins     = 20
	DefaultBinsCats = 1024
)

// Params holds the binning hyperparameters shared by all histograms of one
// tree level. The zero value is usable: defaults are applied by New.
type Params struct {
	// NBins is the requested bin count for numeric columns (default 20).
	NBins int
	// NBinsCats is the requested bin count for categorical columns
	// (default 1024).
	NBinsCats int
	// MinSplitImprovement is the minimum relative improvement over the
	// no-split squared error for a split to be accepted.
	MinSplitImprovement float64
	// Binning selects the bin boundary strategy.
	Binning BinningType
	// Seed makes random binning reproducible.
	Seed int64
	// QuantilesKey is the key under which top-level global quantiles for
	// this column are stored.
	QuantilesKey string
	// Quantiles resolves QuantilesKey. May be nil.
	Quantiles QuantileStore
}

func (p Params) withDefaults() Params {
	if p.NBins == 0 {
		p.NBins = DefaultBins
	}
	if p.NBinsCats == 0 {
		p.NBinsCats = DefaultBinsCats
	}
	return p
}

// Histogram accumulates weighted sufficient statistics (count, response sum,
// response sum of squares) per bin for one column at one tree node.
//
// The statistics arrays are allocated lazily by Init, once the surrounding
// search decides the column will actually be scored. Update is safe for
// concurrent use; Merge and ScoreMSE must only run after all accumulation has
// completed.
type Histogram struct {
	Name string     // Column name, for debugging only
	Kind ColumnKind // Value domain of the column

	// Conservative bounds over the whole collection. MaxEx is exclusive.
	Min   float64
	MaxEx float64

	minSplitImprovement float64
	binning             BinningType
	seed                int64
	quantilesKey        string
	store               QuantileStore

	nbin         int
	step         float64
	splitPoints  []float64
	hasQuantiles bool

	// Weighted count, response and squared response per bin. Shared,
	// atomically incremented.
	w, wY, wYY []float64

	// Observed inclusive bounds, shared, atomically ratcheted. Stored as
	// float64 bit images.
	minObserved atomic.Uint64
	maxObserved atomic.Uint64
}

// New creates a histogram for one column at one tree node.
//
// min is inclusive and maxEx exclusive; the caller ensures maxEx > min, since
// min == max means the column is all constants and not worth scoring. For
// integer and categorical columns whose exact value range is smaller than the
// requested bin count, the bin count shrinks to one bin per distinct value
// (common for boolean columns and near leaves).
//
// Errors:
//   - ValueError: if the bin counts are not greater than 1, the range is
//     empty, or the derived step size is not a positive finite number
func New(name string, kind ColumnKind, min, maxEx float64, p Params) (*Histogram, error) {
	p = p.withDefaults()
	if p.NBins <= 1 {
		return nil, errors.NewValueError("histogram.New", fmt.Sprintf("NBins must be greater than 1, got %d", p.NBins))
	}
	if p.NBinsCats <= 1 {
		return nil, errors.NewValueError("histogram.New", fmt.Sprintf("NBinsCats must be greater than 1, got %d", p.NBinsCats))
	}
	if !(maxEx > min) {
		return nil, errors.NewValueError("histogram.New",
			fmt.Sprintf("column %q has empty range [%g, %g)", name, min, maxEx))
	}

	binning := p.Binning
	seed := p.Seed
	for binning == BinningRoundRobin {
		r := seed % numBinningTypes
		if r < 0 {
			r = -r
		}
		binning = BinningType(r)
		seed++
	}
	if binning == BinningAuto {
		binning = BinningUniformAdaptive
	}

	xbins := p.NBins
	if kind == KindCategorical {
		xbins = p.NBinsCats
	}

	var step float64
	if kind != KindFloat && maxEx-min <= float64(xbins) {
		// Fewer distinct values than requested bins: one bin per value.
		if float64(int64(min)) != min {
			return nil, errors.NewValueError("histogram.New",
				fmt.Sprintf("column %q: integer histogram minimum %g cannot be represented exactly", name, min))
		}
		xbins = int(int64(maxEx) - int64(min))
		step = 1.0
	} else {
		step = float64(xbins) / (maxEx - min)
		if !(step > 0) || math.IsInf(step, 0) {
			return nil, errors.NewValueError("histogram.New",
				fmt.Sprintf("column %q: invalid step size %g", name, step))
		}
	}

	h := &Histogram{
		Name:                name,
		Kind:                kind,
		Min:                 min,
		MaxEx:               maxEx,
		minSplitImprovement: p.MinSplitImprovement,
		binning:             binning,
		seed:                p.Seed,
		quantilesKey:        p.QuantilesKey,
		store:               p.Quantiles,
		nbin:                xbins,
		step:                step,
	}
	h.minObserved.Store(math.Float64bits(math.MaxFloat64))
	h.maxObserved.Store(math.Float64bits(-math.MaxFloat64))
	return h, nil
}

// Init allocates the statistics arrays and finalizes the binning strategy.
// It must be called exactly once, before any accumulation. The allocation is
// deferred to here so columns that are never scored stay cheap.
func (h *Histogram) Init() {
	if h.w != nil {
		panic(errors.NewValueError("Histogram.Init", "Init called twice"))
	}

	switch h.binning {
	case BinningRandom:
		// Every node derives the same split points from the same inputs.
		rng := rand.New(rand.NewPCG(randomBinningSeed(h.step, h.Min, h.MaxEx, h.nbin, h.Kind, h.seed), 0xDECAF))
		pts := make([]float64, h.nbin)
		pts[0] = 0
		pts[h.nbin-1] = float64(h.nbin - 1)
		for i := 1; i < h.nbin-1; i++ {
			pts[i] = rng.Float64() * float64(h.nbin-1)
		}
		sort.Float64s(pts)
		h.splitPoints = pts
	case BinningQuantilesGlobal:
		h.initGlobalQuantiles()
	}

	h.w = make([]float64, h.nbin)
	h.wY = make([]float64, h.nbin)
	h.wYY = make([]float64, h.nbin)
}

// randomBinningSeed mixes the binning parameters into a reproducible seed, so
// identical histograms on different shards draw identical split points.
func randomBinningSeed(step, min, maxEx float64, nbin int, kind ColumnKind, seed int64) uint64 {
	mixed := int64(math.Float64bits((step+0.324)*min + 8.3425 + 89.342*maxEx))
	mixed += 0xDECAF * int64(nbin)
	mixed += 0xC0FFEE * int64(kind)
	mixed += seed
	return uint64(mixed)
}

// initGlobalQuantiles resolves the precomputed quantile split points, clips
// them to this node's range, and pads or abandons them as needed. Fewer than
// two usable points means quantile binning cannot describe the range; fall
// back to uniform bins with the originally requested bin count.
func (h *Histogram) initGlobalQuantiles() {
	if h.store == nil || h.quantilesKey == "" {
		return
	}
	pts, ok := h.store.Get(h.quantilesKey)
	if !ok || pts == nil {
		return
	}
	pts = clipToRange(pts, h.Min, h.MaxEx)
	if len(pts) > 1 && len(pts) < h.nbin {
		pts = padUniformly(pts, h.nbin)
	}
	if len(pts) <= 1 {
		h.binning = BinningUniformAdaptive
		return
	}
	h.splitPoints = pts
	h.hasQuantiles = true
	h.nbin = len(pts)
}

// clipToRange keeps the sorted points falling inside [min, maxEx), dropping
// duplicates.
func clipToRange(pts []float64, min, maxEx float64) []float64 {
	out := make([]float64, 0, len(pts))
	for i, v := range pts {
		if v < min || v >= maxEx {
			continue
		}
		if i > 0 && v == pts[i-1] {
			continue
		}
		out = append(out, v)
	}
	return out
}

// padUniformly stretches sorted points of length >= 2 to length n by linear
// interpolation between neighbors, preserving the endpoints.
func padUniformly(pts []float64, n int) []float64 {
	m := len(pts)
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		t := float64(i) * float64(m-1) / float64(n-1)
		lo := int(t)
		if lo >= m-1 {
			out[i] = pts[m-1]
			continue
		}
		frac := t - float64(lo)
		out[i] = pts[lo] + frac*(pts[lo+1]-pts[lo])
	}
	return out
}

// NBins returns the final bin count.
func (h *Histogram) NBins() int { return h.nbin }

// Step returns the linear interpolation step per bin.
func (h *Histogram) Step() float64 { return h.step }

// Binning returns the resolved binning strategy.
func (h *Histogram) Binning() BinningType { return h.binning }

// HasQuantiles reports whether the bins come from global quantiles.
func (h *Histogram) HasQuantiles() bool { return h.hasQuantiles }

// SplitPoints returns a copy of the explicit split points, or nil for plain
// uniform bins.
func (h *Histogram) SplitPoints() []float64 {
	if h.splitPoints == nil {
		return nil
	}
	out := make([]float64, len(h.splitPoints))
	copy(out, h.splitPoints)
	return out
}

// Initialized reports whether Init has been called.
func (h *Histogram) Initialized() bool { return h.w != nil }

// Bin maps a raw column value to its bin index.
//
// NaN routes to the last bin, matching the treatment of numeric missing
// values going right. Infinities route to the outermost bins. Any other value
// must satisfy min <= v < maxEx; out-of-range values are a caller bug and
// panic. Binning only happens during model building, so test data out of
// range of any bin never reaches here.
func (h *Histogram) Bin(v float64) int {
	if math.IsNaN(v) {
		return h.nbin - 1
	}
	if math.IsInf(v, 0) {
		if v < 0 {
			return 0
		}
		return h.nbin - 1
	}
	if v < h.Min || v >= h.MaxEx {
		panic(errors.NewValueError("Histogram.Bin",
			fmt.Sprintf("value %g out of range [%g, %g) for column %q", v, h.Min, h.MaxEx, h.Name)))
	}

	var idx int
	pos := v
	if !h.hasQuantiles {
		pos = (v - h.Min) * h.step
	}
	if h.splitPoints != nil {
		// Left-closed bins: largest i with splitPoints[i] <= pos.
		i := sort.SearchFloat64s(h.splitPoints, pos)
		if i == len(h.splitPoints) || h.splitPoints[i] != pos {
			i--
		}
		idx = i
	} else {
		idx = int(pos)
	}
	// Roundoff can push pos onto either edge; truncate back into range.
	if idx == h.nbin {
		idx--
	}
	if idx < 0 {
		idx = 0
	}
	return idx
}

// BinAt returns the representative lower boundary value of bin b, the inverse
// of Bin. It renders human-readable thresholds and reconstructs split values
// for the tree structure.
func (h *Histogram) BinAt(b int) float64 {
	if h.hasQuantiles {
		return h.splitPoints[b]
	}
	if h.splitPoints != nil {
		return h.Min + h.splitPoints[b]/h.step
	}
	return h.Min + float64(b)/h.step
}

// WeightAt returns the weighted observation count of bin b.
func (h *Histogram) WeightAt(b int) float64 { return h.w[b] }

// Mean returns the weighted mean response of bin b, or 0 for an empty bin.
func (h *Histogram) Mean(b int) float64 {
	n := h.w[b]
	if n > 0 {
		return h.wY[b] / n
	}
	return 0
}

// Var returns the weighted sample variance of the response within bin b.
// The result is clamped at zero to absorb floating-point roundoff.
func (h *Histogram) Var(b int) float64 {
	n := h.w[b]
	if n <= 1 {
		return 0
	}
	return math.Max(0, (h.wYY[b]-h.wY[b]*h.wY[b]/n)/(n-1))
}

// ObservedMin returns the smallest finite value accumulated so far.
func (h *Histogram) ObservedMin() float64 {
	return math.Float64frombits(h.minObserved.Load())
}

// ObservedMaxIn returns the largest finite value accumulated so far
// (inclusive).
func (h *Histogram) ObservedMaxIn() float64 {
	return math.Float64frombits(h.maxObserved.Load())
}

// ObservedMaxEx returns the exclusive upper bound derived from the observed
// inclusive max, for re-binning the next tree level.
func (h *Histogram) ObservedMaxEx() float64 {
	return FindMaxEx(h.ObservedMaxIn(), h.Kind)
}

// FindMaxEx returns the smallest representable value strictly greater than
// the inclusive max, respecting integer granularity. If no such value is
// representable the inclusive max itself is returned.
func FindMaxEx(maxIn float64, kind ColumnKind) float64 {
	if math.IsInf(maxIn, 0) || math.IsNaN(maxIn) {
		return maxIn
	}
	ulp := math.Nextafter(maxIn, math.Inf(1)) - maxIn
	if kind != KindFloat && ulp < 1 {
		ulp = 1
	}
	res := maxIn + ulp
	if math.IsInf(res, 0) {
		return maxIn
	}
	return res
}

// ActiveColumns returns the indices of non-nil histograms, the columns worth
// scoring. Constant or all-missing columns are represented by nil entries.
func ActiveColumns(hists []*Histogram) []int {
	cols := make([]int, 0, len(hists))
	for i, h := range hists {
		if h == nil {
			continue
		}
		cols = append(cols, i)
	}
	return cols
}

// String pretty-prints the histogram with per-bin count, mean and variance.
func (h *Histogram) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s:%g-%g step=%g nbins=%d kind=%s",
		h.Name, h.Min, h.MaxEx, 1/h.step, h.nbin, h.Kind)
	if h.w != nil {
		for b := range h.w {
			fmt.Fprintf(&sb, "\ncnt=%f, [%f - %f], mean/var=%6.2f/%6.2f,",
				h.w[b], h.Min+float64(b)/h.step, h.Min+float64(b+1)/h.step, h.Mean(b), h.Var(b))
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
