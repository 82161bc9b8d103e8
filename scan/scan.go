// Package scan drives concurrent histogram accumulation and reduction.
//
// The engine in package histogram is purely CPU-bound and has no opinion on
// how rows reach it. This package supplies the surrounding machinery: Sweep
// partitions a row source across workers that accumulate into one shared
// histogram through per-worker scratch buffers, Reduce folds independently
// built shard histograms into one, and BestSplit scores a set of merged
// column histograms to pick the winner for a tree node.
//
// The phase barrier the engine requires is enforced here: Sweep returns only
// after every worker has flushed, Reduce runs strictly after the sweeps it
// consumes, and scoring runs on the single reduced instance.
package scan

import (
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ezoic/treesplit/core/parallel"
	"github.com/ezoic/treesplit/histogram"
	"github.com/ezoic/treesplit/pkg/errors"
	"github.com/ezoic/treesplit/pkg/log"
)

// RowSource yields the (value, response, weight) triples of one column.
// Implementations must allow concurrent Row calls on disjoint index ranges.
type RowSource interface {
	// Len returns the row count.
	Len() int
	// Row returns the column value, response and sample weight of row i.
	Row(i int) (value, response, weight float64)
}

// SliceSource is a RowSource over parallel slices. A nil Weights slice means
// unit weights.
type SliceSource struct {
	Values    []float64
	Responses []float64
	Weights   []float64
}

// Len implements RowSource.
func (s SliceSource) Len() int { return len(s.Values) }

// Row implements RowSource.
func (s SliceSource) Row(i int) (float64, float64, float64) {
	w := 1.0
	if s.Weights != nil {
		w = s.Weights[i]
	}
	return s.Values[i], s.Responses[i], w
}

// Sweep accumulates every row of src into h using the given number of
// workers (NumCPU when workers <= 0). Each worker owns a contiguous row
// range and a private scratch buffer, flushed once at the end of the range,
// so the shared histogram sees one atomic add per non-empty bin per worker.
//
// Sweep returns after all workers have flushed; the histogram is then safe
// to Merge or score. Errors surface contract violations such as a value
// outside the histogram's declared range.
func Sweep(h *histogram.Histogram, src RowSource, workers int) error {
	n := src.Len()
	if n == 0 {
		return errors.NewHistogramError("scan.Sweep", h.Name, errors.ErrEmptyData)
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > n {
		workers = n
	}

	start := time.Now()
	chunk := (n + workers - 1) / workers
	var g errgroup.Group
	for lo := 0; lo < n; lo += chunk {
		hi := lo + chunk
		if hi > n {
			hi = n
		}
		g.Go(func() (err error) {
			defer errors.Recover(&err, "scan.Sweep")
			s := h.NewScratch()
			for i := lo; i < hi; i++ {
				v, y, w := src.Row(i)
				s.Add(v, y, w)
			}
			s.Flush()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	logger.Debug("Sweep completed",
		log.OperationKey, log.OperationSweep,
		log.ColumnKey, h.Name,
		log.RowsKey, n,
		log.WorkersKey, workers,
		log.BinsKey, h.NBins(),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

// Reduce folds shard histograms into a single one and returns it. Every
// shard must share the binning parameters of the first; the reduction is an
// element-wise sum, so the result is independent of shard order up to
// floating-point summation order. The input histograms are consumed: parts[0]
// is mutated and returned.
//
// Reduce must only run after all accumulation into the shards has completed.
func Reduce(parts []*histogram.Histogram) (h *histogram.Histogram, err error) {
	defer errors.Recover(&err, "scan.Reduce")
	if len(parts) == 0 {
		return nil, errors.NewValueError("scan.Reduce", "no histograms to reduce")
	}
	h = parts[0]
	for _, p := range parts[1:] {
		h.Merge(p)
	}

	logger.Debug("Reduce completed",
		log.OperationKey, log.OperationReduce,
		log.ColumnKey, h.Name,
		log.ShardsKey, len(parts),
	)
	return h, nil
}

// BestSplit scores every active (non-nil) column histogram and returns the
// split with the lowest total squared error and the index of its column.
// Ties go to the lower column index for reproducibility. It returns nil when
// no column yields an acceptable split.
//
// Columns are scored in parallel; results are deterministic given the
// accumulated histograms.
func BestSplit(hists []*histogram.Histogram, minRows float64) (*histogram.Split, int) {
	splits := make([]*histogram.Split, len(hists))
	parallel.ParallelizeWithThreshold(len(hists), 8, func(start, end int) {
		for c := start; c < end; c++ {
			if hists[c] == nil {
				continue
			}
			splits[c] = hists[c].ScoreMSE(c, minRows)
		}
	})

	var best *histogram.Split
	bestCol := -1
	for c, s := range splits {
		if s == nil {
			continue
		}
		if best == nil || s.LeftSE+s.RightSE < best.LeftSE+best.RightSE {
			best = s
			bestCol = c
		}
	}
	if best != nil {
		logger.Debug("Best split selected",
			log.OperationKey, log.OperationScore,
			log.ColumnKey, hists[bestCol].Name,
			log.SplitBinKey, best.Bin,
		)
	}
	return best, bestCol
}

var logger = log.GetLoggerWithName("scan").With(log.ComponentKey, "scan")
