package scan

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/treesplit/histogram"
	"github.com/ezoic/treesplit/pkg/errors"
)

// MatrixSource adapts a gonum feature matrix to per-column RowSources.
// Responses must be one value per row; a nil Weights slice means unit
// weights.
type MatrixSource struct {
	X         *mat.Dense
	Responses []float64
	Weights   []float64
}

// NewMatrixSource validates the shapes and wraps them.
func NewMatrixSource(X *mat.Dense, responses, weights []float64) (*MatrixSource, error) {
	rows, _ := X.Dims()
	if rows == 0 {
		return nil, errors.NewValueError("scan.NewMatrixSource", "empty feature matrix")
	}
	if len(responses) != rows {
		return nil, errors.NewDimensionError("scan.NewMatrixSource", rows, len(responses), 0)
	}
	if weights != nil && len(weights) != rows {
		return nil, errors.NewDimensionError("scan.NewMatrixSource", rows, len(weights), 0)
	}
	return &MatrixSource{X: X, Responses: responses, Weights: weights}, nil
}

// Column returns a RowSource over column j.
func (m *MatrixSource) Column(j int) RowSource {
	return columnSource{m: m, col: j}
}

// NumColumns returns the feature count.
func (m *MatrixSource) NumColumns() int {
	_, cols := m.X.Dims()
	return cols
}

type columnSource struct {
	m   *MatrixSource
	col int
}

func (c columnSource) Len() int {
	rows, _ := c.m.X.Dims()
	return rows
}

func (c columnSource) Row(i int) (float64, float64, float64) {
	w := 1.0
	if c.m.Weights != nil {
		w = c.m.Weights[i]
	}
	return c.m.X.At(i, c.col), c.m.Responses[i], w
}

// InitialHistograms builds one histogram per column from the matrix rollups,
// the setup step for a tree level. Columns that are constant or all-missing
// get a nil entry: there is nothing to split on. kinds gives the value
// domain per column; names may be nil.
//
// The exclusive max is derived from the observed inclusive max per the
// histogram's granularity rules, and every returned histogram is Init'ed and
// ready for Sweep.
func InitialHistograms(src *MatrixSource, names []string, kinds []histogram.ColumnKind, p histogram.Params) ([]*histogram.Histogram, error) {
	rows, cols := src.X.Dims()
	if len(kinds) != cols {
		return nil, errors.NewDimensionError("scan.InitialHistograms", cols, len(kinds), 1)
	}
	hists := make([]*histogram.Histogram, cols)
	for c := 0; c < cols; c++ {
		min := math.Inf(1)
		max := math.Inf(-1)
		for i := 0; i < rows; i++ {
			v := src.X.At(i, c)
			if math.IsNaN(v) {
				continue
			}
			if v < min {
				min = v
			}
			if v > max {
				max = v
			}
		}
		// All-missing or constant column: no split possible, skip it.
		if math.IsInf(min, 1) || min == max {
			continue
		}

		name := ""
		if names != nil {
			name = names[c]
		}
		maxEx := histogram.FindMaxEx(max, kinds[c])
		h, err := histogram.New(name, kinds[c], min, maxEx, p)
		if err != nil {
			return nil, err
		}
		h.Init()
		hists[c] = h
	}
	return hists, nil
}
