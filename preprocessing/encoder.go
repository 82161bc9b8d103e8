// Package preprocessing converts raw columns into the numeric form the
// histogram engine consumes.
package preprocessing

import (
	"math"
	"sort"

	"github.com/ezoic/treesplit/pkg/errors"
)

// CategoryEncoder maps string categories of one column onto contiguous
// integer codes 0..K-1, the domain a categorical histogram bins over. Codes
// are assigned in sorted category order so the mapping is stable across runs.
type CategoryEncoder struct {
	// Categories holds the known categories in code order.
	Categories []string

	// CategoryToCode maps each category to its integer code.
	CategoryToCode map[string]int

	fitted bool
}

// NewCategoryEncoder creates an unfitted encoder.
func NewCategoryEncoder() *CategoryEncoder {
	return &CategoryEncoder{}
}

// Fit learns the category set of one column.
func (e *CategoryEncoder) Fit(values []string) error {
	if len(values) == 0 {
		return errors.NewHistogramError("CategoryEncoder.Fit", "", errors.ErrEmptyData)
	}

	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	cats := make([]string, 0, len(set))
	for c := range set {
		cats = append(cats, c)
	}
	sort.Strings(cats)

	e.Categories = cats
	e.CategoryToCode = make(map[string]int, len(cats))
	for code, c := range cats {
		e.CategoryToCode[c] = code
	}
	e.fitted = true
	return nil
}

// Transform encodes values using the fitted mapping. Unseen categories come
// out as NaN, which the histogram layer routes the same way as a missing
// value.
func (e *CategoryEncoder) Transform(values []string) ([]float64, error) {
	if !e.fitted {
		return nil, errors.NewValueError("CategoryEncoder.Transform", "encoder is not fitted")
	}
	out := make([]float64, len(values))
	for i, v := range values {
		if code, ok := e.CategoryToCode[v]; ok {
			out[i] = float64(code)
		} else {
			out[i] = math.NaN()
		}
	}
	return out, nil
}

// FitTransform fits on values and encodes them in one step.
func (e *CategoryEncoder) FitTransform(values []string) ([]float64, error) {
	if err := e.Fit(values); err != nil {
		return nil, err
	}
	return e.Transform(values)
}

// NumCategories returns the number of distinct categories seen during Fit.
func (e *CategoryEncoder) NumCategories() int {
	return len(e.Categories)
}

// Category returns the category string behind a code, or "" when the code is
// out of range.
func (e *CategoryEncoder) Category(code int) string {
	if code < 0 || code >= len(e.Categories) {
		return ""
	}
	return e.Categories[code]
}

// IsFitted reports whether Fit has run.
func (e *CategoryEncoder) IsFitted() bool {
	return e.fitted
}
