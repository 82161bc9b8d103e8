// Package errors provides typed error values for the treesplit library.
//
// The package distinguishes three classes of failure:
//
//   - Contract violations by the caller (bad histogram ranges, mismatched
//     dimensions) reported as ValueError or DimensionError
//   - Internal consistency failures (merging histograms of different shapes)
//     which are raised as panics and converted back to errors at the public
//     API boundary via Recover
//   - Normal empty outcomes ("no acceptable split"), which are not errors at
//     all and are represented by nil results in the calling packages
//
// All errors support Go 1.13+ wrapping semantics (errors.Is / errors.As) and
// carry stack traces through github.com/cockroachdb/errors.
package errors

import (
	"fmt"

	crdberrors "github.com/cockroachdb/errors"
)

// Sentinel errors for common failure conditions. Use errors.Is to test for
// them through wrapped chains.
var (
	// ErrEmptyData indicates an operation received no rows or no bins.
	ErrEmptyData = crdberrors.New("empty data")

	// ErrInvalidRange indicates a histogram range where maxEx <= min.
	ErrInvalidRange = crdberrors.New("invalid range")

	// ErrShapeMismatch indicates two histograms with different binning
	// parameters were combined.
	ErrShapeMismatch = crdberrors.New("histogram shape mismatch")

	// ErrNotInitialized indicates a histogram's statistics arrays were used
	// before Init was called.
	ErrNotInitialized = crdberrors.New("histogram not initialized")
)

// ValueError indicates an invalid argument value supplied by the caller.
type ValueError struct {
	Op      string // Operation that rejected the value
	Message string // Human-readable description
}

// NewValueError creates a new ValueError.
func NewValueError(op, message string) *ValueError {
	return &ValueError{Op: op, Message: message}
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("treesplit: %s: %s", e.Op, e.Message)
}

// DimensionError indicates a size or shape mismatch between two inputs.
type DimensionError struct {
	Op       string // Operation that detected the mismatch
	Expected int    // Expected dimension
	Got      int    // Actual dimension
	Axis     int    // Axis on which the mismatch occurred
}

// NewDimensionError creates a new DimensionError.
func NewDimensionError(op string, expected, got, axis int) *DimensionError {
	return &DimensionError{Op: op, Expected: expected, Got: got, Axis: axis}
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("treesplit: %s: dimension mismatch on axis %d: expected %d, got %d",
		e.Op, e.Axis, e.Expected, e.Got)
}

// Is reports whether target is ErrShapeMismatch, so callers can test for the
// sentinel without knowing the concrete type.
func (e *DimensionError) Is(target error) bool {
	return target == ErrShapeMismatch
}

// HistogramError wraps a lower-level error with the operation and column on
// which it occurred.
type HistogramError struct {
	Op     string // Operation, e.g. "Histogram.Merge"
	Column string // Column name for debugging
	Err    error  // Underlying error
}

// NewHistogramError creates a new HistogramError wrapping err.
func NewHistogramError(op, column string, err error) *HistogramError {
	return &HistogramError{Op: op, Column: column, Err: err}
}

func (e *HistogramError) Error() string {
	return fmt.Sprintf("treesplit: %s: column %q: %v", e.Op, e.Column, e.Err)
}

// Unwrap returns the underlying error.
func (e *HistogramError) Unwrap() error {
	return e.Err
}

// NewNotInitializedError reports use of a histogram before Init.
func NewNotInitializedError(op, column string) error {
	return NewHistogramError(op, column, ErrNotInitialized)
}

// Recover converts a panic into an error assigned to *err. It is intended as
// a deferred call on exported functions so internal fail-fast panics surface
// as ordinary errors with a stack trace:
//
//	func (r *Reducer) Reduce(parts []*Histogram) (h *Histogram, err error) {
//		defer errors.Recover(&err, "Reducer.Reduce")
//		...
//	}
func Recover(err *error, op string) {
	if r := recover(); r != nil {
		switch v := r.(type) {
		case error:
			*err = crdberrors.Wrapf(v, "panic in %s", op)
		default:
			*err = crdberrors.Newf("panic in %s: %v", op, v)
		}
	}
}
