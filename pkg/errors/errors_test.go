package errors_test

import (
	"testing"

	crdberrors "github.com/cockroachdb/errors"

	"github.com/ezoic/treesplit/pkg/errors"
)

func TestValueError(t *testing.T) {
	err := errors.NewValueError("histogram.New", "NBins must be greater than 1, got 0")

	want := "treesplit: histogram.New: NBins must be greater than 1, got 0"
	if err.Error() != want {
		t.Errorf("Error():\n got %q\nwant %q", err.Error(), want)
	}

	var ve *errors.ValueError
	if !crdberrors.As(err, &ve) {
		t.Errorf("expected errors.As to find *ValueError")
	}
}

func TestDimensionError(t *testing.T) {
	err := errors.NewDimensionError("scan.NewMatrixSource", 10, 7, 0)

	want := "treesplit: scan.NewMatrixSource: dimension mismatch on axis 0: expected 10, got 7"
	if err.Error() != want {
		t.Errorf("Error():\n got %q\nwant %q", err.Error(), want)
	}
	if !crdberrors.Is(err, errors.ErrShapeMismatch) {
		t.Errorf("DimensionError should match ErrShapeMismatch")
	}
}

func TestHistogramError_Unwrap(t *testing.T) {
	err := errors.NewHistogramError("Histogram.Merge", "age", errors.ErrShapeMismatch)

	if !crdberrors.Is(err, errors.ErrShapeMismatch) {
		t.Errorf("expected wrapped sentinel to be found")
	}
	want := `treesplit: Histogram.Merge: column "age": histogram shape mismatch`
	if err.Error() != want {
		t.Errorf("Error():\n got %q\nwant %q", err.Error(), want)
	}
}

func TestNewNotInitializedError(t *testing.T) {
	err := errors.NewNotInitializedError("Histogram.Update", "age")
	if !crdberrors.Is(err, errors.ErrNotInitialized) {
		t.Errorf("expected ErrNotInitialized in the chain")
	}
}

func TestRecover_ErrorPanic(t *testing.T) {
	f := func() (err error) {
		defer errors.Recover(&err, "scan.Reduce")
		panic(errors.NewHistogramError("Histogram.Merge", "age", errors.ErrShapeMismatch))
	}

	err := f()
	if err == nil {
		t.Fatalf("expected an error")
	}
	if !crdberrors.Is(err, errors.ErrShapeMismatch) {
		t.Errorf("sentinel lost through Recover: %v", err)
	}
}

func TestRecover_NonErrorPanic(t *testing.T) {
	f := func() (err error) {
		defer errors.Recover(&err, "scan.Sweep")
		panic("index out of range")
	}

	err := f()
	if err == nil {
		t.Fatalf("expected an error")
	}
	if got := err.Error(); got != "panic in scan.Sweep: index out of range" {
		t.Errorf("unexpected message: %q", got)
	}
}

func TestRecover_NoPanic(t *testing.T) {
	f := func() (err error) {
		defer errors.Recover(&err, "scan.Sweep")
		return nil
	}
	if err := f(); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
}
