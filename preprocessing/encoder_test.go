package preprocessing_test

import (
	"math"
	"reflect"
	"testing"

	crdberrors "github.com/cockroachdb/errors"

	"github.com/ezoic/treesplit/pkg/errors"
	"github.com/ezoic/treesplit/preprocessing"
)

func TestCategoryEncoder_BasicFunctionality(t *testing.T) {
	enc := preprocessing.NewCategoryEncoder()

	codes, err := enc.FitTransform([]string{"dog", "cat", "dog", "bird", "cat"})
	if err != nil {
		t.Fatalf("FitTransform failed: %v", err)
	}

	// Codes follow sorted category order: bird=0, cat=1, dog=2.
	if !reflect.DeepEqual(enc.Categories, []string{"bird", "cat", "dog"}) {
		t.Errorf("Categories: expected [bird cat dog], got %v", enc.Categories)
	}
	expected := []float64{2, 1, 2, 0, 1}
	if !reflect.DeepEqual(codes, expected) {
		t.Errorf("codes: expected %v, got %v", expected, codes)
	}
	if enc.NumCategories() != 3 {
		t.Errorf("NumCategories: expected 3, got %d", enc.NumCategories())
	}
}

func TestCategoryEncoder_UnseenCategory(t *testing.T) {
	enc := preprocessing.NewCategoryEncoder()
	if err := enc.Fit([]string{"a", "b"}); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	codes, err := enc.Transform([]string{"a", "z", "b"})
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}
	if codes[0] != 0 || codes[2] != 1 {
		t.Errorf("known codes wrong: %v", codes)
	}
	if !math.IsNaN(codes[1]) {
		t.Errorf("unseen category: expected NaN, got %v", codes[1])
	}
}

func TestCategoryEncoder_Roundtrip(t *testing.T) {
	enc := preprocessing.NewCategoryEncoder()
	if err := enc.Fit([]string{"red", "green", "blue"}); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	for code := 0; code < enc.NumCategories(); code++ {
		name := enc.Category(code)
		if enc.CategoryToCode[name] != code {
			t.Errorf("roundtrip failed for code %d (%q)", code, name)
		}
	}
	if enc.Category(-1) != "" || enc.Category(99) != "" {
		t.Errorf("out-of-range code should map to empty string")
	}
}

func TestCategoryEncoder_Errors(t *testing.T) {
	enc := preprocessing.NewCategoryEncoder()

	err := enc.Fit(nil)
	if err == nil || !crdberrors.Is(err, errors.ErrEmptyData) {
		t.Errorf("Fit(nil): expected ErrEmptyData, got %v", err)
	}

	if _, err := enc.Transform([]string{"a"}); err == nil {
		t.Errorf("Transform before Fit should fail")
	}
	if enc.IsFitted() {
		t.Errorf("IsFitted should be false before a successful Fit")
	}
}
