package histogram

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"
)

// SmallCategorySpan is the widest category-index span that still qualifies
// for the compact bitset split representation.
const SmallCategorySpan = 32

// CategorySet is the set of category indices routed to the right child of a
// categorical split.
type CategorySet struct {
	bm *roaring.Bitmap
}

// NewCategorySet creates an empty category set.
func NewCategorySet() *CategorySet {
	return &CategorySet{bm: roaring.New()}
}

// Add inserts a category index.
func (s *CategorySet) Add(cat int) {
	s.bm.Add(uint32(cat))
}

// Contains reports whether the category goes right.
func (s *CategorySet) Contains(cat int) bool {
	if cat < 0 {
		return false
	}
	return s.bm.Contains(uint32(cat))
}

// Cardinality returns the number of categories in the set.
func (s *CategorySet) Cardinality() int {
	return int(s.bm.GetCardinality())
}

// Min returns the smallest category in the set. The set must be non-empty.
func (s *CategorySet) Min() int {
	return int(s.bm.Minimum())
}

// Max returns the largest category in the set. The set must be non-empty.
func (s *CategorySet) Max() int {
	return int(s.bm.Maximum())
}

// Span returns Max-Min+1, the index range the set must be able to address.
func (s *CategorySet) Span() int {
	if s.bm.IsEmpty() {
		return 0
	}
	return s.Max() - s.Min() + 1
}

// Small reports whether the span fits the compact bitset representation.
func (s *CategorySet) Small() bool {
	return s.Span() <= SmallCategorySpan
}

// Categories returns the member categories in ascending order.
func (s *CategorySet) Categories() []int {
	out := make([]int, 0, s.Cardinality())
	it := s.bm.Iterator()
	for it.HasNext() {
		out = append(out, int(it.Next()))
	}
	return out
}

func (s *CategorySet) String() string {
	return fmt.Sprintf("CategorySet%v", s.Categories())
}
