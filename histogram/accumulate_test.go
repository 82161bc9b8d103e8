package histogram_test

import (
	"math"
	"sync"
	"testing"

	"github.com/ezoic/treesplit/histogram"
)

func newInitialized(t *testing.T, min, maxEx float64, nbins int) *histogram.Histogram {
	t.Helper()
	h := mustNew(t, "x", histogram.KindFloat, min, maxEx, histogram.Params{NBins: nbins})
	h.Init()
	return h
}

// histogramsEqual compares the per-bin statistics of two same-shape
// histograms within tol.
func histogramsEqual(t *testing.T, a, b *histogram.Histogram, tol float64) {
	t.Helper()
	if a.NBins() != b.NBins() {
		t.Fatalf("bin counts differ: %d vs %d", a.NBins(), b.NBins())
	}
	for bin := 0; bin < a.NBins(); bin++ {
		if math.Abs(a.WeightAt(bin)-b.WeightAt(bin)) > tol {
			t.Errorf("bin %d: weight %v vs %v", bin, a.WeightAt(bin), b.WeightAt(bin))
		}
		if math.Abs(a.Mean(bin)-b.Mean(bin)) > tol {
			t.Errorf("bin %d: mean %v vs %v", bin, a.Mean(bin), b.Mean(bin))
		}
		if math.Abs(a.Var(bin)-b.Var(bin)) > tol {
			t.Errorf("bin %d: var %v vs %v", bin, a.Var(bin), b.Var(bin))
		}
	}
}

func TestUpdate_TracksObservedBounds(t *testing.T) {
	h := newInitialized(t, 0, 10, 10)

	h.Update(7.5, 1, 1)
	h.Update(3.25, 1, 1)
	h.Update(5, 1, 1)

	if h.ObservedMin() != 3.25 {
		t.Errorf("ObservedMin: expected 3.25, got %v", h.ObservedMin())
	}
	if h.ObservedMaxIn() != 7.5 {
		t.Errorf("ObservedMaxIn: expected 7.5, got %v", h.ObservedMaxIn())
	}
	if !(h.ObservedMaxEx() > 7.5) {
		t.Errorf("ObservedMaxEx: expected > 7.5, got %v", h.ObservedMaxEx())
	}
}

func TestUpdate_SentinelsDoNotMoveBounds(t *testing.T) {
	h := newInitialized(t, 0, 10, 10)

	h.Update(5, 1, 1)
	h.Update(math.Inf(1), 1, 1)
	h.Update(math.Inf(-1), 1, 1)
	h.Update(math.NaN(), 1, 1)

	if h.ObservedMin() != 5 || h.ObservedMaxIn() != 5 {
		t.Errorf("bounds moved by sentinels: [%v, %v]", h.ObservedMin(), h.ObservedMaxIn())
	}
	// Sentinels still land in the outermost bins.
	if h.WeightAt(0) != 1 {
		t.Errorf("-Inf: expected weight 1 in first bin, got %v", h.WeightAt(0))
	}
	if h.WeightAt(9) != 2 { // +Inf and NaN
		t.Errorf("+Inf/NaN: expected weight 2 in last bin, got %v", h.WeightAt(9))
	}
}

func TestUpdate_ZeroResponseStillCounts(t *testing.T) {
	h := newInitialized(t, 0, 10, 10)

	h.Update(2.5, 0, 1)
	h.Update(2.5, 0, 1)

	if h.WeightAt(2) != 2 {
		t.Errorf("expected weight 2, got %v", h.WeightAt(2))
	}
	if h.Mean(2) != 0 || h.Var(2) != 0 {
		t.Errorf("expected zero moments, got mean %v var %v", h.Mean(2), h.Var(2))
	}
}

func TestUpdate_WeightedRows(t *testing.T) {
	h := newInitialized(t, 0, 10, 10)

	h.Update(4.5, 3, 2) // weight 2 contributes 2*3 to wY
	h.Update(4.5, 3, 0) // zero weight still "counts", contributing nothing

	if h.WeightAt(4) != 2 {
		t.Errorf("expected weight 2, got %v", h.WeightAt(4))
	}
	if math.Abs(h.Mean(4)-3) > epsilon {
		t.Errorf("expected mean 3, got %v", h.Mean(4))
	}
}

func TestUpdate_ConcurrentMatchesSequential(t *testing.T) {
	const (
		n       = 40000
		workers = 8
	)
	row := func(i int) (v, y, w float64) {
		return float64((i*7)%10) + 0.25, float64(i % 5), 1 + float64(i%2)
	}

	shared := newInitialized(t, 0, 10, 10)
	var wg sync.WaitGroup
	chunk := n / workers
	for g := 0; g < workers; g++ {
		wg.Add(1)
		go func(lo int) {
			defer wg.Done()
			for i := lo; i < lo+chunk; i++ {
				v, y, w := row(i)
				shared.Update(v, y, w)
			}
		}(g * chunk)
	}
	wg.Wait()

	sequential := newInitialized(t, 0, 10, 10)
	for i := 0; i < n; i++ {
		v, y, w := row(i)
		sequential.Update(v, y, w)
	}

	histogramsEqual(t, shared, sequential, 1e-7)
	if shared.ObservedMin() != sequential.ObservedMin() ||
		shared.ObservedMaxIn() != sequential.ObservedMaxIn() {
		t.Errorf("observed bounds differ: [%v, %v] vs [%v, %v]",
			shared.ObservedMin(), shared.ObservedMaxIn(),
			sequential.ObservedMin(), sequential.ObservedMaxIn())
	}
}

func TestScratch_FlushMatchesDirectUpdate(t *testing.T) {
	direct := newInitialized(t, 0, 10, 10)
	batched := newInitialized(t, 0, 10, 10)

	s := batched.NewScratch()
	for i := 0; i < 1000; i++ {
		v := float64(i%10) + 0.5
		y := float64(i % 3)
		direct.Update(v, y, 1)
		s.Add(v, y, 1)
	}
	s.Flush()

	histogramsEqual(t, direct, batched, 1e-9)
	if direct.ObservedMin() != batched.ObservedMin() ||
		direct.ObservedMaxIn() != batched.ObservedMaxIn() {
		t.Errorf("observed bounds differ after flush")
	}
}

func TestScratch_ReusableAfterFlush(t *testing.T) {
	direct := newInitialized(t, 0, 10, 10)
	batched := newInitialized(t, 0, 10, 10)

	s := batched.NewScratch()
	for round := 0; round < 3; round++ {
		for i := 0; i < 100; i++ {
			v := float64((i + round) % 10)
			direct.Update(v, 2, 1)
			s.Add(v, 2, 1)
		}
		s.Flush()
	}

	histogramsEqual(t, direct, batched, 1e-9)
}

func TestUpdate_BeforeInitPanics(t *testing.T) {
	h := mustNew(t, "x", histogram.KindFloat, 0, 10, histogram.Params{NBins: 10})

	defer func() {
		if recover() == nil {
			t.Errorf("expected panic for Update before Init")
		}
	}()
	h.Update(5, 1, 1)
}
