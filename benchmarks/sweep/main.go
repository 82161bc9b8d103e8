// Command sweep measures accumulation throughput across worker counts and
// accumulation strategies, printing samples/second for each configuration.
package main

import (
	"fmt"
	"math/rand/v2"
	"runtime"
	"strings"
	"time"

	"github.com/ezoic/treesplit/histogram"
	"github.com/ezoic/treesplit/scan"
)

// Result is one benchmark measurement.
type Result struct {
	Strategy   string
	Rows       int
	Workers    int
	Duration   time.Duration
	Throughput float64 // rows/second
}

func makeSource(n int) scan.SliceSource {
	rng := rand.New(rand.NewPCG(1, 2))
	src := scan.SliceSource{
		Values:    make([]float64, n),
		Responses: make([]float64, n),
	}
	for i := range src.Values {
		src.Values[i] = rng.Float64() * 1000
		src.Responses[i] = rng.NormFloat64()
	}
	return src
}

func newHistogram(nbins int) *histogram.Histogram {
	h, err := histogram.New("bench", histogram.KindFloat, 0, 1000, histogram.Params{NBins: nbins})
	if err != nil {
		panic(err)
	}
	h.Init()
	return h
}

func benchAtomicUpdate(src scan.SliceSource, nbins int) Result {
	h := newHistogram(nbins)
	start := time.Now()
	for i := 0; i < src.Len(); i++ {
		v, y, w := src.Row(i)
		h.Update(v, y, w)
	}
	d := time.Since(start)
	return Result{"row-at-a-time Update", src.Len(), 1, d, float64(src.Len()) / d.Seconds()}
}

func benchScratch(src scan.SliceSource, nbins int) Result {
	h := newHistogram(nbins)
	s := h.NewScratch()
	start := time.Now()
	for i := 0; i < src.Len(); i++ {
		v, y, w := src.Row(i)
		s.Add(v, y, w)
	}
	s.Flush()
	d := time.Since(start)
	return Result{"Scratch buffer", src.Len(), 1, d, float64(src.Len()) / d.Seconds()}
}

func benchSweep(src scan.SliceSource, nbins, workers int) Result {
	h := newHistogram(nbins)
	start := time.Now()
	if err := scan.Sweep(h, src, workers); err != nil {
		panic(err)
	}
	d := time.Since(start)
	return Result{"Sweep", src.Len(), workers, d, float64(src.Len()) / d.Seconds()}
}

func main() {
	fmt.Println("=== Histogram Accumulation Benchmarks ===")
	fmt.Printf("GOMAXPROCS: %d\n\n", runtime.GOMAXPROCS(0))

	const nbins = 64
	sizes := []int{100_000, 1_000_000, 10_000_000}
	workerCounts := []int{1, 2, 4, 8, runtime.NumCPU()}

	var results []Result
	for _, n := range sizes {
		fmt.Printf("dataset: %d rows, %d bins\n", n, nbins)
		fmt.Println(strings.Repeat("-", 50))
		src := makeSource(n)

		results = append(results, benchAtomicUpdate(src, nbins))
		results = append(results, benchScratch(src, nbins))
		for _, w := range workerCounts {
			results = append(results, benchSweep(src, nbins, w))
		}

		for _, r := range results[len(results)-2-len(workerCounts):] {
			fmt.Printf("  %-22s workers=%-3d %12.0f rows/s  (%v)\n",
				r.Strategy, r.Workers, r.Throughput, r.Duration.Round(time.Millisecond))
		}
		fmt.Println()
	}

	fmt.Println(strings.Repeat("=", 50))
	fmt.Println("BENCHMARK SUMMARY")
	fmt.Println(strings.Repeat("=", 50))
	best := results[0]
	for _, r := range results[1:] {
		if r.Throughput > best.Throughput {
			best = r
		}
	}
	fmt.Printf("best: %s with %d workers at %.0f rows/s\n", best.Strategy, best.Workers, best.Throughput)
}
