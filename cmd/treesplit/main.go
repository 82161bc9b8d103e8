// Command treesplit reads a CSV dataset with a header row, builds per-column
// histograms, and prints the best split for predicting the response column.
//
// Numeric columns are binned directly; non-numeric columns are label-encoded
// and treated as categorical. Empty cells count as missing values.
//
// Usage:
//
//	treesplit -response price -bins 20 -min-rows 10 data.csv
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strconv"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/treesplit/histogram"
	"github.com/ezoic/treesplit/pkg/log"
	"github.com/ezoic/treesplit/preprocessing"
	"github.com/ezoic/treesplit/scan"
)

type column struct {
	name    string
	kind    histogram.ColumnKind
	values  []float64
	encoder *preprocessing.CategoryEncoder
}

func fail(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}

// parseColumn converts one raw CSV column. A column where every non-empty
// cell parses as a number stays numeric; anything else is label-encoded.
func parseColumn(name string, raw []string) (column, error) {
	numeric := true
	for _, cell := range raw {
		if cell == "" {
			continue
		}
		if _, err := strconv.ParseFloat(cell, 64); err != nil {
			numeric = false
			break
		}
	}

	if numeric {
		values := make([]float64, len(raw))
		for i, cell := range raw {
			if cell == "" {
				values[i] = math.NaN()
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return column{}, err
			}
			values[i] = v
		}
		return column{name: name, kind: histogram.KindFloat, values: values}, nil
	}

	enc := preprocessing.NewCategoryEncoder()
	values, err := enc.FitTransform(raw)
	if err != nil {
		return column{}, err
	}
	return column{name: name, kind: histogram.KindCategorical, values: values, encoder: enc}, nil
}

func main() {
	responseName := flag.String("response", "", "name of the response column (required)")
	bins := flag.Int("bins", histogram.DefaultBins, "bins per numeric column")
	minRows := flag.Float64("min-rows", 10, "minimum weighted rows per child")
	minImprovement := flag.Float64("min-improvement", 0, "minimum relative error reduction")
	verbose := flag.Bool("v", false, "enable debug logging")
	flag.Parse()

	if *responseName == "" || flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	if *verbose {
		log.SetLevel("debug")
	}

	f, err := os.Open(flag.Arg(0))
	if err != nil {
		fail("Failed to open input", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		fail("Failed to parse CSV", err)
	}
	if len(records) < 2 {
		fmt.Fprintln(os.Stderr, "need a header row and at least one data row")
		os.Exit(2)
	}
	header, rows := records[0], records[1:]

	responseIdx := -1
	for j, name := range header {
		if name == *responseName {
			responseIdx = j
		}
	}
	if responseIdx < 0 {
		fmt.Fprintf(os.Stderr, "response column %q not found in header\n", *responseName)
		os.Exit(2)
	}

	// Parse features and the response.
	var features []column
	var responses []float64
	for j, name := range header {
		raw := make([]string, len(rows))
		for i, row := range rows {
			raw[i] = row[j]
		}
		col, err := parseColumn(name, raw)
		if err != nil {
			fail("Failed to parse column "+name, err)
		}
		if j == responseIdx {
			if col.kind != histogram.KindFloat {
				fmt.Fprintf(os.Stderr, "response column %q must be numeric\n", name)
				os.Exit(2)
			}
			responses = col.values
			continue
		}
		features = append(features, col)
	}

	X := mat.NewDense(len(rows), len(features), nil)
	names := make([]string, len(features))
	kinds := make([]histogram.ColumnKind, len(features))
	for j, col := range features {
		names[j] = col.name
		kinds[j] = col.kind
		for i, v := range col.values {
			X.Set(i, j, v)
		}
	}

	src, err := scan.NewMatrixSource(X, responses, nil)
	if err != nil {
		fail("Failed to build row source", err)
	}
	hists, err := scan.InitialHistograms(src, names, kinds, histogram.Params{
		NBins:               *bins,
		MinSplitImprovement: *minImprovement,
	})
	if err != nil {
		fail("Failed to build histograms", err)
	}
	for c, h := range hists {
		if h == nil {
			continue
		}
		if err := scan.Sweep(h, src.Column(c), 0); err != nil {
			fail("Sweep failed on column "+names[c], err)
		}
	}

	split, col := scan.BestSplit(hists, *minRows)
	if split == nil {
		fmt.Println("no acceptable split")
		return
	}

	fmt.Printf("column:      %s\n", names[col])
	switch split.Kind {
	case histogram.SplitLessThan:
		fmt.Printf("rule:        %s < %.6g\n", names[col], split.Threshold(hists[col]))
	case histogram.SplitEqual:
		fmt.Printf("rule:        %s == %.6g goes right\n", names[col], split.Threshold(hists[col]))
	default:
		cats := split.Categories.Categories()
		if enc := features[col].encoder; enc != nil {
			labels := make([]string, len(cats))
			for i, c := range cats {
				labels[i] = enc.Category(c)
			}
			fmt.Printf("rule:        %s in %v goes right\n", names[col], labels)
		} else {
			fmt.Printf("rule:        %s in %v goes right\n", names[col], cats)
		}
	}
	fmt.Printf("improvement: %.2f%%\n", split.Improvement()*100)
	fmt.Printf("left:        weight %.0f, prediction %.6g\n", split.LeftWeight, split.LeftPrediction)
	fmt.Printf("right:       weight %.0f, prediction %.6g\n", split.RightWeight, split.RightPrediction)
}
