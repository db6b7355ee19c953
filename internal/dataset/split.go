// v1
// internal/dataset/split.go
package dataset

import (
	"fmt"
	"hash/fnv"
	"log/slog"
	"math"
	"math/rand"
	"path/filepath"
)

// Ratios are the train/validation/test proportions of a split.
type Ratios struct {
	Train float64
	Val   float64
	Test  float64
}

// DefaultRatios is the 70/15/15 split the shipped models were fitted with.
func DefaultRatios() Ratios {
	return Ratios{Train: 0.70, Val: 0.15, Test: 0.15}
}

// Validate checks the ratios describe a complete partition.
func (r Ratios) Validate() error {
	if r.Train < 0 || r.Val < 0 || r.Test < 0 {
		return fmt.Errorf("split ratios must be non-negative, got %.2f/%.2f/%.2f", r.Train, r.Val, r.Test)
	}
	if sum := r.Train + r.Val + r.Test; math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("split ratios must sum to 1.0, got %.4f", sum)
	}
	return nil
}

// Counts accumulates partition sizes across files.
type Counts struct {
	Train int
	Val   int
	Test  int
}

// SplitRows shuffles the data rows with the given seed and cuts them into
// train/validation/test. The input is not modified; the test partition takes
// the integer-truncation remainder.
func SplitRows(rows [][]string, seed int64, r Ratios) (train, val, test [][]string) {
	shuffled := make([][]string, len(rows))
	copy(shuffled, rows)
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	nTrain := int(float64(len(shuffled)) * r.Train)
	nVal := int(float64(len(shuffled)) * r.Val)
	return shuffled[:nTrain], shuffled[nTrain : nTrain+nVal], shuffled[nTrain+nVal:]
}

// fileSeed mixes the file name into the base seed so every file shuffles
// independently yet reproducibly across runs.
func fileSeed(name string, seed int64) int64 {
	h := fnv.New32a()
	h.Write([]byte(name))
	return int64((uint64(h.Sum32()) ^ uint64(seed)) & 0xFFFFFFFF)
}

// SplitDir splits each CSV matching pattern under inDir into train/, val/
// and test/ subfolders of outDir, keeping the file name. Splitting per file
// keeps every starting configuration represented in all three partitions.
func SplitDir(inDir, outDir, pattern string, seed int64, r Ratios, lg *slog.Logger) (Counts, error) {
	var counts Counts
	if err := r.Validate(); err != nil {
		return counts, err
	}
	if pattern == "" {
		pattern = "*.csv"
	}
	files, err := filepath.Glob(filepath.Join(inDir, pattern))
	if err != nil {
		return counts, err
	}
	if len(files) == 0 {
		return counts, fmt.Errorf("no files found in %s matching %s", inDir, pattern)
	}

	for _, f := range files {
		records, err := readCSVFile(f)
		if err != nil {
			return counts, err
		}
		if len(records) < 2 {
			return counts, fmt.Errorf("%s: no data rows", filepath.Base(f))
		}
		name := filepath.Base(f)
		head := records[0]
		train, val, test := SplitRows(records[1:], fileSeed(name, seed), r)

		parts := []struct {
			dir  string
			rows [][]string
		}{
			{"train", train},
			{"val", val},
			{"test", test},
		}
		for _, p := range parts {
			out := append([][]string{head}, p.rows...)
			if err := writeCSVFile(filepath.Join(outDir, p.dir, name), out); err != nil {
				return counts, err
			}
		}
		counts.Train += len(train)
		counts.Val += len(val)
		counts.Test += len(test)
		lg.Info("split", "file", name, "train", len(train), "val", len(val), "test", len(test))
	}
	return counts, nil
}
