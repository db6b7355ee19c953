// v1
// cmd/splitset/main.go

// splitset prepares generated datasets for training: optionally derives the
// shifted prev_* state columns, then splits every file into train/val/test
// partitions so each starting configuration contributes to all three.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/MarioTavi18/Greenhouse-IoT-Simulation/internal/dataset"
)

func main() {
	inFlag := flag.String("input-dir", "", "Folder with dataset CSV files")
	outFlag := flag.String("output-dir", "", "Output folder; train/ val/ test/ subfolders are created")
	seedFlag := flag.Int64("seed", 42, "Shuffle seed, mixed with each file name")
	trainFlag := flag.Float64("train", 0.70, "Train ratio")
	valFlag := flag.Float64("val", 0.15, "Validation ratio")
	testFlag := flag.Float64("test", 0.15, "Test ratio")
	patternFlag := flag.String("pattern", "*.csv", "Glob pattern for input files")
	prevFlag := flag.Bool("add-prev", false, "Derive prev_* state columns before splitting")
	dropFirstFlag := flag.Bool("drop-first", false, "With -add-prev, drop each file's first row (its previous state is artificial)")
	suffixFlag := flag.String("suffix", dataset.DefaultSuffix, "With -add-prev, suffix for converted file names")
	flag.Parse()

	if *inFlag == "" || *outFlag == "" {
		fmt.Println("-input-dir and -output-dir must be provided")
		os.Exit(2)
	}

	lg := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	inDir := *inFlag
	if *prevFlag {
		convDir := filepath.Join(*outFlag, "with_prev")
		n, err := dataset.ConvertDir(inDir, convDir, *suffixFlag, *dropFirstFlag, lg)
		if err != nil {
			lg.Error("prev-state conversion", "error", err)
			os.Exit(1)
		}
		lg.Info("prev-state conversion complete", "files", n, "dir", convDir)
		inDir = convDir
	}

	ratios := dataset.Ratios{Train: *trainFlag, Val: *valFlag, Test: *testFlag}
	counts, err := dataset.SplitDir(inDir, *outFlag, *patternFlag, *seedFlag, ratios, lg)
	if err != nil {
		lg.Error("split", "error", err)
		os.Exit(1)
	}
	lg.Info("split complete", "train", counts.Train, "val", counts.Val, "test", counts.Test)
}
