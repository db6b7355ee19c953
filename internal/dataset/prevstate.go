// v1
// internal/dataset/prevstate.go
package dataset

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/MarioTavi18/Greenhouse-IoT-Simulation/internal/equipment"
)

// DefaultSuffix is appended to converted file names before the extension.
const DefaultSuffix = "_with_prev"

func prevColumn(k equipment.Kind) string { return "prev_" + string(k) }

// PrevHeader returns the converted column order: metrics, the shifted
// prev_* state columns, then the command columns. This is the exact feature
// and label layout the command models train on.
func PrevHeader() []string {
	cols := append([]string{}, metricColumns...)
	for _, k := range equipment.Kinds() {
		cols = append(cols, prevColumn(k))
	}
	for _, k := range equipment.Kinds() {
		cols = append(cols, string(k))
	}
	return cols
}

// AddPrevState derives prev_* columns by shifting each equipment column down
// one row, with the first row's previous state all off. Columns are located
// by name, so input column order does not matter; output always uses
// PrevHeader order. With dropFirst the first data row is removed since its
// previous state is artificial.
func AddPrevState(records [][]string, dropFirst bool) ([][]string, error) {
	if len(records) == 0 {
		return nil, errors.New("empty dataset")
	}
	idx := make(map[string]int, len(records[0]))
	for i, c := range records[0] {
		idx[strings.TrimSpace(c)] = i
	}
	var missing []string
	for _, c := range metricColumns {
		if _, ok := idx[c]; !ok {
			missing = append(missing, c)
		}
	}
	for _, k := range equipment.Kinds() {
		if _, ok := idx[string(k)]; !ok {
			missing = append(missing, string(k))
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing columns: %s", strings.Join(missing, ", "))
	}

	out := make([][]string, 0, len(records))
	out = append(out, PrevHeader())
	prev := make([]bool, len(equipment.Kinds()))
	for n, rec := range records[1:] {
		if len(rec) != len(records[0]) {
			return nil, fmt.Errorf("row %d: %d cells, header has %d", n+1, len(rec), len(records[0]))
		}
		cur := make([]bool, len(equipment.Kinds()))
		for i, k := range equipment.Kinds() {
			b, err := parseBoolCell(strings.TrimSpace(rec[idx[string(k)]]))
			if err != nil {
				return nil, fmt.Errorf("row %d, column %s: %w", n+1, k, err)
			}
			cur[i] = b
		}
		line := make([]string, 0, len(PrevHeader()))
		for _, c := range metricColumns {
			line = append(line, rec[idx[c]])
		}
		for _, b := range prev {
			line = append(line, boolCell(b))
		}
		for _, b := range cur {
			line = append(line, boolCell(b))
		}
		out = append(out, line)
		prev = cur
	}

	if dropFirst && len(out) > 1 {
		out = append(out[:1], out[2:]...)
	}
	return out, nil
}

// ConvertFile rewrites one dataset file with prev_* columns added.
func ConvertFile(inPath, outPath string, dropFirst bool) error {
	records, err := readCSVFile(inPath)
	if err != nil {
		return err
	}
	converted, err := AddPrevState(records, dropFirst)
	if err != nil {
		return fmt.Errorf("%s: %w", filepath.Base(inPath), err)
	}
	return writeCSVFile(outPath, converted)
}

// ConvertDir converts every CSV under inDir into outDir, naming outputs
// stem+suffix+.csv. Returns the number of files converted.
func ConvertDir(inDir, outDir, suffix string, dropFirst bool, lg *slog.Logger) (int, error) {
	if suffix == "" {
		suffix = DefaultSuffix
	}
	files, err := filepath.Glob(filepath.Join(inDir, "*.csv"))
	if err != nil {
		return 0, err
	}
	if len(files) == 0 {
		return 0, fmt.Errorf("no .csv files found in %s", inDir)
	}
	converted := 0
	for _, f := range files {
		stem := strings.TrimSuffix(filepath.Base(f), ".csv")
		outPath := filepath.Join(outDir, stem+suffix+".csv")
		if err := ConvertFile(f, outPath, dropFirst); err != nil {
			return converted, err
		}
		converted++
		lg.Info("converted", "input", filepath.Base(f), "output", outPath)
	}
	return converted, nil
}
