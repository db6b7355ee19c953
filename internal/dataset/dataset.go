// v1
// internal/dataset/dataset.go

// Package dataset produces and reshapes the CSV training sets the command
// models are fitted on offline. A generated file holds one labeled sample
// per tick: the observed metrics and the rule decision taken from them.
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/MarioTavi18/Greenhouse-IoT-Simulation/internal/climate"
	"github.com/MarioTavi18/Greenhouse-IoT-Simulation/internal/equipment"
)

// metricColumns is the column order for readings. It matches
// climate.Vector.Values.
var metricColumns = []string{
	"temperature",
	"humidity",
	"soil_moisture",
	"light_intensity",
	"co2_concentration",
}

// Row is one labeled sample: the metrics observed on a tick and the command
// decided from them.
type Row struct {
	Metrics climate.Vector
	Command equipment.Command
}

// Header returns the generated column order: metrics first, then one boolean
// column per equipment kind.
func Header() []string {
	cols := append([]string{}, metricColumns...)
	for _, k := range equipment.Kinds() {
		cols = append(cols, string(k))
	}
	return cols
}

// Record renders the row for CSV output. Metrics are rounded to two
// decimals, equipment states to 0/1.
func (r Row) Record() []string {
	rec := make([]string, 0, len(metricColumns)+len(equipment.Kinds()))
	for _, v := range r.Metrics.Values() {
		rec = append(rec, strconv.FormatFloat(v, 'f', 2, 64))
	}
	for _, k := range equipment.Kinds() {
		rec = append(rec, boolCell(r.Command[k]))
	}
	return rec
}

func boolCell(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// parseBoolCell reads an equipment cell. Besides 0/1 it tolerates the
// true/false spellings older exports used; an empty cell counts as off.
func parseBoolCell(s string) (bool, error) {
	if s == "" {
		return false, nil
	}
	return strconv.ParseBool(s)
}

// WriteRows emits header plus rows as CSV.
func WriteRows(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header()); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write(r.Record()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Filename builds the canonical dataset file name for a generation run.
func Filename(scenarioName string, samples int, seed int64, now time.Time) string {
	return fmt.Sprintf("%s_samples%d_seed%d_%s.csv", scenarioName, samples, seed, now.Format("20060102-150405"))
}

// RecommendedSamples maps each built-in starting configuration to the row
// count used for the shipped models. Transient configurations contribute
// fewer rows so steady-state behavior dominates the training mix.
func RecommendedSamples() map[string]int {
	return map[string]int{
		"optimal":        2000,
		"random":         2000,
		"cold_start":     1200,
		"hot_humid":      1200,
		"night_cold":     900,
		"heat_stress":    900,
		"mold_risk":      900,
		"drought":        700,
		"conflict_start": 200,
		"sensor_glitch":  100,
	}
}

func readCSVFile(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	return records, nil
}

func writeCSVFile(path string, records [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := csv.NewWriter(f).WriteAll(records); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
