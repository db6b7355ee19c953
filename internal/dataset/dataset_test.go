// v1
// internal/dataset/dataset_test.go
package dataset

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/MarioTavi18/Greenhouse-IoT-Simulation/internal/climate"
	"github.com/MarioTavi18/Greenhouse-IoT-Simulation/internal/equipment"
	"github.com/MarioTavi18/Greenhouse-IoT-Simulation/internal/scenario"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func records(rows []Row) [][]string {
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = r.Record()
	}
	return out
}

func TestGenerateDeterministic(t *testing.T) {
	opts := Options{Scenario: "optimal", Samples: 25, Seed: 7}

	first, err := Generate(opts, testLogger())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	second, err := Generate(opts, testLogger())
	if err != nil {
		t.Fatalf("generate again: %v", err)
	}

	if len(first) != opts.Samples {
		t.Fatalf("rows = %d, want %d", len(first), opts.Samples)
	}
	if !reflect.DeepEqual(records(first), records(second)) {
		t.Fatal("same seed produced different rows")
	}

	opts.Seed = 8
	other, err := Generate(opts, testLogger())
	if err != nil {
		t.Fatalf("generate with new seed: %v", err)
	}
	if reflect.DeepEqual(records(first), records(other)) {
		t.Fatal("different seeds produced identical rows")
	}
}

func TestGeneratedCommandsRespectExclusions(t *testing.T) {
	rows, err := Generate(Options{Scenario: "conflict_start", Samples: 60, Seed: 3}, testLogger())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	for i, r := range rows {
		if r.Command[equipment.Heater] && r.Command[equipment.Ventilation] {
			t.Fatalf("row %d: heater and ventilation both on", i)
		}
		if r.Command[equipment.Ventilation] && r.Command[equipment.CO2Injector] {
			t.Fatalf("row %d: co2 injector on while venting", i)
		}
		if len(r.Record()) != len(Header()) {
			t.Fatalf("row %d: %d cells, header has %d", i, len(r.Record()), len(Header()))
		}
	}
}

func TestGenerateRejectsZeroSamples(t *testing.T) {
	if _, err := Generate(Options{Scenario: "optimal"}, testLogger()); err == nil {
		t.Fatal("expected error for zero samples")
	}
}

func TestRowRecordFormat(t *testing.T) {
	cmd := equipment.NewCommand()
	cmd[equipment.Heater] = true
	row := Row{
		Metrics: climate.Vector{Temperature: 22.5, Humidity: 65, SoilMoisture: 60.25, LightIntensity: 5000, CO2: 412},
		Command: cmd,
	}

	want := []string{"22.50", "65.00", "60.25", "5000.00", "412.00", "1", "0", "0", "0", "0", "0", "0"}
	if got := row.Record(); !reflect.DeepEqual(got, want) {
		t.Fatalf("record = %v, want %v", got, want)
	}
}

func TestWriteRows(t *testing.T) {
	rows := []Row{
		{Metrics: climate.Vector{Temperature: 20, CO2: 400}, Command: equipment.NewCommand()},
		{Metrics: climate.Vector{Temperature: 21, CO2: 410}, Command: equipment.NewCommand()},
	}

	var buf bytes.Buffer
	if err := WriteRows(&buf, rows); err != nil {
		t.Fatalf("write: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %d, want header plus 2 rows", len(lines))
	}
	if lines[0] != strings.Join(Header(), ",") {
		t.Fatalf("header line = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "20.00,") {
		t.Fatalf("first row = %q", lines[1])
	}
}

func TestFilename(t *testing.T) {
	at := time.Date(2026, time.August, 23, 10, 30, 0, 0, time.UTC)
	got := Filename("optimal", 100, 42, at)
	want := "optimal_samples100_seed42_20260823-103000.csv"
	if got != want {
		t.Fatalf("filename = %q, want %q", got, want)
	}
}

func TestRecommendedSamplesNameBuiltins(t *testing.T) {
	defs := scenario.Builtins()
	for name := range RecommendedSamples() {
		if _, ok := defs[name]; !ok {
			t.Errorf("recommendation for unknown configuration %q", name)
		}
	}
}

func prevFixture() [][]string {
	return [][]string{
		append(append([]string{}, metricColumns...), "heater", "ventilation", "irrigation", "co2_injector", "lights", "dehumidifier", "light_blinds"),
		{"20.00", "60.00", "50.00", "4000.00", "400.00", "True", "False", "False", "False", "False", "False", "False"},
		{"21.00", "61.00", "51.00", "4100.00", "405.00", "1", "0", "0", "0", "true", "0", "0"},
		{"22.00", "62.00", "52.00", "4200.00", "410.00", "False", "0", "False", "0", "False", "0", "False"},
	}
}

func TestAddPrevStateShiftsEquipment(t *testing.T) {
	out, err := AddPrevState(prevFixture(), false)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}

	if !reflect.DeepEqual(out[0], PrevHeader()) {
		t.Fatalf("header = %v", out[0])
	}
	if len(out) != 4 {
		t.Fatalf("rows = %d, want 4", len(out))
	}

	// First data row: previous state is all off.
	wantFirst := []string{"20.00", "60.00", "50.00", "4000.00", "400.00",
		"0", "0", "0", "0", "0", "0", "0",
		"1", "0", "0", "0", "0", "0", "0"}
	if !reflect.DeepEqual(out[1], wantFirst) {
		t.Fatalf("row 1 = %v", out[1])
	}

	// Second row inherits the first row's states, normalized to 0/1.
	wantSecond := []string{"21.00", "61.00", "51.00", "4100.00", "405.00",
		"1", "0", "0", "0", "0", "0", "0",
		"1", "0", "0", "0", "1", "0", "0"}
	if !reflect.DeepEqual(out[2], wantSecond) {
		t.Fatalf("row 2 = %v", out[2])
	}

	wantThird := []string{"22.00", "62.00", "52.00", "4200.00", "410.00",
		"1", "0", "0", "0", "1", "0", "0",
		"0", "0", "0", "0", "0", "0", "0"}
	if !reflect.DeepEqual(out[3], wantThird) {
		t.Fatalf("row 3 = %v", out[3])
	}
}

func TestAddPrevStateDropFirst(t *testing.T) {
	out, err := AddPrevState(prevFixture(), true)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("rows = %d, want header plus 2", len(out))
	}
	// The surviving first row keeps the shift from the dropped one.
	if out[1][5] != "1" {
		t.Fatalf("prev_heater = %q, want 1", out[1][5])
	}
}

func TestAddPrevStateHandlesShuffledColumns(t *testing.T) {
	in := [][]string{
		{"lights", "temperature", "heater", "humidity", "soil_moisture", "light_intensity", "co2_concentration", "ventilation", "irrigation", "co2_injector", "dehumidifier", "light_blinds"},
		{"0", "19.00", "1", "55.00", "45.00", "3000.00", "390.00", "0", "0", "0", "0", "0"},
	}
	out, err := AddPrevState(in, false)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if out[1][0] != "19.00" {
		t.Fatalf("temperature cell = %q", out[1][0])
	}
	if out[1][12] != "1" {
		t.Fatalf("heater cell = %q", out[1][12])
	}
}

func TestAddPrevStateMissingColumn(t *testing.T) {
	in := [][]string{
		{"temperature", "soil_moisture", "light_intensity", "co2_concentration", "heater", "ventilation", "irrigation", "co2_injector", "lights", "dehumidifier", "light_blinds"},
		{"20.00", "50.00", "4000.00", "400.00", "0", "0", "0", "0", "0", "0", "0"},
	}
	_, err := AddPrevState(in, false)
	if err == nil || !strings.Contains(err.Error(), "humidity") {
		t.Fatalf("err = %v, want missing humidity", err)
	}
}

func TestRatiosValidate(t *testing.T) {
	if err := DefaultRatios().Validate(); err != nil {
		t.Fatalf("default ratios: %v", err)
	}
	if err := (Ratios{Train: 0.5, Val: 0.3, Test: 0.3}).Validate(); err == nil {
		t.Fatal("expected error for ratios summing to 1.1")
	}
	if err := (Ratios{Train: 1.2, Val: -0.1, Test: -0.1}).Validate(); err == nil {
		t.Fatal("expected error for negative ratios")
	}
}

func TestSplitRowsPartitions(t *testing.T) {
	rows := make([][]string, 20)
	for i := range rows {
		rows[i] = []string{string(rune('a' + i))}
	}

	train, val, test := SplitRows(rows, 42, DefaultRatios())
	if len(train) != 14 || len(val) != 3 || len(test) != 3 {
		t.Fatalf("sizes = %d/%d/%d, want 14/3/3", len(train), len(val), len(test))
	}

	seen := map[string]int{}
	for _, part := range [][][]string{train, val, test} {
		for _, r := range part {
			seen[r[0]]++
		}
	}
	if len(seen) != 20 {
		t.Fatalf("partitions cover %d distinct rows, want 20", len(seen))
	}
	for cell, n := range seen {
		if n != 1 {
			t.Fatalf("row %q appears %d times", cell, n)
		}
	}

	again, _, _ := SplitRows(rows, 42, DefaultRatios())
	if !reflect.DeepEqual(train, again) {
		t.Fatal("same seed produced a different shuffle")
	}
}

func TestSplitDir(t *testing.T) {
	inDir := t.TempDir()
	outDir := t.TempDir()

	for _, name := range []string{"optimal.csv", "drought.csv"} {
		recs := [][]string{Header()}
		for i := 0; i < 10; i++ {
			recs = append(recs, Row{Metrics: climate.Vector{Temperature: float64(20 + i)}, Command: equipment.NewCommand()}.Record())
		}
		if err := writeCSVFile(filepath.Join(inDir, name), recs); err != nil {
			t.Fatalf("fixture %s: %v", name, err)
		}
	}

	counts, err := SplitDir(inDir, outDir, "", 42, DefaultRatios(), testLogger())
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if counts.Train != 14 || counts.Val != 2 || counts.Test != 4 {
		t.Fatalf("counts = %+v, want 14/2/4", counts)
	}

	for _, part := range []string{"train", "val", "test"} {
		recs, err := readCSVFile(filepath.Join(outDir, part, "optimal.csv"))
		if err != nil {
			t.Fatalf("read %s: %v", part, err)
		}
		if !reflect.DeepEqual(recs[0], Header()) {
			t.Fatalf("%s header = %v", part, recs[0])
		}
	}
}

func TestSplitDirRejectsEmptyInput(t *testing.T) {
	if _, err := SplitDir(t.TempDir(), t.TempDir(), "", 1, DefaultRatios(), testLogger()); err == nil {
		t.Fatal("expected error for empty input dir")
	}
}

func TestConvertDir(t *testing.T) {
	inDir := t.TempDir()
	outDir := t.TempDir()

	if err := writeCSVFile(filepath.Join(inDir, "optimal.csv"), prevFixture()); err != nil {
		t.Fatalf("fixture: %v", err)
	}

	n, err := ConvertDir(inDir, outDir, "", true, testLogger())
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if n != 1 {
		t.Fatalf("converted = %d, want 1", n)
	}
	if _, err := os.Stat(filepath.Join(outDir, "optimal_with_prev.csv")); err != nil {
		t.Fatalf("output file: %v", err)
	}

	if _, err := ConvertDir(t.TempDir(), outDir, "", false, testLogger()); err == nil {
		t.Fatal("expected error for empty input dir")
	}
}
