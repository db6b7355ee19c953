// v1
// cmd/traingen/main.go

// traingen runs the closed simulation loop offline and writes one labeled
// CSV per run: each row holds the observed metrics and the rule decision
// taken from them, ready for model fitting.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/MarioTavi18/Greenhouse-IoT-Simulation/internal/dataset"
	"github.com/MarioTavi18/Greenhouse-IoT-Simulation/internal/equipment"
	"github.com/MarioTavi18/Greenhouse-IoT-Simulation/internal/scenario"
)

func main() {
	configFlag := flag.String("config", scenario.DefaultName, "Starting configuration name (optimal, cold_start, hot_humid, random, ...)")
	samplesFlag := flag.Int("samples", 1000, "Number of rows to save; one extra tick runs first and is dropped")
	seedFlag := flag.Int64("seed", 42, "Random seed for reproducibility")
	outdirFlag := flag.String("outdir", "datasets", "Output folder")
	outputFlag := flag.String("output", "", "Explicit output file name; auto-named from config/samples/seed when empty")
	intervalFlag := flag.Int("interval-ms", 0, "Delay between ticks in milliseconds, for watching a run live")
	showFlag := flag.Bool("show", false, "Print every saved row")
	scenariosFlag := flag.String("scenarios", "", "Optional scenarios YAML extending the built-ins")
	recommendedFlag := flag.Bool("recommended", false, "Print the recommended sample count per configuration and exit")
	flag.Parse()

	if *recommendedFlag {
		rec := dataset.RecommendedSamples()
		names := make([]string, 0, len(rec))
		for n := range rec {
			names = append(names, n)
		}
		sort.Strings(names)
		for _, n := range names {
			fmt.Printf("%-16s %d\n", n, rec[n])
		}
		return
	}

	lg := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	defs := scenario.Builtins()
	if *scenariosFlag != "" {
		loaded, err := scenario.LoadFile(*scenariosFlag)
		if err != nil {
			lg.Error("scenarios", "error", err)
			os.Exit(1)
		}
		defs = loaded
	}

	opts := dataset.Options{
		Scenario:    *configFlag,
		Samples:     *samplesFlag,
		Seed:        *seedFlag,
		Definitions: defs,
		Pause:       time.Duration(*intervalFlag) * time.Millisecond,
	}
	if *showFlag {
		opts.OnRow = func(i int, row dataset.Row) {
			var on []string
			for _, k := range equipment.Kinds() {
				if row.Command[k] {
					on = append(on, string(k))
				}
			}
			cmds := "none"
			if len(on) > 0 {
				cmds = strings.Join(on, ",")
			}
			m := row.Metrics
			fmt.Printf("[%s] %5d T=%5.2f H=%5.2f S=%5.2f L=%7.0f CO2=%6.0f cmds=%s\n",
				*configFlag, i, m.Temperature, m.Humidity, m.SoilMoisture, m.LightIntensity, m.CO2, cmds)
		}
	}

	lg.Info("generating", "config", *configFlag, "samples", *samplesFlag,
		"seed", *seedFlag, "ticks", *samplesFlag+1)

	rows, err := dataset.Generate(opts, lg)
	if err != nil {
		lg.Error("generate", "error", err)
		os.Exit(1)
	}

	name := *outputFlag
	if name == "" {
		name = dataset.Filename(*configFlag, *samplesFlag, *seedFlag, time.Now())
	}
	if err := os.MkdirAll(*outdirFlag, 0o755); err != nil {
		lg.Error("outdir", "error", err)
		os.Exit(1)
	}
	outPath := filepath.Join(*outdirFlag, name)
	f, err := os.Create(outPath)
	if err != nil {
		lg.Error("create output", "error", err)
		os.Exit(1)
	}
	if err := dataset.WriteRows(f, rows); err != nil {
		f.Close()
		lg.Error("write output", "error", err)
		os.Exit(1)
	}
	if err := f.Close(); err != nil {
		lg.Error("close output", "error", err)
		os.Exit(1)
	}
	lg.Info("saved", "rows", len(rows), "path", outPath)
}
