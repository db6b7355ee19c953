// v1
// internal/dataset/generate.go
package dataset

import (
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/MarioTavi18/Greenhouse-IoT-Simulation/internal/climate"
	"github.com/MarioTavi18/Greenhouse-IoT-Simulation/internal/config"
	"github.com/MarioTavi18/Greenhouse-IoT-Simulation/internal/control"
	"github.com/MarioTavi18/Greenhouse-IoT-Simulation/internal/equipment"
	"github.com/MarioTavi18/Greenhouse-IoT-Simulation/internal/scenario"
	"github.com/MarioTavi18/Greenhouse-IoT-Simulation/internal/sim"
	"github.com/MarioTavi18/Greenhouse-IoT-Simulation/internal/weather"
)

// Options tune one generation run. Zero-valued tuning fields pick up the
// service defaults so a bare {Scenario, Samples, Seed} is enough.
type Options struct {
	Scenario         string
	Samples          int
	Seed             int64
	Definitions      map[string]scenario.Definition
	Thresholds       control.Thresholds
	TransitionPeriod int64
	VentTempDelta    float64
	CO2InjectDelta   float64

	// Pause inserts a delay between ticks, for watching a run live.
	Pause time.Duration
	// OnRow is called for every saved row with its zero-based index.
	OnRow func(index int, row Row)
}

func (o Options) withDefaults() Options {
	def := config.Default()
	if o.Scenario == "" {
		o.Scenario = def.DefaultScenario
	}
	if o.TransitionPeriod <= 0 {
		o.TransitionPeriod = def.TransitionPeriod
	}
	if o.VentTempDelta == 0 {
		o.VentTempDelta = def.VentTempDelta
	}
	if o.CO2InjectDelta == 0 {
		o.CO2InjectDelta = def.CO2InjectDelta
	}
	if o.Thresholds == (control.Thresholds{}) {
		o.Thresholds = control.DefaultThresholds()
	}
	return o
}

// Generate runs the closed loop for samples+1 ticks and returns one row per
// kept tick. The extra first tick reacts to the artificial starting state,
// so it is dropped; everything after it reflects commands the loop itself
// caused.
func Generate(opts Options, lg *slog.Logger) ([]Row, error) {
	opts = opts.withDefaults()
	if opts.Samples <= 0 {
		return nil, fmt.Errorf("samples must be positive, got %d", opts.Samples)
	}

	ctrl, err := control.New(opts.Thresholds, lg)
	if err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewSource(opts.Seed))
	state := scenario.Resolve(opts.Scenario, opts.Definitions, rng, lg)
	machine, err := weather.NewMachine(state.Weather, opts.TransitionPeriod, nil, rng, lg)
	if err != nil {
		return nil, fmt.Errorf("weather machine: %w", err)
	}
	reg := equipment.NewRegistry(state.Equipment)
	effects := equipment.EffectTable(opts.VentTempDelta, opts.CO2InjectDelta)
	simulator := sim.New(uuid.NewString(), state.Metrics, machine, reg, effects, sim.Options{
		Rates:    climate.DefaultRates(),
		NoisePct: climate.DefaultNoisePct(),
	}, rng, lg)

	rows := make([]Row, 0, opts.Samples)
	for step := 0; step <= opts.Samples; step++ {
		reading := simulator.Step()
		cmd, err := ctrl.Decide(reading, reg.Snapshot())
		if err != nil {
			return nil, fmt.Errorf("decide at tick %d: %w", reading.Tick, err)
		}
		reg.Apply(cmd)

		if step > 0 {
			row := Row{Metrics: reading.Metrics, Command: cmd.Clone()}
			rows = append(rows, row)
			if opts.OnRow != nil {
				opts.OnRow(step-1, row)
			}
		}
		if opts.Pause > 0 {
			time.Sleep(opts.Pause)
		}
	}
	return rows, nil
}
