// v2
// internal/sim/simulator.go
package sim

import (
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/MarioTavi18/Greenhouse-IoT-Simulation/internal/climate"
	"github.com/MarioTavi18/Greenhouse-IoT-Simulation/internal/equipment"
	"github.com/MarioTavi18/Greenhouse-IoT-Simulation/internal/weather"
)

// Simulator owns the greenhouse's true metric state and evolves it one tick
// at a time. Every Step computes the weather target, folds in the deltas of
// whatever equipment is active, moves the state a fixed fraction toward
// that target, clamps, and emits a noisy Reading. The internal state stays
// pre-noise so observation noise never accumulates.
type Simulator struct {
	lg  *slog.Logger
	rng *rand.Rand

	mu      sync.Mutex
	cur     climate.Vector
	tick    int64
	runID   string
	machine *weather.Machine
	reg     *equipment.Registry
	effects map[equipment.Kind]climate.Vector
	rates   climate.Vector
	noise   climate.Vector
}

// Options tune a simulator. A zero Rates vector selects the default
// convergence fractions; a zero NoisePct disables observation noise, which
// keeps test runs deterministic.
type Options struct {
	Rates    climate.Vector // per-metric convergence fractions
	NoisePct climate.Vector // per-metric reading noise percentages
}

// New builds a simulator starting from the given state. The registry handle
// is shared with the controller side; the simulator only reads it.
func New(runID string, start climate.Vector, machine *weather.Machine, reg *equipment.Registry, effects map[equipment.Kind]climate.Vector, opts Options, rng *rand.Rand, lg *slog.Logger) *Simulator {
	rates := opts.Rates
	if rates == (climate.Vector{}) {
		rates = climate.DefaultRates()
	}
	noise := opts.NoisePct
	return &Simulator{
		lg:      lg,
		rng:     rng,
		cur:     start.Clamped(),
		runID:   runID,
		machine: machine,
		reg:     reg,
		effects: effects,
		rates:   rates,
		noise:   noise,
	}
}

// InitialReading emits the starting state as a tick-zero reading, without
// advancing the simulation and without observation noise.
func (s *Simulator) InitialReading() climate.Reading {
	s.mu.Lock()
	defer s.mu.Unlock()
	return climate.Reading{
		RunID:     s.runID,
		Tick:      s.tick,
		Timestamp: time.Now(),
		Weather:   s.machine.Current(),
		Metrics:   s.cur,
	}
}

// Step advances one tick and returns the observed reading.
func (s *Simulator) Step() climate.Reading {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tick++
	s.machine.MaybeTransition(s.tick)

	target, err := weather.TargetVector(s.machine.Current())
	if err != nil {
		// The machine only holds regimes from the closed enum, so this is
		// unreachable in practice; keep the last target by converging to
		// the current state.
		s.lg.Error("target lookup failed", "regime", s.machine.Current(), "error", err)
		target = s.cur
	}
	for k, active := range s.reg.Snapshot() {
		if active {
			target = target.Add(s.effects[k])
		}
	}

	s.cur.Temperature += (target.Temperature - s.cur.Temperature) * s.rates.Temperature
	s.cur.Humidity += (target.Humidity - s.cur.Humidity) * s.rates.Humidity
	s.cur.SoilMoisture += (target.SoilMoisture - s.cur.SoilMoisture) * s.rates.SoilMoisture
	s.cur.LightIntensity += (target.LightIntensity - s.cur.LightIntensity) * s.rates.LightIntensity
	s.cur.CO2 += (target.CO2 - s.cur.CO2) * s.rates.CO2
	s.cur = s.cur.Clamped()

	observed := climate.Vector{
		Temperature:    s.noisy(s.cur.Temperature, s.noise.Temperature),
		Humidity:       s.noisy(s.cur.Humidity, s.noise.Humidity),
		SoilMoisture:   s.noisy(s.cur.SoilMoisture, s.noise.SoilMoisture),
		LightIntensity: s.noisy(s.cur.LightIntensity, s.noise.LightIntensity),
		CO2:            s.noisy(s.cur.CO2, s.noise.CO2),
	}.Clamped()

	return climate.Reading{
		RunID:     s.runID,
		Tick:      s.tick,
		Timestamp: time.Now(),
		Weather:   s.machine.Current(),
		Metrics:   observed,
	}
}

// noisy perturbs a value by a bounded multiplicative fraction of itself.
func (s *Simulator) noisy(v, pct float64) float64 {
	if pct <= 0 {
		return v
	}
	span := v * pct / 100.0
	return v + (s.rng.Float64()*2-1)*span
}

// Snapshot exposes the pre-noise state for status reporting.
func (s *Simulator) Snapshot() (climate.Vector, int64, climate.Regime) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur, s.tick, s.machine.Current()
}
