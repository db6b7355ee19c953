// v3
// internal/loop/runner.go

// Package loop drives the closed feedback cycle: the simulator produces a
// reading, the controller (or a trained command model) decides equipment
// states, the registry applies them, and the next tick's climate integrates
// their effects.
package loop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MarioTavi18/Greenhouse-IoT-Simulation/internal/climate"
	"github.com/MarioTavi18/Greenhouse-IoT-Simulation/internal/config"
	"github.com/MarioTavi18/Greenhouse-IoT-Simulation/internal/control"
	"github.com/MarioTavi18/Greenhouse-IoT-Simulation/internal/device"
	"github.com/MarioTavi18/Greenhouse-IoT-Simulation/internal/equipment"
	"github.com/MarioTavi18/Greenhouse-IoT-Simulation/internal/kafkaio"
	"github.com/MarioTavi18/Greenhouse-IoT-Simulation/internal/ml"
	"github.com/MarioTavi18/Greenhouse-IoT-Simulation/internal/observability"
	"github.com/MarioTavi18/Greenhouse-IoT-Simulation/internal/scenario"
	"github.com/MarioTavi18/Greenhouse-IoT-Simulation/internal/sim"
	"github.com/MarioTavi18/Greenhouse-IoT-Simulation/internal/storage"
	"github.com/MarioTavi18/Greenhouse-IoT-Simulation/internal/weather"
)

var (
	ErrAlreadyRunning = errors.New("a simulation run is already active")
	ErrNotRunning     = errors.New("no simulation run is active")
)

// Stats holds counters for the /status endpoint.
type Stats struct {
	Ticks              int64 `json:"ticks"`
	Decisions          int64 `json:"decisions"`
	RuleDecisions      int64 `json:"ruleDecisions"`
	ModelDecisions     int64 `json:"modelDecisions"`
	SkippedTicks       int64 `json:"skippedTicks"`
	WeatherTransitions int64 `json:"weatherTransitions"`
	Overrides          int64 `json:"overrides"`
}

// Status is a snapshot of the runner for API consumers.
type Status struct {
	Running    bool              `json:"running"`
	RunID      string            `json:"runId,omitempty"`
	Scenario   string            `json:"scenario,omitempty"`
	Tick       int64             `json:"tick"`
	Weather    climate.Regime    `json:"weather,omitempty"`
	Metrics    climate.Vector    `json:"metrics"`
	Equipment  equipment.Command `json:"equipment,omitempty"`
	Forecast   *climate.Vector   `json:"forecast,omitempty"`
	IntervalMs int64             `json:"intervalMs"`
	Stats      Stats             `json:"stats"`
}

// Deps are the collaborators a Runner publishes to and reads from. Only the
// store is required; the rest degrade to no-ops when nil.
type Deps struct {
	Store        storage.Store
	Publisher    *kafkaio.IO
	Bridge       *device.Bridge
	Metrics      *observability.Metrics
	Predictor    ml.Predictor
	CommandModel ml.CommandModel
	Scenarios    map[string]scenario.Definition
}

type override struct {
	active bool
	until  int64
}

type Runner struct {
	cfg  *config.AppConfig
	lg   *slog.Logger
	deps Deps

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}

	runID        string
	scenarioName string
	interval     time.Duration
	sim          *sim.Simulator
	ctrl         *control.Controller
	reg          *equipment.Registry
	tick         int64
	last         climate.Reading
	window       []climate.Vector
	forecast     *climate.Vector
	overrides    map[equipment.Kind]override
	stats        Stats
}

func NewRunner(cfg *config.AppConfig, lg *slog.Logger, deps Deps) (*Runner, error) {
	if deps.Store == nil {
		return nil, errors.New("a store is required")
	}
	ctrl, err := control.New(cfg.Thresholds, lg)
	if err != nil {
		return nil, err
	}
	return &Runner{cfg: cfg, lg: lg, deps: deps, ctrl: ctrl}, nil
}

// Start launches a run of the named starting configuration. An empty name
// selects the configured default, a zero interval the configured tick
// interval. With clearData the store is purged first.
func (r *Runner) Start(parent context.Context, name string, interval time.Duration, clearData bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return ErrAlreadyRunning
	}
	if name == "" {
		name = r.cfg.DefaultScenario
	}
	if interval <= 0 {
		interval = r.cfg.TickInterval
	}

	seed := r.cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	state := scenario.Resolve(name, r.deps.Scenarios, rng, r.lg)
	machine, err := weather.NewMachine(state.Weather, r.cfg.TransitionPeriod, nil, rng, r.lg)
	if err != nil {
		return fmt.Errorf("weather machine: %w", err)
	}

	runID := uuid.NewString()
	reg := equipment.NewRegistry(state.Equipment)
	effects := equipment.EffectTable(r.cfg.VentTempDelta, r.cfg.CO2InjectDelta)
	simulator := sim.New(runID, state.Metrics, machine, reg, effects, sim.Options{
		Rates:    climate.DefaultRates(),
		NoisePct: climate.DefaultNoisePct(),
	}, rng, r.lg)

	ctx, cancel := context.WithCancel(parent)
	if clearData {
		if err := r.deps.Store.Purge(ctx); err != nil {
			cancel()
			return fmt.Errorf("purge store: %w", err)
		}
	}

	initial := simulator.InitialReading()
	if err := r.deps.Store.SaveReading(ctx, initial); err != nil {
		cancel()
		return fmt.Errorf("save initial reading: %w", err)
	}
	snapshot := reg.Snapshot()
	if err := r.deps.Store.SaveEquipmentState(ctx, runID, 0, snapshot); err != nil {
		cancel()
		return fmt.Errorf("save initial equipment state: %w", err)
	}

	r.runID = runID
	r.scenarioName = state.Name
	r.interval = interval
	r.sim = simulator
	r.reg = reg
	r.tick = 0
	r.last = initial
	r.window = r.window[:0]
	r.forecast = nil
	r.overrides = map[equipment.Kind]override{}
	r.stats = Stats{}
	r.running = true
	r.cancel = cancel
	r.done = make(chan struct{})

	r.deps.Metrics.ObserveReading(initial.Metrics)
	_ = r.deps.Publisher.PublishReading(ctx, initial)
	r.deps.Bridge.PublishReading(initial)
	r.deps.Bridge.PublishEquipment(0, snapshot)

	r.lg.Info("run starting", "runId", runID, "scenario", state.Name, "weather", state.Weather,
		"interval", interval, "seed", seed, "clearData", clearData)
	go r.run(ctx, r.done, interval)
	return nil
}

// Stop halts the active run between ticks and waits for the loop goroutine
// to exit.
func (r *Runner) Stop() error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return ErrNotRunning
	}
	cancel, done := r.cancel, r.done
	r.mu.Unlock()

	cancel()
	<-done
	r.lg.Info("run stopped", "runId", r.runID)
	return nil
}

// Override forces one equipment kind for the next ticks decisions. The
// controller takes back control once the window passes. The change hits the
// registry immediately so the climate feels it on the very next tick.
func (r *Runner) Override(k equipment.Kind, active bool, ticks int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return ErrNotRunning
	}
	if !equipment.Valid(k) {
		return fmt.Errorf("%w: %s", equipment.ErrUnknownKind, k)
	}
	until := r.tick + ticks
	if ticks <= 0 {
		until = r.tick + 1
	}
	r.overrides[k] = override{active: active, until: until}
	if err := r.reg.Set(k, active); err != nil {
		return err
	}
	r.stats.Overrides++
	r.lg.Info("override accepted", "equipment", k, "active", active, "untilTick", until)
	return nil
}

// Status reports the current run state; after a stop it keeps reporting the
// final state of the last run.
func (r *Runner) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	st := Status{
		Running:    r.running,
		RunID:      r.runID,
		Scenario:   r.scenarioName,
		Tick:       r.tick,
		Weather:    r.last.Weather,
		Metrics:    r.last.Metrics,
		IntervalMs: r.interval.Milliseconds(),
		Stats:      r.stats,
	}
	if r.reg != nil {
		st.Equipment = r.reg.Snapshot()
	}
	if r.forecast != nil {
		f := *r.forecast
		st.Forecast = &f
	}
	return st
}

func (r *Runner) run(ctx context.Context, done chan struct{}, interval time.Duration) {
	defer close(done)
	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.lg.Info("loop exiting", "runId", r.runID)
			return
		case <-ticker.C:
			r.step(ctx)
		}
	}
}

// step advances the world one tick and closes the feedback cycle.
func (r *Runner) step(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	reading := r.sim.Step()
	r.tick = reading.Tick
	r.stats.Ticks++
	r.deps.Metrics.Tick()
	r.lg.Debug("tick", "tick", reading.Tick, "weather", reading.Weather,
		"temp", reading.Metrics.Temperature, "co2", reading.Metrics.CO2)

	if reading.Weather != r.last.Weather {
		r.stats.WeatherTransitions++
		r.deps.Metrics.WeatherTransition(r.last.Weather, reading.Weather)
	}
	r.last = reading
	r.deps.Metrics.ObserveReading(reading.Metrics)

	if err := r.deps.Store.SaveReading(ctx, reading); err != nil {
		r.lg.Error("save reading failed, skipping tick", "tick", reading.Tick, "error", err)
		r.stats.SkippedTicks++
		r.deps.Metrics.SkippedTick()
		return
	}
	_ = r.deps.Publisher.PublishReading(ctx, reading)
	r.deps.Bridge.PublishReading(reading)

	fresh := r.updateForecast(reading)

	// Warm-up: let the climate settle before the controller acts.
	if reading.Tick <= r.cfg.WarmupTicks {
		return
	}

	snapshot := r.reg.Snapshot()
	source := storage.SourceRules
	started := time.Now()

	// On forecast ticks the rules act on the predicted next reading, getting
	// ahead of threshold crossings instead of reacting to them.
	decideInput := reading
	if fresh && r.deps.CommandModel == nil {
		decideInput.Metrics = *r.forecast
		r.lg.Debug("deciding on forecast", "tick", reading.Tick)
	}

	var cmd equipment.Command
	var err error
	if r.deps.CommandModel != nil {
		cmd, err = r.deps.CommandModel.Propose(reading.Metrics, snapshot)
		if err != nil {
			r.lg.Warn("command model failed, falling back to rules", "tick", reading.Tick, "error", err)
		} else {
			source = storage.SourceModel
			cmd = r.ctrl.Sanitize(cmd, reading.Metrics)
		}
	}
	if cmd == nil {
		cmd, err = r.ctrl.Decide(decideInput, snapshot)
		if err != nil {
			r.lg.Error("decide failed, skipping tick", "tick", reading.Tick, "error", err)
			r.stats.SkippedTicks++
			r.deps.Metrics.SkippedTick()
			return
		}
	}

	if r.applyOverrides(cmd, reading.Tick) {
		source = storage.SourceOverride
		cmd = r.ctrl.Sanitize(cmd, reading.Metrics)
	}

	for _, k := range equipment.Kinds() {
		if cmd[k] != snapshot[k] {
			r.lg.Info("equipment switched", "tick", reading.Tick, "equipment", k, "active", cmd[k], "source", source)
			r.deps.Metrics.EquipmentSwitched(k, cmd[k])
		}
	}
	r.reg.Apply(cmd)

	stored := storage.StoredCommand{
		ID:       uuid.NewString(),
		RunID:    r.runID,
		Tick:     reading.Tick,
		Source:   source,
		States:   cmd.Clone(),
		IssuedAt: time.Now().UTC(),
	}
	if err := r.deps.Store.SaveCommand(ctx, stored); err != nil {
		r.lg.Error("save command failed", "tick", reading.Tick, "error", err)
	}
	if err := r.deps.Store.SaveEquipmentState(ctx, r.runID, reading.Tick, cmd); err != nil {
		r.lg.Error("save equipment state failed", "tick", reading.Tick, "error", err)
	}
	_ = r.deps.Publisher.PublishCommand(ctx, stored)
	r.deps.Bridge.PublishEquipment(reading.Tick, cmd)

	r.stats.Decisions++
	switch source {
	case storage.SourceModel:
		r.stats.ModelDecisions++
	case storage.SourceRules:
		r.stats.RuleDecisions++
	}
	r.deps.Metrics.Decision(source, time.Since(started))
}

// applyOverrides rewrites cmd with the live overrides and reports whether
// any were applied. Expired windows are dropped.
func (r *Runner) applyOverrides(cmd equipment.Command, tick int64) bool {
	applied := false
	for k, ov := range r.overrides {
		if tick > ov.until {
			delete(r.overrides, k)
			continue
		}
		cmd[k] = ov.active
		applied = true
	}
	return applied
}

// updateForecast maintains the sliding window for the predictor and
// refreshes the cached forecast on the configured cadence. Reports whether
// a fresh forecast was produced on this tick.
func (r *Runner) updateForecast(reading climate.Reading) bool {
	if r.deps.Predictor == nil {
		return false
	}
	size := r.deps.Predictor.WindowSize()
	r.window = append(r.window, reading.Metrics)
	if len(r.window) > size {
		r.window = r.window[len(r.window)-size:]
	}
	if len(r.window) < size || reading.Tick%r.cfg.PredictEvery != 0 {
		return false
	}
	next, err := r.deps.Predictor.NextMetrics(r.window)
	if err != nil {
		r.lg.Warn("forecast failed", "tick", reading.Tick, "error", err)
		return false
	}
	r.forecast = &next
	return true
}
