// v1
// internal/weather/weather.go
package weather

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/MarioTavi18/Greenhouse-IoT-Simulation/internal/climate"
)

// ErrUnknownRegime is returned when a target lookup references a regime
// outside the closed enum.
var ErrUnknownRegime = errors.New("unknown weather regime")

// targets maps each regime to its equilibrium metric vector. Values are the
// long-run levels a greenhouse drifts to under that weather with no
// equipment running.
var targets = map[climate.Regime]climate.Vector{
	climate.Sunny:    {Temperature: 28.0, Humidity: 45.0, SoilMoisture: 50.0, LightIntensity: 35000, CO2: 400.0},
	climate.ClearSky: {Temperature: 23.0, Humidity: 60.0, SoilMoisture: 55.0, LightIntensity: 15000, CO2: 400.0},
	climate.Cloudy:   {Temperature: 19.0, Humidity: 75.0, SoilMoisture: 58.0, LightIntensity: 5000, CO2: 400.0},
	climate.Rainy:    {Temperature: 16.0, Humidity: 90.0, SoilMoisture: 75.0, LightIntensity: 2000, CO2: 400.0},
	climate.Windy:    {Temperature: 20.0, Humidity: 50.0, SoilMoisture: 48.0, LightIntensity: 12000, CO2: 380.0},
}

// DefaultTransitions is the asymmetric reachability table between regimes.
// Successors are picked uniformly at random on each transition event.
func DefaultTransitions() map[climate.Regime][]climate.Regime {
	return map[climate.Regime][]climate.Regime{
		climate.Sunny:    {climate.Cloudy, climate.ClearSky, climate.Windy},
		climate.ClearSky: {climate.Cloudy, climate.Sunny, climate.Windy},
		climate.Cloudy:   {climate.Sunny, climate.ClearSky, climate.Rainy, climate.Windy},
		climate.Rainy:    {climate.Cloudy, climate.Windy},
		climate.Windy:    {climate.Cloudy, climate.ClearSky, climate.Rainy},
	}
}

// TargetVector returns the equilibrium vector for a regime.
func TargetVector(r climate.Regime) (climate.Vector, error) {
	t, ok := targets[r]
	if !ok {
		return climate.Vector{}, fmt.Errorf("%w: %s", ErrUnknownRegime, r)
	}
	return t, nil
}

// Machine holds the current regime and advances it every TransitionPeriod
// ticks. Not safe for concurrent use; the control loop owns it.
type Machine struct {
	lg          *slog.Logger
	rng         *rand.Rand
	current     climate.Regime
	period      int64
	transitions map[climate.Regime][]climate.Regime
}

// NewMachine builds a weather machine starting in the given regime. A nil
// transitions map selects DefaultTransitions. period must be positive.
func NewMachine(start climate.Regime, period int64, transitions map[climate.Regime][]climate.Regime, rng *rand.Rand, lg *slog.Logger) (*Machine, error) {
	if period <= 0 {
		return nil, fmt.Errorf("transition period must be positive, got %d", period)
	}
	if _, ok := targets[start]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRegime, start)
	}
	if transitions == nil {
		transitions = DefaultTransitions()
	}
	return &Machine{
		lg:          lg,
		rng:         rng,
		current:     start,
		period:      period,
		transitions: transitions,
	}, nil
}

// Current returns the active regime.
func (m *Machine) Current() climate.Regime { return m.current }

// MaybeTransition advances the regime when the tick lands on a transition
// boundary. A regime with no configured successors falls back to ClearSky
// rather than sticking forever. Reports whether the regime changed.
func (m *Machine) MaybeTransition(tick int64) bool {
	if tick%m.period != 0 {
		return false
	}
	next := m.pickNext()
	if next == m.current {
		return false
	}
	m.lg.Info("weather transition", "from", m.current, "to", next, "tick", tick)
	m.current = next
	return true
}

func (m *Machine) pickNext() climate.Regime {
	succ := m.transitions[m.current]
	if len(succ) == 0 {
		m.lg.Warn("regime has no successors, falling back", "regime", m.current, "fallback", climate.ClearSky)
		return climate.ClearSky
	}
	return succ[m.rng.Intn(len(succ))]
}
