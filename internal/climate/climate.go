// v1
// internal/climate/climate.go
package climate

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Regime is a named weather condition. Each regime maps to a fixed
// equilibrium target vector kept by the weather package.
type Regime string

const (
	Sunny    Regime = "Sunny"
	ClearSky Regime = "Clear_sky"
	Cloudy   Regime = "Cloudy"
	Rainy    Regime = "Rainy"
	Windy    Regime = "Windy"
)

// Regimes lists every known regime in a stable order.
func Regimes() []Regime {
	return []Regime{Sunny, ClearSky, Cloudy, Rainy, Windy}
}

// ErrInvalidMetric is returned when a vector carries NaN or infinite values.
var ErrInvalidMetric = errors.New("invalid metric value")

// Vector holds one value per tracked metric. The same shape is used for
// current state, equilibrium targets, equipment deltas, convergence rates
// and noise percentages.
type Vector struct {
	Temperature    float64 `json:"temperature"`
	Humidity       float64 `json:"humidity"`
	SoilMoisture   float64 `json:"soilMoisture"`
	LightIntensity float64 `json:"lightIntensity"`
	CO2            float64 `json:"co2"`
}

// Bounds is the physical range a metric is clamped to every tick.
type Bounds struct {
	Min float64
	Max float64
}

var (
	TemperatureBounds    = Bounds{0, 50}
	HumidityBounds       = Bounds{0, 100}
	SoilMoistureBounds   = Bounds{0, 100}
	LightIntensityBounds = Bounds{0, 100000}
	CO2Bounds            = Bounds{300, 2000}
)

// DefaultRates are the per-tick convergence fractions toward the target.
func DefaultRates() Vector {
	return Vector{
		Temperature:    0.08,
		Humidity:       0.10,
		SoilMoisture:   0.05,
		LightIntensity: 0.15,
		CO2:            0.12,
	}
}

// DefaultNoisePct are the multiplicative noise percentages applied only to
// emitted readings, never to the simulator's internal state.
func DefaultNoisePct() Vector {
	return Vector{
		Temperature:    0.5,
		Humidity:       1.0,
		SoilMoisture:   1.5,
		LightIntensity: 2.0,
		CO2:            1.0,
	}
}

func clampOne(v float64, b Bounds) float64 {
	if v < b.Min {
		return b.Min
	}
	if v > b.Max {
		return b.Max
	}
	return v
}

// Clamped returns a copy with every metric forced into its physical bounds.
func (v Vector) Clamped() Vector {
	return Vector{
		Temperature:    clampOne(v.Temperature, TemperatureBounds),
		Humidity:       clampOne(v.Humidity, HumidityBounds),
		SoilMoisture:   clampOne(v.SoilMoisture, SoilMoistureBounds),
		LightIntensity: clampOne(v.LightIntensity, LightIntensityBounds),
		CO2:            clampOne(v.CO2, CO2Bounds),
	}
}

// InBounds reports whether every metric already sits inside its bounds.
func (v Vector) InBounds() bool {
	return v == v.Clamped()
}

// Add returns the element-wise sum of two vectors. Used to fold active
// equipment deltas onto a weather target.
func (v Vector) Add(d Vector) Vector {
	return Vector{
		Temperature:    v.Temperature + d.Temperature,
		Humidity:       v.Humidity + d.Humidity,
		SoilMoisture:   v.SoilMoisture + d.SoilMoisture,
		LightIntensity: v.LightIntensity + d.LightIntensity,
		CO2:            v.CO2 + d.CO2,
	}
}

// Validate rejects NaN and infinite values so that comparisons downstream
// never see them. Returns ErrInvalidMetric naming the first bad field.
func (v Vector) Validate() error {
	check := func(name string, f float64) error {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%w: %s=%v", ErrInvalidMetric, name, f)
		}
		return nil
	}
	if err := check("temperature", v.Temperature); err != nil {
		return err
	}
	if err := check("humidity", v.Humidity); err != nil {
		return err
	}
	if err := check("soilMoisture", v.SoilMoisture); err != nil {
		return err
	}
	if err := check("lightIntensity", v.LightIntensity); err != nil {
		return err
	}
	if err := check("co2", v.CO2); err != nil {
		return err
	}
	return nil
}

// Values returns the metrics in canonical column order: temperature,
// humidity, soil moisture, light intensity, co2. Dataset files and model
// feature vectors rely on this order.
func (v Vector) Values() []float64 {
	return []float64{v.Temperature, v.Humidity, v.SoilMoisture, v.LightIntensity, v.CO2}
}

// FromValues rebuilds a vector from canonical column order.
func FromValues(vals []float64) (Vector, error) {
	if len(vals) != 5 {
		return Vector{}, fmt.Errorf("expected 5 values, got %d", len(vals))
	}
	return Vector{
		Temperature:    vals[0],
		Humidity:       vals[1],
		SoilMoisture:   vals[2],
		LightIntensity: vals[3],
		CO2:            vals[4],
	}, nil
}

// Reading is one observed sample of the greenhouse: the noisy metric vector
// plus the weather regime and tick index it was produced under. Immutable
// once emitted.
type Reading struct {
	RunID     string    `json:"runId"`
	Tick      int64     `json:"tick"`
	Timestamp time.Time `json:"timestamp"`
	Weather   Regime    `json:"weather"`
	Metrics   Vector    `json:"metrics"`
}
