// v1
// internal/scenario/scenario.go
package scenario

import (
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/MarioTavi18/Greenhouse-IoT-Simulation/internal/climate"
	"github.com/MarioTavi18/Greenhouse-IoT-Simulation/internal/equipment"
)

// DefaultName is the configuration every unknown name falls back to.
const DefaultName = "optimal"

// Value is either a fixed literal, a uniform range, or a choice set. It is
// resolved into a concrete number exactly once, at initialization.
type Value struct {
	literal *float64
	lo, hi  *float64
	choice  []float64
}

// Lit builds a literal value.
func Lit(v float64) Value { return Value{literal: &v} }

// Between builds a uniform random range [lo, hi].
func Between(lo, hi float64) Value { return Value{lo: &lo, hi: &hi} }

// OneOf builds a uniform random choice over a fixed set.
func OneOf(vs ...float64) Value { return Value{choice: vs} }

// Resolve collapses the value into a concrete number.
func (v Value) Resolve(rng *rand.Rand) float64 {
	switch {
	case v.literal != nil:
		return *v.literal
	case v.lo != nil && v.hi != nil:
		return *v.lo + rng.Float64()*(*v.hi-*v.lo)
	case len(v.choice) > 0:
		return v.choice[rng.Intn(len(v.choice))]
	}
	return 0
}

// Definition describes one named starting configuration before resolution.
// Weather is a regime name, or "random" for a uniform draw over all
// regimes. Equipment lists the kinds that start active; RandomEquipment
// draws every kind's state instead.
type Definition struct {
	Temperature     Value           `yaml:"temperature"`
	Humidity        Value           `yaml:"humidity"`
	SoilMoisture    Value           `yaml:"soilMoisture"`
	LightIntensity  Value           `yaml:"lightIntensity"`
	CO2             Value           `yaml:"co2"`
	Weather         string          `yaml:"weather"`
	Equipment       map[string]bool `yaml:"equipment"`
	RandomEquipment bool            `yaml:"randomEquipment"`
}

// State is a resolved starting configuration: concrete metrics, a concrete
// regime and a concrete equipment map.
type State struct {
	Name      string                  `json:"name"`
	Metrics   climate.Vector          `json:"metrics"`
	Weather   climate.Regime          `json:"weather"`
	Equipment map[equipment.Kind]bool `json:"equipment"`
}

// Builtins returns the named starting configurations the service ships
// with. A scenarios file can override or extend these, never shrink them.
func Builtins() map[string]Definition {
	return map[string]Definition{
		"optimal": {
			Temperature: Lit(22.0), Humidity: Lit(65.0), SoilMoisture: Lit(60.0),
			LightIntensity: Lit(5000), CO2: Lit(400),
			Weather: string(climate.ClearSky),
		},
		"cold_start": {
			Temperature: Lit(15.0), Humidity: Lit(80.0), SoilMoisture: Lit(45.0),
			LightIntensity: Lit(1000), CO2: Lit(350),
			Weather: string(climate.Cloudy),
			Equipment: map[string]bool{
				string(equipment.Heater):     true,
				string(equipment.Irrigation): true,
				string(equipment.Lights):     true,
			},
		},
		"hot_humid": {
			Temperature: Lit(30.0), Humidity: Lit(85.0), SoilMoisture: Lit(70.0),
			LightIntensity: Lit(8000), CO2: Lit(450),
			Weather: string(climate.Sunny),
			Equipment: map[string]bool{
				string(equipment.Ventilation):  true,
				string(equipment.Dehumidifier): true,
			},
		},
		"random": {
			Temperature: Between(18, 28), Humidity: Between(50, 80), SoilMoisture: Between(40, 70),
			LightIntensity: Between(2000, 8000), CO2: Between(350, 500),
			Weather:         "random",
			RandomEquipment: true,
		},
		"night_cold": {
			Temperature: Lit(12.0), Humidity: Lit(70.0), SoilMoisture: Lit(55.0),
			LightIntensity: Lit(0), CO2: Lit(400),
			Weather: string(climate.ClearSky),
		},
		"heat_stress": {
			Temperature: Lit(38.0), Humidity: Lit(30.0), SoilMoisture: Lit(35.0),
			LightIntensity: Lit(80000), CO2: Lit(450),
			Weather: string(climate.Sunny),
		},
		"mold_risk": {
			Temperature: Lit(24.0), Humidity: Lit(95.0), SoilMoisture: Lit(80.0),
			LightIntensity: Lit(3000), CO2: Lit(600),
			Weather: string(climate.Rainy),
		},
		"drought": {
			Temperature: Lit(30.0), Humidity: Lit(25.0), SoilMoisture: Lit(10.0),
			LightIntensity: Lit(40000), CO2: Lit(400),
			Weather: string(climate.Sunny),
		},
		"conflict_start": {
			Temperature: Lit(19.5), Humidity: Lit(86.0), SoilMoisture: Lit(45.0),
			LightIntensity: Lit(6000), CO2: Lit(750),
			Weather: string(climate.Cloudy),
			Equipment: map[string]bool{
				string(equipment.Heater):      true,
				string(equipment.Ventilation): true,
			},
		},
		"sensor_glitch": {
			Temperature: Lit(0), Humidity: Lit(0), SoilMoisture: Lit(0),
			LightIntensity: Lit(0), CO2: Lit(2000),
			Weather: string(climate.ClearSky),
		},
	}
}

// Resolve turns a named configuration into a concrete starting state. An
// unrecognized name falls back to the optimal configuration; this is a
// documented non-fatal path, logged at warn. A nil defs map uses Builtins.
func Resolve(name string, defs map[string]Definition, rng *rand.Rand, lg *slog.Logger) State {
	if defs == nil {
		defs = Builtins()
	}
	def, ok := defs[name]
	if !ok {
		lg.Warn("unknown starting configuration, using fallback", "requested", name, "fallback", DefaultName)
		name = DefaultName
		def = defs[DefaultName]
	}

	st := State{
		Name: name,
		Metrics: climate.Vector{
			Temperature:    def.Temperature.Resolve(rng),
			Humidity:       def.Humidity.Resolve(rng),
			SoilMoisture:   def.SoilMoisture.Resolve(rng),
			LightIntensity: def.LightIntensity.Resolve(rng),
			CO2:            def.CO2.Resolve(rng),
		}.Clamped(),
		Weather:   resolveWeather(def.Weather, rng, lg),
		Equipment: make(map[equipment.Kind]bool, len(equipment.Kinds())),
	}
	for _, k := range equipment.Kinds() {
		if def.RandomEquipment {
			st.Equipment[k] = rng.Intn(2) == 1
		} else {
			st.Equipment[k] = def.Equipment[string(k)]
		}
	}
	return st
}

func resolveWeather(name string, rng *rand.Rand, lg *slog.Logger) climate.Regime {
	if name == "random" {
		all := climate.Regimes()
		return all[rng.Intn(len(all))]
	}
	r := climate.Regime(name)
	for _, known := range climate.Regimes() {
		if r == known {
			return r
		}
	}
	lg.Warn("unknown weather regime in configuration, using fallback", "requested", name, "fallback", climate.ClearSky)
	return climate.ClearSky
}

// Names lists the available configuration names.
func Names(defs map[string]Definition) []string {
	if defs == nil {
		defs = Builtins()
	}
	out := make([]string, 0, len(defs))
	for n := range defs {
		out = append(out, n)
	}
	return out
}

func validateDefinition(name string, def Definition) error {
	if def.Weather != "random" {
		r := climate.Regime(def.Weather)
		known := false
		for _, k := range climate.Regimes() {
			if r == k {
				known = true
				break
			}
		}
		if !known {
			return fmt.Errorf("scenario %s: unknown weather %q", name, def.Weather)
		}
	}
	for k := range def.Equipment {
		if !equipment.Valid(equipment.Kind(k)) {
			return fmt.Errorf("scenario %s: unknown equipment %q", name, k)
		}
	}
	for field, v := range map[string]Value{
		"temperature": def.Temperature, "humidity": def.Humidity,
		"soilMoisture": def.SoilMoisture, "lightIntensity": def.LightIntensity, "co2": def.CO2,
	} {
		if v.lo != nil && v.hi != nil && *v.lo > *v.hi {
			return fmt.Errorf("scenario %s: %s range min %.2f above max %.2f", name, field, *v.lo, *v.hi)
		}
	}
	return nil
}
