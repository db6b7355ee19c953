// v2
// internal/control/controller.go
package control

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/MarioTavi18/Greenhouse-IoT-Simulation/internal/climate"
	"github.com/MarioTavi18/Greenhouse-IoT-Simulation/internal/equipment"
)

// ErrInvalidReading is returned when a reading carries NaN or infinite
// metrics. Hysteresis comparisons must never see such values.
var ErrInvalidReading = errors.New("invalid reading")

// ErrBadThresholds is returned when threshold configuration is inconsistent.
var ErrBadThresholds = errors.New("bad thresholds")

// Thresholds are the controller's tuning constants. Every value can be
// overridden independently through configuration.
type Thresholds struct {
	TempMin        float64 `json:"tempMin"`
	TempMax        float64 `json:"tempMax"`
	TempBuffer     float64 `json:"tempBuffer"`
	HumMin         float64 `json:"humMin"`
	HumMax         float64 `json:"humMax"`
	HumBuffer      float64 `json:"humBuffer"`
	SoilMin        float64 `json:"soilMin"`
	SoilBuffer     float64 `json:"soilBuffer"`
	CO2Min         float64 `json:"co2Min"`
	CO2Buffer      float64 `json:"co2Buffer"`
	LightMinGrowth float64 `json:"lightMinGrowth"`
	LightMaxStress float64 `json:"lightMaxStress"`
}

// DefaultThresholds returns the tuning the controller ships with.
func DefaultThresholds() Thresholds {
	return Thresholds{
		TempMin:        20.0,
		TempMax:        25.0,
		TempBuffer:     1.5,
		HumMin:         50.0,
		HumMax:         80.0,
		HumBuffer:      5.0,
		SoilMin:        40.0,
		SoilBuffer:     5.0,
		CO2Min:         800.0,
		CO2Buffer:      50.0,
		LightMinGrowth: 5000.0,
		LightMaxStress: 50000.0,
	}
}

// Validate checks the thresholds form usable hysteresis bands.
func (t Thresholds) Validate() error {
	if t.TempMin >= t.TempMax {
		return fmt.Errorf("%w: tempMin %.2f >= tempMax %.2f", ErrBadThresholds, t.TempMin, t.TempMax)
	}
	if t.HumMin >= t.HumMax {
		return fmt.Errorf("%w: humMin %.2f >= humMax %.2f", ErrBadThresholds, t.HumMin, t.HumMax)
	}
	if t.LightMinGrowth >= t.LightMaxStress {
		return fmt.Errorf("%w: lightMinGrowth %.0f >= lightMaxStress %.0f", ErrBadThresholds, t.LightMinGrowth, t.LightMaxStress)
	}
	if t.TempBuffer <= 0 || t.HumBuffer <= 0 || t.SoilBuffer <= 0 || t.CO2Buffer <= 0 {
		return fmt.Errorf("%w: buffers must be positive", ErrBadThresholds)
	}
	return nil
}

// Controller turns a reading plus the current equipment snapshot into the
// desired next equipment state. Decide is pure: it never mutates the
// registry, the caller applies the returned command.
type Controller struct {
	th Thresholds
	lg *slog.Logger
}

// New builds a controller after validating its thresholds.
func New(th Thresholds, lg *slog.Logger) (*Controller, error) {
	if err := th.Validate(); err != nil {
		return nil, err
	}
	return &Controller{th: th, lg: lg}, nil
}

// Thresholds exposes the active tuning, e.g. for the status endpoint.
func (c *Controller) Thresholds() Thresholds { return c.th }

// Decide applies the per-metric hysteresis rules in fixed order, later
// rules overriding earlier ones, then a final conflict pass. The working
// command starts as a copy of the snapshot so that any state no rule
// touches is held, not dropped.
func (c *Controller) Decide(r climate.Reading, snapshot equipment.Command) (equipment.Command, error) {
	if err := r.Metrics.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidReading, err)
	}
	th := c.th
	m := r.Metrics
	cmd := snapshot.Clone()

	// Temperature. Heater latches on below TempMin and holds until the
	// reading clears TempMin+TempBuffer. Ventilation mirrors this band
	// around TempMax.
	if m.Temperature < th.TempMin {
		cmd[equipment.Heater] = true
	} else if cmd[equipment.Heater] && m.Temperature > th.TempMin+th.TempBuffer {
		cmd[equipment.Heater] = false
	}
	if m.Temperature > th.TempMax {
		cmd[equipment.Ventilation] = true
	} else if cmd[equipment.Ventilation] && m.Temperature < th.TempMax-th.TempBuffer {
		cmd[equipment.Ventilation] = false
	}
	c.resolveHeatVent(cmd, m.Temperature)

	// Lighting. Stress light closes the blinds and kills the lamps; dim
	// light opens the blinds and lights up unless we are already close to
	// the thermal ceiling, lamps being a heat source. In the optimal band
	// both hold their current state.
	switch {
	case m.LightIntensity > th.LightMaxStress:
		cmd[equipment.LightBlinds] = true
		cmd[equipment.Lights] = false
	case m.LightIntensity < th.LightMinGrowth:
		cmd[equipment.LightBlinds] = false
		if m.Temperature >= th.TempMax-0.5 {
			cmd[equipment.Lights] = false
		} else {
			cmd[equipment.Lights] = true
		}
	}

	// Humidity. Above HumMax ventilation is preferred drying whenever the
	// temperature has slack over TempMin, since venting cools as well; a
	// heater running at the same time would fight it, so it yields.
	if m.Humidity > th.HumMax {
		if m.Temperature > th.TempMin+0.5 {
			cmd[equipment.Ventilation] = true
			cmd[equipment.Heater] = false
		} else {
			cmd[equipment.Dehumidifier] = true
		}
	} else if m.Humidity < th.HumMin {
		cmd[equipment.Dehumidifier] = false
	} else if cmd[equipment.Dehumidifier] && m.Humidity < th.HumMax-th.HumBuffer {
		cmd[equipment.Dehumidifier] = false
	}

	// Soil moisture. Irrigation raises humidity as a side effect, so it is
	// not started when humidity already crowds HumMax.
	if m.SoilMoisture < th.SoilMin {
		if m.Humidity < th.HumMax-2.0 {
			cmd[equipment.Irrigation] = true
		}
	} else if cmd[equipment.Irrigation] && m.SoilMoisture > th.SoilMin+th.SoilBuffer {
		cmd[equipment.Irrigation] = false
	}

	// CO2. Injecting while venting is wasted gas.
	if cmd[equipment.Ventilation] {
		cmd[equipment.CO2Injector] = false
	} else if m.CO2 < th.CO2Min {
		cmd[equipment.CO2Injector] = true
	} else if cmd[equipment.CO2Injector] && m.CO2 > th.CO2Min+th.CO2Buffer {
		cmd[equipment.CO2Injector] = false
	}

	// Final conflict pass.
	if cmd[equipment.Ventilation] && m.Temperature >= th.TempMax {
		cmd[equipment.Lights] = false
		cmd[equipment.Dehumidifier] = false
	}
	if cmd[equipment.Heater] && m.Temperature <= th.TempMin && m.Humidity <= th.HumMax+5.0 {
		cmd[equipment.Ventilation] = false
	}
	c.resolveHeatVent(cmd, m.Temperature)
	if cmd[equipment.Ventilation] {
		cmd[equipment.CO2Injector] = false
	}

	return cmd, nil
}

// Sanitize enforces the hard exclusions on a command regardless of where it
// came from: heater and ventilation never run together, and the CO2 injector
// never runs while ventilation vents it straight out. Model proposals and
// operator overrides go through here before they reach the equipment.
func (c *Controller) Sanitize(cmd equipment.Command, m climate.Vector) equipment.Command {
	out := cmd.Clone()
	c.resolveHeatVent(out, m.Temperature)
	if out[equipment.Ventilation] {
		out[equipment.CO2Injector] = false
	}
	return out
}

// resolveHeatVent enforces heater/ventilation mutual exclusion. Above
// TempMax ventilation wins, otherwise the heater does.
func (c *Controller) resolveHeatVent(cmd equipment.Command, temp float64) {
	if !cmd[equipment.Heater] || !cmd[equipment.Ventilation] {
		return
	}
	if temp > c.th.TempMax {
		cmd[equipment.Heater] = false
	} else {
		cmd[equipment.Ventilation] = false
	}
}
