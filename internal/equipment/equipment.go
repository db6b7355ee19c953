// v1
// internal/equipment/equipment.go
package equipment

import (
	"errors"
	"fmt"
	"sync"

	"github.com/MarioTavi18/Greenhouse-IoT-Simulation/internal/climate"
)

// Kind identifies one controllable piece of greenhouse equipment.
type Kind string

const (
	Heater       Kind = "heater"
	Ventilation  Kind = "ventilation"
	Irrigation   Kind = "irrigation"
	CO2Injector  Kind = "co2_injector"
	Lights       Kind = "lights"
	Dehumidifier Kind = "dehumidifier"
	LightBlinds  Kind = "light_blinds"
)

// Kinds returns every equipment kind in canonical column order. Dataset
// files, model features and the registry all follow this order.
func Kinds() []Kind {
	return []Kind{Heater, Ventilation, Irrigation, CO2Injector, Lights, Dehumidifier, LightBlinds}
}

// ErrUnknownKind is returned for operations referencing equipment outside
// the fixed set.
var ErrUnknownKind = errors.New("unknown equipment kind")

// Valid reports whether k belongs to the fixed equipment set.
func Valid(k Kind) bool {
	switch k {
	case Heater, Ventilation, Irrigation, CO2Injector, Lights, Dehumidifier, LightBlinds:
		return true
	}
	return false
}

// Command is the controller's decision for one tick: the desired next
// active state of every equipment kind, not a delta.
type Command map[Kind]bool

// NewCommand returns an all-off command covering every kind.
func NewCommand() Command {
	c := make(Command, len(Kinds()))
	for _, k := range Kinds() {
		c[k] = false
	}
	return c
}

// Clone copies the command, filling in any missing kind as off so callers
// always see a fully populated map.
func (c Command) Clone() Command {
	out := NewCommand()
	for k, v := range c {
		if Valid(k) {
			out[k] = v
		}
	}
	return out
}

// Equal reports whether two commands agree on every kind.
func (c Command) Equal(other Command) bool {
	for _, k := range Kinds() {
		if c[k] != other[k] {
			return false
		}
	}
	return true
}

// EffectTable maps each kind to the delta it adds onto the weather target
// while active. Ventilation's temperature pull and the injector's CO2 boost
// differ between tuning revisions, so both are parameters.
func EffectTable(ventTempDelta, co2InjectDelta float64) map[Kind]climate.Vector {
	return map[Kind]climate.Vector{
		Heater:       {Temperature: 8.0},
		Ventilation:  {Temperature: ventTempDelta, Humidity: -15.0, CO2: -50.0},
		Irrigation:   {SoilMoisture: 25.0, Humidity: 5.0},
		CO2Injector:  {CO2: co2InjectDelta},
		Lights:       {LightIntensity: 15000, Temperature: 2.0},
		Dehumidifier: {Humidity: -20.0, Temperature: 1.5},
		LightBlinds:  {LightIntensity: -10000},
	}
}

// Registry is the authoritative on/off state of all equipment. It is the
// single mutable resource shared between simulator and controller, so all
// access goes through the mutex.
type Registry struct {
	mu     sync.Mutex
	states map[Kind]bool
}

// NewRegistry builds a fully populated registry. Kinds absent from initial
// start off; unknown keys are ignored.
func NewRegistry(initial map[Kind]bool) *Registry {
	states := make(map[Kind]bool, len(Kinds()))
	for _, k := range Kinds() {
		states[k] = initial[k]
	}
	return &Registry{states: states}
}

// Apply replaces the registry state with the command's desired states.
// Reapplying the same command is a no-op. Unknown kinds in the command are
// ignored so the registry stays exactly the fixed set.
func (r *Registry) Apply(cmd Command) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, k := range Kinds() {
		if v, ok := cmd[k]; ok {
			r.states[k] = v
		}
	}
}

// Snapshot returns a copy of the current states. The copy is safe to mutate
// and is what the controller decides against.
func (r *Registry) Snapshot() Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(Command, len(r.states))
	for k, v := range r.states {
		out[k] = v
	}
	return out
}

// Set flips one kind directly. Used by manual overrides, not by the loop.
func (r *Registry) Set(k Kind, active bool) error {
	if !Valid(k) {
		return fmt.Errorf("%w: %s", ErrUnknownKind, k)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states[k] = active
	return nil
}

// Get reads one kind's state.
func (r *Registry) Get(k Kind) (bool, error) {
	if !Valid(k) {
		return false, fmt.Errorf("%w: %s", ErrUnknownKind, k)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.states[k], nil
}
