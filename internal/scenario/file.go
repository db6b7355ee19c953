// v1
// internal/scenario/file.go
package scenario

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v2"

	"github.com/MarioTavi18/Greenhouse-IoT-Simulation/internal/climate"
)

// yamlValue is the on-disk shape of a Value: either a bare number, a
// {min, max} range, or a {oneOf} choice list.
type yamlValue struct {
	Min   *float64  `yaml:"min"`
	Max   *float64  `yaml:"max"`
	OneOf []float64 `yaml:"oneOf"`
}

// UnmarshalYAML accepts a scalar literal or the structured range/choice
// forms, mirroring the literal-or-generator shape of the configuration.
func (v *Value) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var f float64
	if err := unmarshal(&f); err == nil {
		*v = Lit(f)
		return nil
	}
	var s yamlValue
	if err := unmarshal(&s); err != nil {
		return err
	}
	switch {
	case s.Min != nil && s.Max != nil:
		*v = Between(*s.Min, *s.Max)
	case len(s.OneOf) > 0:
		*v = OneOf(s.OneOf...)
	default:
		return fmt.Errorf("value needs a number, a min/max pair, or a oneOf list")
	}
	return nil
}

type scenarioFile struct {
	Scenarios map[string]Definition `yaml:"scenarios"`
}

// LoadFile reads a scenarios YAML file and merges it over the built-in
// definitions. File entries override builtins of the same name; builtins
// that the file does not mention stay available.
func LoadFile(path string) (map[string]Definition, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenarios file %s: %w", path, err)
	}
	var sf scenarioFile
	if err := yaml.Unmarshal(b, &sf); err != nil {
		return nil, fmt.Errorf("parse scenarios file %s: %w", path, err)
	}

	defs := Builtins()
	names := make([]string, 0, len(sf.Scenarios))
	for name := range sf.Scenarios {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		def := sf.Scenarios[name]
		if def.Weather == "" {
			def.Weather = string(climate.ClearSky)
		}
		if err := validateDefinition(name, def); err != nil {
			return nil, err
		}
		defs[name] = def
	}
	return defs, nil
}
