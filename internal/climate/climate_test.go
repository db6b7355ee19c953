// v1
// internal/climate/climate_test.go
package climate

import (
	"errors"
	"math"
	"testing"
)

func TestClampedForcesBounds(t *testing.T) {
	cases := []struct {
		name string
		in   Vector
		want Vector
	}{
		{
			name: "below minimums",
			in:   Vector{Temperature: -5, Humidity: -1, SoilMoisture: -0.1, LightIntensity: -200, CO2: 100},
			want: Vector{Temperature: 0, Humidity: 0, SoilMoisture: 0, LightIntensity: 0, CO2: 300},
		},
		{
			name: "above maximums",
			in:   Vector{Temperature: 90, Humidity: 120, SoilMoisture: 101, LightIntensity: 2e6, CO2: 9000},
			want: Vector{Temperature: 50, Humidity: 100, SoilMoisture: 100, LightIntensity: 100000, CO2: 2000},
		},
		{
			name: "already in bounds",
			in:   Vector{Temperature: 22, Humidity: 65, SoilMoisture: 60, LightIntensity: 5000, CO2: 400},
			want: Vector{Temperature: 22, Humidity: 65, SoilMoisture: 60, LightIntensity: 5000, CO2: 400},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.in.Clamped()
			if got != tc.want {
				t.Fatalf("Clamped() = %+v, want %+v", got, tc.want)
			}
			if !got.InBounds() {
				t.Fatalf("clamped vector reported out of bounds: %+v", got)
			}
		})
	}
}

func TestValidateRejectsNaNAndInf(t *testing.T) {
	good := Vector{Temperature: 22, Humidity: 65, SoilMoisture: 60, LightIntensity: 5000, CO2: 400}
	if err := good.Validate(); err != nil {
		t.Fatalf("valid vector rejected: %v", err)
	}

	bad := []Vector{
		{Temperature: math.NaN(), Humidity: 65, SoilMoisture: 60, LightIntensity: 5000, CO2: 400},
		{Temperature: 22, Humidity: math.Inf(1), SoilMoisture: 60, LightIntensity: 5000, CO2: 400},
		{Temperature: 22, Humidity: 65, SoilMoisture: 60, LightIntensity: math.Inf(-1), CO2: 400},
		{Temperature: 22, Humidity: 65, SoilMoisture: 60, LightIntensity: 5000, CO2: math.NaN()},
	}
	for i, v := range bad {
		if err := v.Validate(); !errors.Is(err, ErrInvalidMetric) {
			t.Fatalf("case %d: expected ErrInvalidMetric, got %v", i, err)
		}
	}
}

func TestAddSumsPerMetric(t *testing.T) {
	base := Vector{Temperature: 20, Humidity: 60, SoilMoisture: 50, LightIntensity: 10000, CO2: 400}
	delta := Vector{Temperature: 8, Humidity: -15, CO2: -50}
	got := base.Add(delta)
	want := Vector{Temperature: 28, Humidity: 45, SoilMoisture: 50, LightIntensity: 10000, CO2: 350}
	if got != want {
		t.Fatalf("Add() = %+v, want %+v", got, want)
	}
}

func TestValuesRoundTrip(t *testing.T) {
	v := Vector{Temperature: 1, Humidity: 2, SoilMoisture: 3, LightIntensity: 4, CO2: 5}
	got, err := FromValues(v.Values())
	if err != nil {
		t.Fatalf("FromValues: %v", err)
	}
	if got != v {
		t.Fatalf("round trip = %+v, want %+v", got, v)
	}
	if _, err := FromValues([]float64{1, 2, 3}); err == nil {
		t.Fatalf("expected error for short slice")
	}
}
