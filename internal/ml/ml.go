// v1
// internal/ml/ml.go

// Package ml loads trained model artifacts and serves predictions to the
// control loop. Artifacts are JSON exports of models trained offline on
// datasets produced by the traingen tool.
package ml

import (
	"errors"

	"github.com/MarioTavi18/Greenhouse-IoT-Simulation/internal/climate"
	"github.com/MarioTavi18/Greenhouse-IoT-Simulation/internal/equipment"
)

var (
	ErrBadArtifact = errors.New("invalid model artifact")
	ErrBadWindow   = errors.New("window does not match the model input shape")
)

// Predictor forecasts the next metric vector from a window of recent ones,
// oldest first.
type Predictor interface {
	WindowSize() int
	NextMetrics(window []climate.Vector) (climate.Vector, error)
}

// CommandModel proposes equipment states from the current metrics and the
// previous equipment states.
type CommandModel interface {
	Propose(m climate.Vector, prev equipment.Command) (equipment.Command, error)
}
