// v1
// internal/ml/ridge.go
package ml

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/MarioTavi18/Greenhouse-IoT-Simulation/internal/climate"
)

const metricCount = 5

// ridgeArtifact is the JSON export of a trained next-tick ridge regression.
// The input is the last windowSize metric vectors flattened row-major, both
// inputs and outputs standardized with the stored means and scales.
type ridgeArtifact struct {
	WindowSize    int         `json:"windowSize"`
	FeatureMeans  []float64   `json:"featureMeans"`
	FeatureScales []float64   `json:"featureScales"`
	TargetMeans   []float64   `json:"targetMeans"`
	TargetScales  []float64   `json:"targetScales"`
	Coefficients  [][]float64 `json:"coefficients"`
	Intercepts    []float64   `json:"intercepts"`
}

type RidgePredictor struct {
	art ridgeArtifact
}

// LoadRidge reads a ridge regression artifact from path.
func LoadRidge(path string) (*RidgePredictor, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read ridge artifact: %w", err)
	}
	var art ridgeArtifact
	if err := json.Unmarshal(b, &art); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadArtifact, err)
	}

	if art.WindowSize <= 0 {
		return nil, fmt.Errorf("%w: windowSize must be positive", ErrBadArtifact)
	}
	features := art.WindowSize * metricCount
	if len(art.FeatureMeans) != features || len(art.FeatureScales) != features {
		return nil, fmt.Errorf("%w: feature scaler length %d, want %d", ErrBadArtifact, len(art.FeatureMeans), features)
	}
	if len(art.TargetMeans) != metricCount || len(art.TargetScales) != metricCount {
		return nil, fmt.Errorf("%w: target scaler length %d, want %d", ErrBadArtifact, len(art.TargetMeans), metricCount)
	}
	if len(art.Coefficients) != metricCount || len(art.Intercepts) != metricCount {
		return nil, fmt.Errorf("%w: expected %d output rows", ErrBadArtifact, metricCount)
	}
	for i, row := range art.Coefficients {
		if len(row) != features {
			return nil, fmt.Errorf("%w: coefficient row %d has %d entries, want %d", ErrBadArtifact, i, len(row), features)
		}
	}
	// A constant training column leaves a zero scale; treat it as identity.
	for i, s := range art.FeatureScales {
		if s == 0 {
			art.FeatureScales[i] = 1
		}
	}
	for i, s := range art.TargetScales {
		if s == 0 {
			art.TargetScales[i] = 1
		}
	}
	return &RidgePredictor{art: art}, nil
}

func (p *RidgePredictor) WindowSize() int {
	return p.art.WindowSize
}

// NextMetrics predicts the next metric vector from the window, oldest first.
func (p *RidgePredictor) NextMetrics(window []climate.Vector) (climate.Vector, error) {
	if len(window) != p.art.WindowSize {
		return climate.Vector{}, fmt.Errorf("%w: got %d vectors, want %d", ErrBadWindow, len(window), p.art.WindowSize)
	}

	x := make([]float64, 0, p.art.WindowSize*metricCount)
	for _, v := range window {
		x = append(x, v.Values()...)
	}
	for i := range x {
		x[i] = (x[i] - p.art.FeatureMeans[i]) / p.art.FeatureScales[i]
	}

	var y [metricCount]float64
	for out := 0; out < metricCount; out++ {
		sum := p.art.Intercepts[out]
		row := p.art.Coefficients[out]
		for i, xi := range x {
			sum += row[i] * xi
		}
		y[out] = sum*p.art.TargetScales[out] + p.art.TargetMeans[out]
		if math.IsNaN(y[out]) || math.IsInf(y[out], 0) {
			return climate.Vector{}, fmt.Errorf("%w: non-finite prediction for output %d", ErrBadWindow, out)
		}
	}
	return climate.FromValues(y[:])
}
