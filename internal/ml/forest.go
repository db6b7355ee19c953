// v2
// internal/ml/forest.go
package ml

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/MarioTavi18/Greenhouse-IoT-Simulation/internal/climate"
	"github.com/MarioTavi18/Greenhouse-IoT-Simulation/internal/equipment"
)

// forestArtifact is the JSON export of one trained per-equipment classifier.
// Each tree stores its nodes in flat arrays: at node i, Feature[i] < 0 marks
// a leaf voting Vote[i], otherwise the walk continues left when
// features[Feature[i]] <= Threshold[i] and right otherwise.
type forestArtifact struct {
	Features []string `json:"features"`
	Trees    []tree   `json:"trees"`
}

type tree struct {
	Feature   []int     `json:"feature"`
	Threshold []float64 `json:"threshold"`
	Left      []int     `json:"left"`
	Right     []int     `json:"right"`
	Vote      []int     `json:"vote"`
}

// featureNames is the column order every forest artifact is trained with:
// the five metrics followed by the previous state of each equipment kind.
func featureNames() []string {
	names := []string{"temperature", "humidity", "soil_moisture", "light_intensity", "co2_concentration"}
	for _, k := range equipment.Kinds() {
		names = append(names, "prev_"+string(k))
	}
	return names
}

type ForestCommandModel struct {
	lg      *slog.Logger
	forests map[equipment.Kind]forestArtifact
}

// LoadForests reads one rf_<kind>.json artifact per equipment kind from dir.
// Kinds without an artifact are left to the previous state at decision time;
// at least one artifact must load.
func LoadForests(dir string, lg *slog.Logger) (*ForestCommandModel, error) {
	m := &ForestCommandModel{lg: lg, forests: map[equipment.Kind]forestArtifact{}}
	want := featureNames()

	for _, kind := range equipment.Kinds() {
		path := filepath.Join(dir, "rf_"+string(kind)+".json")
		b, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			lg.Warn("no command model artifact for equipment, holding previous state", "kind", kind)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read forest artifact %s: %w", path, err)
		}
		var art forestArtifact
		if err := json.Unmarshal(b, &art); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrBadArtifact, path, err)
		}
		if err := validateForest(art, len(want)); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrBadArtifact, path, err)
		}
		if len(art.Features) > 0 && !sameStrings(art.Features, want) {
			return nil, fmt.Errorf("%w: %s: feature order mismatch", ErrBadArtifact, path)
		}
		m.forests[kind] = art
	}
	if len(m.forests) == 0 {
		return nil, fmt.Errorf("%w: no forest artifacts in %s", ErrBadArtifact, dir)
	}
	lg.Info("command model loaded", "dir", dir, "equipment", len(m.forests))
	return m, nil
}

// Propose runs every per-equipment forest over the current metrics and the
// previous states. Kinds without a forest keep their previous state.
func (m *ForestCommandModel) Propose(v climate.Vector, prev equipment.Command) (equipment.Command, error) {
	if err := v.Validate(); err != nil {
		return nil, err
	}
	prev = prev.Clone()

	features := v.Values()
	for _, k := range equipment.Kinds() {
		flag := 0.0
		if prev[k] {
			flag = 1.0
		}
		features = append(features, flag)
	}

	out := prev.Clone()
	for kind, art := range m.forests {
		votes := 0
		for _, tr := range art.Trees {
			votes += walk(tr, features)
		}
		out[kind] = votes*2 > len(art.Trees)
	}
	return out, nil
}

func walk(tr tree, features []float64) int {
	i := 0
	for tr.Feature[i] >= 0 {
		if features[tr.Feature[i]] <= tr.Threshold[i] {
			i = tr.Left[i]
		} else {
			i = tr.Right[i]
		}
	}
	return tr.Vote[i]
}

func validateForest(art forestArtifact, featureCount int) error {
	if len(art.Trees) == 0 {
		return fmt.Errorf("no trees")
	}
	for ti, tr := range art.Trees {
		n := len(tr.Feature)
		if n == 0 || len(tr.Threshold) != n || len(tr.Left) != n || len(tr.Right) != n || len(tr.Vote) != n {
			return fmt.Errorf("tree %d: inconsistent node arrays", ti)
		}
		for i := 0; i < n; i++ {
			if tr.Feature[i] >= featureCount {
				return fmt.Errorf("tree %d node %d: feature index %d out of range", ti, i, tr.Feature[i])
			}
			if tr.Feature[i] >= 0 {
				if tr.Left[i] < 0 || tr.Left[i] >= n || tr.Right[i] < 0 || tr.Right[i] >= n {
					return fmt.Errorf("tree %d node %d: child index out of range", ti, i)
				}
				if tr.Left[i] <= i || tr.Right[i] <= i {
					return fmt.Errorf("tree %d node %d: children must come after their parent", ti, i)
				}
			} else if tr.Vote[i] != 0 && tr.Vote[i] != 1 {
				return fmt.Errorf("tree %d node %d: leaf vote must be 0 or 1", ti, i)
			}
		}
	}
	return nil
}

func sameStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
