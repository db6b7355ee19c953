// v1
// internal/storage/store.go
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/MarioTavi18/Greenhouse-IoT-Simulation/internal/climate"
	"github.com/MarioTavi18/Greenhouse-IoT-Simulation/internal/equipment"
)

// Source values recorded on stored commands.
const (
	SourceRules    = "rules"
	SourceModel    = "model"
	SourceOverride = "override"
)

var ErrNotInitialized = errors.New("store is not initialized")

// StoredCommand is one controller decision as persisted for later inspection.
type StoredCommand struct {
	ID       string            `json:"id"`
	RunID    string            `json:"runId"`
	Tick     int64             `json:"tick"`
	Source   string            `json:"source"`
	States   equipment.Command `json:"states"`
	IssuedAt time.Time         `json:"issuedAt"`
}

// Store persists the history of a simulation run. The Latest* methods return
// entries newest first.
type Store interface {
	Init(ctx context.Context) error
	SaveReading(ctx context.Context, r climate.Reading) error
	LatestReadings(ctx context.Context, limit int) ([]climate.Reading, error)
	SaveCommand(ctx context.Context, c StoredCommand) error
	LatestCommands(ctx context.Context, limit int) ([]StoredCommand, error)
	SaveEquipmentState(ctx context.Context, runID string, tick int64, states equipment.Command) error
	LatestEquipmentState(ctx context.Context) (equipment.Command, bool, error)
	Purge(ctx context.Context) error
	Close() error
}
