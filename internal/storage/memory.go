// v1
// internal/storage/memory.go
package storage

import (
	"context"
	"sync"

	"github.com/MarioTavi18/Greenhouse-IoT-Simulation/internal/climate"
	"github.com/MarioTavi18/Greenhouse-IoT-Simulation/internal/equipment"
)

// defaultMemoryLimit bounds how many readings and commands the in-memory
// store keeps before evicting the oldest.
const defaultMemoryLimit = 4096

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	limit       int
	readings    []climate.Reading
	commands    []StoredCommand
	equip       equipment.Command
	hasEquip    bool
}

func NewMemoryStore(limit int) *MemoryStore {
	if limit <= 0 {
		limit = defaultMemoryLimit
	}
	return &MemoryStore{limit: limit}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.readings = make([]climate.Reading, 0, s.limit)
	s.commands = make([]StoredCommand, 0, s.limit)
	s.equip = nil
	s.hasEquip = false
	return nil
}

func (s *MemoryStore) SaveReading(_ context.Context, r climate.Reading) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ErrNotInitialized
	}
	if len(s.readings) == s.limit {
		copy(s.readings, s.readings[1:])
		s.readings[s.limit-1] = r
		return nil
	}
	s.readings = append(s.readings, r)
	return nil
}

func (s *MemoryStore) LatestReadings(_ context.Context, limit int) ([]climate.Reading, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, ErrNotInitialized
	}
	n := len(s.readings)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]climate.Reading, 0, n)
	for i := len(s.readings) - 1; i >= len(s.readings)-n; i-- {
		out = append(out, s.readings[i])
	}
	return out, nil
}

func (s *MemoryStore) SaveCommand(_ context.Context, c StoredCommand) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ErrNotInitialized
	}
	c.States = c.States.Clone()
	if len(s.commands) == s.limit {
		copy(s.commands, s.commands[1:])
		s.commands[s.limit-1] = c
		return nil
	}
	s.commands = append(s.commands, c)
	return nil
}

func (s *MemoryStore) LatestCommands(_ context.Context, limit int) ([]StoredCommand, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, ErrNotInitialized
	}
	n := len(s.commands)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]StoredCommand, 0, n)
	for i := len(s.commands) - 1; i >= len(s.commands)-n; i-- {
		c := s.commands[i]
		c.States = c.States.Clone()
		out = append(out, c)
	}
	return out, nil
}

func (s *MemoryStore) SaveEquipmentState(_ context.Context, _ string, _ int64, states equipment.Command) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ErrNotInitialized
	}
	s.equip = states.Clone()
	s.hasEquip = true
	return nil
}

func (s *MemoryStore) LatestEquipmentState(_ context.Context) (equipment.Command, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, false, ErrNotInitialized
	}
	if !s.hasEquip {
		return nil, false, nil
	}
	return s.equip.Clone(), true, nil
}

func (s *MemoryStore) Purge(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ErrNotInitialized
	}
	s.readings = s.readings[:0]
	s.commands = s.commands[:0]
	s.equip = nil
	s.hasEquip = false
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}
