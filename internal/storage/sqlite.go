// v2
// internal/storage/sqlite.go
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/MarioTavi18/Greenhouse-IoT-Simulation/internal/climate"
	"github.com/MarioTavi18/Greenhouse-IoT-Simulation/internal/equipment"

	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create store directory: %w", err)
		}
	}

	dsn := s.path + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("ping db: %w", err)
	}
	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return fmt.Errorf("migrate: %w", err)
	}

	s.db = db
	return nil
}

func (s *SQLiteStore) SaveReading(ctx context.Context, r climate.Reading) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO readings (run_id, tick, ts, weather, temperature, humidity, soil_moisture, light_intensity, co2)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, tick) DO UPDATE SET
			ts = excluded.ts,
			weather = excluded.weather,
			temperature = excluded.temperature,
			humidity = excluded.humidity,
			soil_moisture = excluded.soil_moisture,
			light_intensity = excluded.light_intensity,
			co2 = excluded.co2
	`, r.RunID, r.Tick, r.Timestamp.UnixMilli(), string(r.Weather),
		r.Metrics.Temperature, r.Metrics.Humidity, r.Metrics.SoilMoisture,
		r.Metrics.LightIntensity, r.Metrics.CO2)
	return err
}

func (s *SQLiteStore) LatestReadings(ctx context.Context, limit int) ([]climate.Reading, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultMemoryLimit
	}

	rows, err := db.QueryContext(ctx, `
		SELECT run_id, tick, ts, weather, temperature, humidity, soil_moisture, light_intensity, co2
		FROM readings ORDER BY ts DESC, tick DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []climate.Reading
	for rows.Next() {
		var r climate.Reading
		var ms int64
		var weather string
		if err := rows.Scan(&r.RunID, &r.Tick, &ms, &weather,
			&r.Metrics.Temperature, &r.Metrics.Humidity, &r.Metrics.SoilMoisture,
			&r.Metrics.LightIntensity, &r.Metrics.CO2); err != nil {
			return nil, err
		}
		r.Timestamp = time.UnixMilli(ms).UTC()
		r.Weather = climate.Regime(weather)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) SaveCommand(ctx context.Context, c StoredCommand) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	states, err := json.Marshal(c.States)
	if err != nil {
		return fmt.Errorf("encode command states: %w", err)
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO commands (id, run_id, tick, source, states, issued_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			run_id = excluded.run_id,
			tick = excluded.tick,
			source = excluded.source,
			states = excluded.states,
			issued_at = excluded.issued_at
	`, c.ID, c.RunID, c.Tick, c.Source, string(states), c.IssuedAt.UnixMilli())
	return err
}

func (s *SQLiteStore) LatestCommands(ctx context.Context, limit int) ([]StoredCommand, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultMemoryLimit
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, run_id, tick, source, states, issued_at
		FROM commands ORDER BY issued_at DESC, tick DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StoredCommand
	for rows.Next() {
		var c StoredCommand
		var states string
		var ms int64
		if err := rows.Scan(&c.ID, &c.RunID, &c.Tick, &c.Source, &states, &ms); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(states), &c.States); err != nil {
			return nil, fmt.Errorf("decode command %s: %w", c.ID, err)
		}
		c.IssuedAt = time.UnixMilli(ms).UTC()
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) SaveEquipmentState(ctx context.Context, runID string, tick int64, states equipment.Command) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for kind, active := range states {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO equipment_state (kind, active, run_id, tick)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(kind) DO UPDATE SET
				active = excluded.active,
				run_id = excluded.run_id,
				tick = excluded.tick
		`, string(kind), boolInt(active), runID, tick); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) LatestEquipmentState(ctx context.Context) (equipment.Command, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, false, err
	}

	rows, err := db.QueryContext(ctx, `SELECT kind, active FROM equipment_state`)
	if err != nil {
		return nil, false, err
	}
	defer rows.Close()

	cmd := equipment.NewCommand()
	found := false
	for rows.Next() {
		var kind string
		var active int
		if err := rows.Scan(&kind, &active); err != nil {
			return nil, false, err
		}
		if equipment.Valid(equipment.Kind(kind)) {
			cmd[equipment.Kind(kind)] = active != 0
			found = true
		}
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}
	if !found {
		return nil, false, nil
	}
	return cmd, true, nil
}

func (s *SQLiteStore) Purge(ctx context.Context) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
		DELETE FROM readings;
		DELETE FROM commands;
		DELETE FROM equipment_state;
	`)
	return err
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, ErrNotInitialized
	}
	return s.db, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS readings (
			run_id TEXT NOT NULL,
			tick INTEGER NOT NULL,
			ts INTEGER NOT NULL,
			weather TEXT NOT NULL,
			temperature REAL NOT NULL,
			humidity REAL NOT NULL,
			soil_moisture REAL NOT NULL,
			light_intensity REAL NOT NULL,
			co2 REAL NOT NULL,
			PRIMARY KEY (run_id, tick)
		);
		CREATE TABLE IF NOT EXISTS commands (
			id TEXT PRIMARY KEY,
			run_id TEXT NOT NULL,
			tick INTEGER NOT NULL,
			source TEXT NOT NULL,
			states TEXT NOT NULL,
			issued_at INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS equipment_state (
			kind TEXT PRIMARY KEY,
			active INTEGER NOT NULL,
			run_id TEXT NOT NULL,
			tick INTEGER NOT NULL
		);
	`)
	return err
}
