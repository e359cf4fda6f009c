package runlog

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Sample is one recorded value of a quantity: the tick counter, the
// simulation time at the tick, and the sampled value.
type Sample struct {
	Step  int64
	T     float64
	Name  string
	Value float64
}

// QuantityInfo describes a registered quantity as stored.
type QuantityInfo struct {
	Name        string
	Unit        string
	Description string
}

// Store persists run diagnostics in a SQLite database.
// Uses WAL mode so readers can follow a run while it is being written.
type Store struct {
	db *sql.DB
}

// Open creates or opens the diagnostics database at the given path.
// Applies the required pragmas and the schema; safe to call on an
// existing database.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite supports one writer at a time; a single connection avoids
	// SQLITE_BUSY between the tick loop and reads.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB for direct queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// BeginRun inserts the run row. Must be called before quantities or
// samples reference the run id.
func (s *Store) BeginRun(ctx context.Context, runID string, startedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, started_at)
		VALUES (?, ?)
	`, runID, startedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("begin run: %w", err)
	}
	return nil
}

// SetConstants replaces the run's constants with the JSON encoding of
// the given map. Map keys are emitted in sorted order, so the stored
// text is deterministic for a given map.
func (s *Store) SetConstants(ctx context.Context, runID string, constants map[string]any) error {
	data, err := json.Marshal(constants)
	if err != nil {
		return fmt.Errorf("set constants: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		UPDATE runs SET constants = ? WHERE id = ?
	`, string(data), runID)
	if err != nil {
		return fmt.Errorf("set constants: %w", err)
	}
	return nil
}

// Constants returns the run's constants decoded from JSON.
func (s *Store) Constants(ctx context.Context, runID string) (map[string]any, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `
		SELECT constants FROM runs WHERE id = ?
	`, runID).Scan(&data)
	if err != nil {
		return nil, fmt.Errorf("read constants: %w", err)
	}
	var constants map[string]any
	if err := json.Unmarshal([]byte(data), &constants); err != nil {
		return nil, fmt.Errorf("read constants: %w", err)
	}
	return constants, nil
}

// AddQuantity records a quantity's metadata for the run. Duplicate
// names are silently ignored.
func (s *Store) AddQuantity(ctx context.Context, runID string, q QuantityInfo) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO quantities (run_id, name, unit, description)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(run_id, name) DO NOTHING
	`, runID, q.Name, q.Unit, q.Description)
	if err != nil {
		return fmt.Errorf("add quantity %s: %w", q.Name, err)
	}
	return nil
}

// Quantities lists the run's registered quantities in name order.
func (s *Store) Quantities(ctx context.Context, runID string) ([]QuantityInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, unit, description FROM quantities
		WHERE run_id = ?
		ORDER BY name
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("list quantities: %w", err)
	}
	defer rows.Close()

	var out []QuantityInfo
	for rows.Next() {
		var q QuantityInfo
		if err := rows.Scan(&q.Name, &q.Unit, &q.Description); err != nil {
			return nil, fmt.Errorf("list quantities: %w", err)
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list quantities: %w", err)
	}
	return out, nil
}

// WriteSamples appends a batch of samples for the run in one
// transaction.
func (s *Store) WriteSamples(ctx context.Context, runID string, samples []Sample) error {
	if len(samples) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write samples: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO samples (run_id, step, t, name, value)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("write samples: prepare: %w", err)
	}
	defer stmt.Close()

	for _, sm := range samples {
		if _, err := stmt.ExecContext(ctx, runID, sm.Step, sm.T, sm.Name, sm.Value); err != nil {
			return fmt.Errorf("write sample %s at step %d: %w", sm.Name, sm.Step, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write samples: commit: %w", err)
	}
	return nil
}

// Samples returns the recorded values of one quantity in step order.
func (s *Store) Samples(ctx context.Context, runID, name string) ([]Sample, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT step, t, name, value FROM samples
		WHERE run_id = ? AND name = ?
		ORDER BY step ASC
	`, runID, name)
	if err != nil {
		return nil, fmt.Errorf("read samples: %w", err)
	}
	defer rows.Close()

	var out []Sample
	for rows.Next() {
		var sm Sample
		if err := rows.Scan(&sm.Step, &sm.T, &sm.Name, &sm.Value); err != nil {
			return nil, fmt.Errorf("read samples: %w", err)
		}
		out = append(out, sm)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read samples: %w", err)
	}
	return out, nil
}
