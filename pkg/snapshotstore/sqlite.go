package snapshotstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/flowcore/workflowengine/pkg/types"
)

// SQLiteStore persists snapshots to a single SQLite file, grounded on
// dshills-langgraph-go's store.SQLiteStore (same driver, same
// sql.Open("sqlite", path) + WAL-mode setup), simplified to the single
// `snapshots` table this package needs rather than that store's full
// step/checkpoint/idempotency schema.
//
// Intended for local/dev use and for embedding the engine without a
// separate external datastore; a production deployment is expected to
// supply its own Store backed by whatever relational/object store the
// host service already runs.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if absent) a SQLite database at path and
// ensures the snapshots table exists. path may be ":memory:" for tests.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("snapshotstore: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA journal_mode=WAL;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("snapshotstore: enable WAL: %w", err)
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS snapshots (
			execution_id TEXT NOT NULL,
			created_at   INTEGER NOT NULL,
			payload      TEXT NOT NULL,
			PRIMARY KEY (execution_id, created_at)
		);
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("snapshotstore: migrate: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Save inserts snapshot, keyed by (ExecutionID, CreatedAt).
func (s *SQLiteStore) Save(ctx context.Context, snapshot *types.ExecutionSnapshot) error {
	if snapshot == nil {
		return ErrNilSnapshot
	}
	if snapshot.ExecutionID == "" {
		return ErrEmptyExecutionID
	}
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("snapshotstore: marshal snapshot: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO snapshots (execution_id, created_at, payload) VALUES (?, ?, ?)`,
		snapshot.ExecutionID, snapshot.CreatedAt.UnixNano(), string(payload))
	if err != nil {
		return fmt.Errorf("snapshotstore: insert: %w", err)
	}
	return nil
}

// Latest returns the most recently created snapshot for executionID.
func (s *SQLiteStore) Latest(ctx context.Context, executionID string) (*types.ExecutionSnapshot, error) {
	if executionID == "" {
		return nil, ErrEmptyExecutionID
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT payload FROM snapshots WHERE execution_id = ? ORDER BY created_at DESC LIMIT 1`,
		executionID)

	var payload string
	if err := row.Scan(&payload); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("snapshotstore: query latest: %w", err)
	}
	return decodeSnapshot(payload)
}

// List returns every snapshot recorded for executionID, oldest first.
func (s *SQLiteStore) List(ctx context.Context, executionID string) ([]*types.ExecutionSnapshot, error) {
	if executionID == "" {
		return nil, ErrEmptyExecutionID
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM snapshots WHERE execution_id = ? ORDER BY created_at ASC`,
		executionID)
	if err != nil {
		return nil, fmt.Errorf("snapshotstore: query list: %w", err)
	}
	defer rows.Close()

	var out []*types.ExecutionSnapshot
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("snapshotstore: scan: %w", err)
		}
		snap, err := decodeSnapshot(payload)
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return out, nil
}

func decodeSnapshot(payload string) (*types.ExecutionSnapshot, error) {
	var snap types.ExecutionSnapshot
	if err := json.Unmarshal([]byte(payload), &snap); err != nil {
		return nil, fmt.Errorf("snapshotstore: unmarshal snapshot: %w", err)
	}
	return &snap, nil
}
