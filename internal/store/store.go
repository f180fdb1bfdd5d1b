// Package store persists committed operator edits in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"dispatchdesk/internal/call"
	"dispatchdesk/internal/core"
)

// savedAtLayout has fixed width so saved_at sorts lexically.
const savedAtLayout = "2006-01-02T15:04:05.000000000Z"

// Store wraps SQLite access for edit overlays, one row per call.
type Store struct {
	db    *sql.DB
	clock core.Clock
}

// Open opens or creates the database at path. ":memory:" gives a private
// in-memory database.
func Open(path string, clock core.Clock) (*Store, error) {
	if clock == nil {
		clock = core.RealClock{}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, clock: clock}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating %s: %w", path, err)
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS edits (
			call_id TEXT PRIMARY KEY,
			edits_json TEXT NOT NULL,
			saved_at TEXT NOT NULL
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// SaveEdits stores e as the overlay for e.CallID, replacing any earlier one,
// and returns it with SavedAt set.
func (s *Store) SaveEdits(ctx context.Context, e call.Edits) (call.Edits, error) {
	if e.CallID == "" {
		return call.Edits{}, errors.New("save edits: call_id is required")
	}
	e.SavedAt = s.clock.Now().UTC()

	payload, err := json.Marshal(e)
	if err != nil {
		return call.Edits{}, fmt.Errorf("save edits: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO edits(call_id, edits_json, saved_at) VALUES(?, ?, ?)
		ON CONFLICT(call_id) DO UPDATE SET edits_json=excluded.edits_json, saved_at=excluded.saved_at`,
		e.CallID, string(payload), e.SavedAt.Format(savedAtLayout))
	if err != nil {
		return call.Edits{}, fmt.Errorf("save edits for %s: %w", e.CallID, err)
	}
	return e, nil
}

// LoadEdits returns the overlay for callID. ok is false if none was saved.
func (s *Store) LoadEdits(ctx context.Context, callID string) (e call.Edits, ok bool, err error) {
	row := s.db.QueryRowContext(ctx, `SELECT edits_json FROM edits WHERE call_id=?`, callID)
	var payload string
	switch err := row.Scan(&payload); {
	case errors.Is(err, sql.ErrNoRows):
		return call.Edits{}, false, nil
	case err != nil:
		return call.Edits{}, false, fmt.Errorf("load edits for %s: %w", callID, err)
	}
	if err := json.Unmarshal([]byte(payload), &e); err != nil {
		return call.Edits{}, false, fmt.Errorf("decoding edits for %s: %w", callID, err)
	}
	return e, true, nil
}

// ListEdits returns every stored overlay, most recently saved first.
func (s *Store) ListEdits(ctx context.Context) ([]call.Edits, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT call_id, edits_json FROM edits ORDER BY saved_at DESC, call_id`)
	if err != nil {
		return nil, fmt.Errorf("list edits: %w", err)
	}
	defer rows.Close()

	var out []call.Edits
	for rows.Next() {
		var id, payload string
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, fmt.Errorf("list edits: %w", err)
		}
		var e call.Edits
		if err := json.Unmarshal([]byte(payload), &e); err != nil {
			return nil, fmt.Errorf("decoding edits for %s: %w", id, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// DeleteEdits removes the overlay for callID. Deleting a missing overlay is
// not an error.
func (s *Store) DeleteEdits(ctx context.Context, callID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM edits WHERE call_id=?`, callID); err != nil {
		return fmt.Errorf("delete edits for %s: %w", callID, err)
	}
	return nil
}

// DeleteAll removes every overlay. It follows a successful clear of the
// backend's calls.
func (s *Store) DeleteAll(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM edits`); err != nil {
		return fmt.Errorf("delete all edits: %w", err)
	}
	return nil
}
