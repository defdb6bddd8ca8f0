// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package modestore remembers the mode committed per external display in
// a SQLite database, so a display that comes back gets the same timing.
package modestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/gogpu/hwc/display"
)

const schemaVersion = 1

const schema = `
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS modes (
    display         TEXT PRIMARY KEY,
    name            TEXT NOT NULL DEFAULT '',
    width           INTEGER NOT NULL,
    height          INTEGER NOT NULL,
    refresh_mhz     INTEGER NOT NULL,
    pixel_clock_khz INTEGER NOT NULL DEFAULT 0,
    phys_width_mm   INTEGER NOT NULL DEFAULT 0,
    phys_height_mm  INTEGER NOT NULL DEFAULT 0,
    updated         INTEGER NOT NULL -- UnixNano
);
`

// ErrVersion is returned for a database written by a newer schema.
var ErrVersion = errors.New("modestore: unsupported schema version")

// Record is one remembered mode.
type Record struct {
	Display string
	Mode    display.Mode
	Updated time.Time
}

// Store implements display.ModeMemory. It is safe for concurrent use.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

var _ display.ModeMemory = (*Store)(nil)

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("modestore: create directory: %w", err)
	}
	dsn := path +
		"?_pragma=journal_mode(WAL)" +
		"&_pragma=synchronous(NORMAL)" +
		"&_pragma=busy_timeout(2000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("modestore: open %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("modestore: connect %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("modestore: create schema: %w", err)
	}
	if err := checkVersion(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, now: time.Now}, nil
}

func checkVersion(db *sql.DB) error {
	var v int
	err := db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&v)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = db.Exec("INSERT INTO schema_version(version) VALUES (?)", schemaVersion)
		if err != nil {
			return fmt.Errorf("modestore: record schema version: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("modestore: read schema version: %w", err)
	case v > schemaVersion:
		return fmt.Errorf("%w: %d", ErrVersion, v)
	}
	return nil
}

// LoadMode returns the mode last saved for name.
func (s *Store) LoadMode(ctx context.Context, name string) (display.Mode, bool, error) {
	var m display.Mode
	err := s.db.QueryRowContext(ctx, `
		SELECT name, width, height, refresh_mhz, pixel_clock_khz, phys_width_mm, phys_height_mm
		FROM modes WHERE display = ?`, name).
		Scan(&m.Name, &m.Width, &m.Height, &m.RefreshMilliHz, &m.PixelClockKHz, &m.PhysWidthMM, &m.PhysHeightMM)
	if errors.Is(err, sql.ErrNoRows) {
		return display.Mode{}, false, nil
	}
	if err != nil {
		return display.Mode{}, false, fmt.Errorf("modestore: load %q: %w", name, err)
	}
	return m, true, nil
}

// SaveMode records m as the mode of name, replacing any earlier one.
func (s *Store) SaveMode(ctx context.Context, name string, m display.Mode) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO modes (display, name, width, height, refresh_mhz, pixel_clock_khz, phys_width_mm, phys_height_mm, updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(display) DO UPDATE SET
			name = excluded.name,
			width = excluded.width,
			height = excluded.height,
			refresh_mhz = excluded.refresh_mhz,
			pixel_clock_khz = excluded.pixel_clock_khz,
			phys_width_mm = excluded.phys_width_mm,
			phys_height_mm = excluded.phys_height_mm,
			updated = excluded.updated`,
		name, m.Name, m.Width, m.Height, m.RefreshMilliHz, m.PixelClockKHz, m.PhysWidthMM, m.PhysHeightMM,
		s.now().UnixNano())
	if err != nil {
		return fmt.Errorf("modestore: save %q: %w", name, err)
	}
	return nil
}

// Forget removes the mode of name.
func (s *Store) Forget(ctx context.Context, name string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM modes WHERE display = ?", name); err != nil {
		return fmt.Errorf("modestore: forget %q: %w", name, err)
	}
	return nil
}

// List returns every remembered mode, most recently saved first.
func (s *Store) List(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT display, name, width, height, refresh_mhz, pixel_clock_khz, phys_width_mm, phys_height_mm, updated
		FROM modes ORDER BY updated DESC, display`)
	if err != nil {
		return nil, fmt.Errorf("modestore: list: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			r  Record
			ns int64
		)
		m := &r.Mode
		if err := rows.Scan(&r.Display, &m.Name, &m.Width, &m.Height, &m.RefreshMilliHz,
			&m.PixelClockKHz, &m.PhysWidthMM, &m.PhysHeightMM, &ns); err != nil {
			return nil, fmt.Errorf("modestore: scan: %w", err)
		}
		r.Updated = time.Unix(0, ns)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
