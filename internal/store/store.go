// UniFi Monitor
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store implements the durable single-writer SQLite event
// log, rule table, per-source cursor, and outbox state described in
// spec §4.A. All mutation goes through exported methods on *Store;
// none of them may be called concurrently from more than one writer
// at a time, which Open enforces by limiting the pool to a single
// connection.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/Cynary/unifi-monitoring/internal/apperrors"
	"github.com/Cynary/unifi-monitoring/internal/logging"
)

// Store wraps the SQLite connection and exposes the atomic operations
// from spec §4.A.
type Store struct {
	db  *sql.DB
	mu  sync.Mutex // serializes writers; modernc's single connection already does this, kept for clarity at call sites
	path string

	ftsAvailable bool
}

// Open creates the parent directory if needed, opens (and migrates)
// the database at path, and probes for FTS5 availability.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, apperrors.Store("mkdir", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, apperrors.Store("open", err)
	}
	// Single writer: one physical connection serializes all statements,
	// matching spec §4.A's single-writer requirement exactly.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA journal_mode=WAL;`); err != nil {
		_ = db.Close()
		return nil, apperrors.Store("set journal_mode", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys=ON;`); err != nil {
		_ = db.Close()
		return nil, apperrors.Store("set foreign_keys", err)
	}
	// Enables PRAGMA incremental_vacuum after retention deletes rows,
	// reclaiming freed pages without the exclusive lock a full VACUUM
	// would need. Must be set before the schema exists to take effect.
	if _, err := db.Exec(`PRAGMA auto_vacuum=INCREMENTAL;`); err != nil {
		_ = db.Close()
		return nil, apperrors.Store("set auto_vacuum", err)
	}

	s := &Store{db: db, path: path}

	s.ftsAvailable = s.probeFTS()
	if !s.ftsAvailable {
		logging.Warn().Msg("FTS5 unavailable, search falls back to substring matching")
	}

	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, apperrors.Store("migrate", err)
	}

	return s, nil
}

// Close closes the underlying database. Callers should close the
// Store last during shutdown (spec §5).
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the filesystem path of the database file.
func (s *Store) Path() string { return s.path }

// SizeBytes returns the on-disk size of the database file (including
// the WAL, since that is real disk usage toward the retention budget).
func (s *Store) SizeBytes() (int64, error) {
	var total int64
	for _, suffix := range []string{"", "-wal", "-shm"} {
		info, err := os.Stat(s.path + suffix)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return 0, fmt.Errorf("stat %s%s: %w", s.path, suffix, err)
		}
		total += info.Size()
	}
	return total, nil
}

func (s *Store) probeFTS() bool {
	_, err := s.db.Exec(`CREATE VIRTUAL TABLE IF NOT EXISTS fts_probe USING fts5(x)`)
	if err != nil {
		return false
	}
	_, _ = s.db.Exec(`DROP TABLE IF EXISTS fts_probe`)
	return true
}
