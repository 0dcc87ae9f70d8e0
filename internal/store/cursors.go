// UniFi Monitor
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"database/sql"

	"github.com/Cynary/unifi-monitoring/internal/apperrors"
	"github.com/Cynary/unifi-monitoring/internal/model"
)

// AdvanceCursor overwrites the per-source cursor. Callers (the
// ingestion supervisor) are responsible for only calling this after
// the event at updateID has committed, and never with a cursor that
// moves backward within a single feed connection (spec §3, §5).
func (s *Store) AdvanceCursor(source model.Source, updateID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`INSERT INTO cursors (source, last_update_id, updated_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT(source) DO UPDATE SET last_update_id = excluded.last_update_id, updated_at = excluded.updated_at`,
		string(source), updateID, model.NowUnix(),
	)
	if err != nil {
		return apperrors.Store("advance_cursor", err)
	}
	return nil
}

// GetCursor returns the stored cursor for source, or sql.ErrNoRows if
// none has been recorded yet (meaning the supervisor must bootstrap).
func (s *Store) GetCursor(source model.Source) (*model.Cursor, error) {
	var c model.Cursor
	c.Source = source
	err := s.db.QueryRow(
		`SELECT last_update_id, updated_at FROM cursors WHERE source = ?`, string(source),
	).Scan(&c.LastUpdateID, &c.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, apperrors.Store("get_cursor", err)
	}
	return &c, nil
}
