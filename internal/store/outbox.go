// UniFi Monitor
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"github.com/Cynary/unifi-monitoring/internal/apperrors"
	"github.com/Cynary/unifi-monitoring/internal/model"
)

// PendingNotifications returns the outbox set (spec §3): events with
// classification=notify, notified=false, and attempts below maxAttempts,
// ordered by (timestamp, id) ascending as spec §4.A and §5 require.
func (s *Store) PendingNotifications(maxAttempts int) ([]model.Event, error) {
	rows, err := s.db.Query(
		`SELECT id, source, event_type, severity, summary, timestamp, payload,
			classification, notified, notify_attempts, created_at
		 FROM events
		 WHERE classification = ? AND notified = 0 AND notify_attempts < ?
		 ORDER BY timestamp ASC, id ASC`,
		string(model.ClassificationNotify), maxAttempts,
	)
	if err != nil {
		return nil, apperrors.Store("pending_notifications", err)
	}
	defer rows.Close()

	var out []model.Event
	for rows.Next() {
		evt, err := scanEventRows(rows)
		if err != nil {
			return nil, apperrors.Store("pending_notifications scan", err)
		}
		out = append(out, *evt)
	}
	return out, rows.Err()
}

// MarkNotified marks an event as successfully delivered. Idempotent:
// marking an already-notified event is a no-op.
func (s *Store) MarkNotified(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`UPDATE events SET notified = 1 WHERE id = ?`, id); err != nil {
		return apperrors.Store("mark_notified", err)
	}
	return nil
}

// BumpAttempts increments notify_attempts for id and returns the new
// count.
func (s *Store) BumpAttempts(id string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return 0, apperrors.Store("bump_attempts begin", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`UPDATE events SET notify_attempts = notify_attempts + 1 WHERE id = ?`, id); err != nil {
		return 0, apperrors.Store("bump_attempts update", err)
	}

	var attempts int
	if err := tx.QueryRow(`SELECT notify_attempts FROM events WHERE id = ?`, id).Scan(&attempts); err != nil {
		return 0, apperrors.Store("bump_attempts read back", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, apperrors.Store("bump_attempts commit", err)
	}
	return attempts, nil
}

// DeadLetterCount returns the number of notify-classified events that
// exhausted their retry budget, for the status API (spec §7).
func (s *Store) DeadLetterCount(maxAttempts int) (int, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM events
		 WHERE classification = ? AND notified = 0 AND notify_attempts >= ?`,
		string(model.ClassificationNotify), maxAttempts,
	).Scan(&count)
	if err != nil {
		return 0, apperrors.Store("dead_letter_count", err)
	}
	return count, nil
}
