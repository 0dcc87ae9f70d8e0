// UniFi Monitor
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"database/sql"

	"github.com/Cynary/unifi-monitoring/internal/apperrors"
	"github.com/Cynary/unifi-monitoring/internal/model"
)

// InsertEvent upserts-by-id. On first insert the classification is
// stamped from the current rule table inside the same transaction
// (spec §4.A, §9 "no in-memory rule cache"). A Duplicate return still
// carries the stored row's current classification so callers can
// decide whether a notification is still owed (spec §3 invariants).
func (s *Store) InsertEvent(evt *model.Event) (model.InsertResult, *model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return 0, nil, apperrors.Store("insert_event begin", err)
	}
	defer func() { _ = tx.Rollback() }()

	existing, err := queryEventByID(tx, evt.ID)
	if err != nil && err != sql.ErrNoRows {
		return 0, nil, apperrors.Store("insert_event lookup", err)
	}
	if err == nil {
		if err := tx.Commit(); err != nil {
			return 0, nil, apperrors.Store("insert_event commit", err)
		}
		return model.Duplicate, existing, nil
	}

	classification := model.ClassificationUnclassified
	var rule model.Rule
	if err := tx.QueryRow(
		`SELECT classification FROM rules WHERE event_type = ?`, evt.EventType,
	).Scan(&rule.Classification); err == nil {
		classification = rule.Classification
	} else if err != sql.ErrNoRows {
		return 0, nil, apperrors.Store("insert_event rule lookup", err)
	}

	evt.Classification = classification
	evt.Notified = false
	evt.NotifyAttempts = 0
	evt.CreatedAt = model.NowUnix()

	_, err = tx.Exec(
		`INSERT INTO events (id, source, event_type, severity, summary, timestamp, payload,
			classification, notified, notify_attempts, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, 0, ?)`,
		evt.ID, string(evt.Source), evt.EventType, evt.Severity, evt.Summary, evt.Timestamp,
		string(evt.Payload), string(evt.Classification), evt.CreatedAt,
	)
	if err != nil {
		return 0, nil, apperrors.Store("insert_event insert", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, nil, apperrors.Store("insert_event commit", err)
	}

	return model.Inserted, evt, nil
}

// GetEvent returns a single event by id.
func (s *Store) GetEvent(id string) (*model.Event, error) {
	evt, err := queryEventByID(s.db, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, apperrors.Store("get_event", err)
	}
	return evt, nil
}

// queryer abstracts *sql.DB and *sql.Tx for row-scanning helpers.
type queryer interface {
	QueryRow(query string, args ...any) *sql.Row
}

func queryEventByID(q queryer, id string) (*model.Event, error) {
	row := q.QueryRow(
		`SELECT id, source, event_type, severity, summary, timestamp, payload,
			classification, notified, notify_attempts, created_at
		 FROM events WHERE id = ?`, id,
	)
	return scanEvent(row)
}

func scanEvent(row *sql.Row) (*model.Event, error) {
	var (
		evt        model.Event
		source     string
		class      string
		payload    string
		notifiedI  int
	)
	if err := row.Scan(&evt.ID, &source, &evt.EventType, &evt.Severity, &evt.Summary,
		&evt.Timestamp, &payload, &class, &notifiedI, &evt.NotifyAttempts, &evt.CreatedAt); err != nil {
		return nil, err
	}
	evt.Source = model.Source(source)
	evt.Classification = model.Classification(class)
	evt.Payload = []byte(payload)
	evt.Notified = notifiedI != 0
	return &evt, nil
}
