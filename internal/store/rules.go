// UniFi Monitor
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"database/sql"

	"github.com/Cynary/unifi-monitoring/internal/apperrors"
	"github.com/Cynary/unifi-monitoring/internal/model"
)

// SetRule upserts the rule and, in the same transaction, rewrites the
// classification of every already-stored event of that type (spec
// §3 invariant: "Mutating a rule atomically rewrites classification
// of every already-stored event of that type").
func (s *Store) SetRule(eventType string, classification model.Classification) error {
	if !classification.Valid() {
		return apperrors.Store("set_rule", sql.ErrNoRows)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return apperrors.Store("set_rule begin", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := model.NowUnix()
	_, err = tx.Exec(
		`INSERT INTO rules (event_type, classification, created_at, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(event_type) DO UPDATE SET classification = excluded.classification, updated_at = excluded.updated_at`,
		eventType, string(classification), now, now,
	)
	if err != nil {
		return apperrors.Store("set_rule upsert", err)
	}

	if _, err := tx.Exec(
		`UPDATE events SET classification = ? WHERE event_type = ?`,
		string(classification), eventType,
	); err != nil {
		return apperrors.Store("set_rule rewrite events", err)
	}

	return commitAsStoreErr(tx, "set_rule")
}

// DeleteRule removes the rule and reverts matching events to
// unclassified (spec §3 invariant).
func (s *Store) DeleteRule(eventType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return apperrors.Store("delete_rule begin", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM rules WHERE event_type = ?`, eventType); err != nil {
		return apperrors.Store("delete_rule delete", err)
	}

	if _, err := tx.Exec(
		`UPDATE events SET classification = ? WHERE event_type = ?`,
		string(model.ClassificationUnclassified), eventType,
	); err != nil {
		return apperrors.Store("delete_rule revert events", err)
	}

	return commitAsStoreErr(tx, "delete_rule")
}

// ListRules returns every rule, ordered by event type.
func (s *Store) ListRules() ([]model.Rule, error) {
	rows, err := s.db.Query(
		`SELECT event_type, classification, created_at, updated_at FROM rules ORDER BY event_type`,
	)
	if err != nil {
		return nil, apperrors.Store("list_rules", err)
	}
	defer rows.Close()

	var rules []model.Rule
	for rows.Next() {
		var r model.Rule
		var class string
		if err := rows.Scan(&r.EventType, &class, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, apperrors.Store("list_rules scan", err)
		}
		r.Classification = model.Classification(class)
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

func commitAsStoreErr(tx *sql.Tx, op string) error {
	if err := tx.Commit(); err != nil {
		return apperrors.Store(op+" commit", err)
	}
	return nil
}
