// UniFi Monitor
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"github.com/Cynary/unifi-monitoring/internal/apperrors"
	"github.com/Cynary/unifi-monitoring/internal/model"
)

// pruneBatchSize bounds how many oldest events a single
// PruneUntilBelow transaction deletes, so a very large overshoot does
// not hold the write lock for an unbounded time.
const pruneBatchSize = 500

// PruneUntilBelow deletes the oldest events, skipping any still in
// the pending-notification set, until the database is at or below
// budgetBytes or there is nothing left prunable. It returns the
// number of events deleted. Spec §4.I / §8 invariant 6.
func (s *Store) PruneUntilBelow(budgetBytes int64, maxAttempts int) (int, error) {
	total := 0
	for {
		size, err := s.SizeBytes()
		if err != nil {
			return total, err
		}
		if size <= budgetBytes {
			break
		}

		n, err := s.pruneBatch(maxAttempts)
		if err != nil {
			return total, err
		}
		total += n
		if n == 0 {
			// Nothing left that is safe to delete; budget stays over
			// until new pending events resolve or are dead-lettered.
			break
		}
	}

	if total > 0 {
		if _, err := s.db.Exec(`PRAGMA incremental_vacuum;`); err != nil {
			return total, apperrors.Store("prune incremental_vacuum", err)
		}
	}
	return total, nil
}

func (s *Store) pruneBatch(maxAttempts int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return 0, apperrors.Store("prune begin", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Never delete an event still in the pending set (spec §4.A, §8
	// invariant 6): that is exactly the complement of the
	// PendingNotifications predicate.
	res, err := tx.Exec(
		`DELETE FROM events WHERE id IN (
			SELECT id FROM events
			WHERE NOT (classification = ? AND notified = 0 AND notify_attempts < ?)
			ORDER BY timestamp ASC, id ASC
			LIMIT ?
		)`,
		string(model.ClassificationNotify), maxAttempts, pruneBatchSize,
	)
	if err != nil {
		return 0, apperrors.Store("prune delete", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, apperrors.Store("prune rows affected", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, apperrors.Store("prune commit", err)
	}
	return int(n), nil
}
