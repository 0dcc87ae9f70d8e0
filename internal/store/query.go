// UniFi Monitor
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"strings"

	"github.com/Cynary/unifi-monitoring/internal/apperrors"
	"github.com/Cynary/unifi-monitoring/internal/model"
)

// buildFilter renders the WHERE clause and args shared by QueryEvents
// and CountEvents. classifications/event_types are OR'd within a
// dimension, AND'd across dimensions; an empty set on a dimension
// means "no filter" (spec §4.A).
func (s *Store) buildFilter(f model.EventFilter) (string, []any) {
	var clauses []string
	var args []any

	if len(f.Classifications) > 0 {
		placeholders := make([]string, len(f.Classifications))
		for i, c := range f.Classifications {
			placeholders[i] = "?"
			args = append(args, string(c))
		}
		clauses = append(clauses, "classification IN ("+strings.Join(placeholders, ",")+")")
	}

	if len(f.EventTypes) > 0 {
		placeholders := make([]string, len(f.EventTypes))
		for i, t := range f.EventTypes {
			placeholders[i] = "?"
			args = append(args, t)
		}
		clauses = append(clauses, "event_type IN ("+strings.Join(placeholders, ",")+")")
	}

	if f.Search != "" {
		if s.ftsAvailable {
			clauses = append(clauses,
				"rowid IN (SELECT rowid FROM events_fts WHERE events_fts MATCH ?)")
			args = append(args, ftsQuery(f.Search))
		} else {
			clauses = append(clauses,
				"(event_type LIKE ? OR summary LIKE ? OR source LIKE ? OR payload LIKE ?)")
			like := "%" + f.Search + "%"
			args = append(args, like, like, like, like)
		}
	}

	if len(clauses) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(clauses, " AND "), args
}

// ftsQuery escapes a free-text search term for use as an FTS5 MATCH
// argument: wrap in double quotes so punctuation in the search string
// cannot be interpreted as FTS5 query syntax, and append a prefix
// wildcard for "starts with" matching.
func ftsQuery(search string) string {
	escaped := strings.ReplaceAll(search, `"`, `""`)
	return `"` + escaped + `"*`
}

// QueryEvents returns events matching filter, newest first, with
// limit/offset pagination.
func (s *Store) QueryEvents(f model.EventFilter, limit, offset int) ([]model.Event, error) {
	where, args := s.buildFilter(f)
	query := `SELECT id, source, event_type, severity, summary, timestamp, payload,
		classification, notified, notify_attempts, created_at
		FROM events ` + where + ` ORDER BY timestamp DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, apperrors.Store("query_events", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		evt, err := scanEventRows(rows)
		if err != nil {
			return nil, apperrors.Store("query_events scan", err)
		}
		events = append(events, *evt)
	}
	return events, rows.Err()
}

// CountEvents returns the count of events matching filter.
func (s *Store) CountEvents(f model.EventFilter) (int, error) {
	where, args := s.buildFilter(f)
	query := `SELECT COUNT(*) FROM events ` + where

	var count int
	if err := s.db.QueryRow(query, args...).Scan(&count); err != nil {
		return 0, apperrors.Store("count_events", err)
	}
	return count, nil
}

// EventTypeSummary is an aggregate row for the UI's event-type list.
type EventTypeSummary struct {
	EventType      string
	Count          int
	LatestTimestamp int64
	Classification model.Classification
}

// EventTypeSummaries lists (type, count, latest timestamp, current
// classification) for every distinct event type (spec §6).
func (s *Store) EventTypeSummaries() ([]EventTypeSummary, error) {
	rows, err := s.db.Query(
		`SELECT event_type, COUNT(*), MAX(timestamp), classification
		 FROM events GROUP BY event_type, classification ORDER BY event_type`,
	)
	if err != nil {
		return nil, apperrors.Store("event_type_summaries", err)
	}
	defer rows.Close()

	var out []EventTypeSummary
	for rows.Next() {
		var sum EventTypeSummary
		var class string
		if err := rows.Scan(&sum.EventType, &sum.Count, &sum.LatestTimestamp, &class); err != nil {
			return nil, apperrors.Store("event_type_summaries scan", err)
		}
		sum.Classification = model.Classification(class)
		out = append(out, sum)
	}
	return out, rows.Err()
}

// rowScanner abstracts *sql.Rows for scanEventRows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanEventRows(r rowScanner) (*model.Event, error) {
	var (
		evt       model.Event
		source    string
		class     string
		payload   string
		notifiedI int
	)
	if err := r.Scan(&evt.ID, &source, &evt.EventType, &evt.Severity, &evt.Summary,
		&evt.Timestamp, &payload, &class, &notifiedI, &evt.NotifyAttempts, &evt.CreatedAt); err != nil {
		return nil, err
	}
	evt.Source = model.Source(source)
	evt.Classification = model.Classification(class)
	evt.Payload = []byte(payload)
	evt.Notified = notifiedI != 0
	return &evt, nil
}
