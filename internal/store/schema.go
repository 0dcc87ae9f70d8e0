// UniFi Monitor
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

const schemaSQL = `
CREATE TABLE IF NOT EXISTS events (
	id              TEXT PRIMARY KEY,
	source          TEXT NOT NULL,
	event_type      TEXT NOT NULL,
	severity        TEXT NOT NULL DEFAULT '',
	summary         TEXT NOT NULL,
	timestamp       INTEGER NOT NULL,
	payload         TEXT NOT NULL DEFAULT '',
	classification  TEXT NOT NULL DEFAULT 'unclassified',
	notified        INTEGER NOT NULL DEFAULT 0,
	notify_attempts INTEGER NOT NULL DEFAULT 0,
	created_at      INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_events_type ON events(event_type);
CREATE INDEX IF NOT EXISTS idx_events_pending
	ON events(classification, notified, notify_attempts, timestamp, id);
CREATE INDEX IF NOT EXISTS idx_events_retention ON events(timestamp, id);

CREATE TABLE IF NOT EXISTS rules (
	event_type     TEXT PRIMARY KEY,
	classification TEXT NOT NULL,
	created_at     INTEGER NOT NULL,
	updated_at     INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS cursors (
	source         TEXT PRIMARY KEY,
	last_update_id TEXT NOT NULL,
	updated_at     INTEGER NOT NULL
);
`

const ftsSchemaSQL = `
CREATE VIRTUAL TABLE IF NOT EXISTS events_fts USING fts5(
	event_type, summary, source, payload,
	content='events', content_rowid='rowid'
);

CREATE TRIGGER IF NOT EXISTS events_fts_ai AFTER INSERT ON events BEGIN
	INSERT INTO events_fts(rowid, event_type, summary, source, payload)
	VALUES (new.rowid, new.event_type, new.summary, new.source, new.payload);
END;

CREATE TRIGGER IF NOT EXISTS events_fts_ad AFTER DELETE ON events BEGIN
	INSERT INTO events_fts(events_fts, rowid, event_type, summary, source, payload)
	VALUES ('delete', old.rowid, old.event_type, old.summary, old.source, old.payload);
END;

CREATE TRIGGER IF NOT EXISTS events_fts_au AFTER UPDATE ON events BEGIN
	INSERT INTO events_fts(events_fts, rowid, event_type, summary, source, payload)
	VALUES ('delete', old.rowid, old.event_type, old.summary, old.source, old.payload);
	INSERT INTO events_fts(rowid, event_type, summary, source, payload)
	VALUES (new.rowid, new.event_type, new.summary, new.source, new.payload);
END;
`

// migrate creates the schema if it does not exist yet. There is no
// version table: every statement is idempotent (CREATE ... IF NOT
// EXISTS), which is sufficient for the fixed schema this service
// ships with.
func (s *Store) migrate() error {
	if _, err := s.db.Exec(schemaSQL); err != nil {
		return err
	}
	if s.ftsAvailable {
		if _, err := s.db.Exec(ftsSchemaSQL); err != nil {
			return err
		}
	}
	return nil
}
