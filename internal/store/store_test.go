// UniFi Monitor
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"path/filepath"
	"testing"

	"github.com/Cynary/unifi-monitoring/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func mkEvent(id, eventType string, ts int64) *model.Event {
	return &model.Event{
		ID:        id,
		Source:    model.SourceVideo,
		EventType: eventType,
		Summary:   eventType,
		Timestamp: ts,
		Payload:   []byte(`{}`),
	}
}

// S1 (first half): ingest three distinct video events; re-inserting
// one of them is a duplicate and leaves the log unchanged.
func TestInsertEventAndDedup(t *testing.T) {
	s := newTestStore(t)

	for i, id := range []string{"v1", "v2", "v3"} {
		res, _, err := s.InsertEvent(mkEvent(id, "motion", int64(100+i)))
		if err != nil {
			t.Fatalf("insert %s: %v", id, err)
		}
		if res != model.Inserted {
			t.Fatalf("insert %s: want Inserted, got %v", id, res)
		}
	}

	count, err := s.CountEvents(model.EventFilter{})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 3 {
		t.Fatalf("count = %d, want 3", count)
	}

	// Re-inserting v1 is a no-op on the log (dedup invariant).
	res, existing, err := s.InsertEvent(mkEvent("v1", "motion", 999))
	if err != nil {
		t.Fatalf("reinsert: %v", err)
	}
	if res != model.Duplicate {
		t.Fatalf("reinsert: want Duplicate, got %v", res)
	}
	if existing.Timestamp != 100 {
		t.Fatalf("reinsert returned mutated row: timestamp=%d", existing.Timestamp)
	}

	count, _ = s.CountEvents(model.EventFilter{})
	if count != 3 {
		t.Fatalf("count after dup = %d, want 3", count)
	}
}

func TestSetRuleRewritesExistingEvents(t *testing.T) {
	s := newTestStore(t)

	if _, _, err := s.InsertEvent(mkEvent("v4", "motion", 100)); err != nil {
		t.Fatalf("insert: %v", err)
	}

	evt, err := s.GetEvent("v4")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if evt.Classification != model.ClassificationUnclassified {
		t.Fatalf("classification = %s, want unclassified", evt.Classification)
	}

	if err := s.SetRule("motion", model.ClassificationNotify); err != nil {
		t.Fatalf("set_rule: %v", err)
	}

	evt, err = s.GetEvent("v4")
	if err != nil {
		t.Fatalf("get after rule: %v", err)
	}
	if evt.Classification != model.ClassificationNotify {
		t.Fatalf("classification after set_rule = %s, want notify", evt.Classification)
	}

	// New events of the same type pick up the rule at insert time.
	if _, _, err := s.InsertEvent(mkEvent("v5", "motion", 101)); err != nil {
		t.Fatalf("insert v5: %v", err)
	}
	evt5, _ := s.GetEvent("v5")
	if evt5.Classification != model.ClassificationNotify {
		t.Fatalf("v5 classification = %s, want notify", evt5.Classification)
	}

	// S2: changing the rule to ignored rewrites v4 but leaves notified alone.
	if err := s.MarkNotified("v4"); err != nil {
		t.Fatalf("mark_notified: %v", err)
	}
	if err := s.SetRule("motion", model.ClassificationIgnored); err != nil {
		t.Fatalf("set_rule ignored: %v", err)
	}
	evt, _ = s.GetEvent("v4")
	if evt.Classification != model.ClassificationIgnored {
		t.Fatalf("classification after second set_rule = %s, want ignored", evt.Classification)
	}
	if !evt.Notified {
		t.Fatalf("notified flag changed by set_rule")
	}
}

func TestDeleteRuleRevertsToUnclassified(t *testing.T) {
	s := newTestStore(t)

	if err := s.SetRule("alarm", model.ClassificationSuppressed); err != nil {
		t.Fatalf("set_rule: %v", err)
	}
	if _, _, err := s.InsertEvent(mkEvent("e1", "alarm", 100)); err != nil {
		t.Fatalf("insert: %v", err)
	}

	if err := s.DeleteRule("alarm"); err != nil {
		t.Fatalf("delete_rule: %v", err)
	}

	evt, _ := s.GetEvent("e1")
	if evt.Classification != model.ClassificationUnclassified {
		t.Fatalf("classification after delete_rule = %s, want unclassified", evt.Classification)
	}

	rules, err := s.ListRules()
	if err != nil {
		t.Fatalf("list_rules: %v", err)
	}
	if len(rules) != 0 {
		t.Fatalf("rules remaining after delete: %d", len(rules))
	}
}

func TestPendingNotificationsOrderingAndAttempts(t *testing.T) {
	s := newTestStore(t)

	if err := s.SetRule("motion", model.ClassificationNotify); err != nil {
		t.Fatalf("set_rule: %v", err)
	}
	for i, id := range []string{"a", "b", "c"} {
		if _, _, err := s.InsertEvent(mkEvent(id, "motion", int64(300-i))); err != nil {
			t.Fatalf("insert %s: %v", id, err)
		}
	}

	pending, err := s.PendingNotifications(10)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 3 {
		t.Fatalf("pending len = %d, want 3", len(pending))
	}
	// Ascending (timestamp, id): events were inserted with descending
	// timestamps 300, 299, 298 for ids a, b, c — so ascending order is c, b, a.
	want := []string{"c", "b", "a"}
	for i, evt := range pending {
		if evt.ID != want[i] {
			t.Fatalf("pending[%d] = %s, want %s", i, evt.ID, want[i])
		}
	}

	attempts, err := s.BumpAttempts("a")
	if err != nil {
		t.Fatalf("bump: %v", err)
	}
	if attempts != 1 {
		t.Fatalf("attempts = %d, want 1", attempts)
	}

	if err := s.MarkNotified("a"); err != nil {
		t.Fatalf("mark_notified: %v", err)
	}
	pending, _ = s.PendingNotifications(10)
	if len(pending) != 2 {
		t.Fatalf("pending after notify len = %d, want 2", len(pending))
	}
}

func TestDeadLetterAfterMaxAttempts(t *testing.T) {
	s := newTestStore(t)
	if err := s.SetRule("motion", model.ClassificationNotify); err != nil {
		t.Fatalf("set_rule: %v", err)
	}
	if _, _, err := s.InsertEvent(mkEvent("x1", "motion", 100)); err != nil {
		t.Fatalf("insert: %v", err)
	}

	const max = 3
	for i := 0; i < max; i++ {
		if _, err := s.BumpAttempts("x1"); err != nil {
			t.Fatalf("bump %d: %v", i, err)
		}
	}

	pending, err := s.PendingNotifications(max)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("pending after exhausting retries = %d, want 0", len(pending))
	}

	count, err := s.DeadLetterCount(max)
	if err != nil {
		t.Fatalf("dead_letter_count: %v", err)
	}
	if count != 1 {
		t.Fatalf("dead letter count = %d, want 1", count)
	}
}

func TestAdvanceCursorMonotoneOverwrite(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.GetCursor(model.SourceVideo); err == nil {
		t.Fatalf("expected no cursor before first advance")
	}

	if err := s.AdvanceCursor(model.SourceVideo, "u1"); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if err := s.AdvanceCursor(model.SourceVideo, "u2"); err != nil {
		t.Fatalf("advance: %v", err)
	}

	c, err := s.GetCursor(model.SourceVideo)
	if err != nil {
		t.Fatalf("get_cursor: %v", err)
	}
	if c.LastUpdateID != "u2" {
		t.Fatalf("cursor = %s, want u2", c.LastUpdateID)
	}
}

func TestPruneUntilBelowSkipsPending(t *testing.T) {
	s := newTestStore(t)

	if err := s.SetRule("motion", model.ClassificationNotify); err != nil {
		t.Fatalf("set_rule: %v", err)
	}
	for i := 0; i < 5; i++ {
		id := string(rune('a' + i))
		if _, _, err := s.InsertEvent(mkEvent(id, "motion", int64(i))); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	// Budget of zero forces pruning to consider everything, but the
	// pending notify-unsent events must survive.
	_, err := s.PruneUntilBelow(0, 10)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}

	pending, err := s.PendingNotifications(10)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 5 {
		t.Fatalf("pending after prune = %d, want all 5 preserved", len(pending))
	}
}

func TestSearchFallbackWithoutFTS(t *testing.T) {
	s := newTestStore(t)
	s.ftsAvailable = false // force the substring fallback path

	if _, _, err := s.InsertEvent(mkEvent("f1", "motion.detected", 100)); err != nil {
		t.Fatalf("insert: %v", err)
	}

	count, err := s.CountEvents(model.EventFilter{Search: "motion"})
	if err != nil {
		t.Fatalf("count with search: %v", err)
	}
	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}
}
