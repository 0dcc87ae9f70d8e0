// UniFi Monitor
// SPDX-License-Identifier: AGPL-3.0-or-later

package retention

import (
	"path/filepath"
	"testing"

	"github.com/Cynary/unifi-monitoring/internal/model"
	"github.com/Cynary/unifi-monitoring/internal/store"
)

func TestKeeperSweepSkipsPendingNotifications(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	if err := st.SetRule("host.alert", model.ClassificationNotify); err != nil {
		t.Fatalf("SetRule: %v", err)
	}
	for i := 0; i < 3; i++ {
		_, _, err := st.InsertEvent(&model.Event{
			ID:        "pending-" + string(rune('a'+i)),
			Source:    model.SourceHost,
			EventType: "host.alert",
			Summary:   "alert",
			Timestamp: int64(1700000000 + i),
			Payload:   []byte(`{}`),
		})
		if err != nil {
			t.Fatalf("InsertEvent: %v", err)
		}
	}

	k := &Keeper{Store: st, BudgetBytes: 0, MaxAttempts: 10}
	k.sweep()

	for i := 0; i < 3; i++ {
		id := "pending-" + string(rune('a'+i))
		if _, err := st.GetEvent(id); err != nil {
			t.Fatalf("expected pending event %s to survive sweep, got err: %v", id, err)
		}
	}
}
