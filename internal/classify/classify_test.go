// UniFi Monitor
// SPDX-License-Identifier: AGPL-3.0-or-later

package classify

import (
	"path/filepath"
	"testing"

	"github.com/Cynary/unifi-monitoring/internal/feed/binary"
	"github.com/Cynary/unifi-monitoring/internal/model"
	"github.com/Cynary/unifi-monitoring/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestNormalizeVideoExplicitIDAndFallback(t *testing.T) {
	msg := binary.Message{
		Action: binary.ActionFrame{Subject: "camera1", UpdateID: "u1", Action: "motion"},
		DataPayload: []byte(`{"id":"evt-42","ts":1700000000,"severity":"warn","message":"motion detected"}`),
	}
	evt, err := NormalizeVideo(msg)
	if err != nil {
		t.Fatalf("NormalizeVideo: %v", err)
	}
	if evt.ID != "evt-42" {
		t.Fatalf("expected explicit id to win, got %q", evt.ID)
	}
	if evt.EventType != "video.camera1.motion" {
		t.Fatalf("event type = %q", evt.EventType)
	}
	if evt.Severity != "warn" || evt.Summary != "motion detected" {
		t.Fatalf("unexpected severity/summary: %+v", evt)
	}

	// Same logical event, no explicit id: hash must be stable.
	msg2 := binary.Message{
		Action:      binary.ActionFrame{Subject: "camera1", Action: "motion"},
		DataPayload: []byte(`{"ts":1700000000,"score":80}`),
	}
	evt2a, err := NormalizeVideo(msg2)
	if err != nil {
		t.Fatalf("NormalizeVideo: %v", err)
	}
	evt2b, err := NormalizeVideo(msg2)
	if err != nil {
		t.Fatalf("NormalizeVideo: %v", err)
	}
	if evt2a.ID != evt2b.ID {
		t.Fatalf("content hash id not stable: %q vs %q", evt2a.ID, evt2b.ID)
	}
	if evt2a.ID == evt.ID {
		t.Fatalf("hash collided with explicit id event")
	}
}

func TestNormalizeNetworkAndHostEventTypePrefixes(t *testing.T) {
	netEvt, err := NormalizeNetwork([]byte(`{"key":"wlan.client.connected","ts":1700000001}`))
	if err != nil {
		t.Fatalf("NormalizeNetwork: %v", err)
	}
	if netEvt.EventType != "network.wlan.client.connected" {
		t.Fatalf("network event type = %q", netEvt.EventType)
	}
	if netEvt.Source != model.SourceNetwork {
		t.Fatalf("network source = %q", netEvt.Source)
	}

	hostEvt, err := NormalizeHost([]byte(`{"event":"disk.smart.fail","ts":1700000002}`))
	if err != nil {
		t.Fatalf("NormalizeHost: %v", err)
	}
	if hostEvt.EventType != "host.disk.smart.fail" {
		t.Fatalf("host event type = %q", hostEvt.EventType)
	}
	if hostEvt.Source != model.SourceHost {
		t.Fatalf("host source = %q", hostEvt.Source)
	}
}

func TestClassifierAppliesRuleAndWakesOnNotify(t *testing.T) {
	st := newTestStore(t)
	if err := st.SetRule("network.wlan.client.connected", model.ClassificationNotify); err != nil {
		t.Fatalf("SetRule: %v", err)
	}

	wake := make(chan struct{}, 1)
	c := New(st, wake)

	evt, err := NormalizeNetwork([]byte(`{"key":"wlan.client.connected","id":"e1","ts":1700000003}`))
	if err != nil {
		t.Fatalf("NormalizeNetwork: %v", err)
	}

	result, stored, err := c.Classify(evt)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if result != model.Inserted {
		t.Fatalf("expected Inserted, got %v", result)
	}
	if stored.Classification != model.ClassificationNotify {
		t.Fatalf("expected notify classification, got %v", stored.Classification)
	}
	select {
	case <-wake:
	default:
		t.Fatalf("expected wake signal for notify-classified insert")
	}

	// Re-classifying the same id is a duplicate and must not re-wake.
	result2, _, err := c.Classify(evt)
	if err != nil {
		t.Fatalf("Classify duplicate: %v", err)
	}
	if result2 != model.Duplicate {
		t.Fatalf("expected Duplicate on second insert, got %v", result2)
	}
	select {
	case <-wake:
		t.Fatalf("duplicate insert should not re-signal wake")
	default:
	}
}

func TestClassifierLeavesUnclassifiedAloneWithoutWake(t *testing.T) {
	st := newTestStore(t)
	wake := make(chan struct{}, 1)
	c := New(st, wake)

	evt, err := NormalizeHost([]byte(`{"event":"cpu.load.high","id":"h1","ts":1700000004}`))
	if err != nil {
		t.Fatalf("NormalizeHost: %v", err)
	}

	result, stored, err := c.Classify(evt)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if result != model.Inserted {
		t.Fatalf("expected Inserted, got %v", result)
	}
	if stored.Classification != model.ClassificationUnclassified {
		t.Fatalf("expected unclassified, got %v", stored.Classification)
	}
	select {
	case <-wake:
		t.Fatalf("unclassified insert should not signal wake")
	default:
	}
}
