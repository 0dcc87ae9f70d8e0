// UniFi Monitor
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Cynary/unifi-monitoring/internal/model"
	"github.com/Cynary/unifi-monitoring/internal/store"
)

type fakeSender struct{ lastID string }

func (f *fakeSender) Send(ctx context.Context, evt *model.Event) error {
	f.lastID = evt.ID
	return nil
}

func newTestServer(t *testing.T) (*Server, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return &Server{Store: st, Sender: &fakeSender{}, MaxRetries: 5}, st
}

func TestHandleListAndGetEvent(t *testing.T) {
	s, st := newTestServer(t)
	_, _, err := st.InsertEvent(&model.Event{
		ID: "e1", Source: model.SourceHost, EventType: "host.cpu", Summary: "high cpu",
		Timestamp: 1700000000, Payload: []byte(`{}`),
	})
	if err != nil {
		t.Fatalf("InsertEvent: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/events", nil)
	rec := httptest.NewRecorder()
	s.router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("list events status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var listResp struct {
		Success bool          `json:"success"`
		Data    []model.Event `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &listResp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(listResp.Data) != 1 || listResp.Data[0].ID != "e1" {
		t.Fatalf("unexpected list response: %+v", listResp)
	}

	req2 := httptest.NewRequest(http.MethodGet, "/api/v1/events/e1", nil)
	rec2 := httptest.NewRecorder()
	s.router().ServeHTTP(rec2, req2)
	if rec2.Code != http.StatusOK {
		t.Fatalf("get event status = %d", rec2.Code)
	}

	req3 := httptest.NewRequest(http.MethodGet, "/api/v1/events/missing", nil)
	rec3 := httptest.NewRecorder()
	s.router().ServeHTTP(rec3, req3)
	if rec3.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for missing event, got %d", rec3.Code)
	}
}

func TestHandleSetAndDeleteRule(t *testing.T) {
	s, st := newTestServer(t)
	_, _, err := st.InsertEvent(&model.Event{
		ID: "e2", Source: model.SourceNetwork, EventType: "network.wlan.join", Summary: "joined",
		Timestamp: 1700000001, Payload: []byte(`{}`),
	})
	if err != nil {
		t.Fatalf("InsertEvent: %v", err)
	}

	body := `{"classification":"notify"}`
	req := httptest.NewRequest(http.MethodPut, "/api/v1/rules/network.wlan.join", strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("set rule status = %d, body = %s", rec.Code, rec.Body.String())
	}

	evt, err := st.GetEvent("e2")
	if err != nil {
		t.Fatalf("GetEvent: %v", err)
	}
	if evt.Classification != model.ClassificationNotify {
		t.Fatalf("expected classification rewritten to notify, got %v", evt.Classification)
	}

	req2 := httptest.NewRequest(http.MethodDelete, "/api/v1/rules/network.wlan.join", nil)
	rec2 := httptest.NewRecorder()
	s.router().ServeHTTP(rec2, req2)
	if rec2.Code != http.StatusOK {
		t.Fatalf("delete rule status = %d", rec2.Code)
	}

	evt, err = st.GetEvent("e2")
	if err != nil {
		t.Fatalf("GetEvent: %v", err)
	}
	if evt.Classification != model.ClassificationUnclassified {
		t.Fatalf("expected classification reverted to unclassified, got %v", evt.Classification)
	}
}

func TestHandleNotifyTest(t *testing.T) {
	s, st := newTestServer(t)
	_, _, err := st.InsertEvent(&model.Event{
		ID: "e3", Source: model.SourceVideo, EventType: "video.cam1.motion", Summary: "motion",
		Timestamp: 1700000002, Payload: []byte(`{}`),
	})
	if err != nil {
		t.Fatalf("InsertEvent: %v", err)
	}

	body := `{"event_id":"e3"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/notify/test", strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("notify test status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if s.Sender.(*fakeSender).lastID != "e3" {
		t.Fatalf("expected sender invoked with e3, got %q", s.Sender.(*fakeSender).lastID)
	}
}

