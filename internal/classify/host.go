// UniFi Monitor
// SPDX-License-Identifier: AGPL-3.0-or-later

package classify

import (
	"github.com/goccy/go-json"

	"github.com/Cynary/unifi-monitoring/internal/apperrors"
	"github.com/Cynary/unifi-monitoring/internal/model"
)

// hostFrame is the text-feed JSON envelope's body for the host-OS
// source: its own "event" key, distinct from the network source's
// "key" field (spec §4.C: "the host feed uses its own key").
type hostFrame struct {
	Event string `json:"event"`
}

// NormalizeHost maps one text-feed frame body from the host-OS source
// to a canonical Event.
func NormalizeHost(raw json.RawMessage) (*model.Event, error) {
	var hf hostFrame
	if err := json.Unmarshal(raw, &hf); err != nil {
		return nil, apperrors.ProtocolViolation("malformed host frame: " + err.Error())
	}
	key := hf.Event
	if key == "" {
		key = "unknown"
	}
	eventType := "host." + key

	obj := decodeObject(raw)
	c := extractCommon(obj)

	ts := c.timestamp
	if ts == 0 {
		ts = model.NowUnix()
	}

	id := c.id
	if id == "" {
		id = contentHashID(model.SourceHost, eventType, ts, raw)
	}

	return &model.Event{
		ID:        id,
		Source:    model.SourceHost,
		EventType: eventType,
		Severity:  severityOrDefault(c.severity, "info"),
		Summary:   summaryOrDefault(c.summary, eventType),
		Timestamp: ts,
		Payload:   raw,
	}, nil
}
