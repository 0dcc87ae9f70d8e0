// UniFi Monitor
// SPDX-License-Identifier: AGPL-3.0-or-later

package classify

import (
	"github.com/goccy/go-json"

	"github.com/Cynary/unifi-monitoring/internal/apperrors"
	"github.com/Cynary/unifi-monitoring/internal/model"
)

// networkFrame is the text-feed JSON envelope's body for the network
// source: a wire "key" identifying the event kind plus an opaque rest
// of fields the appliance firmware is free to vary.
type networkFrame struct {
	Key string `json:"key"`
}

// NormalizeNetwork maps one text-feed frame body (spec §4.C) from the
// network source to a canonical Event.
func NormalizeNetwork(raw json.RawMessage) (*model.Event, error) {
	var nf networkFrame
	if err := json.Unmarshal(raw, &nf); err != nil {
		return nil, apperrors.ProtocolViolation("malformed network frame: " + err.Error())
	}
	key := nf.Key
	if key == "" {
		key = "unknown"
	}
	eventType := "network." + key

	obj := decodeObject(raw)
	c := extractCommon(obj)

	ts := c.timestamp
	if ts == 0 {
		ts = model.NowUnix()
	}

	id := c.id
	if id == "" {
		id = contentHashID(model.SourceNetwork, eventType, ts, raw)
	}

	return &model.Event{
		ID:        id,
		Source:    model.SourceNetwork,
		EventType: eventType,
		Severity:  severityOrDefault(c.severity, "info"),
		Summary:   summaryOrDefault(c.summary, eventType),
		Timestamp: ts,
		Payload:   raw,
	}, nil
}
