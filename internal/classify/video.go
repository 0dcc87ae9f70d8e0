// UniFi Monitor
// SPDX-License-Identifier: AGPL-3.0-or-later

package classify

import (
	"fmt"

	"github.com/goccy/go-json"

	"github.com/Cynary/unifi-monitoring/internal/apperrors"
	"github.com/Cynary/unifi-monitoring/internal/feed/binary"
	"github.com/Cynary/unifi-monitoring/internal/model"
)

// NormalizeVideo maps one decoded binary-feed message (spec §4.D) to
// a canonical Event. The event type is the subject and verb from the
// action frame; the data frame's payload is preserved verbatim.
func NormalizeVideo(msg binary.Message) (*model.Event, error) {
	subject := msg.Action.Subject
	if subject == "" {
		subject = "unknown"
	}
	verb := msg.Action.Action
	if verb == "" {
		verb = "event"
	}
	eventType := fmt.Sprintf("video.%s.%s", subject, verb)

	raw := decodeObject(msg.DataPayload)
	c := extractCommon(raw)

	ts := c.timestamp
	if ts == 0 {
		ts = model.NowUnix()
	}

	id := c.id
	if id == "" {
		id = contentHashID(model.SourceVideo, eventType, ts, msg.DataPayload)
	}

	summary := summaryOrDefault(c.summary, eventType)

	return &model.Event{
		ID:        id,
		Source:    model.SourceVideo,
		EventType: eventType,
		Severity:  severityOrDefault(c.severity, "info"),
		Summary:   summary,
		Timestamp: ts,
		Payload:   msg.DataPayload,
	}, nil
}

// videoBootstrapEvent is the flattened shape a bootstrap snapshot uses
// for the video source: the action frame's subject/verb alongside the
// usual payload fields, in one object instead of two wire frames.
type videoBootstrapEvent struct {
	Subject string `json:"subject"`
	Action  string `json:"action"`
}

// NormalizeVideoBootstrap maps one bootstrap snapshot event (spec
// §4.E) from the video source to a canonical Event.
func NormalizeVideoBootstrap(raw json.RawMessage) (*model.Event, error) {
	var v videoBootstrapEvent
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, apperrors.ProtocolViolation("malformed video bootstrap event: " + err.Error())
	}
	return NormalizeVideo(binary.Message{
		Action:      binary.ActionFrame{Subject: v.Subject, Action: v.Action},
		DataPayload: raw,
	})
}
