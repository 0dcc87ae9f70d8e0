// UniFi Monitor
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package classify implements the Normaliser & Classifier (spec
// §4.G): it maps raw per-source frames to canonical model.Event
// values and stamps their classification via the Store.
package classify

import (
	"encoding/hex"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/zeebo/blake3"

	"github.com/Cynary/unifi-monitoring/internal/model"
)

// contentHashID derives a stable event id from (source, event_type,
// timestamp, canonicalised payload) for frames that carry no explicit
// wire id (spec §4.G).
func contentHashID(source model.Source, eventType string, timestamp int64, payload []byte) string {
	canon := canonicalize(payload)

	h := blake3.New()
	_, _ = fmt.Fprintf(h, "%s|%s|%d|", source, eventType, timestamp)
	_, _ = h.Write(canon)

	sum := h.Sum(nil)
	return hex.EncodeToString(sum[:16])
}

// canonicalize re-marshals arbitrary JSON so that object keys are in
// a stable (sorted) order, making the hash independent of the
// source's field ordering. Malformed payloads are hashed as-is.
func canonicalize(payload []byte) []byte {
	var v any
	if err := json.Unmarshal(payload, &v); err != nil {
		return payload
	}
	out, err := json.Marshal(v)
	if err != nil {
		return payload
	}
	return out
}
