// UniFi Monitor
// SPDX-License-Identifier: AGPL-3.0-or-later

package classify

import (
	"github.com/goccy/go-json"
)

// common holds the fields every source tries to pull out of a raw
// frame before falling back to its own defaults.
type common struct {
	id        string
	timestamp int64
	severity  string
	summary   string
}

// idKeys/tsKeys/etc are tried in order; the first present, non-empty
// value wins. Appliance firmware versions disagree on casing and on
// whether timestamps are seconds or milliseconds, so the extraction
// is deliberately loose.
var (
	idKeys       = []string{"id", "eventId", "event_id"}
	tsKeys       = []string{"ts", "timestamp", "time"}
	severityKeys = []string{"severity", "level", "priority"}
	summaryKeys  = []string{"message", "summary", "description", "msg"}
)

func extractCommon(raw map[string]any) common {
	var c common
	c.id = stringField(raw, idKeys)
	c.timestamp = int64Field(raw, tsKeys)
	c.severity = stringField(raw, severityKeys)
	c.summary = stringField(raw, summaryKeys)
	return c
}

func decodeObject(payload []byte) map[string]any {
	var m map[string]any
	if err := json.Unmarshal(payload, &m); err != nil {
		return nil
	}
	return m
}

func stringField(m map[string]any, keys []string) string {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

func int64Field(m map[string]any, keys []string) int64 {
	for _, k := range keys {
		v, ok := m[k]
		if !ok {
			continue
		}
		switch n := v.(type) {
		case float64:
			ts := int64(n)
			// Appliances sometimes emit millisecond epochs; normalise
			// anything implausibly large down to seconds.
			if ts > 1_000_000_000_000 {
				ts /= 1000
			}
			return ts
		case string:
			// best-effort only; malformed numeric strings fall through
			// to the caller's default timestamp.
		}
	}
	return 0
}

// severityOrDefault returns s unchanged, or def when s is empty. No
// token is remapped: severity is kept as an opaque string.
func severityOrDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func summaryOrDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
