// Package ingest converts heterogeneous raw log rows (CSV or JSON uploads,
// with missing or stringified fields) into canonical events. All the
// loose-typing ambiguity of flat-file exports is resolved here; nothing past
// this package sees a raw row.
package ingest

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/argus-triage/argus-go/internal/event"
)

// ErrMalformedRecord marks a row that cannot be repaired: a missing or
// unparseable timestamp, or a missing source_ip/url. Callers skip the row
// and continue the batch.
var ErrMalformedRecord = errors.New("malformed record")

// timestampLayouts are tried in order. RFC3339 first (JSON exports), then
// the bare ISO forms CSV exports tend to produce.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
}

// Normalize turns one raw key/value row into a valid Event or fails with
// ErrMalformedRecord. It is a pure transform: coercion failures on
// non-structural fields fall back to documented defaults and never fail the
// record.
func Normalize(raw map[string]any) (*event.Event, error) {
	ts, err := parseTimestamp(raw["timestamp"])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}

	sourceIP := asString(raw["source_ip"])
	if sourceIP == "" {
		return nil, fmt.Errorf("%w: missing source_ip", ErrMalformedRecord)
	}
	url := asString(raw["url"])
	if url == "" {
		return nil, fmt.Errorf("%w: missing url", ErrMalformedRecord)
	}

	ev := &event.Event{
		EventID:      asString(raw["event_id"]),
		Timestamp:    ts,
		SourceIP:     sourceIP,
		Method:       asString(raw["method"]),
		URL:          url,
		UserAgent:    asString(raw["user_agent"]),
		Headers:      coerceHeaders(raw["headers"]),
		Payload:      asString(raw["payload"]),
		StatusCode:   coerceInt(raw["status_code"], 200),
		ResponseSize: coerceInt(raw["response_size"], 0),
		AttackType:   asString(raw["attack_type"]),
		IsSuccessful: coerceBool(raw["is_successful"]),
		Confidence:   coerceFloat(raw["confidence"], 0),
		RuleHits:     coerceRuleHits(raw["rule_hits"]),
	}

	if ev.EventID == "" {
		ev.EventID = uuid.New().String()
	}
	if ev.Method == "" {
		ev.Method = "GET"
	}
	if ev.UserAgent == "" {
		ev.UserAgent = "Unknown"
	}
	ev.Clamp()
	return ev, nil
}

func parseTimestamp(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return time.Time{}, errors.New("missing timestamp")
		}
		for _, layout := range timestampLayouts {
			if ts, err := time.Parse(layout, s); err == nil {
				return ts, nil
			}
		}
		return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
	case nil:
		return time.Time{}, errors.New("missing timestamp")
	default:
		return time.Time{}, fmt.Errorf("unparseable timestamp %v", v)
	}
}

// asString renders scalar values as strings; nil and non-scalars become "".
func asString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	case float64, int, int64, bool:
		return fmt.Sprintf("%v", s)
	default:
		return ""
	}
}

// coerceInt accepts ints, floats, and numeric text (including "200.0"-style
// float strings from flat-file exports). Anything else yields def.
func coerceInt(v any, def int) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return def
		}
		if i, err := strconv.Atoi(s); err == nil {
			return i
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return int(f)
		}
		return def
	default:
		return def
	}
}

func coerceFloat(v any, def float64) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return def
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
		return def
	default:
		return def
	}
}

func coerceBool(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "true", "1":
			return true
		}
		return false
	default:
		return false
	}
}

// coerceHeaders handles structured maps from JSON as well as stringified
// mappings from CSV export ({"Host": "x"} or Python-style {'Host': 'x'}).
// A parse failure yields an empty map rather than failing the record.
func coerceHeaders(v any) map[string]string {
	switch h := v.(type) {
	case map[string]string:
		return h
	case map[string]any:
		out := make(map[string]string, len(h))
		for k, val := range h {
			out[k] = asString(val)
		}
		return out
	case string:
		var out map[string]string
		if err := json.Unmarshal([]byte(h), &out); err == nil {
			return out
		}
		if err := json.Unmarshal([]byte(pythonToJSON(h)), &out); err == nil {
			return out
		}
		return map[string]string{}
	default:
		return map[string]string{}
	}
}

// coerceRuleHits handles structured lists and stringified ones
// (["a"] or Python-style ['a']). Parse failure yields an empty list.
func coerceRuleHits(v any) []string {
	switch hits := v.(type) {
	case []string:
		return hits
	case []any:
		out := make([]string, 0, len(hits))
		for _, h := range hits {
			out = append(out, asString(h))
		}
		return out
	case string:
		var out []string
		if err := json.Unmarshal([]byte(hits), &out); err == nil {
			return out
		}
		if err := json.Unmarshal([]byte(pythonToJSON(hits)), &out); err == nil {
			return out
		}
		return []string{}
	default:
		return []string{}
	}
}

// pythonToJSON rewrites single-quoted Python literals into JSON. Good enough
// for the flat {'k': 'v'} / ['a', 'b'] shapes CSV exports carry; values with
// embedded quotes simply fail the later Unmarshal and default to empty.
func pythonToJSON(s string) string {
	r := strings.NewReplacer("'", `"`, "None", "null", "True", "true", "False", "false")
	return r.Replace(s)
}
