package schema

import (
	"encoding/json"
	"math"
	"strings"
	"time"
)

const (
	// DateLayout is the in-memory date format (MM-DD-YYYY).
	DateLayout = "01-02-2006"
	// WireDateLayout is the format written to the record store.
	WireDateLayout = "2006-01-02"
)

// dateLayouts are tried in order. MM-DD-YYYY is preferred over DD-MM-YYYY
// for ambiguous numeric dates.
var dateLayouts = []string{
	WireDateLayout,
	DateLayout,
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.000Z",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"1-2-2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"Jan 2 2006",
	"2 Jan 2006",
	"02 Jan 2006",
	"2 January 2006",
	"Mon Jan 2 2006",
	"Mon, 02 Jan 2006",
	time.RFC1123,
	time.RFC1123Z,
	time.RFC822,
	"January 2006",
	"Jan 2006",
}

// ParseDate parses any accepted date representation. ok is false when
// the value is non-empty but unparseable.
func ParseDate(v any) (t time.Time, ok bool) {
	switch value := v.(type) {
	case nil:
		return time.Time{}, true
	case string:
		s := strings.TrimSpace(value)
		if s == "" {
			return time.Time{}, true
		}
		for _, layout := range dateLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed, true
			}
		}
		return time.Time{}, false
	case float64:
		return epochDate(value)
	case json.Number:
		f, err := value.Float64()
		if err != nil {
			return time.Time{}, false
		}
		return epochDate(f)
	case time.Time:
		return value, true
	default:
		return time.Time{}, false
	}
}

// epochDate interprets large numbers as unix milliseconds, smaller ones as
// unix seconds.
func epochDate(f float64) (time.Time, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return time.Time{}, false
	}
	if f > 1e11 {
		return time.UnixMilli(int64(f)).UTC(), true
	}
	return time.Unix(int64(f), 0).UTC(), true
}

// normalizeDate returns v in DateLayout, or "" with ok=false when v cannot
// be parsed.
func normalizeDate(v any) (string, bool) {
	t, ok := ParseDate(v)
	if !ok || t.IsZero() {
		return "", ok
	}
	return t.Format(DateLayout), true
}

// wireDate converts an in-memory date back to WireDateLayout.
func wireDate(s string) (string, bool) {
	t, ok := ParseDate(s)
	if !ok || t.IsZero() {
		return "", ok
	}
	return t.Format(WireDateLayout), true
}
