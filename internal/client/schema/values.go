package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// thousandsSeparators are removed from numeric text before validation.
var thousandsSeparators = strings.NewReplacer(",", "", "_", "", " ", "", "\u00a0", "", "\u2009", "", "'", "")

// normalizeNumber keeps a numeric value as text without thousands
// separators. ok is false for non-numeric or non-finite input.
func normalizeNumber(v any) (string, bool) {
	switch value := v.(type) {
	case nil:
		return "", true
	case float64:
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return "", false
		}
		return strconv.FormatFloat(value, 'f', -1, 64), true
	case json.Number:
		return normalizeNumber(value.String())
	case string:
		s := strings.TrimSpace(value)
		if s == "" {
			return "", true
		}
		s = thousandsSeparators.Replace(s)
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return "", false
		}
		return s, true
	default:
		return "", false
	}
}

// normalizeText renders a scalar as text. ok is false when a structured
// value had to be serialized.
func normalizeText(v any) (string, bool) {
	switch value := v.(type) {
	case nil:
		return "", true
	case string:
		return strings.TrimSpace(value), true
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64), true
	case json.Number:
		return value.String(), true
	case bool:
		return strconv.FormatBool(value), true
	default:
		b, err := json.Marshal(value)
		if err != nil {
			return strings.TrimSpace(fmt.Sprint(value)), false
		}
		return string(b), false
	}
}

// Stringify renders any value as a display string for humans: lists are
// joined with ", ", objects are JSON, nil is empty.
func Stringify(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case []string:
		return strings.Join(value, ", ")
	case []any:
		parts := make([]string, 0, len(value))
		for _, e := range value {
			parts = append(parts, Stringify(e))
		}
		return strings.Join(parts, ", ")
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(value)
	case fmt.Stringer:
		return value.String()
	case map[string]any:
		b, err := json.Marshal(value)
		if err != nil {
			return fmt.Sprint(value)
		}
		return string(b)
	default:
		return fmt.Sprint(value)
	}
}

// parseVisible reads an isVisible flag that may be a bool, a number or a
// string. Missing or unreadable values default to visible.
func parseVisible(v any) bool {
	switch value := v.(type) {
	case bool:
		return value
	case float64:
		return value != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(value)) {
		case "false", "0", "no", "hidden":
			return false
		}
	}
	return true
}

// idString renders a wire id (string or number) as text.
func idString(v any) string {
	switch value := v.(type) {
	case string:
		return strings.TrimSpace(value)
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case json.Number:
		return value.String()
	}
	return ""
}

// lookup returns the first present key among name, its aliases and the
// camelCase spelling of name, along with the key that matched.
func lookup(obj map[string]any, name string, aliases []string) (any, string, bool) {
	if v, ok := obj[name]; ok {
		return v, name, true
	}
	for _, a := range aliases {
		if v, ok := obj[a]; ok {
			return v, a, true
		}
	}
	if c := camel(name); c != name {
		if v, ok := obj[c]; ok {
			return v, c, true
		}
	}
	return nil, "", false
}

func camel(name string) string {
	parts := strings.Split(name, "_")
	for i := 1; i < len(parts); i++ {
		if parts[i] != "" {
			parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
		}
	}
	return strings.Join(parts, "")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
