package schema

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ReservedDelimiter joins list items on the wire. Items may contain
// commas, semicolons and newlines.
const ReservedDelimiter = "|||"

const (
	semicolonDelimiter = "; "
	drugDelimiter      = ", "
)

// maxListDepth bounds recursion through JSON nested inside strings.
const maxListDepth = 8

// decodeList recovers a flat list of trimmed, non-empty strings from any
// wire shape. problem is non-empty when the input was malformed and only
// partially recovered.
func decodeList(v any, f Field) (out []string, problem string) {
	out, problem = decodeListDepth(v, f, 0)
	if out == nil {
		out = []string{}
	}
	return out, problem
}

func decodeListDepth(v any, f Field, depth int) ([]string, string) {
	if depth > maxListDepth {
		return nil, "list nesting too deep"
	}

	switch value := v.(type) {
	case nil:
		return nil, ""
	case string:
		return decodeListString(value, f, depth)
	case []string:
		return cleanItems(value), ""
	case []any:
		var out []string
		var problem string
		for _, elem := range value {
			switch e := elem.(type) {
			case string:
				if s := strings.TrimSpace(e); s != "" {
					out = append(out, s)
				}
			default:
				items, p := decodeListDepth(e, f, depth+1)
				out = append(out, items...)
				if p != "" {
					problem = p
				}
			}
		}
		return out, problem
	case map[string]any:
		if s, ok := objectItem(value, f.ItemKey); ok {
			return cleanItems([]string{s}), ""
		}
		b, err := json.Marshal(value)
		if err != nil {
			return nil, "unserializable list item"
		}
		return []string{string(b)}, "object list item without a known key"
	case float64:
		return []string{strconv.FormatFloat(value, 'f', -1, 64)}, ""
	case json.Number:
		return []string{value.String()}, ""
	case bool:
		return []string{strconv.FormatBool(value)}, ""
	default:
		s := strings.TrimSpace(fmt.Sprint(value))
		if s == "" {
			return nil, "unexpected list value"
		}
		return []string{s}, "unexpected list value"
	}
}

func decodeListString(s string, f Field, depth int) ([]string, string) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ""
	}

	var problem string
	if looksLikeJSON(s) {
		var decoded any
		if err := json.Unmarshal([]byte(s), &decoded); err == nil {
			return decodeListDepth(decoded, f, depth+1)
		}
		problem = "malformed JSON in list field"
	}

	switch {
	case strings.Contains(s, ReservedDelimiter):
		return cleanItems(strings.Split(s, ReservedDelimiter)), problem
	case strings.Contains(s, semicolonDelimiter):
		return cleanItems(strings.Split(s, semicolonDelimiter)), problem
	case f.Kind == KindDrugList:
		return cleanItems(strings.Split(s, drugDelimiter)), problem
	default:
		return cleanItems(strings.Split(s, ",")), problem
	}
}

// objectItem picks the display value of an object list item: value, then
// label, then the field's own key, then name.
func objectItem(obj map[string]any, itemKey string) (string, bool) {
	keys := []string{"value", "label"}
	if itemKey != "" {
		keys = append(keys, itemKey)
	}
	keys = append(keys, "name")

	for _, k := range keys {
		v, ok := obj[k]
		if !ok || v == nil {
			continue
		}
		switch value := v.(type) {
		case string:
			if strings.TrimSpace(value) != "" {
				return value, true
			}
		case float64:
			return strconv.FormatFloat(value, 'f', -1, 64), true
		case bool:
			return strconv.FormatBool(value), true
		}
	}
	return "", false
}

func cleanItems(items []string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s := strings.TrimSpace(it); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func looksLikeJSON(s string) bool {
	if s == "" {
		return false
	}
	switch s[0] {
	case '[', '{', '"':
		return true
	}
	return false
}

// encodeList writes items in the single wire encoding. Lists of two or
// more items are joined by ReservedDelimiter unless an item would blur
// into it. A lone item is written bare unless a legacy reader would split
// it. Either fallback writes the list as a JSON array.
func encodeList(items []string) string {
	items = cleanItems(items)
	switch len(items) {
	case 0:
		return ""
	case 1:
		if needsQuoting(items[0]) {
			return jsonList(items)
		}
		return items[0]
	}

	if looksLikeJSON(items[0]) {
		return jsonList(items)
	}
	for _, it := range items {
		if blursDelimiter(it) {
			return jsonList(items)
		}
	}
	return strings.Join(items, ReservedDelimiter)
}

// blursDelimiter reports whether joining item with ReservedDelimiter
// would not split back into the same item.
func blursDelimiter(item string) bool {
	return strings.Contains(item, ReservedDelimiter) ||
		strings.HasPrefix(item, "|") ||
		strings.HasSuffix(item, "|")
}

func needsQuoting(item string) bool {
	return strings.Contains(item, ReservedDelimiter) ||
		strings.Contains(item, ",") ||
		strings.Contains(item, semicolonDelimiter) ||
		looksLikeJSON(item)
}

func jsonList(items []string) string {
	b, err := json.Marshal(items)
	if err != nil {
		return strings.Join(items, ReservedDelimiter)
	}
	return string(b)
}
