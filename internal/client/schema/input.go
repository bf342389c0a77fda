package schema

import "strings"

// NormalizeInput normalizes a value typed by the user into f. ok is false
// for dates and numbers that cannot be parsed; blank input clears the
// field.
func NormalizeInput(f Field, v string) (string, bool) {
	switch f.Kind {
	case KindDate:
		return normalizeDate(v)
	case KindNumber:
		return normalizeNumber(v)
	case KindList, KindDrugList:
		return strings.Join(CleanList([]string{v}), ", "), true
	default:
		return strings.TrimSpace(v), true
	}
}

// CleanList trims items and drops the blank ones.
func CleanList(items []string) []string {
	return cleanItems(items)
}
