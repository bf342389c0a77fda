package schema

import (
	"strings"

	"github.com/dmitrijs2005/trialdraft/internal/client/models"
)

// recordIDKeys are the record keys that may carry a trial identifier.
var recordIDKeys = []string{"trial_id", "trialId", "id", "_id", "trial_identifier"}

// envelopeKeys wrap a record or a record list in bulk responses.
var envelopeKeys = []string{"data", "trial", "trials", "records", "items", "results"}

// SelectRecord finds the record of trialID in a response body. body may be
// a single record, a list of records, a map keyed by identifier, or any of
// those wrapped in an envelope object.
func SelectRecord(body any, trialID string) (map[string]any, bool) {
	return selectRecord(body, trialID, 0)
}

func selectRecord(body any, trialID string, depth int) (map[string]any, bool) {
	if depth > 4 {
		return nil, false
	}

	switch v := body.(type) {
	case []any:
		for _, elem := range v {
			if rec, ok := elem.(map[string]any); ok && MatchesID(rec, trialID) {
				return rec, true
			}
		}
		for _, elem := range v {
			if rec, ok := selectRecord(elem, trialID, depth+1); ok && hasAnyID(rec) {
				return rec, true
			}
		}
		return nil, false
	case map[string]any:
		if rec, ok := v[trialID].(map[string]any); ok {
			return rec, true
		}
		if hasAnyID(v) {
			if MatchesID(v, trialID) {
				return v, true
			}
			return nil, false
		}
		for _, k := range envelopeKeys {
			if inner, ok := v[k]; ok {
				if rec, ok := selectRecord(inner, trialID, depth+1); ok {
					return rec, true
				}
			}
		}
		if looksLikeRecord(v) {
			return v, true
		}
		return nil, false
	}
	return nil, false
}

// MatchesID compares trialID with every identifier a record may carry:
// top-level id keys, the same keys inside the overview section, and the
// overview's trial_identifiers list.
func MatchesID(rec map[string]any, trialID string) bool {
	want := normalizeID(trialID)
	if want == "" {
		return false
	}
	for _, id := range recordIDs(rec) {
		if normalizeID(id) == want {
			return true
		}
	}
	return false
}

// RecordID returns the first identifier found in rec.
func RecordID(rec map[string]any) string {
	ids := recordIDs(rec)
	if len(ids) == 0 {
		return ""
	}
	return ids[0]
}

func recordIDs(rec map[string]any) []string {
	var ids []string
	collect := func(obj map[string]any) {
		for _, k := range recordIDKeys {
			if id := idString(obj[k]); id != "" {
				ids = append(ids, id)
			}
		}
		if raw, ok := obj["trial_identifiers"]; ok {
			items, _ := decodeList(raw, Field{Name: "trial_identifiers", Kind: KindList, ItemKey: "identifier"})
			ids = append(ids, items...)
		}
	}

	collect(rec)
	if overview, ok := overviewObject(rec); ok {
		collect(overview)
	}
	return ids
}

func hasAnyID(rec map[string]any) bool {
	return len(recordIDs(rec)) > 0
}

func overviewObject(rec map[string]any) (map[string]any, bool) {
	sec, _ := Lookup(models.SectionOverview)
	raw, _, ok := lookup(rec, string(models.SectionOverview), sec.Aliases)
	if !ok {
		return nil, false
	}
	obj, ok := raw.(map[string]any)
	return obj, ok
}

func looksLikeRecord(v map[string]any) bool {
	for _, sec := range All() {
		if _, _, ok := lookup(v, string(sec.Key), sec.Aliases); ok {
			return true
		}
	}
	return false
}

func normalizeID(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// SplitRecord breaks a record into per-section wire values. When the
// record has no overview key, its remaining top-level keys are treated as
// the overview payload.
func SplitRecord(trialID string, rec map[string]any) models.TrialRecord {
	out := models.TrialRecord{ID: trialID, Sections: make(map[models.SectionKey]any)}
	if id := RecordID(rec); out.ID == "" {
		out.ID = id
	}

	consumed := make(map[string]struct{})
	for _, sec := range All() {
		if v, k, ok := lookup(rec, string(sec.Key), sec.Aliases); ok {
			out.Sections[sec.Key] = v
			consumed[k] = struct{}{}
		}
	}

	if _, ok := out.Sections[models.SectionOverview]; !ok {
		rest := make(map[string]any)
		for k, v := range rec {
			if _, skip := consumed[k]; !skip {
				rest[k] = v
			}
		}
		if overviewFieldsPresent(rest) {
			out.Sections[models.SectionOverview] = rest
		}
	}
	return out
}

func overviewFieldsPresent(obj map[string]any) bool {
	sec, _ := Lookup(models.SectionOverview)
	for _, f := range sec.Fields {
		if f.Name == "trial_id" {
			continue
		}
		if _, _, ok := lookup(obj, f.Name, f.Aliases); ok {
			return true
		}
	}
	return false
}

// TrialIDOf returns the trial identifier carried by a write response:
// trial_id or trialId at the top level or inside the overview object.
// Row ids ("id") are not trial identifiers and are ignored.
func TrialIDOf(resp map[string]any) string {
	if id := trialIDKey(resp); id != "" {
		return id
	}
	if ov, ok := overviewObject(resp); ok {
		return trialIDKey(ov)
	}
	return ""
}

func trialIDKey(obj map[string]any) string {
	for _, k := range []string{"trial_id", "trialId"} {
		if id := idString(obj[k]); id != "" {
			return id
		}
	}
	return ""
}
