package schema

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/dmitrijs2005/trialdraft/internal/client/models"
)

// actionSynonyms maps action spellings found in stored logs onto the three
// canonical actions.
var actionSynonyms = map[string]models.ChangeAction{
	"changed":  models.ActionChanged,
	"change":   models.ActionChanged,
	"updated":  models.ActionChanged,
	"update":   models.ActionChanged,
	"modified": models.ActionChanged,
	"edited":   models.ActionChanged,
	"added":    models.ActionAdded,
	"add":      models.ActionAdded,
	"created":  models.ActionAdded,
	"inserted": models.ActionAdded,
	"removed":  models.ActionRemoved,
	"remove":   models.ActionRemoved,
	"deleted":  models.ActionRemoved,
	"delete":   models.ActionRemoved,
}

func (m *Mapper) decodeChangeLog(v any) (out []models.ChangeLogEntry, problems []string) {
	switch value := v.(type) {
	case nil:
		return nil, nil
	case string:
		s := strings.TrimSpace(value)
		if s == "" {
			return nil, nil
		}
		var decoded any
		if err := json.Unmarshal([]byte(s), &decoded); err != nil {
			return nil, []string{"malformed JSON in change log"}
		}
		return m.decodeChangeLog(decoded)
	case map[string]any:
		for _, k := range append([]string{ChangeLogKey}, changeLogAliases...) {
			if inner, ok := value[k]; ok {
				return m.decodeChangeLog(inner)
			}
		}
		return m.decodeChangeLog([]any{value})
	case []any:
		for _, elem := range value {
			obj, ok := elem.(map[string]any)
			if !ok {
				problems = append(problems, "change log entry is not an object")
				continue
			}
			entry := m.decodeChangeEntry(obj)
			if err := m.validate.Struct(entry); err != nil {
				problems = append(problems, "invalid change log entry: "+err.Error())
				continue
			}
			out = append(out, entry)
		}
		return out, problems
	default:
		return nil, []string{"unexpected change log shape"}
	}
}

func (m *Mapper) decodeChangeEntry(obj map[string]any) models.ChangeLogEntry {
	str := func(keys ...string) string {
		for _, k := range keys {
			if v, ok := obj[k]; ok && v != nil {
				return strings.TrimSpace(Stringify(v))
			}
		}
		return ""
	}

	e := models.ChangeLogEntry{
		ID:         idString(obj["id"]),
		Actor:      str("actor", "user", "user_name", "userName"),
		SectionKey: models.SectionKey(str("section_key", "section", "sectionKey")),
		Field:      str("field", "field_name", "fieldName"),
		OldValue:   str("old_value", "oldValue", "old", "from"),
		NewValue:   str("new_value", "newValue", "new", "to"),
	}
	if e.ID == "" {
		e.ID = m.newID()
	}

	action := strings.ToLower(str("action", "type"))
	if action == "" {
		action = string(models.ActionChanged)
	}
	if a, ok := actionSynonyms[action]; ok {
		e.Action = a
	} else {
		e.Action = models.ChangeAction(action)
	}

	for _, k := range []string{"timestamp", "time", "date", "created_at"} {
		if v, ok := obj[k]; ok {
			if t, ok := ParseDate(v); ok {
				e.Timestamp = t.UTC()
			}
			break
		}
	}
	return e
}

func encodeChangeLog(entries []models.ChangeLogEntry) []any {
	out := make([]any, 0, len(entries))
	for _, e := range entries {
		out = append(out, map[string]any{
			"id":          e.ID,
			"timestamp":   e.Timestamp.UTC().Format(time.RFC3339Nano),
			"actor":       e.Actor,
			"action":      string(e.Action),
			"section_key": string(e.SectionKey),
			"field":       e.Field,
			"old_value":   e.OldValue,
			"new_value":   e.NewValue,
		})
	}
	return out
}
