package models

import "time"

// ChangeAction classifies a change log entry.
type ChangeAction string

const (
	ActionChanged ChangeAction = "changed"
	ActionAdded   ChangeAction = "added"
	ActionRemoved ChangeAction = "removed"
)

// ChangeLogEntry is one append-only audit record. Values are display
// strings.
type ChangeLogEntry struct {
	ID         string       `json:"id" validate:"required"`
	Timestamp  time.Time    `json:"timestamp"`
	Actor      string       `json:"actor"`
	Action     ChangeAction `json:"action" validate:"oneof=changed added removed"`
	SectionKey SectionKey   `json:"section_key"`
	Field      string       `json:"field"`
	OldValue   string       `json:"old_value"`
	NewValue   string       `json:"new_value"`
}
