// Package models holds the server-side records of the trial store.
package models

import "time"

// SectionDoc is the stored document of one upsert section of a trial.
// Body is the JSON object as received.
type SectionDoc struct {
	TrialID   string
	Section   string
	Body      []byte
	UpdatedBy string
	UpdatedAt time.Time
}

// ItemRow is one row of a replace section (other sources, notes). Type
// names the collection of typed rows and is empty for flat rows.
type ItemRow struct {
	ID        string
	TrialID   string
	Section   string
	Type      string
	Data      []byte
	CreatedBy string
	CreatedAt time.Time
}
