// Package models holds the client-side domain types of the trial editor:
// section keys, normalized section state, drafts, commit markers and
// change log entries.
package models

import "time"

// SectionKey names one independently persisted sub-resource of a trial.
type SectionKey string

const (
	SectionOverview     SectionKey = "overview"
	SectionOutcome      SectionKey = "outcome"
	SectionCriteria     SectionKey = "criteria"
	SectionTiming       SectionKey = "timing"
	SectionResults      SectionKey = "results"
	SectionSites        SectionKey = "sites"
	SectionOtherSources SectionKey = "other_sources"
	SectionNotes        SectionKey = "notes"
	SectionLogs         SectionKey = "logs"
)

// SaveOrder is the fixed order in which sections are written to the record
// store. Overview comes first because dependent sections need the trial
// identifier it establishes.
var SaveOrder = []SectionKey{
	SectionOverview,
	SectionOutcome,
	SectionCriteria,
	SectionTiming,
	SectionResults,
	SectionSites,
	SectionOtherSources,
	SectionNotes,
	SectionLogs,
}

// Valid reports whether k is one of the known sections.
func (k SectionKey) Valid() bool {
	for _, s := range SaveOrder {
		if s == k {
			return true
		}
	}
	return false
}

func (k SectionKey) String() string { return string(k) }

// ParseSectionKey accepts a section key or one of its common spellings
// ("other", "othersources").
func ParseSectionKey(s string) (SectionKey, bool) {
	switch s {
	case "other", "othersources", "otherSources", "other-sources":
		return SectionOtherSources, true
	}
	k := SectionKey(s)
	return k, k.Valid()
}

// Payload is the decoded JSON wire form of one section.
type Payload = map[string]any

// TrialRecord is the canonical remote entity split into its sections. A
// section missing from Sections was not present in the remote response.
type TrialRecord struct {
	ID       string
	Sections map[SectionKey]any
}

// DraftEntry is one locally cached copy of a section's edited state.
type DraftEntry struct {
	SectionKey SectionKey    `json:"section_key"`
	TrialID    string        `json:"trial_id"`
	Payload    *SectionState `json:"payload"`
	WrittenAt  time.Time     `json:"written_at"`
}

// CommitMarker records when a save run against the record store was last
// fully attempted for a trial.
type CommitMarker struct {
	TrialID     string    `json:"trial_id"`
	CommittedAt time.Time `json:"committed_at"`
}
