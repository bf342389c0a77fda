package models

import "time"

// Source names where a loaded section came from.
type Source string

const (
	SourceDraft     Source = "draft"
	SourceCanonical Source = "canonical"
	// SourceStaleDraft is a draft older than the commit marker, used
	// because the canonical copy could not be fetched.
	SourceStaleDraft Source = "stale_draft"
	SourceDefault    Source = "default"
	// SourceUnavailable is a blank placeholder for a section that had no
	// draft while the record store was unreachable. It is never saved
	// unless edited.
	SourceUnavailable Source = "unavailable"
)

// LoadResult is one run of the load pipeline.
type LoadResult struct {
	TrialID  string
	Sections map[SectionKey]*SectionState
	Sources  map[SectionKey]Source
	// Offline is set when the record store could not be reached and the
	// result was built from drafts and defaults.
	Offline bool
	// LocalOnly is set when the drafts hold a local-only save that has not
	// reached the record store yet.
	LocalOnly bool
}

type SaveOutcome string

const (
	// OutcomeCompleted: every section saved and the session reconciled.
	OutcomeCompleted SaveOutcome = "completed"
	// OutcomePartial: overview saved, some other section failed.
	OutcomePartial SaveOutcome = "partial"
	// OutcomeFailed: overview failed, or reconciling did not finish.
	OutcomeFailed SaveOutcome = "failed"
	// OutcomeLocalOnly: the record store was unreachable; every section
	// is kept in the draft store.
	OutcomeLocalOnly SaveOutcome = "local_only"
)

// SectionResult is the save outcome of one section. Items and FailedItems
// count create calls of replace-mode sections. Skipped sections were not
// written and count as OK.
type SectionResult struct {
	Section     SectionKey `json:"section"`
	OK          bool       `json:"ok"`
	Skipped     bool       `json:"skipped,omitempty"`
	Error       string     `json:"error,omitempty"`
	Items       int        `json:"items,omitempty"`
	FailedItems int        `json:"failed_items,omitempty"`
}

type SaveReport struct {
	Outcome    SaveOutcome     `json:"outcome"`
	TrialID    string          `json:"trial_id"`
	Sections   []SectionResult `json:"sections,omitempty"`
	Reconciled bool            `json:"reconciled"`
	Message    string          `json:"message,omitempty"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
}

// Success reports whether the user should see the save as successful.
func (r SaveReport) Success() bool {
	return r.Outcome != OutcomeFailed
}

// Failed lists the sections whose save failed.
func (r SaveReport) Failed() []SectionKey {
	var out []SectionKey
	for _, s := range r.Sections {
		if !s.OK {
			out = append(out, s.Section)
		}
	}
	return out
}
