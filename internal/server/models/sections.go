package models

// Section keys as they appear in a trial record.
const (
	SectionOverview     = "overview"
	SectionOutcome      = "outcome"
	SectionCriteria     = "criteria"
	SectionTiming       = "timing"
	SectionResults      = "results"
	SectionSites        = "sites"
	SectionLogs         = "logs"
	SectionOtherSources = "other_sources"
	SectionNotes        = "notes"
)

// UpsertSegments maps the path segment of an update endpoint to the section
// it writes.
var UpsertSegments = map[string]string{
	"overview": SectionOverview,
	"outcome":  SectionOutcome,
	"criteria": SectionCriteria,
	"timing":   SectionTiming,
	"results":  SectionResults,
	"sites":    SectionSites,
	"logs":     SectionLogs,
}

// RowSegments maps the path segment of the row endpoints to the section
// whose rows they manage.
var RowSegments = map[string]string{
	"other": SectionOtherSources,
	"notes": SectionNotes,
}

// OtherSourceTypes are the accepted types of other-sources rows.
var OtherSourceTypes = []string{
	"pipeline_data",
	"press_releases",
	"publications",
	"trial_registries",
	"associated_studies",
}
