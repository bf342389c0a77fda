package schema

import "github.com/dmitrijs2005/trialdraft/internal/client/models"

// Kind is the value kind of a scalar or list field.
type Kind int

const (
	KindText Kind = iota
	KindDate
	KindNumber
	KindList
	// KindDrugList is a list whose legacy encoding was a ", " join.
	KindDrugList
)

func (k Kind) IsList() bool { return k == KindList || k == KindDrugList }

// Field describes one named value.
type Field struct {
	Name string
	Kind Kind
	// ItemKey is the object key tried after "value" and "label" when a
	// list item arrives as an object.
	ItemKey string
	Aliases []string
}

// Collection describes a list of sub-items.
type Collection struct {
	Name        string
	Fields      []Field
	Attachments bool
	Aliases     []string
}

func (c Collection) Field(name string) (Field, bool) {
	for _, f := range c.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// SaveMode selects how a section is written to the record store.
type SaveMode int

const (
	// SaveUpsert sends the whole section document to one update endpoint.
	SaveUpsert SaveMode = iota
	// SaveReplace deletes every stored row of the section and recreates
	// one row per persistable sub-item.
	SaveReplace
)

// RowShape selects the row layout of SaveReplace sections.
type RowShape int

const (
	// RowFlat rows are the sub-item itself plus trial_id.
	RowFlat RowShape = iota
	// RowTyped rows are {trial_id, type, data}, type naming the collection.
	RowTyped
)

// Section describes one section of a trial record.
type Section struct {
	Key         models.SectionKey
	Aliases     []string
	Fields      []Field
	Collections []Collection
	Drafted     bool
	Save        SaveMode
	Rows        RowShape
	ChangeLog   bool
}

func (s Section) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

func (s Section) Collection(name string) (Collection, bool) {
	for _, c := range s.Collections {
		if c.Name == name {
			return c, true
		}
	}
	return Collection{}, false
}

// collectionFor resolves a row type or legacy collection name.
func (s Section) collectionFor(name string) (Collection, bool) {
	for _, c := range s.Collections {
		if c.Name == name || camel(c.Name) == name {
			return c, true
		}
		for _, a := range c.Aliases {
			if a == name {
				return c, true
			}
		}
	}
	return Collection{}, false
}

// ChangeLogKey is the wire key holding the change log of the logs section.
const ChangeLogKey = "changes"

var changeLogAliases = []string{"change_log", "trial_changes_log", "entries"}

func text(name string, aliases ...string) Field {
	return Field{Name: name, Kind: KindText, Aliases: aliases}
}

func date(name string, aliases ...string) Field {
	return Field{Name: name, Kind: KindDate, Aliases: aliases}
}

func number(name string, aliases ...string) Field {
	return Field{Name: name, Kind: KindNumber, Aliases: aliases}
}

func list(name, itemKey string, aliases ...string) Field {
	return Field{Name: name, Kind: KindList, ItemKey: itemKey, Aliases: aliases}
}

func drugs(name string, aliases ...string) Field {
	return Field{Name: name, Kind: KindDrugList, ItemKey: "drug_name", Aliases: aliases}
}

var sections = []Section{
	{
		Key:     models.SectionOverview,
		Aliases: []string{"trial_overview"},
		Fields: []Field{
			text("trial_id", "trial_identifier"),
			text("title", "trial_title"),
			text("acronym"),
			text("trial_phase", "phase"),
			text("status", "trial_status"),
			text("sponsor", "sponsor_name"),
			text("therapeutic_area"),
			text("trial_record_status"),
			list("disease_type", "name"),
			list("patient_segment", "name"),
			list("line_of_therapy", "name"),
			list("countries", "country"),
			list("region", "name"),
			list("trial_identifiers", "identifier"),
			list("reference_links", "url"),
			drugs("primary_drugs"),
			drugs("other_drugs"),
		},
		Save: SaveUpsert,
	},
	{
		Key: models.SectionOutcome,
		Fields: []Field{
			text("purpose_of_trial"),
			text("summary"),
			text("primary_outcome_measure", "primary_outcome_measures"),
			text("other_outcome_measure", "other_outcome_measures"),
			text("study_design"),
			text("treatment_regimen"),
			list("study_design_keywords", "keyword"),
			number("number_of_arms"),
		},
		Drafted: true,
		Save:    SaveUpsert,
	},
	{
		Key:     models.SectionCriteria,
		Aliases: []string{"eligibility", "eligibility_criteria"},
		Fields: []Field{
			text("inclusion_criteria"),
			text("exclusion_criteria"),
			text("sex", "gender"),
			text("subject_type"),
			text("healthy_volunteers"),
			number("age_from"),
			number("age_to"),
			number("target_no_volunteers", "target_enrollment"),
			number("actual_enrolled_volunteers", "actual_enrollment"),
			list("ecog_performance_status", "value"),
			list("prior_treatments", "treatment"),
			list("biomarker_requirements", "biomarker"),
		},
		Drafted: true,
		Save:    SaveUpsert,
	},
	{
		Key: models.SectionTiming,
		Fields: []Field{
			date("start_date_actual"),
			date("start_date_benchmark"),
			date("start_date_estimated"),
			date("enrollment_closed_actual"),
			date("enrollment_closed_estimated"),
			date("primary_outcome_date_estimated"),
			date("trial_end_date_actual"),
			date("trial_end_date_estimated"),
			number("overall_duration_complete"),
			number("overall_duration_publish"),
			text("timing_comment"),
		},
		Collections: []Collection{{
			Name:        "references",
			Fields:      []Field{date("date"), text("content"), text("view_source", "source")},
			Attachments: true,
			Aliases:     []string{"timing_references"},
		}},
		Drafted: true,
		Save:    SaveUpsert,
	},
	{
		Key: models.SectionResults,
		Fields: []Field{
			text("results_available"),
			text("endpoints_met"),
			text("adverse_events_reported", "adverse_event_reported"),
			text("trial_outcome"),
			text("trial_outcome_content"),
			text("adverse_event_type"),
			text("treatment_for_adverse_events"),
		},
		Collections: []Collection{{
			Name:        "site_notes",
			Fields:      []Field{date("date"), text("type", "note_type"), text("content"), text("view_source", "source")},
			Attachments: true,
			Aliases:     []string{"result_notes"},
		}},
		Drafted: true,
		Save:    SaveUpsert,
	},
	{
		Key: models.SectionSites,
		Fields: []Field{
			number("total_sites", "total_no_of_sites"),
		},
		Collections: []Collection{{
			Name:        "notes",
			Fields:      []Field{date("date"), text("content"), text("view_source", "source")},
			Attachments: true,
			Aliases:     []string{"site_notes"},
		}},
		Drafted: true,
		Save:    SaveUpsert,
	},
	{
		Key:     models.SectionOtherSources,
		Aliases: []string{"otherSources", "other", "other_sources_data"},
		Collections: []Collection{
			{
				Name:        "pipeline_data",
				Fields:      []Field{date("date"), text("information", "content")},
				Attachments: true,
				Aliases:     []string{"pipeline"},
			},
			{
				Name:        "press_releases",
				Fields:      []Field{date("date"), text("title"), text("url", "link")},
				Attachments: true,
				Aliases:     []string{"press_release"},
			},
			{
				Name:        "publications",
				Fields:      []Field{text("type", "publication_type"), text("title"), text("url", "link")},
				Attachments: true,
				Aliases:     []string{"publication"},
			},
			{
				Name:    "trial_registries",
				Fields:  []Field{text("registry"), text("identifier")},
				Aliases: []string{"trial_registry", "registry"},
			},
			{
				Name:    "associated_studies",
				Fields:  []Field{text("type", "study_type"), text("title")},
				Aliases: []string{"associated_study"},
			},
		},
		Drafted: true,
		Save:    SaveReplace,
		Rows:    RowTyped,
	},
	{
		Key:     models.SectionNotes,
		Aliases: []string{"trial_notes"},
		Collections: []Collection{{
			Name:        "notes",
			Fields:      []Field{date("date"), text("type", "note_type"), text("content"), text("source_link", "source")},
			Attachments: true,
		}},
		Drafted: true,
		Save:    SaveReplace,
		Rows:    RowFlat,
	},
	{
		Key:     models.SectionLogs,
		Aliases: []string{"trial_logs"},
		Fields: []Field{
			date("last_modified_date"),
			text("last_modified_user"),
			text("full_review_user"),
			date("next_review_date"),
			text("internal_note"),
		},
		Drafted:   true,
		Save:      SaveUpsert,
		ChangeLog: true,
	},
}

var registry = func() map[models.SectionKey]Section {
	m := make(map[models.SectionKey]Section, len(sections))
	for _, s := range sections {
		m[s.Key] = s
	}
	return m
}()

// Lookup returns the descriptor of key.
func Lookup(key models.SectionKey) (Section, bool) {
	s, ok := registry[key]
	return s, ok
}

// All returns every section descriptor in save order.
func All() []Section {
	out := make([]Section, 0, len(models.SaveOrder))
	for _, k := range models.SaveOrder {
		out = append(out, registry[k])
	}
	return out
}

// Drafted reports whether edits to key are written to the draft store.
func Drafted(key models.SectionKey) bool {
	return registry[key].Drafted
}
