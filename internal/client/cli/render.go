package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/dmitrijs2005/trialdraft/internal/client/editor"
	"github.com/dmitrijs2005/trialdraft/internal/client/models"
	"github.com/dmitrijs2005/trialdraft/internal/client/schema"
)

func renderSummary(w io.Writer, v editor.View) {
	dirty := make(map[models.SectionKey]bool, len(v.Dirty))
	for _, k := range v.Dirty {
		dirty[k] = true
	}
	fmt.Fprintf(w, "Trial %s\n", v.TrialID)
	for _, k := range models.SaveOrder {
		mark := " "
		if dirty[k] {
			mark = "*"
		}
		fmt.Fprintf(w, " %s %-14s %s\n", mark, k, v.Sources[k])
	}
}

// renderSection prints fields in schema order, then lists, then
// collections with their rows.
func renderSection(w io.Writer, key models.SectionKey, src models.Source, st *models.SectionState) {
	fmt.Fprintf(w, "[%s] %s\n", key, src)
	if st == nil {
		return
	}
	sec, _ := schema.Lookup(key)

	for _, f := range sec.Fields {
		if f.Kind.IsList() {
			fmt.Fprintf(w, "  %s: %s\n", f.Name, strings.Join(st.Lists[f.Name], " | "))
			continue
		}
		fmt.Fprintf(w, "  %s: %s\n", f.Name, st.Fields[f.Name])
	}

	for _, c := range sec.Collections {
		items := st.Collections[c.Name]
		fmt.Fprintf(w, "  %s (%d):\n", c.Name, len(items))
		for _, it := range items {
			renderItem(w, c, it)
		}
	}

	if sec.ChangeLog {
		fmt.Fprintf(w, "  %s: %d entries\n", schema.ChangeLogKey, len(st.ChangeLog))
	}
}

func renderItem(w io.Writer, c schema.Collection, it models.SubItem) {
	var parts []string
	for _, f := range c.Fields {
		if v := it.Fields[f.Name]; v != "" {
			parts = append(parts, f.Name+"="+v)
		}
	}
	// fields unknown to the schema still show up, after the known ones
	var extra []string
	for k, v := range it.Fields {
		if _, known := c.Field(k); !known && v != "" {
			extra = append(extra, k+"="+v)
		}
	}
	sort.Strings(extra)
	parts = append(parts, extra...)

	flag := ""
	if !it.Visible {
		flag = " (hidden)"
	}
	if len(parts) == 0 {
		parts = []string{"(empty)"}
	}
	fmt.Fprintf(w, "    [%s]%s %s\n", it.ID, flag, strings.Join(parts, " "))
	for _, a := range it.Attachments {
		fmt.Fprintf(w, "      file: %s %s\n", a.Name, a.URL)
	}
}

func renderChange(w io.Writer, e models.ChangeLogEntry) {
	fmt.Fprintf(w, "%s %s %s %s.%s: %q -> %q\n",
		e.Timestamp.Local().Format("2006-01-02 15:04:05"),
		e.Actor, e.Action, e.SectionKey, e.Field, e.OldValue, e.NewValue)
}

func renderReport(w io.Writer, r models.SaveReport) {
	switch r.Outcome {
	case models.OutcomeCompleted:
		fmt.Fprintf(w, "Saved %s.\n", r.TrialID)
	case models.OutcomePartial:
		fmt.Fprintf(w, "Saved %s with errors; failed sections keep their drafts.\n", r.TrialID)
	case models.OutcomeLocalOnly:
		fmt.Fprintf(w, "Record store unreachable: saved locally. Run save again once online.\n")
	default:
		fmt.Fprintf(w, "Save failed.\n")
	}
	if r.Message != "" {
		fmt.Fprintf(w, "  %s\n", r.Message)
	}
	for _, s := range r.Sections {
		if s.Skipped {
			fmt.Fprintf(w, "  %-14s not loaded, left unchanged\n", s.Section)
			continue
		}
		if s.OK {
			continue
		}
		fmt.Fprintf(w, "  %-14s %s", s.Section, s.Error)
		if s.FailedItems > 0 {
			fmt.Fprintf(w, " (%d of %d rows failed)", s.FailedItems, s.Items)
		}
		fmt.Fprintln(w)
	}
}
