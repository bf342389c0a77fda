package models

import "strings"

// SectionState is the normalized, in-memory shape of one section: scalar
// fields (text, dates and numeric text), ordered lists of scalars, and
// ordered collections of sub-items. Only the logs section uses ChangeLog.
type SectionState struct {
	Fields      map[string]string    `json:"fields"`
	Lists       map[string][]string  `json:"lists"`
	Collections map[string][]SubItem `json:"collections"`
	ChangeLog   []ChangeLogEntry     `json:"change_log,omitempty"`
	// Unavailable marks a placeholder that does not reflect stored data.
	// Cleared by the first edit.
	Unavailable bool `json:"-"`
}

func NewSectionState() *SectionState {
	return &SectionState{
		Fields:      map[string]string{},
		Lists:       map[string][]string{},
		Collections: map[string][]SubItem{},
	}
}

// Clone returns a deep copy of s. A nil receiver yields nil.
func (s *SectionState) Clone() *SectionState {
	if s == nil {
		return nil
	}
	out := NewSectionState()
	out.Unavailable = s.Unavailable
	for k, v := range s.Fields {
		out.Fields[k] = v
	}
	for k, v := range s.Lists {
		cp := make([]string, len(v))
		copy(cp, v)
		out.Lists[k] = cp
	}
	for k, items := range s.Collections {
		cp := make([]SubItem, len(items))
		for i, it := range items {
			cp[i] = it.Clone()
		}
		out.Collections[k] = cp
	}
	if len(s.ChangeLog) > 0 {
		out.ChangeLog = append([]ChangeLogEntry(nil), s.ChangeLog...)
	}
	return out
}

// FindItem returns the index of the sub-item with id in collection, or -1.
func (s *SectionState) FindItem(collection, id string) int {
	for i, it := range s.Collections[collection] {
		if it.ID == id {
			return i
		}
	}
	return -1
}

// SubItem is one row of a section collection.
type SubItem struct {
	ID          string            `json:"id"`
	Fields      map[string]string `json:"fields"`
	Visible     bool              `json:"isVisible"`
	Attachments []Attachment      `json:"attachments,omitempty"`
}

func (i SubItem) Clone() SubItem {
	out := SubItem{ID: i.ID, Visible: i.Visible, Fields: make(map[string]string, len(i.Fields))}
	for k, v := range i.Fields {
		out.Fields[k] = v
	}
	if len(i.Attachments) > 0 {
		out.Attachments = append([]Attachment(nil), i.Attachments...)
	}
	return out
}

// HasContent reports whether any field is non-blank or any attachment is
// present.
func (i SubItem) HasContent() bool {
	for _, v := range i.Fields {
		if strings.TrimSpace(v) != "" {
			return true
		}
	}
	return len(i.Attachments) > 0
}

// Persistable reports whether the row should be sent to the record store.
func (i SubItem) Persistable() bool {
	return i.Visible && i.HasContent()
}

// Attachment is the canonical shape of a file reference on a sub-item.
type Attachment struct {
	Name string `json:"name" validate:"required_without=URL"`
	URL  string `json:"url" validate:"omitempty,uri"`
	Type string `json:"type"`
}
