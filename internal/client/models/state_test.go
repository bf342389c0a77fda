package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSectionKey_ValidAndParse(t *testing.T) {
	for _, k := range SaveOrder {
		assert.True(t, k.Valid(), k)
	}
	assert.False(t, SectionKey("pricing").Valid())

	k, ok := ParseSectionKey("other")
	require.True(t, ok)
	assert.Equal(t, SectionOtherSources, k)

	k, ok = ParseSectionKey("timing")
	require.True(t, ok)
	assert.Equal(t, SectionTiming, k)

	_, ok = ParseSectionKey("nope")
	assert.False(t, ok)
}

func TestSaveOrder_OverviewFirst(t *testing.T) {
	require.Len(t, SaveOrder, 9)
	assert.Equal(t, SectionOverview, SaveOrder[0])
}

func TestSectionState_CloneIsDeep(t *testing.T) {
	s := NewSectionState()
	s.Fields["title"] = "A"
	s.Lists["countries"] = []string{"FR"}
	s.Collections["references"] = []SubItem{{
		ID:          "r1",
		Fields:      map[string]string{"content": "x"},
		Visible:     true,
		Attachments: []Attachment{{Name: "a.pdf"}},
	}}
	s.ChangeLog = []ChangeLogEntry{{ID: "c1", Timestamp: time.Unix(1, 0)}}

	c := s.Clone()
	c.Fields["title"] = "B"
	c.Lists["countries"][0] = "DE"
	c.Collections["references"][0].Fields["content"] = "y"
	c.Collections["references"][0].Attachments[0].Name = "b.pdf"
	c.ChangeLog[0].ID = "c2"

	assert.Equal(t, "A", s.Fields["title"])
	assert.Equal(t, "FR", s.Lists["countries"][0])
	assert.Equal(t, "x", s.Collections["references"][0].Fields["content"])
	assert.Equal(t, "a.pdf", s.Collections["references"][0].Attachments[0].Name)
	assert.Equal(t, "c1", s.ChangeLog[0].ID)

	var nilState *SectionState
	assert.Nil(t, nilState.Clone())
}

func TestSubItem_Persistable(t *testing.T) {
	tests := []struct {
		name string
		item SubItem
		want bool
	}{
		{"empty visible", SubItem{Visible: true, Fields: map[string]string{"content": "  "}}, false},
		{"filled visible", SubItem{Visible: true, Fields: map[string]string{"content": "x"}}, true},
		{"filled hidden", SubItem{Visible: false, Fields: map[string]string{"content": "x"}}, false},
		{"attachment only", SubItem{Visible: true, Attachments: []Attachment{{URL: "http://x/y"}}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.item.Persistable())
		})
	}
}

func TestSectionState_FindItem(t *testing.T) {
	s := NewSectionState()
	s.Collections["notes"] = []SubItem{{ID: "a"}, {ID: "b"}}
	assert.Equal(t, 1, s.FindItem("notes", "b"))
	assert.Equal(t, -1, s.FindItem("notes", "z"))
	assert.Equal(t, -1, s.FindItem("missing", "a"))
}
