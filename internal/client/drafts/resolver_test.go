package drafts

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/trialdraft/internal/client/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_Precedence(t *testing.T) {
	tests := []struct {
		name      string
		draftAt   time.Time
		markerAt  time.Time
		noMarker  bool
		noDraft   bool
		skipDraft bool
		want      models.Source
	}{
		{name: "draft newer than marker", draftAt: t0.Add(time.Second), markerAt: t0, want: models.SourceDraft},
		{name: "draft older than marker", draftAt: t0, markerAt: t0.Add(time.Second), want: models.SourceCanonical},
		{name: "draft equal to marker", draftAt: t0, markerAt: t0, want: models.SourceCanonical},
		{name: "no marker", draftAt: t0, noMarker: true, want: models.SourceDraft},
		{name: "no draft", markerAt: t0, noDraft: true, want: models.SourceCanonical},
		{name: "skip draft", draftAt: t0.Add(time.Second), markerAt: t0, skipDraft: true, want: models.SourceCanonical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			repo := newRepo(t)

			// separate stores so each keeps its own clock
			writer := NewStore(repo, nil, WithClock(fixedClock(tt.draftAt)))
			committer := NewStore(repo, nil, WithClock(fixedClock(tt.markerAt)))

			if !tt.noDraft {
				_, ok := writer.Write(ctx, "T-1", models.SectionTiming, sampleState("edit"))
				require.True(t, ok)
			}
			if !tt.noMarker {
				_, ok := committer.WriteMarker(ctx, "T-1")
				require.True(t, ok)
			}

			d := NewResolver(writer).Resolve(ctx, "T-1", models.SectionTiming, tt.skipDraft)
			assert.Equal(t, tt.want, d.Source)

			switch {
			case tt.noDraft || tt.skipDraft:
				assert.Nil(t, d.Draft)
			default:
				require.NotNil(t, d.Draft, "draft is reported even when canonical wins")
				assert.Equal(t, "edit", d.Draft.Payload.Fields["timing_comment"])
			}
		})
	}
}

func TestResolve_SkipDraftClearsEntry(t *testing.T) {
	ctx := context.Background()
	s := NewStore(newRepo(t), nil)
	r := NewResolver(s)

	s.Write(ctx, "T-1", models.SectionTiming, sampleState("edit"))
	s.Write(ctx, "T-1", models.SectionNotes, sampleState("keep"))

	r.Resolve(ctx, "T-1", models.SectionTiming, true)

	_, ok := s.Read(ctx, "T-1", models.SectionTiming)
	assert.False(t, ok)
	_, ok = s.Read(ctx, "T-1", models.SectionNotes)
	assert.True(t, ok, "other sections untouched")
}

func TestResolve_EditAfterSaveSurvivesReload(t *testing.T) {
	ctx := context.Background()
	s := NewStore(newRepo(t), nil, WithClock(fixedClock(t0)))
	r := NewResolver(s)

	s.Write(ctx, "T-1", models.SectionTiming, sampleState("before"))
	s.WriteMarker(ctx, "T-1")
	assert.Equal(t, models.SourceCanonical, r.Resolve(ctx, "T-1", models.SectionTiming, false).Source)

	// same wall clock, but issued after the marker
	s.Write(ctx, "T-1", models.SectionTiming, sampleState("after"))
	d := r.Resolve(ctx, "T-1", models.SectionTiming, false)
	assert.Equal(t, models.SourceDraft, d.Source)
	assert.Equal(t, "after", d.Draft.Payload.Fields["timing_comment"])
}
