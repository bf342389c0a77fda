package drafts

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/trialdraft/internal/client/models"
	"github.com/dmitrijs2005/trialdraft/internal/client/repositories/kv"
	"github.com/dmitrijs2005/trialdraft/internal/client/storage"
	"github.com/dmitrijs2005/trialdraft/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func newRepo(t *testing.T) kv.Repository {
	t.Helper()
	st, err := storage.Open(context.Background(), storage.Options{DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st.Repo
}

func sampleState(v string) *models.SectionState {
	s := models.NewSectionState()
	s.Fields["timing_comment"] = v
	s.Lists["countries"] = []string{}
	s.Collections["references"] = []models.SubItem{{ID: "r1", Visible: false, Fields: map[string]string{"content": v}}}
	return s
}

func TestStore_WriteRead(t *testing.T) {
	ctx := context.Background()
	s := NewStore(newRepo(t), logging.Discard(), WithClock(fixedClock(t0)))

	written, ok := s.Write(ctx, "T-1", models.SectionTiming, sampleState("hello"))
	require.True(t, ok)
	assert.Equal(t, t0, written.WrittenAt)

	got, ok := s.Read(ctx, "T-1", models.SectionTiming)
	require.True(t, ok)
	assert.Equal(t, models.SectionTiming, got.SectionKey)
	assert.Equal(t, "T-1", got.TrialID)
	assert.True(t, got.WrittenAt.Equal(t0))
	assert.Equal(t, sampleState("hello"), got.Payload)

	_, ok = s.Read(ctx, "T-2", models.SectionTiming)
	assert.False(t, ok)
}

func TestStore_StampsStrictlyIncrease(t *testing.T) {
	ctx := context.Background()
	s := NewStore(newRepo(t), nil, WithClock(fixedClock(t0)))

	a, _ := s.Write(ctx, "T-1", models.SectionTiming, sampleState("a"))
	b, _ := s.Write(ctx, "T-1", models.SectionTiming, sampleState("b"))
	m, _ := s.WriteMarker(ctx, "T-1")
	c, _ := s.WriteAfter(ctx, "T-1", models.SectionNotes, sampleState("c"), m.CommittedAt.Add(time.Hour))

	assert.True(t, b.WrittenAt.After(a.WrittenAt))
	assert.True(t, m.CommittedAt.After(b.WrittenAt))
	assert.True(t, c.WrittenAt.After(m.CommittedAt.Add(time.Hour)))

	got, ok := s.Read(ctx, "T-1", models.SectionTiming)
	require.True(t, ok)
	assert.Equal(t, "b", got.Payload.Fields["timing_comment"])
}

func TestStore_ClearAndClearAll(t *testing.T) {
	ctx := context.Background()
	s := NewStore(newRepo(t), nil)

	for _, k := range []models.SectionKey{models.SectionTiming, models.SectionNotes, models.SectionLogs} {
		s.Write(ctx, "T-1", k, sampleState(string(k)))
	}
	s.Write(ctx, "T-2", models.SectionTiming, sampleState("other trial"))
	s.WriteMarker(ctx, "T-1")

	s.Clear(ctx, "T-1", models.SectionNotes)
	assert.Equal(t, []models.SectionKey{models.SectionTiming, models.SectionLogs}, s.Sections(ctx, "T-1"))

	s.ClearAll(ctx, "T-1")
	assert.Empty(t, s.Sections(ctx, "T-1"))
	assert.Equal(t, []models.SectionKey{models.SectionTiming}, s.Sections(ctx, "T-2"))

	_, ok := s.Marker(ctx, "T-1")
	assert.True(t, ok, "marker survives ClearAll")
}

func TestStore_MarkerAndLocalSave(t *testing.T) {
	ctx := context.Background()
	s := NewStore(newRepo(t), nil, WithClock(fixedClock(t0)))

	_, ok := s.Marker(ctx, "T-1")
	assert.False(t, ok)
	_, ok = s.LocalSave(ctx, "T-1")
	assert.False(t, ok)

	m, ok := s.WriteMarker(ctx, "T-1")
	require.True(t, ok)
	got, ok := s.Marker(ctx, "T-1")
	require.True(t, ok)
	assert.True(t, got.CommittedAt.Equal(m.CommittedAt))

	at, ok := s.MarkLocalSave(ctx, "T-1")
	require.True(t, ok)
	saved, ok := s.LocalSave(ctx, "T-1")
	require.True(t, ok)
	assert.True(t, saved.Equal(at))
}

func TestStore_CorruptAndMismatchedEntriesReadAsAbsent(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	s := NewStore(repo, nil)

	require.NoError(t, repo.Set(ctx, DraftKey("T-1", models.SectionTiming), []byte("{not json")))
	_, ok := s.Read(ctx, "T-1", models.SectionTiming)
	assert.False(t, ok)

	require.NoError(t, repo.Set(ctx, DraftKey("T-1", models.SectionNotes), []byte(`{"section_key":"notes","trial_id":"T-9","payload":{}}`)))
	_, ok = s.Read(ctx, "T-1", models.SectionNotes)
	assert.False(t, ok)

	require.NoError(t, repo.Set(ctx, DraftKey("T-1", models.SectionSites), []byte(`{"section_key":"sites","trial_id":"T-1"}`)))
	_, ok = s.Read(ctx, "T-1", models.SectionSites)
	assert.False(t, ok, "entry without payload")

	require.NoError(t, repo.Set(ctx, MarkerKey("T-1"), []byte(`[]`)))
	_, ok = s.Marker(ctx, "T-1")
	assert.False(t, ok)
}

func TestStore_RejectsEmptyInput(t *testing.T) {
	ctx := context.Background()
	s := NewStore(newRepo(t), nil)

	_, ok := s.Write(ctx, "", models.SectionTiming, sampleState("x"))
	assert.False(t, ok)
	_, ok = s.Write(ctx, "T-1", models.SectionTiming, nil)
	assert.False(t, ok)
}

// brokenRepo fails every call.
type brokenRepo struct {
	kv.Repository
}

var errStorage = errors.New("quota exceeded")

func (brokenRepo) Get(context.Context, string) ([]byte, error)            { return nil, errStorage }
func (brokenRepo) Set(context.Context, string, []byte) error               { return errStorage }
func (brokenRepo) Delete(context.Context, ...string) error                 { return errStorage }
func (brokenRepo) List(context.Context, string) (map[string][]byte, error) { return nil, errStorage }

func TestStore_FailuresAreSwallowed(t *testing.T) {
	ctx := context.Background()
	var logs bytes.Buffer
	s := NewStore(brokenRepo{}, logging.New(&logs, "text", "warn"))

	assert.NotPanics(t, func() {
		_, ok := s.Write(ctx, "T-1", models.SectionTiming, sampleState("x"))
		assert.False(t, ok)
		_, ok = s.Read(ctx, "T-1", models.SectionTiming)
		assert.False(t, ok)
		s.Clear(ctx, "T-1", models.SectionTiming)
		s.ClearAll(ctx, "T-1")
		_, ok = s.Marker(ctx, "T-1")
		assert.False(t, ok)
		_, ok = s.WriteMarker(ctx, "T-1")
		assert.False(t, ok)
	})
	assert.Contains(t, logs.String(), "draft write failed")
	assert.Contains(t, logs.String(), "quota exceeded")
}
