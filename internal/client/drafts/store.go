// Package drafts implements the per-(trial, section) draft cache and the
// conflict resolver that decides between a draft and the canonical copy.
//
// The store never returns errors: a failed write is logged and dropped, a
// failed or corrupt read is reported as absent. Stamps issued by one Store
// are strictly increasing, so a draft written after a commit marker in the
// same process always compares newer than it.
package drafts

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/trialdraft/internal/client/models"
	"github.com/dmitrijs2005/trialdraft/internal/client/repositories/kv"
	"github.com/dmitrijs2005/trialdraft/internal/logging"
)

func DraftKey(trialID string, key models.SectionKey) string {
	return fmt.Sprintf("draft:%s:%s", key, trialID)
}

func MarkerKey(trialID string) string {
	return "commit-marker:" + trialID
}

func LocalSaveKey(trialID string) string {
	return "local-save:" + trialID
}

type Store struct {
	repo kv.Repository
	log  logging.Logger
	now  func() time.Time

	mu   sync.Mutex
	last time.Time
}

type Option func(*Store)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func NewStore(repo kv.Repository, log logging.Logger, opts ...Option) *Store {
	if log == nil {
		log = logging.Discard()
	}
	s := &Store{repo: repo, log: log, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// stamp returns a UTC time strictly after both after and every stamp
// issued before it.
func (s *Store) stamp(after time.Time) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	floor := s.last
	if after.After(floor) {
		floor = after
	}
	t := s.now().UTC()
	if !t.After(floor) {
		t = floor.Add(time.Nanosecond)
	}
	s.last = t
	return t
}

// Write replaces the draft of (trialID, key) with payload.
func (s *Store) Write(ctx context.Context, trialID string, key models.SectionKey, payload *models.SectionState) (models.DraftEntry, bool) {
	return s.WriteAfter(ctx, trialID, key, payload, time.Time{})
}

// WriteAfter is Write with a stamp strictly later than after.
func (s *Store) WriteAfter(ctx context.Context, trialID string, key models.SectionKey, payload *models.SectionState, after time.Time) (models.DraftEntry, bool) {
	if trialID == "" || payload == nil {
		return models.DraftEntry{}, false
	}

	entry := models.DraftEntry{
		SectionKey: key,
		TrialID:    trialID,
		Payload:    payload,
		WrittenAt:  s.stamp(after),
	}
	if !s.put(ctx, DraftKey(trialID, key), entry) {
		return models.DraftEntry{}, false
	}
	return entry, true
}

// Read returns the draft of (trialID, key). ok is false when there is none
// or it cannot be read.
func (s *Store) Read(ctx context.Context, trialID string, key models.SectionKey) (models.DraftEntry, bool) {
	var entry models.DraftEntry
	if !s.get(ctx, DraftKey(trialID, key), &entry) {
		return models.DraftEntry{}, false
	}
	if entry.TrialID != trialID || entry.SectionKey != key || entry.Payload == nil {
		s.log.Warn(ctx, "draft entry does not match its key", "trial_id", trialID, "section", key)
		return models.DraftEntry{}, false
	}
	return entry, true
}

func (s *Store) Clear(ctx context.Context, trialID string, key models.SectionKey) {
	if err := s.repo.Delete(ctx, DraftKey(trialID, key)); err != nil {
		s.log.Warn(ctx, "draft clear failed", "trial_id", trialID, "section", key, "error", err)
	}
}

// ClearAll removes every section draft of trialID. The commit marker is
// kept.
func (s *Store) ClearAll(ctx context.Context, trialID string) {
	keys := make([]string, 0, len(models.SaveOrder))
	for _, k := range models.SaveOrder {
		keys = append(keys, DraftKey(trialID, k))
	}
	if err := s.repo.Delete(ctx, keys...); err != nil {
		s.log.Warn(ctx, "draft clear failed", "trial_id", trialID, "error", err)
	}
}

// Sections lists the sections of trialID that currently have a draft.
func (s *Store) Sections(ctx context.Context, trialID string) []models.SectionKey {
	var out []models.SectionKey
	for _, k := range models.SaveOrder {
		if _, ok := s.Read(ctx, trialID, k); ok {
			out = append(out, k)
		}
	}
	return out
}

func (s *Store) Marker(ctx context.Context, trialID string) (models.CommitMarker, bool) {
	var m models.CommitMarker
	if !s.get(ctx, MarkerKey(trialID), &m) {
		return models.CommitMarker{}, false
	}
	if m.TrialID != trialID {
		return models.CommitMarker{}, false
	}
	return m, true
}

// WriteMarker records that a save run against the record store was fully
// attempted now.
func (s *Store) WriteMarker(ctx context.Context, trialID string) (models.CommitMarker, bool) {
	m := models.CommitMarker{TrialID: trialID, CommittedAt: s.stamp(time.Time{})}
	if !s.put(ctx, MarkerKey(trialID), m) {
		return models.CommitMarker{}, false
	}
	return m, true
}

type localSave struct {
	TrialID string    `json:"trial_id"`
	SavedAt time.Time `json:"saved_at"`
}

// MarkLocalSave records a save that could only be kept locally.
func (s *Store) MarkLocalSave(ctx context.Context, trialID string) (time.Time, bool) {
	ls := localSave{TrialID: trialID, SavedAt: s.stamp(time.Time{})}
	if !s.put(ctx, LocalSaveKey(trialID), ls) {
		return time.Time{}, false
	}
	return ls.SavedAt, true
}

// LocalSave returns when trialID was last saved locally only.
func (s *Store) LocalSave(ctx context.Context, trialID string) (time.Time, bool) {
	var ls localSave
	if !s.get(ctx, LocalSaveKey(trialID), &ls) || ls.TrialID != trialID {
		return time.Time{}, false
	}
	return ls.SavedAt, true
}

func (s *Store) put(ctx context.Context, key string, v any) bool {
	b, err := json.Marshal(v)
	if err != nil {
		s.log.Warn(ctx, "draft encode failed", "key", key, "error", err)
		return false
	}
	if err := s.repo.Set(ctx, key, b); err != nil {
		s.log.Warn(ctx, "draft write failed", "key", key, "error", err)
		return false
	}
	return true
}

func (s *Store) get(ctx context.Context, key string, v any) bool {
	b, err := s.repo.Get(ctx, key)
	if err != nil {
		s.log.Warn(ctx, "draft read failed", "key", key, "error", err)
		return false
	}
	if b == nil {
		return false
	}
	if err := json.Unmarshal(b, v); err != nil {
		s.log.Warn(ctx, "corrupt draft entry", "key", key, "error", err)
		return false
	}
	return true
}
