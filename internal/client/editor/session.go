package editor

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/trialdraft/internal/client/drafts"
	"github.com/dmitrijs2005/trialdraft/internal/client/models"
	"github.com/dmitrijs2005/trialdraft/internal/client/schema"
	"github.com/dmitrijs2005/trialdraft/internal/logging"
)

// Session is the edit state of one open trial. It is safe for concurrent
// use; every method works on copies, callers never share state with it.
type Session struct {
	mapper *schema.Mapper
	drafts *drafts.Store
	rec    *Recorder
	log    logging.Logger

	mu        sync.Mutex
	trialID   string
	sections  map[models.SectionKey]*models.SectionState
	sources   map[models.SectionKey]models.Source
	loaded    bool
	offline   bool
	loading   bool
	saving    bool
	localOnly bool
	lastSave  *models.SaveReport

	loadSeq    uint64
	cancelLoad context.CancelFunc

	// editSeq counts accepted edits; edited holds the sequence number of
	// the last edit per section since it was last loaded or saved.
	editSeq uint64
	edited  map[models.SectionKey]uint64
}

func NewSession(mapper *schema.Mapper, store *drafts.Store, rec *Recorder, log logging.Logger) *Session {
	if log == nil {
		log = logging.Discard()
	}
	return &Session{
		mapper:   mapper,
		drafts:   store,
		rec:      rec,
		log:      log,
		sections: map[models.SectionKey]*models.SectionState{},
		sources:  map[models.SectionKey]models.Source{},
		edited:   map[models.SectionKey]uint64{},
	}
}

// LoadToken identifies one load. Only the token of the latest BeginLoad
// is accepted by FinishLoad.
type LoadToken struct {
	TrialID string
	seq     uint64
}

// BeginLoad starts a load of trialID, cancelling the context of any load
// still in flight. The returned context should be used for the fetch.
func (s *Session) BeginLoad(ctx context.Context, trialID string) (context.Context, LoadToken) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancelLoad != nil {
		s.cancelLoad()
	}
	lctx, cancel := context.WithCancel(ctx)
	s.loadSeq++
	s.cancelLoad = cancel
	s.loading = true
	return lctx, LoadToken{TrialID: trialID, seq: s.loadSeq}
}

// FinishLoad publishes the result of the load identified by tok. A load
// that was superseded returns ErrSuperseded and changes nothing. A failed
// load (err != nil) keeps the previous state.
func (s *Session) FinishLoad(tok LoadToken, res *models.LoadResult, err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tok.seq != s.loadSeq {
		return ErrSuperseded
	}
	s.loading = false
	if s.cancelLoad != nil {
		s.cancelLoad()
		s.cancelLoad = nil
	}
	if err != nil {
		return err
	}
	if res == nil {
		return fmt.Errorf("load of %s returned no result", tok.TrialID)
	}

	s.trialID = res.TrialID
	s.sections = make(map[models.SectionKey]*models.SectionState, len(models.SaveOrder))
	s.sources = make(map[models.SectionKey]models.Source, len(models.SaveOrder))
	for _, key := range models.SaveOrder {
		st := res.Sections[key].Clone()
		if st == nil {
			st = s.mapper.Default(key)
			s.sources[key] = models.SourceDefault
		} else {
			s.sources[key] = res.Sources[key]
		}
		s.sections[key] = st
	}
	s.loaded = true
	s.offline = res.Offline
	s.localOnly = res.LocalOnly
	s.lastSave = nil
	s.edited = map[models.SectionKey]uint64{}
	return nil
}

// Result describes an accepted mutation. ItemID is set by AddItem.
type Result struct {
	Changed bool
	ItemID  string
}

// Dispatch applies m. Accepted edits are drafted (for drafted sections)
// and appended to the change log; draft write failures are logged by the
// draft store and do not fail the edit.
func (s *Session) Dispatch(ctx context.Context, m Mutation) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		return Result{}, ErrNotLoaded
	}
	key := m.Section()
	sec, ok := schema.Lookup(key)
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownSection, key)
	}

	next := s.sections[key].Clone()
	if next == nil {
		next = s.mapper.Default(key)
	}
	e := &env{sec: sec, state: next, mapper: s.mapper, rec: s.rec}
	entries, err := m.apply(e)
	if err != nil {
		return Result{}, err
	}
	if len(entries) == 0 {
		return Result{}, nil
	}

	next.Unavailable = false
	s.sections[key] = next
	s.touch(key)
	s.appendChanges(entries)

	s.persist(ctx, key)
	if key != models.SectionLogs {
		s.persist(ctx, models.SectionLogs)
	}
	return Result{Changed: true, ItemID: e.newItem}, nil
}

func (s *Session) touch(key models.SectionKey) {
	s.editSeq++
	s.edited[key] = s.editSeq
}

func (s *Session) appendChanges(entries []models.ChangeLogEntry) {
	logs := s.sections[models.SectionLogs]
	if logs == nil {
		logs = s.mapper.Default(models.SectionLogs)
		s.sections[models.SectionLogs] = logs
	}
	logs.ChangeLog = append(logs.ChangeLog, entries...)
	s.touch(models.SectionLogs)
}

// persist drafts the current state of key. Unavailable placeholders are
// not drafted. Must be called with mu held.
func (s *Session) persist(ctx context.Context, key models.SectionKey) {
	if !schema.Drafted(key) || s.trialID == "" {
		return
	}
	if st := s.sections[key]; st == nil || st.Unavailable {
		return
	}
	s.drafts.Write(ctx, s.trialID, key, s.sections[key].Clone())
}

// SaveTicket is a snapshot of the session taken when a save starts.
type SaveTicket struct {
	TrialID  string
	Sections map[models.SectionKey]*models.SectionState
	mark     uint64
}

// BeginSave marks the session as saving and returns the state to save.
// Edits stay allowed while the save runs.
func (s *Session) BeginSave() (SaveTicket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case !s.loaded:
		return SaveTicket{}, ErrNotLoaded
	case s.saving:
		return SaveTicket{}, ErrSaveInProgress
	case s.loading:
		return SaveTicket{}, ErrLoadInProgress
	}
	s.saving = true
	return SaveTicket{TrialID: s.trialID, Sections: s.cloneSections(), mark: s.editSeq}, nil
}

// FinishSave records the outcome of the save started with t. Sections of
// reloaded replace the session state unless they were edited after t was
// taken; such edits are kept and drafted again.
func (s *Session) FinishSave(ctx context.Context, t SaveTicket, report models.SaveReport, reloaded *models.LoadResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.saving = false
	s.lastSave = &report
	s.localOnly = report.Outcome == models.OutcomeLocalOnly
	if report.TrialID != "" {
		s.trialID = report.TrialID
	}

	if reloaded != nil {
		for key, st := range reloaded.Sections {
			if s.edited[key] > t.mark || st == nil {
				continue
			}
			s.sections[key] = st.Clone()
			s.sources[key] = reloaded.Sources[key]
		}
		s.offline = reloaded.Offline
	}

	if report.Outcome == models.OutcomeCompleted || report.Outcome == models.OutcomePartial {
		for _, r := range report.Sections {
			if r.OK && s.edited[r.Section] <= t.mark {
				delete(s.edited, r.Section)
			}
		}
	}

	for key, seq := range s.edited {
		if seq > t.mark {
			s.log.Debug(ctx, "keeping edit made during save", "section", key)
			s.persist(ctx, key)
		}
	}
}

// AbortSave clears the saving flag after a save that could not run.
func (s *Session) AbortSave() {
	s.mu.Lock()
	s.saving = false
	s.mu.Unlock()
}

// Close cancels a load in flight.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelLoad != nil {
		s.cancelLoad()
		s.cancelLoad = nil
	}
}

func (s *Session) cloneSections() map[models.SectionKey]*models.SectionState {
	out := make(map[models.SectionKey]*models.SectionState, len(s.sections))
	for k, v := range s.sections {
		out[k] = v.Clone()
	}
	return out
}

// View is a read-only copy of the session.
type View struct {
	TrialID   string
	Loaded    bool
	Loading   bool
	Saving    bool
	Offline   bool
	LocalOnly bool
	Sections  map[models.SectionKey]*models.SectionState
	Sources   map[models.SectionKey]models.Source
	// Dirty lists, in save order, the sections edited since the last load
	// or successful save.
	Dirty    []models.SectionKey
	LastSave *models.SaveReport
}

func (s *Session) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{
		TrialID:   s.trialID,
		Loaded:    s.loaded,
		Loading:   s.loading,
		Saving:    s.saving,
		Offline:   s.offline,
		LocalOnly: s.localOnly,
		Sections:  s.cloneSections(),
		Sources:   make(map[models.SectionKey]models.Source, len(s.sources)),
	}
	for k, src := range s.sources {
		v.Sources[k] = src
	}
	for _, k := range models.SaveOrder {
		if _, ok := s.edited[k]; ok {
			v.Dirty = append(v.Dirty, k)
		}
	}
	if s.lastSave != nil {
		r := *s.lastSave
		v.LastSave = &r
	}
	return v
}

// Section returns a copy of one section's state.
func (s *Session) Section(key models.SectionKey) (*models.SectionState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.sections[key]
	return st.Clone(), ok
}

func (s *Session) TrialID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.trialID
}
