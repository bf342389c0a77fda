package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/trialdraft/internal/client/drafts"
	"github.com/dmitrijs2005/trialdraft/internal/client/models"
	"github.com/dmitrijs2005/trialdraft/internal/client/remote"
	"github.com/dmitrijs2005/trialdraft/internal/client/schema"
	"github.com/dmitrijs2005/trialdraft/internal/logging"
	"golang.org/x/sync/errgroup"
)

type SaverOptions struct {
	// ProbeTimeout bounds the reachability check before a save.
	ProbeTimeout time.Duration
	// SettleDelay is waited after the last write so that the reload
	// observes it.
	SettleDelay time.Duration
	// CreateConcurrency bounds the parallel create calls of one
	// replace-mode section.
	CreateConcurrency int
}

func (o SaverOptions) withDefaults() SaverOptions {
	if o.ProbeTimeout <= 0 {
		o.ProbeTimeout = 3 * time.Second
	}
	if o.SettleDelay < 0 {
		o.SettleDelay = 0
	}
	if o.CreateConcurrency <= 0 {
		o.CreateConcurrency = 4
	}
	return o
}

// Saver writes every section of a trial to the record store, one call
// (or one delete plus creates) per section, then reloads the trial.
type Saver struct {
	remote remote.Client
	drafts *drafts.Store
	mapper *schema.Mapper
	loader *Loader
	log    logging.Logger
	opts   SaverOptions

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func NewSaver(rc remote.Client, store *drafts.Store, mapper *schema.Mapper, loader *Loader, log logging.Logger, opts SaverOptions) *Saver {
	if log == nil {
		log = logging.Discard()
	}
	return &Saver{
		remote: rc,
		drafts: store,
		mapper: mapper,
		loader: loader,
		log:    log,
		opts:   opts.withDefaults(),
		now:    time.Now,
		sleep:  sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Save persists sections. The returned LoadResult is the reload done while
// reconciling; it is nil when no reload happened.
//
// The identifier is trialID, or the overview's trial_id when trialID is
// empty. Without either nothing is written.
func (s *Saver) Save(ctx context.Context, trialID string, sections map[models.SectionKey]*models.SectionState) (models.SaveReport, *models.LoadResult) {
	report := models.SaveReport{StartedAt: s.now()}
	finish := func(outcome models.SaveOutcome, msg string) models.SaveReport {
		report.Outcome = outcome
		report.Message = msg
		report.FinishedAt = s.now()
		return report
	}

	id := trialID
	if id == "" {
		if ov := sections[models.SectionOverview]; ov != nil {
			id = strings.TrimSpace(ov.Fields["trial_id"])
		}
	}
	if id == "" {
		return finish(models.OutcomeFailed, ErrNoIdentifier.Error()), nil
	}
	report.TrialID = id

	if err := s.probe(ctx); err != nil {
		if ctx.Err() != nil {
			return finish(models.OutcomeFailed, "save cancelled"), nil
		}
		s.log.Warn(ctx, "record store unreachable, saving locally", "trial_id", id, "error", err)
		s.saveLocal(ctx, id, sections)
		return finish(models.OutcomeLocalOnly, "record store unreachable; changes are saved locally only"), nil
	}

	for _, key := range models.SaveOrder {
		r := s.saveSection(ctx, &id, key, sections[key])
		report.Sections = append(report.Sections, r)
	}
	report.TrialID = id

	failed := report.Failed()
	reloaded, err := s.reconcile(ctx, trialID, id, sections, failed)
	if err != nil {
		s.log.Error(ctx, "reconcile after save failed", "trial_id", id, "error", err)
		return finish(models.OutcomeFailed, "sections were sent but the trial could not be reloaded: "+err.Error()), reloaded
	}
	report.Reconciled = true

	switch {
	case len(failed) == 0:
		return finish(models.OutcomeCompleted, "all sections saved"), reloaded
	case failed[0] == models.SectionOverview:
		return finish(models.OutcomeFailed, "overview was not saved; "+failedMessage(failed)), reloaded
	default:
		return finish(models.OutcomePartial, failedMessage(failed)), reloaded
	}
}

func failedMessage(failed []models.SectionKey) string {
	names := make([]string, len(failed))
	for i, k := range failed {
		names[i] = string(k)
	}
	return fmt.Sprintf("%d section(s) not saved (%s); their drafts are kept", len(failed), strings.Join(names, ", "))
}

func (s *Saver) probe(ctx context.Context) error {
	pctx, cancel := context.WithTimeout(ctx, s.opts.ProbeTimeout)
	defer cancel()
	return s.remote.Ping(pctx)
}

// saveLocal drafts every section, overview included, and stamps the
// local-only save. Unavailable placeholders are not drafted.
func (s *Saver) saveLocal(ctx context.Context, id string, sections map[models.SectionKey]*models.SectionState) {
	for _, key := range models.SaveOrder {
		if st := sections[key]; st != nil && !st.Unavailable {
			s.drafts.Write(ctx, id, key, st)
		}
	}
	s.drafts.MarkLocalSave(ctx, id)
}

// saveSection writes one section. A successful overview write may replace
// *id with the identifier the record store assigned. Missing sections and
// unedited placeholders are skipped so they never overwrite stored data.
func (s *Saver) saveSection(ctx context.Context, id *string, key models.SectionKey, state *models.SectionState) models.SectionResult {
	res := models.SectionResult{Section: key}
	if state == nil || state.Unavailable {
		s.log.Info(ctx, "section not loaded, skipping", "trial_id", *id, "section", key)
		res.OK, res.Skipped = true, true
		return res
	}
	sec, _ := schema.Lookup(key)

	var err error
	if sec.Save == schema.SaveReplace {
		res.Items, res.FailedItems, err = s.replace(ctx, *id, key, state)
	} else {
		var resp map[string]any
		resp, err = s.remote.UpdateSection(ctx, *id, key, s.mapper.ToWire(ctx, key, state))
		if err == nil && key == models.SectionOverview {
			if assigned := schema.TrialIDOf(resp); assigned != "" && assigned != *id {
				s.log.Info(ctx, "record store assigned trial id", "trial_id", *id, "assigned", assigned)
				*id = assigned
			}
		}
	}

	if err != nil {
		res.Error = err.Error()
		s.log.Error(ctx, "section save failed", "trial_id", *id, "section", key, "error", err)
		return res
	}
	res.OK = true
	return res
}

// replace deletes every stored row of the section and creates one row per
// persistable sub-item. Creates run concurrently; a failed delete skips
// them.
func (s *Saver) replace(ctx context.Context, id string, key models.SectionKey, state *models.SectionState) (int, int, error) {
	rows := s.mapper.ToRows(ctx, key, id, state)
	if err := s.remote.DeleteSectionItems(ctx, id, key); err != nil {
		return len(rows), len(rows), fmt.Errorf("delete existing rows: %w", err)
	}

	var (
		mu     sync.Mutex
		errs   []error
		g      errgroup.Group
		failed int
	)
	g.SetLimit(s.opts.CreateConcurrency)
	for i, row := range rows {
		g.Go(func() error {
			if err := s.remote.CreateSectionItem(ctx, key, row); err != nil {
				mu.Lock()
				failed++
				errs = append(errs, fmt.Errorf("row %d: %w", i, err))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	if failed > 0 {
		return len(rows), failed, fmt.Errorf("%d of %d rows not created: %w", failed, len(rows), errors.Join(errs...))
	}
	return len(rows), 0, nil
}

// reconcile waits for the writes to settle, writes the commit marker,
// re-drafts failed sections after it, and reloads canonical data keeping
// those drafts.
func (s *Saver) reconcile(ctx context.Context, requestedID, id string, sections map[models.SectionKey]*models.SectionState, failed []models.SectionKey) (*models.LoadResult, error) {
	if err := s.sleep(ctx, s.opts.SettleDelay); err != nil {
		return nil, err
	}

	marker, ok := s.drafts.WriteMarker(ctx, id)
	if !ok {
		s.log.Warn(ctx, "commit marker not written", "trial_id", id)
	}
	for _, key := range failed {
		if st := sections[key]; st != nil {
			s.drafts.WriteAfter(ctx, id, key, st, marker.CommittedAt)
		}
	}
	if requestedID != "" && requestedID != id {
		s.drafts.ClearAll(ctx, requestedID)
	}

	reloaded, err := s.loader.Load(ctx, id, LoadOptions{SkipDraft: true, KeepDrafts: failed})
	if err != nil {
		return nil, err
	}
	if reloaded.Offline {
		return reloaded, errors.New("record store unreachable during reload")
	}
	return reloaded, nil
}
