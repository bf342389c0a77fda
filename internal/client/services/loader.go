package services

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/dmitrijs2005/trialdraft/internal/client/drafts"
	"github.com/dmitrijs2005/trialdraft/internal/client/models"
	"github.com/dmitrijs2005/trialdraft/internal/client/remote"
	"github.com/dmitrijs2005/trialdraft/internal/client/schema"
	"github.com/dmitrijs2005/trialdraft/internal/logging"
)

var (
	// ErrNoDataSource is returned when the record store cannot be reached
	// and no section of the trial has a draft.
	ErrNoDataSource = errors.New("no data source: record store unreachable and no local drafts")
	ErrNoIdentifier = errors.New("trial identifier required")
)

type LoadOptions struct {
	// SkipDraft loads canonical data and clears the drafts of the trial.
	// It only takes effect once the canonical copy was fetched.
	SkipDraft bool
	// KeepDrafts are exempt from SkipDraft: their drafts are kept and
	// resolved as usual.
	KeepDrafts []models.SectionKey
}

// Loader runs the load pipeline: fetch the canonical record, map every
// section, and resolve each section against its draft.
type Loader struct {
	remote   remote.Client
	drafts   *drafts.Store
	resolver *drafts.Resolver
	mapper   *schema.Mapper
	log      logging.Logger
}

func NewLoader(rc remote.Client, store *drafts.Store, mapper *schema.Mapper, log logging.Logger) *Loader {
	if log == nil {
		log = logging.Discard()
	}
	return &Loader{
		remote:   rc,
		drafts:   store,
		resolver: drafts.NewResolver(store),
		mapper:   mapper,
		log:      log,
	}
}

func (l *Loader) Load(ctx context.Context, trialID string, opts LoadOptions) (*models.LoadResult, error) {
	if trialID == "" {
		return nil, ErrNoIdentifier
	}

	var record models.TrialRecord
	canonical := true
	body, fetchErr := l.remote.FetchTrial(ctx, trialID)
	switch {
	case fetchErr == nil:
		record = schema.SplitRecord(trialID, body)
	case errors.Is(fetchErr, remote.ErrNotFound):
		l.log.Info(ctx, "trial not found in record store, using defaults", "trial_id", trialID)
	case ctx.Err() != nil:
		return nil, ctx.Err()
	default:
		canonical = false
		l.log.Warn(ctx, "record store unavailable, loading from drafts", "trial_id", trialID, "error", fetchErr)
	}

	skip := opts.SkipDraft && canonical
	res := &models.LoadResult{
		TrialID:  trialID,
		Sections: make(map[models.SectionKey]*models.SectionState, len(models.SaveOrder)),
		Sources:  make(map[models.SectionKey]models.Source, len(models.SaveOrder)),
		Offline:  !canonical,
	}

	drafted := 0
	for _, key := range models.SaveOrder {
		dec := l.resolver.Resolve(ctx, trialID, key, skip && !slices.Contains(opts.KeepDrafts, key))
		wire, present := record.Sections[key]

		switch {
		case dec.Source == models.SourceDraft:
			res.Sections[key] = l.mapper.Conform(ctx, key, dec.Draft.Payload)
			res.Sources[key] = models.SourceDraft
			drafted++
		case canonical:
			res.Sections[key] = l.mapper.FromWire(ctx, key, wire)
			res.Sources[key] = models.SourceCanonical
			if !present {
				res.Sources[key] = models.SourceDefault
			}
		case dec.Draft != nil:
			res.Sections[key] = l.mapper.Conform(ctx, key, dec.Draft.Payload)
			res.Sources[key] = models.SourceStaleDraft
			drafted++
		default:
			st := l.mapper.Default(key)
			st.Unavailable = true
			res.Sections[key] = st
			res.Sources[key] = models.SourceUnavailable
		}
	}

	if !canonical && drafted == 0 {
		return nil, fmt.Errorf("%w: %w", ErrNoDataSource, fetchErr)
	}

	res.LocalOnly = l.pendingLocalSave(ctx, trialID)
	l.log.Debug(ctx, "trial loaded", "trial_id", trialID, "offline", res.Offline, "drafted_sections", drafted)
	return res, nil
}

// pendingLocalSave reports a local-only save newer than the last commit.
func (l *Loader) pendingLocalSave(ctx context.Context, trialID string) bool {
	at, ok := l.drafts.LocalSave(ctx, trialID)
	if !ok {
		return false
	}
	marker, ok := l.drafts.Marker(ctx, trialID)
	return !ok || at.After(marker.CommittedAt)
}
