package drafts

import (
	"context"

	"github.com/dmitrijs2005/trialdraft/internal/client/models"
)

// Decision is the outcome of Resolve: SourceDraft or SourceCanonical.
// Draft is set whenever a draft was found, including when canonical wins
// over it.
type Decision struct {
	Source models.Source
	Draft  *models.DraftEntry
}

type Resolver struct {
	store *Store
}

func NewResolver(store *Store) *Resolver {
	return &Resolver{store: store}
}

// Resolve decides between the draft and the canonical copy of one section:
//
//   - skipDraft: the draft is cleared and canonical wins;
//   - no draft: canonical;
//   - no commit marker: the draft;
//   - draft written strictly after the marker: the draft;
//   - otherwise canonical.
func (r *Resolver) Resolve(ctx context.Context, trialID string, key models.SectionKey, skipDraft bool) Decision {
	if skipDraft {
		r.store.Clear(ctx, trialID, key)
		return Decision{Source: models.SourceCanonical}
	}

	draft, ok := r.store.Read(ctx, trialID, key)
	if !ok {
		return Decision{Source: models.SourceCanonical}
	}

	marker, ok := r.store.Marker(ctx, trialID)
	if !ok || draft.WrittenAt.After(marker.CommittedAt) {
		return Decision{Source: models.SourceDraft, Draft: &draft}
	}
	return Decision{Source: models.SourceCanonical, Draft: &draft}
}
