package trials

import (
	"context"

	"github.com/dmitrijs2005/trialdraft/internal/server/models"
)

type Repository interface {
	UpsertSection(ctx context.Context, doc *models.SectionDoc) error
	Sections(ctx context.Context, trialID string) ([]*models.SectionDoc, error)
	UpsertItem(ctx context.Context, row *models.ItemRow) error
	Items(ctx context.Context, trialID string) ([]*models.ItemRow, error)
	DeleteItems(ctx context.Context, trialID, section string) (int64, error)
	TrialIDs(ctx context.Context) ([]string, error)
}
