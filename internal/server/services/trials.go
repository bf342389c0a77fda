// Package services holds the business logic of the reference record store:
// assembling trial records from stored sections and rows, and validating
// writes before they reach the repository.
package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/trialdraft/internal/common"
	"github.com/dmitrijs2005/trialdraft/internal/dbx"
	"github.com/dmitrijs2005/trialdraft/internal/server/models"
	"github.com/dmitrijs2005/trialdraft/internal/server/repositories/repomanager"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Record is one trial as returned to clients: the trial_id plus one key per
// stored section.
type Record = map[string]any

type TrialService interface {
	Get(ctx context.Context, trialID string) (Record, error)
	List(ctx context.Context) ([]Record, error)
	UpdateSection(ctx context.Context, section, trialID string, body map[string]any, actor string) (map[string]any, error)
	DeleteItems(ctx context.Context, section, trialID string) (int64, error)
	CreateItem(ctx context.Context, section string, row map[string]any, actor string) (map[string]any, error)
}

// TypedRowRequest is the create body of an other-sources row.
type TypedRowRequest struct {
	TrialID string         `json:"trial_id" validate:"required"`
	Type    string         `json:"type" validate:"required,oneof=pipeline_data press_releases publications trial_registries associated_studies"`
	Data    map[string]any `json:"data" validate:"required"`
}

// FlatRowRequest is the create body of a notes row: the row fields
// themselves next to trial_id.
type FlatRowRequest struct {
	TrialID string `json:"trial_id" validate:"required"`
}

type trialService struct {
	db          dbx.DBTX
	repomanager repomanager.RepositoryManager
	validate    *validator.Validate
}

func NewTrialService(db dbx.DBTX, rm repomanager.RepositoryManager) TrialService {
	return &trialService{
		db:          db,
		repomanager: rm,
		validate:    validator.New(),
	}
}

// snapshotTx reads a trial's sections and rows as of one point in time.
var snapshotTx = &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}

// readSnapshot runs fn in a read-only transaction when the service owns a
// *sql.DB, and on the plain handle otherwise.
func readSnapshot[T any](ctx context.Context, db dbx.DBTX, fn func(ctx context.Context, tx dbx.DBTX) (T, error)) (T, error) {
	if sqlDB, ok := db.(*sql.DB); ok {
		return dbx.WithTxValue(ctx, sqlDB, snapshotTx, fn)
	}
	return fn(ctx, db)
}

func (s *trialService) Get(ctx context.Context, trialID string) (Record, error) {
	return readSnapshot(ctx, s.db, func(ctx context.Context, tx dbx.DBTX) (Record, error) {
		return s.get(ctx, tx, trialID)
	})
}

func (s *trialService) get(ctx context.Context, db dbx.DBTX, trialID string) (Record, error) {
	repo := s.repomanager.Trials(db)

	docs, err := repo.Sections(ctx, trialID)
	if err != nil {
		return nil, err
	}
	items, err := repo.Items(ctx, trialID)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 && len(items) == 0 {
		return nil, fmt.Errorf("trial %s: %w", trialID, common.ErrNotFound)
	}

	rec := Record{"trial_id": trialID}
	for _, d := range docs {
		var body map[string]any
		if err := json.Unmarshal(d.Body, &body); err != nil {
			return nil, fmt.Errorf("section %s of %s: %w", d.Section, trialID, err)
		}
		if d.Section == models.SectionOverview {
			body["trial_id"] = trialID
		}
		rec[d.Section] = body
	}

	for _, section := range []string{models.SectionOtherSources, models.SectionNotes} {
		rec[section] = []any{}
	}
	for _, it := range items {
		row, err := rowOut(it)
		if err != nil {
			return nil, err
		}
		rows, _ := rec[it.Section].([]any)
		rec[it.Section] = append(rows, row)
	}
	return rec, nil
}

// rowOut renders a stored row the way clients read it back: typed rows as
// {id, trial_id, type, data}, flat rows as the row fields plus id.
func rowOut(it *models.ItemRow) (map[string]any, error) {
	var data map[string]any
	if err := json.Unmarshal(it.Data, &data); err != nil {
		return nil, fmt.Errorf("row %s: %w", it.ID, err)
	}
	if it.Section == models.SectionOtherSources {
		return map[string]any{"id": it.ID, "trial_id": it.TrialID, "type": it.Type, "data": data}, nil
	}
	data["id"] = it.ID
	data["trial_id"] = it.TrialID
	return data, nil
}

// List returns every trial, all read from the same snapshot.
func (s *trialService) List(ctx context.Context) ([]Record, error) {
	return readSnapshot(ctx, s.db, func(ctx context.Context, tx dbx.DBTX) ([]Record, error) {
		ids, err := s.repomanager.Trials(tx).TrialIDs(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]Record, 0, len(ids))
		for _, id := range ids {
			rec, err := s.get(ctx, tx, id)
			if err != nil {
				return nil, err
			}
			out = append(out, rec)
		}
		return out, nil
	})
}

// UpdateSection replaces the stored document of one upsert section and
// returns it. The overview reply always carries trial_id.
func (s *trialService) UpdateSection(ctx context.Context, section, trialID string, body map[string]any, actor string) (map[string]any, error) {
	if strings.TrimSpace(trialID) == "" {
		return nil, fmt.Errorf("%w: empty trial id", common.ErrValidation)
	}
	if body == nil {
		return nil, fmt.Errorf("%w: empty body", common.ErrValidation)
	}
	if section == models.SectionOverview {
		body["trial_id"] = trialID
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrValidation, err)
	}
	doc := &models.SectionDoc{TrialID: trialID, Section: section, Body: raw, UpdatedBy: actor}
	if err := s.repomanager.Trials(s.db).UpsertSection(ctx, doc); err != nil {
		return nil, err
	}
	return body, nil
}

func (s *trialService) DeleteItems(ctx context.Context, section, trialID string) (int64, error) {
	if strings.TrimSpace(trialID) == "" {
		return 0, fmt.Errorf("%w: empty trial id", common.ErrValidation)
	}
	return s.repomanager.Trials(s.db).DeleteItems(ctx, trialID, section)
}

// CreateItem stores one row. The row id comes from the row (or its data
// for typed rows); rows without one get a fresh id.
func (s *trialService) CreateItem(ctx context.Context, section string, row map[string]any, actor string) (map[string]any, error) {
	item, err := s.toItem(section, row)
	if err != nil {
		return nil, err
	}
	item.CreatedBy = actor

	if err := s.repomanager.Trials(s.db).UpsertItem(ctx, item); err != nil {
		return nil, err
	}
	return rowOut(item)
}

func (s *trialService) toItem(section string, row map[string]any) (*models.ItemRow, error) {
	trialID, _ := row["trial_id"].(string)
	var (
		item = &models.ItemRow{Section: section}
		data map[string]any
	)

	if section == models.SectionOtherSources {
		req := TypedRowRequest{TrialID: trialID}
		req.Type, _ = row["type"].(string)
		req.Data, _ = row["data"].(map[string]any)
		if err := s.validate.Struct(req); err != nil {
			return nil, fmt.Errorf("%w: %v", common.ErrValidation, err)
		}
		item.Type = req.Type
		data = req.Data
		item.ID = idOf(row, data)
	} else {
		if err := s.validate.Struct(FlatRowRequest{TrialID: trialID}); err != nil {
			return nil, fmt.Errorf("%w: %v", common.ErrValidation, err)
		}
		data = make(map[string]any, len(row))
		for k, v := range row {
			if k != "trial_id" && k != "id" {
				data[k] = v
			}
		}
		item.ID = idOf(row, nil)
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrValidation, err)
	}
	item.TrialID = trialID
	item.Data = raw
	return item, nil
}

func idOf(row, data map[string]any) string {
	for _, m := range []map[string]any{row, data} {
		if id, ok := m["id"].(string); ok && id != "" {
			return id
		}
	}
	return uuid.NewString()
}
