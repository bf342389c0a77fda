// Package trials provides the PostgreSQL-backed repository of trial
// section documents and section rows.
package trials

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/trialdraft/internal/dbx"
	"github.com/dmitrijs2005/trialdraft/internal/server/models"
)

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// UpsertSection replaces the stored document of (trial, section) and
// fills doc.UpdatedAt.
func (r *PostgresRepository) UpsertSection(ctx context.Context, doc *models.SectionDoc) error {
	query := `
		INSERT INTO trial_sections (trial_id, section, body, updated_by, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (trial_id, section)
		DO UPDATE SET
			body = EXCLUDED.body,
			updated_by = EXCLUDED.updated_by,
			updated_at = EXCLUDED.updated_at
		RETURNING updated_at;
	`
	err := r.db.QueryRowContext(ctx, query, doc.TrialID, doc.Section, doc.Body, doc.UpdatedBy).Scan(&doc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Sections returns every stored section document of trialID.
func (r *PostgresRepository) Sections(ctx context.Context, trialID string) ([]*models.SectionDoc, error) {
	query := `SELECT section, body, updated_by, updated_at FROM trial_sections
		WHERE trial_id=$1 ORDER BY section`

	rows, err := r.db.QueryContext(ctx, query, trialID)
	if err != nil {
		return nil, fmt.Errorf("failed to select sections: %w", err)
	}
	defer rows.Close()

	var result []*models.SectionDoc
	for rows.Next() {
		doc := models.SectionDoc{TrialID: trialID}
		if err := rows.Scan(&doc.Section, &doc.Body, &doc.UpdatedBy, &doc.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, &doc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// UpsertItem stores one row. A row id that already exists within the
// trial's section is overwritten, so a retried create is harmless.
func (r *PostgresRepository) UpsertItem(ctx context.Context, row *models.ItemRow) error {
	query := `
		INSERT INTO trial_items (trial_id, section, id, type, data, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (trial_id, section, id)
		DO UPDATE SET
			type = EXCLUDED.type,
			data = EXCLUDED.data
		RETURNING created_at;
	`
	err := r.db.QueryRowContext(ctx, query,
		row.TrialID, row.Section, row.ID, row.Type, row.Data, row.CreatedBy).Scan(&row.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Items returns the rows of every replace section of trialID in insertion
// order.
func (r *PostgresRepository) Items(ctx context.Context, trialID string) ([]*models.ItemRow, error) {
	query := `SELECT section, id, type, data, created_by, created_at FROM trial_items
		WHERE trial_id=$1 ORDER BY section, seq`

	rows, err := r.db.QueryContext(ctx, query, trialID)
	if err != nil {
		return nil, fmt.Errorf("failed to select items: %w", err)
	}
	defer rows.Close()

	var result []*models.ItemRow
	for rows.Next() {
		item := models.ItemRow{TrialID: trialID}
		if err := rows.Scan(&item.Section, &item.ID, &item.Type, &item.Data, &item.CreatedBy, &item.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteItems removes every row of (trial, section) and reports how many
// were removed.
func (r *PostgresRepository) DeleteItems(ctx context.Context, trialID, section string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM trial_items WHERE trial_id=$1 AND section=$2`, trialID, section)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected error: %w", err)
	}
	return n, nil
}

// TrialIDs lists every trial with at least one stored section or row.
func (r *PostgresRepository) TrialIDs(ctx context.Context) ([]string, error) {
	query := `SELECT trial_id FROM trial_sections
		UNION
		SELECT trial_id FROM trial_items
		ORDER BY trial_id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select trials: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}
