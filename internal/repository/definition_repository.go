package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/rohitkatta517/azdevcache/internal/errs"
	"github.com/rohitkatta517/azdevcache/internal/model"
	"github.com/rohitkatta517/azdevcache/internal/store"
)

// DefinitionSearchRepository is the persistent CRUD surface for
// DefinitionSearchDef (pipeline searches).
type DefinitionSearchRepository struct {
	db        *store.PersistentStore
	validator Validator
}

// NewDefinitionSearchRepository constructs a DefinitionSearchRepository.
func NewDefinitionSearchRepository(db *store.PersistentStore, v Validator) *DefinitionSearchRepository {
	return &DefinitionSearchRepository{db: db, validator: v}
}

// GetAll returns all saved pipeline search definitions, optionally top-level only.
func (r *DefinitionSearchRepository) GetAll(ctx context.Context, topLevelOnly bool) ([]model.DefinitionSearchDef, error) {
	query := `SELECT id, name, external_id, url, is_top_level FROM definition_search_defs`
	if topLevelOnly {
		query += ` WHERE is_top_level = 1`
	}
	rows, err := r.db.DB().QueryContext(ctx, query)
	if err != nil {
		return nil, errs.DataStoreInaccessible("query definition_search_defs", err)
	}
	defer rows.Close()

	var out []model.DefinitionSearchDef
	for rows.Next() {
		var d model.DefinitionSearchDef
		var topLevel int
		if err := rows.Scan(&d.ID, &d.Name, &d.ExternalID, &d.URL, &topLevel); err != nil {
			return nil, errs.DataStoreInaccessible("scan definition_search_defs", err)
		}
		d.IsTopLevel = topLevel != 0
		out = append(out, d)
	}
	return out, rows.Err()
}

// AddOrUpdate upserts def by its natural key (url, externalId), validating first.
func (r *DefinitionSearchRepository) AddOrUpdate(ctx context.Context, def *model.DefinitionSearchDef) error {
	if _, err := validateOrWrap(ctx, r.validator, def.URL); err != nil {
		return err
	}

	_, err := r.db.DB().ExecContext(ctx, `
		INSERT INTO definition_search_defs(name, external_id, url, is_top_level) VALUES(?, ?, ?, ?)
		ON CONFLICT(url, external_id) DO UPDATE SET name = excluded.name, is_top_level = excluded.is_top_level
	`, def.Name, def.ExternalID, def.URL, boolToInt(def.IsTopLevel))
	if err != nil {
		return errs.DataStoreInaccessible("upsert definition_search_def", err)
	}

	return r.db.DB().QueryRowContext(ctx, `
		SELECT id FROM definition_search_defs WHERE url = ? AND external_id = ?
	`, def.URL, def.ExternalID).Scan(&def.ID)
}

// Remove deletes def by id, failing with NotFound if absent.
func (r *DefinitionSearchRepository) Remove(ctx context.Context, def model.DefinitionSearchDef) error {
	res, err := r.db.DB().ExecContext(ctx, `DELETE FROM definition_search_defs WHERE id = ?`, def.ID)
	if err != nil {
		return errs.DataStoreInaccessible("delete definition_search_def", err)
	}
	return checkAffected(res)
}

// IsTopLevel reports whether def is pinned to the top level.
func (r *DefinitionSearchRepository) IsTopLevel(ctx context.Context, def model.DefinitionSearchDef) (bool, error) {
	var topLevel int
	err := r.db.DB().QueryRowContext(ctx, `SELECT is_top_level FROM definition_search_defs WHERE id = ?`, def.ID).Scan(&topLevel)
	if errors.Is(err, sql.ErrNoRows) {
		return false, errs.NotFound("definition_search_def not found")
	}
	if err != nil {
		return false, errs.DataStoreInaccessible("read definition_search_def", err)
	}
	return topLevel != 0, nil
}

// SetIsTopLevel pins or unpins def.
func (r *DefinitionSearchRepository) SetIsTopLevel(ctx context.Context, def model.DefinitionSearchDef, topLevel bool) error {
	res, err := r.db.DB().ExecContext(ctx, `UPDATE definition_search_defs SET is_top_level = ? WHERE id = ?`, boolToInt(topLevel), def.ID)
	if err != nil {
		return errs.DataStoreInaccessible("update definition_search_def", err)
	}
	return checkAffected(res)
}
