package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/rohitkatta517/azdevcache/internal/errs"
	"github.com/rohitkatta517/azdevcache/internal/model"
	"github.com/rohitkatta517/azdevcache/internal/store"
)

// PullRequestSearchRepository is the persistent CRUD surface for
// PullRequestSearchDef.
type PullRequestSearchRepository struct {
	db        *store.PersistentStore
	validator Validator
}

// NewPullRequestSearchRepository constructs a PullRequestSearchRepository.
func NewPullRequestSearchRepository(db *store.PersistentStore, v Validator) *PullRequestSearchRepository {
	return &PullRequestSearchRepository{db: db, validator: v}
}

// GetAll returns all saved PR search definitions, optionally top-level only.
func (r *PullRequestSearchRepository) GetAll(ctx context.Context, topLevelOnly bool) ([]model.PullRequestSearchDef, error) {
	query := `SELECT id, url, name, view, is_top_level FROM pull_request_search_defs`
	if topLevelOnly {
		query += ` WHERE is_top_level = 1`
	}
	rows, err := r.db.DB().QueryContext(ctx, query)
	if err != nil {
		return nil, errs.DataStoreInaccessible("query pull_request_search_defs", err)
	}
	defer rows.Close()

	var out []model.PullRequestSearchDef
	for rows.Next() {
		var d model.PullRequestSearchDef
		var view string
		var topLevel int
		if err := rows.Scan(&d.ID, &d.URL, &d.Name, &view, &topLevel); err != nil {
			return nil, errs.DataStoreInaccessible("scan pull_request_search_defs", err)
		}
		d.View, d.IsTopLevel = model.PullRequestView(view), topLevel != 0
		out = append(out, d)
	}
	return out, rows.Err()
}

// AddOrUpdate upserts def by its natural key (url, view), validating first.
func (r *PullRequestSearchRepository) AddOrUpdate(ctx context.Context, def *model.PullRequestSearchDef) error {
	if _, err := validateOrWrap(ctx, r.validator, def.URL); err != nil {
		return err
	}

	_, err := r.db.DB().ExecContext(ctx, `
		INSERT INTO pull_request_search_defs(url, name, view, is_top_level) VALUES(?, ?, ?, ?)
		ON CONFLICT(url, view) DO UPDATE SET name = excluded.name, is_top_level = excluded.is_top_level
	`, def.URL, def.Name, string(def.View), boolToInt(def.IsTopLevel))
	if err != nil {
		return errs.DataStoreInaccessible("upsert pull_request_search_def", err)
	}

	return r.db.DB().QueryRowContext(ctx, `
		SELECT id FROM pull_request_search_defs WHERE url = ? AND view = ?
	`, def.URL, string(def.View)).Scan(&def.ID)
}

// Remove deletes def by id, failing with NotFound if absent.
func (r *PullRequestSearchRepository) Remove(ctx context.Context, def model.PullRequestSearchDef) error {
	res, err := r.db.DB().ExecContext(ctx, `DELETE FROM pull_request_search_defs WHERE id = ?`, def.ID)
	if err != nil {
		return errs.DataStoreInaccessible("delete pull_request_search_def", err)
	}
	return checkAffected(res)
}

// IsTopLevel reports whether def is pinned to the top level.
func (r *PullRequestSearchRepository) IsTopLevel(ctx context.Context, def model.PullRequestSearchDef) (bool, error) {
	var topLevel int
	err := r.db.DB().QueryRowContext(ctx, `SELECT is_top_level FROM pull_request_search_defs WHERE id = ?`, def.ID).Scan(&topLevel)
	if errors.Is(err, sql.ErrNoRows) {
		return false, errs.NotFound("pull_request_search_def not found")
	}
	if err != nil {
		return false, errs.DataStoreInaccessible("read pull_request_search_def", err)
	}
	return topLevel != 0, nil
}

// SetIsTopLevel pins or unpins def.
func (r *PullRequestSearchRepository) SetIsTopLevel(ctx context.Context, def model.PullRequestSearchDef, topLevel bool) error {
	res, err := r.db.DB().ExecContext(ctx, `UPDATE pull_request_search_defs SET is_top_level = ? WHERE id = ?`, boolToInt(topLevel), def.ID)
	if err != nil {
		return errs.DataStoreInaccessible("update pull_request_search_def", err)
	}
	return checkAffected(res)
}
