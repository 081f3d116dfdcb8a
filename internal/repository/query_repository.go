package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/rohitkatta517/azdevcache/internal/errs"
	"github.com/rohitkatta517/azdevcache/internal/model"
	"github.com/rohitkatta517/azdevcache/internal/store"
)

// QueryRepository is the persistent CRUD surface for QueryDef.
type QueryRepository struct {
	db        *store.PersistentStore
	validator Validator
}

// NewQueryRepository constructs a QueryRepository over the persistent
// store, validating definitions through v at addOrUpdate time.
func NewQueryRepository(db *store.PersistentStore, v Validator) *QueryRepository {
	return &QueryRepository{db: db, validator: v}
}

// GetAll returns all saved query definitions, optionally filtered to
// those the user has pinned to the top level.
func (r *QueryRepository) GetAll(ctx context.Context, topLevelOnly bool) ([]model.QueryDef, error) {
	query := `SELECT id, name, url, is_top_level FROM query_defs`
	if topLevelOnly {
		query += ` WHERE is_top_level = 1`
	}
	rows, err := r.db.DB().QueryContext(ctx, query)
	if err != nil {
		return nil, errs.DataStoreInaccessible("query query_defs", err)
	}
	defer rows.Close()

	var out []model.QueryDef
	for rows.Next() {
		var d model.QueryDef
		var topLevel int
		if err := rows.Scan(&d.ID, &d.Name, &d.URL, &topLevel); err != nil {
			return nil, errs.DataStoreInaccessible("scan query_defs", err)
		}
		d.IsTopLevel = topLevel != 0
		out = append(out, d)
	}
	return out, rows.Err()
}

// AddOrUpdate upserts def by its natural key (URL), validating first.
func (r *QueryRepository) AddOrUpdate(ctx context.Context, def *model.QueryDef) error {
	if _, err := validateOrWrap(ctx, r.validator, def.URL); err != nil {
		return err
	}

	_, err := r.db.DB().ExecContext(ctx, `
		INSERT INTO query_defs(name, url, is_top_level) VALUES(?, ?, ?)
		ON CONFLICT(url) DO UPDATE SET name = excluded.name, is_top_level = excluded.is_top_level
	`, def.Name, def.URL, boolToInt(def.IsTopLevel))
	if err != nil {
		return errs.DataStoreInaccessible("upsert query_def", err)
	}

	return r.db.DB().QueryRowContext(ctx, `SELECT id FROM query_defs WHERE url = ?`, def.URL).Scan(&def.ID)
}

// Remove deletes def by id, failing with NotFound if absent.
func (r *QueryRepository) Remove(ctx context.Context, def model.QueryDef) error {
	res, err := r.db.DB().ExecContext(ctx, `DELETE FROM query_defs WHERE id = ?`, def.ID)
	if err != nil {
		return errs.DataStoreInaccessible("delete query_def", err)
	}
	return checkAffected(res)
}

// IsTopLevel reports whether def is pinned to the top level.
func (r *QueryRepository) IsTopLevel(ctx context.Context, def model.QueryDef) (bool, error) {
	var topLevel int
	err := r.db.DB().QueryRowContext(ctx, `SELECT is_top_level FROM query_defs WHERE id = ?`, def.ID).Scan(&topLevel)
	if errors.Is(err, sql.ErrNoRows) {
		return false, errs.NotFound("query_def not found")
	}
	if err != nil {
		return false, errs.DataStoreInaccessible("read query_def", err)
	}
	return topLevel != 0, nil
}

// SetIsTopLevel pins or unpins def.
func (r *QueryRepository) SetIsTopLevel(ctx context.Context, def model.QueryDef, topLevel bool) error {
	res, err := r.db.DB().ExecContext(ctx, `UPDATE query_defs SET is_top_level = ? WHERE id = ?`, boolToInt(topLevel), def.ID)
	if err != nil {
		return errs.DataStoreInaccessible("update query_def", err)
	}
	return checkAffected(res)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func checkAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errs.DataStoreInaccessible("rows affected", err)
	}
	if n == 0 {
		return errs.NotFound("definition not found")
	}
	return nil
}
