package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/rohitkatta517/azdevcache/internal/errs"
	"github.com/rohitkatta517/azdevcache/internal/model"
	"github.com/rohitkatta517/azdevcache/internal/store"
)

// ProjectSettingsRepository is the persistent CRUD surface for
// ProjectSettings, each row implicitly defining a MyWorkItems search.
type ProjectSettingsRepository struct {
	db        *store.PersistentStore
	validator Validator
}

// NewProjectSettingsRepository constructs a ProjectSettingsRepository.
func NewProjectSettingsRepository(db *store.PersistentStore, v Validator) *ProjectSettingsRepository {
	return &ProjectSettingsRepository{db: db, validator: v}
}

// GetAll returns every pinned (org, project) pair. ProjectSettings has no
// separate top-level concept (every row is the implicit MyWorkItems
// search for its project); topLevelOnly is accepted for interface
// symmetry with the other three repositories but has no effect.
func (r *ProjectSettingsRepository) GetAll(ctx context.Context, _ bool) ([]model.ProjectSettings, error) {
	rows, err := r.db.DB().QueryContext(ctx, `SELECT id, organization_url, project_name FROM project_settings`)
	if err != nil {
		return nil, errs.DataStoreInaccessible("query project_settings", err)
	}
	defer rows.Close()

	var out []model.ProjectSettings
	for rows.Next() {
		var p model.ProjectSettings
		if err := rows.Scan(&p.ID, &p.OrganizationURL, &p.ProjectName); err != nil {
			return nil, errs.DataStoreInaccessible("scan project_settings", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// AddOrUpdate upserts def by its natural key (organizationUrl, projectName).
func (r *ProjectSettingsRepository) AddOrUpdate(ctx context.Context, def *model.ProjectSettings) error {
	if _, err := validateOrWrap(ctx, r.validator, def.OrganizationURL); err != nil {
		return err
	}

	_, err := r.db.DB().ExecContext(ctx, `
		INSERT INTO project_settings(organization_url, project_name) VALUES(?, ?)
		ON CONFLICT(organization_url, project_name) DO NOTHING
	`, def.OrganizationURL, def.ProjectName)
	if err != nil {
		return errs.DataStoreInaccessible("upsert project_settings", err)
	}

	return r.db.DB().QueryRowContext(ctx, `
		SELECT id FROM project_settings WHERE organization_url = ? AND project_name = ?
	`, def.OrganizationURL, def.ProjectName).Scan(&def.ID)
}

// Remove deletes def by id, failing with NotFound if absent.
func (r *ProjectSettingsRepository) Remove(ctx context.Context, def model.ProjectSettings) error {
	res, err := r.db.DB().ExecContext(ctx, `DELETE FROM project_settings WHERE id = ?`, def.ID)
	if err != nil {
		return errs.DataStoreInaccessible("delete project_settings", err)
	}
	return checkAffected(res)
}

// Exists reports whether a settings row exists for id, distinguishing
// NotFound from a generic store failure for callers that need that.
func (r *ProjectSettingsRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var got int64
	err := r.db.DB().QueryRowContext(ctx, `SELECT id FROM project_settings WHERE id = ?`, id).Scan(&got)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, errs.DataStoreInaccessible("read project_settings", err)
	}
	return true, nil
}
