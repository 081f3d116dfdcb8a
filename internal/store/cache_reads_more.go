package store

import (
	"context"

	"github.com/rohitkatta517/azdevcache/internal/model"
)

// GetOrganizationByConnection looks up an Organization by its unique
// connection key, returning (zero, false) if absent.
func (c *CacheStore) GetOrganizationByConnection(ctx context.Context, connection string) (model.Organization, bool, error) {
	var o model.Organization
	var updated, lastSync int64
	err := c.DB().QueryRowContext(ctx, `
		SELECT id, name, connection, time_updated, time_last_sync FROM organizations WHERE connection = ?
	`, connection).Scan(&o.ID, &o.Name, &o.Connection, &updated, &lastSync)
	if err != nil {
		return model.Organization{}, false, nilIfNoRows(err)
	}
	o.TimeUpdated, o.TimeLastSync = model.Ticks(updated), model.Ticks(lastSync)
	return o, true, nil
}

// GetProjectByExternalID looks up a Project by its unique external GUID.
func (c *CacheStore) GetProjectByExternalID(ctx context.Context, externalID string) (model.Project, bool, error) {
	var p model.Project
	var updated int64
	err := c.DB().QueryRowContext(ctx, `
		SELECT id, name, external_id, description, organization_id, time_updated
		FROM projects WHERE external_id = ?
	`, externalID).Scan(&p.ID, &p.Name, &p.ExternalID, &p.Description, &p.OrganizationID, &updated)
	if err != nil {
		return model.Project{}, false, nilIfNoRows(err)
	}
	p.TimeUpdated = model.Ticks(updated)
	return p, true, nil
}

// GetProjectByOrgAndName looks up a Project by (organization, name),
// the lookup PullRequestUpdater's cache-only read path uses since it
// never needs the project's remote GUID.
func (c *CacheStore) GetProjectByOrgAndName(ctx context.Context, organizationID int64, name string) (model.Project, bool, error) {
	var p model.Project
	var updated int64
	err := c.DB().QueryRowContext(ctx, `
		SELECT id, name, external_id, description, organization_id, time_updated
		FROM projects WHERE organization_id = ? AND name = ?
	`, organizationID, name).Scan(&p.ID, &p.Name, &p.ExternalID, &p.Description, &p.OrganizationID, &updated)
	if err != nil {
		return model.Project{}, false, nilIfNoRows(err)
	}
	p.TimeUpdated = model.Ticks(updated)
	return p, true, nil
}

// GetRepositoryByProjectAndName looks up a Repository by (project, name).
func (c *CacheStore) GetRepositoryByProjectAndName(ctx context.Context, projectID int64, name string) (model.Repository, bool, error) {
	var r model.Repository
	var updated int64
	err := c.DB().QueryRowContext(ctx, `
		SELECT id, name, external_id, project_id, clone_url, is_private, time_updated
		FROM repositories WHERE project_id = ? AND name = ?
	`, projectID, name).Scan(&r.ID, &r.Name, &r.ExternalID, &r.ProjectID, &r.CloneURL, &r.IsPrivate, &updated)
	if err != nil {
		return model.Repository{}, false, nilIfNoRows(err)
	}
	r.TimeUpdated = model.Ticks(updated)
	return r, true, nil
}

// GetPullRequestSearch looks up a PullRequestSearch by its natural key.
func (c *CacheStore) GetPullRequestSearch(ctx context.Context, projectID, repositoryID int64, username string, view model.PullRequestView) (model.PullRequestSearch, bool, error) {
	var s model.PullRequestSearch
	var updated int64
	var viewRaw string
	err := c.DB().QueryRowContext(ctx, `
		SELECT id, repository_id, username, project_id, view_id, time_updated
		FROM pull_request_searches WHERE project_id = ? AND repository_id = ? AND username = ? AND view_id = ?
	`, projectID, repositoryID, username, string(view)).Scan(&s.ID, &s.RepositoryID, &s.Username, &s.ProjectID, &viewRaw, &updated)
	if err != nil {
		return model.PullRequestSearch{}, false, nilIfNoRows(err)
	}
	s.ViewID, s.TimeUpdated = model.PullRequestView(viewRaw), model.Ticks(updated)
	return s, true, nil
}

// GetPullRequestsForSearch returns the pull requests currently joined to
// searchID, ordered by creation date desc then join time_updated desc.
func (c *CacheStore) GetPullRequestsForSearch(ctx context.Context, searchID int64) ([]model.PullRequest, error) {
	rows, err := c.DB().QueryContext(ctx, `
		SELECT pr.id, pr.external_id, pr.title, pr.url, pr.repository_id, pr.creator_id, pr.status,
			pr.policy_status, pr.policy_status_reason, pr.target_branch, pr.creation_date, pr.html_url
		FROM pull_request_search_pull_requests j
		JOIN pull_requests pr ON pr.id = j.pull_request_id
		WHERE j.search_id = ?
		ORDER BY pr.creation_date DESC, j.time_updated DESC
	`, searchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.PullRequest
	for rows.Next() {
		var pr model.PullRequest
		var policy int
		var creation int64
		if err := rows.Scan(&pr.ID, &pr.ExternalID, &pr.Title, &pr.URL, &pr.RepositoryID, &pr.CreatorID, &pr.Status,
			&policy, &pr.PolicyStatusReason, &pr.TargetBranch, &creation, &pr.HTMLURL); err != nil {
			return nil, err
		}
		pr.PolicyStatus = model.PolicyStatus(policy)
		pr.CreationDate = model.Ticks(creation)
		out = append(out, pr)
	}
	return out, rows.Err()
}

// GetDefinitionByExternalID looks up a Definition by its unique external id.
func (c *CacheStore) GetDefinitionByExternalID(ctx context.Context, externalID int64) (model.Definition, bool, error) {
	var d model.Definition
	var creation, updated int64
	err := c.DB().QueryRowContext(ctx, `
		SELECT id, external_id, name, project_id, creation_date, html_url, time_updated
		FROM definitions WHERE external_id = ?
	`, externalID).Scan(&d.ID, &d.ExternalID, &d.Name, &d.ProjectID, &creation, &d.HTMLURL, &updated)
	if err != nil {
		return model.Definition{}, false, nilIfNoRows(err)
	}
	d.CreationDate, d.TimeUpdated = model.Ticks(creation), model.Ticks(updated)
	return d, true, nil
}

// GetBuildsForDefinition returns builds for definitionID ordered by
// queue time descending.
func (c *CacheStore) GetBuildsForDefinition(ctx context.Context, definitionID int64) ([]model.Build, error) {
	rows, err := c.DB().QueryContext(ctx, `
		SELECT id, external_id, build_number, status, result, queue_time, start_time, finish_time,
			url, definition_id, source_branch, trigger_message, requester_id, time_updated
		FROM builds WHERE definition_id = ? ORDER BY queue_time DESC
	`, definitionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Build
	for rows.Next() {
		var b model.Build
		var queue, start, finish, updated int64
		if err := rows.Scan(&b.ID, &b.ExternalID, &b.BuildNumber, &b.Status, &b.Result, &queue, &start, &finish,
			&b.URL, &b.DefinitionID, &b.SourceBranch, &b.TriggerMessage, &b.RequesterID, &updated); err != nil {
			return nil, err
		}
		b.QueueTime, b.StartTime, b.FinishTime, b.TimeUpdated = model.Ticks(queue), model.Ticks(start), model.Ticks(finish), model.Ticks(updated)
		out = append(out, b)
	}
	return out, rows.Err()
}
