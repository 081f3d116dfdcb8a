package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/rohitkatta517/azdevcache/internal/model"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx, letting every upsert
// helper below run either standalone (reads from LiveDataProvider) or
// inside an Updater's one transaction per sync.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// UpsertOrganization inserts or updates an Organization keyed by its
// unique connection string, returning the resolved row id.
func UpsertOrganization(ctx context.Context, db DBTX, name, connection string, now model.Ticks) (int64, error) {
	_, err := db.ExecContext(ctx, `
		INSERT INTO organizations(name, connection, time_updated, time_last_sync)
		VALUES(?, ?, ?, ?)
		ON CONFLICT(connection) DO UPDATE SET name = excluded.name, time_updated = excluded.time_updated
	`, name, connection, int64(now), int64(now))
	if err != nil {
		return 0, err
	}
	var id int64
	err = db.QueryRowContext(ctx, `SELECT id FROM organizations WHERE connection = ?`, connection).Scan(&id)
	return id, err
}

// UpsertProject inserts or updates a Project keyed by its external GUID.
// Open question 2: Name is always overwritten on fetch so synthesized
// URLs built from it never go stale after a remote rename.
func UpsertProject(ctx context.Context, db DBTX, p model.Project, now model.Ticks) (int64, error) {
	_, err := db.ExecContext(ctx, `
		INSERT INTO projects(name, external_id, description, organization_id, time_updated)
		VALUES(?, ?, ?, ?, ?)
		ON CONFLICT(external_id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			time_updated = excluded.time_updated
	`, p.Name, p.ExternalID, p.Description, p.OrganizationID, int64(now))
	if err != nil {
		return 0, err
	}
	var id int64
	err = db.QueryRowContext(ctx, `SELECT id FROM projects WHERE external_id = ?`, p.ExternalID).Scan(&id)
	return id, err
}

// UpsertIdentity inserts or updates an Identity keyed by its external GUID.
func UpsertIdentity(ctx context.Context, db DBTX, id model.Identity, now model.Ticks) (int64, error) {
	_, err := db.ExecContext(ctx, `
		INSERT INTO identities(name, external_id, avatar_blob, login_id, time_updated)
		VALUES(?, ?, ?, ?, ?)
		ON CONFLICT(external_id) DO UPDATE SET
			name = excluded.name,
			login_id = excluded.login_id,
			time_updated = excluded.time_updated
	`, id.Name, id.ExternalID, id.AvatarBlob, id.LoginID, int64(now))
	if err != nil {
		return 0, err
	}
	var rowID int64
	err = db.QueryRowContext(ctx, `SELECT id FROM identities WHERE external_id = ?`, id.ExternalID).Scan(&rowID)
	return rowID, err
}

// UpsertRepository inserts or updates a Repository keyed by (external id, project).
func UpsertRepository(ctx context.Context, db DBTX, r model.Repository, now model.Ticks) (int64, error) {
	_, err := db.ExecContext(ctx, `
		INSERT INTO repositories(name, external_id, project_id, clone_url, is_private, time_updated)
		VALUES(?, ?, ?, ?, ?, ?)
		ON CONFLICT(external_id, project_id) DO UPDATE SET
			name = excluded.name,
			clone_url = excluded.clone_url,
			is_private = excluded.is_private,
			time_updated = excluded.time_updated
	`, r.Name, r.ExternalID, r.ProjectID, r.CloneURL, r.IsPrivate, int64(now))
	if err != nil {
		return 0, err
	}
	var id int64
	err = db.QueryRowContext(ctx, `SELECT id FROM repositories WHERE external_id = ? AND project_id = ?`, r.ExternalID, r.ProjectID).Scan(&id)
	return id, err
}

// UpsertQuery inserts or updates a Query keyed by (external id, username).
// Used both for user-saved queries and for MyWorkItemsUpdater's
// synthesized "my-work-items:{org}|{project}" key.
func UpsertQuery(ctx context.Context, db DBTX, q model.Query, now model.Ticks) (int64, error) {
	_, err := db.ExecContext(ctx, `
		INSERT INTO queries(external_id, display_name, username, project_id, time_updated)
		VALUES(?, ?, ?, ?, ?)
		ON CONFLICT(external_id, username) DO UPDATE SET
			display_name = excluded.display_name,
			project_id = excluded.project_id,
			time_updated = excluded.time_updated
	`, q.ExternalID, q.DisplayName, q.Username, q.ProjectID, int64(now))
	if err != nil {
		return 0, err
	}
	var id int64
	err = db.QueryRowContext(ctx, `SELECT id FROM queries WHERE external_id = ? AND username = ?`, q.ExternalID, q.Username).Scan(&id)
	return id, err
}

// UpsertWorkItemType inserts or updates a WorkItemType keyed by (name, project).
func UpsertWorkItemType(ctx context.Context, db DBTX, t model.WorkItemType) (int64, error) {
	_, err := db.ExecContext(ctx, `
		INSERT INTO work_item_types(name, icon, color, description, project_id)
		VALUES(?, ?, ?, ?, ?)
		ON CONFLICT(name, project_id) DO UPDATE SET
			icon = excluded.icon,
			color = excluded.color,
			description = excluded.description
	`, t.Name, t.Icon, t.Color, t.Description, t.ProjectID)
	if err != nil {
		return 0, err
	}
	var id int64
	err = db.QueryRowContext(ctx, `SELECT id FROM work_item_types WHERE name = ? AND project_id = ?`, t.Name, t.ProjectID).Scan(&id)
	return id, err
}

// UpsertWorkItem inserts or updates a WorkItem keyed by its external id.
func UpsertWorkItem(ctx context.Context, db DBTX, w model.WorkItem) (int64, error) {
	_, err := db.ExecContext(ctx, `
		INSERT INTO work_items(external_id, title, html_url, state, reason, assigned_to_id,
			created_date, created_by_id, changed_date, changed_by_id, work_item_type_id)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(external_id) DO UPDATE SET
			title = excluded.title,
			html_url = excluded.html_url,
			state = excluded.state,
			reason = excluded.reason,
			assigned_to_id = excluded.assigned_to_id,
			changed_date = excluded.changed_date,
			changed_by_id = excluded.changed_by_id,
			work_item_type_id = excluded.work_item_type_id
	`, w.ExternalID, w.Title, w.HTMLURL, w.State, w.Reason, w.AssignedToID,
		int64(w.CreatedDate), w.CreatedByID, int64(w.ChangedDate), w.ChangedByID, w.WorkItemTypeID)
	if err != nil {
		return 0, err
	}
	var id int64
	err = db.QueryRowContext(ctx, `SELECT id FROM work_items WHERE external_id = ?`, w.ExternalID).Scan(&id)
	return id, err
}

// UpsertQueryWorkItem upserts the join row with a fresh time_updated,
// the mechanism that later lets a stale-pass TTL prune drop items that
// fell out of the remote result.
func UpsertQueryWorkItem(ctx context.Context, db DBTX, queryID, workItemID int64, now model.Ticks) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO query_work_items(query_id, work_item_id, time_updated)
		VALUES(?, ?, ?)
		ON CONFLICT(query_id, work_item_id) DO UPDATE SET time_updated = excluded.time_updated
	`, queryID, workItemID, int64(now))
	return err
}

// UpsertPullRequestSearch inserts or updates a PullRequestSearch keyed
// by (project, repository, username, view).
func UpsertPullRequestSearch(ctx context.Context, db DBTX, s model.PullRequestSearch, now model.Ticks) (int64, error) {
	_, err := db.ExecContext(ctx, `
		INSERT INTO pull_request_searches(repository_id, username, project_id, view_id, time_updated)
		VALUES(?, ?, ?, ?, ?)
		ON CONFLICT(project_id, repository_id, username, view_id) DO UPDATE SET time_updated = excluded.time_updated
	`, s.RepositoryID, s.Username, s.ProjectID, string(s.ViewID), int64(now))
	if err != nil {
		return 0, err
	}
	var id int64
	err = db.QueryRowContext(ctx, `
		SELECT id FROM pull_request_searches WHERE project_id = ? AND repository_id = ? AND username = ? AND view_id = ?
	`, s.ProjectID, s.RepositoryID, s.Username, string(s.ViewID)).Scan(&id)
	return id, err
}

// UpsertPullRequest inserts or updates a PullRequest keyed by external id.
func UpsertPullRequest(ctx context.Context, db DBTX, pr model.PullRequest) (int64, error) {
	_, err := db.ExecContext(ctx, `
		INSERT INTO pull_requests(external_id, title, url, repository_id, creator_id, status,
			policy_status, policy_status_reason, target_branch, creation_date, html_url)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(external_id) DO UPDATE SET
			title = excluded.title,
			status = excluded.status,
			policy_status = excluded.policy_status,
			policy_status_reason = excluded.policy_status_reason,
			html_url = excluded.html_url
	`, pr.ExternalID, pr.Title, pr.URL, pr.RepositoryID, pr.CreatorID, pr.Status,
		int(pr.PolicyStatus), pr.PolicyStatusReason, pr.TargetBranch, int64(pr.CreationDate), pr.HTMLURL)
	if err != nil {
		return 0, err
	}
	var id int64
	err = db.QueryRowContext(ctx, `SELECT id FROM pull_requests WHERE external_id = ?`, pr.ExternalID).Scan(&id)
	return id, err
}

// UpsertPullRequestSearchPullRequest upserts the join row with a fresh
// time_updated.
func UpsertPullRequestSearchPullRequest(ctx context.Context, db DBTX, searchID, prID int64, now model.Ticks) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO pull_request_search_pull_requests(search_id, pull_request_id, time_updated)
		VALUES(?, ?, ?)
		ON CONFLICT(search_id, pull_request_id) DO UPDATE SET time_updated = excluded.time_updated
	`, searchID, prID, int64(now))
	return err
}

// UpsertDefinitionIfStale inserts a Definition, or updates it only if at
// least threshold has elapsed since its last update. Returns whether a write happened.
func UpsertDefinitionIfStale(ctx context.Context, db DBTX, d model.Definition, now model.Ticks, threshold time.Duration) (wrote bool, id int64, err error) {
	var existingUpdated sql.NullInt64
	err = db.QueryRowContext(ctx, `SELECT time_updated FROM definitions WHERE external_id = ?`, d.ExternalID).Scan(&existingUpdated)
	switch {
	case err == sql.ErrNoRows:
		_, err = db.ExecContext(ctx, `
			INSERT INTO definitions(external_id, name, project_id, creation_date, html_url, time_updated)
			VALUES(?, ?, ?, ?, ?, ?)
		`, d.ExternalID, d.Name, d.ProjectID, int64(d.CreationDate), d.HTMLURL, int64(now))
		wrote = true
	case err != nil:
		return false, 0, err
	default:
		age := now.Sub(model.Ticks(existingUpdated.Int64))
		if age >= threshold {
			_, err = db.ExecContext(ctx, `
				UPDATE definitions SET name = ?, html_url = ?, time_updated = ? WHERE external_id = ?
			`, d.Name, d.HTMLURL, int64(now), d.ExternalID)
			wrote = true
		}
	}
	if err != nil {
		return false, 0, err
	}
	err = db.QueryRowContext(ctx, `SELECT id FROM definitions WHERE external_id = ?`, d.ExternalID).Scan(&id)
	return wrote, id, err
}

// UpsertBuild inserts or updates a Build keyed by external id; builds
// carry no rate-limit throttle.
func UpsertBuild(ctx context.Context, db DBTX, b model.Build, now model.Ticks) (int64, error) {
	_, err := db.ExecContext(ctx, `
		INSERT INTO builds(external_id, build_number, status, result, queue_time, start_time, finish_time,
			url, definition_id, source_branch, trigger_message, requester_id, time_updated)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(external_id) DO UPDATE SET
			status = excluded.status,
			result = excluded.result,
			start_time = excluded.start_time,
			finish_time = excluded.finish_time,
			time_updated = excluded.time_updated
	`, b.ExternalID, b.BuildNumber, b.Status, b.Result, int64(b.QueueTime), int64(b.StartTime), int64(b.FinishTime),
		b.URL, b.DefinitionID, b.SourceBranch, b.TriggerMessage, b.RequesterID, int64(now))
	if err != nil {
		return 0, err
	}
	var id int64
	err = db.QueryRowContext(ctx, `SELECT id FROM builds WHERE external_id = ?`, b.ExternalID).Scan(&id)
	return id, err
}
