package store

import (
	"context"
	"database/sql"
	"errors"
	"sort"

	"github.com/rohitkatta517/azdevcache/internal/model"
)

// GetQueryByExternalID looks up a Query by its (external id, username)
// natural key, returning (zero, false) if absent.
func (c *CacheStore) GetQueryByExternalID(ctx context.Context, externalID, username string) (model.Query, bool, error) {
	var q model.Query
	var timeUpdated int64
	err := c.DB().QueryRowContext(ctx, `
		SELECT id, external_id, display_name, username, project_id, time_updated
		FROM queries WHERE external_id = ? AND username = ?
	`, externalID, username).Scan(&q.ID, &q.ExternalID, &q.DisplayName, &q.Username, &q.ProjectID, &timeUpdated)
	if err != nil {
		return model.Query{}, false, nilIfNoRows(err)
	}
	q.TimeUpdated = model.Ticks(timeUpdated)
	return q, true, nil
}

// GetWorkItemsForQuery returns the work items currently joined to
// queryID, ordered by work-item-type priority ascending, then changed
// date descending.

func (c *CacheStore) GetWorkItemsForQuery(ctx context.Context, queryID int64) ([]model.WorkItem, error) {
	rows, err := c.DB().QueryContext(ctx, `
		SELECT wi.id, wi.external_id, wi.title, wi.html_url, wi.state, wi.reason,
			wi.assigned_to_id, wi.created_date, wi.created_by_id, wi.changed_date, wi.changed_by_id,
			wi.work_item_type_id, COALESCE(t.name, '')
		FROM query_work_items qwi
		JOIN work_items wi ON wi.id = qwi.work_item_id
		LEFT JOIN work_item_types t ON t.id = wi.work_item_type_id
		WHERE qwi.query_id = ?
	`, queryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type row struct {
		wi       model.WorkItem
		typeName string
	}
	var loaded []row
	for rows.Next() {
		var r row
		var created, changed int64
		if err := rows.Scan(&r.wi.ID, &r.wi.ExternalID, &r.wi.Title, &r.wi.HTMLURL, &r.wi.State, &r.wi.Reason,
			&r.wi.AssignedToID, &created, &r.wi.CreatedByID, &changed, &r.wi.ChangedByID,
			&r.wi.WorkItemTypeID, &r.typeName); err != nil {
			return nil, err
		}
		r.wi.CreatedDate = model.Ticks(created)
		r.wi.ChangedDate = model.Ticks(changed)
		loaded = append(loaded, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Tie-break ordering: type priority ascending, then changed date
	// descending.
	sort.SliceStable(loaded, func(i, j int) bool {
		pi, pj := model.TypePriority(loaded[i].typeName), model.TypePriority(loaded[j].typeName)
		if pi != pj {
			return pi < pj
		}
		return loaded[i].wi.ChangedDate > loaded[j].wi.ChangedDate
	})

	items := make([]model.WorkItem, len(loaded))
	for i, r := range loaded {
		items[i] = r.wi
	}
	return items, nil
}

func nilIfNoRows(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	return err
}
