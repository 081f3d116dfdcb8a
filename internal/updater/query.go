package updater

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rohitkatta517/azdevcache/internal/errs"
	"github.com/rohitkatta517/azdevcache/internal/liveclient"
	"github.com/rohitkatta517/azdevcache/internal/model"
	"github.com/rohitkatta517/azdevcache/internal/store"
	"github.com/rohitkatta517/azdevcache/internal/urlresolve"
)

// WorkItemBatchSize is the number of ids fetched per remote request.
const WorkItemBatchSize = 200

// QueryUpdater syncs a user-saved work-item query.
type QueryUpdater struct {
	deps
}

// NewQueryUpdater constructs a QueryUpdater.
func NewQueryUpdater(accounts liveclient.AccountProvider, conns liveclient.ConnectionProvider, client liveclient.LiveClient, cache *store.CacheStore) *QueryUpdater {
	return &QueryUpdater{deps{Accounts: accounts, Conns: conns, Client: client, Cache: cache}}
}

func (u *QueryUpdater) UpdateData(ctx context.Context, search model.Search) error {
	def := search.Query
	if def == nil {
		return errs.InternalInvariant("QueryUpdater invoked without a QueryDef", nil)
	}

	parsed, conn, account, err := u.connect(ctx, def.URL)
	if err != nil {
		return err
	}

	remoteQuery, err := u.Client.GetWorkItemQuery(ctx, conn, parsed.SubResource)
	if err != nil {
		return err
	}
	if remoteQuery.Kind == liveclient.QueryTemporary {
		return errs.Unsupported("temporary (unsaved) queries are not supported")
	}

	if err := ctx.Err(); err != nil {
		return errs.Cancelled("query sync cancelled before fetch")
	}

	ids, err := u.Client.RunWIQL(ctx, conn, parsed.Project, remoteQuery.WIQL)
	if err != nil {
		return err
	}

	items, types, err := fetchWorkItemsConcurrently(ctx, u.Client, conn, ids)
	if err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return errs.Cancelled("query sync cancelled before apply")
	}

	now := model.NowTicks()
	return u.Cache.WithTx(ctx, func(tx *sql.Tx) error {
		_, projectID, err := u.ensureOrgProject(ctx, tx, parsed, conn)
		if err != nil {
			return err
		}

		queryRowID, err := store.UpsertQuery(ctx, tx, model.Query{
			ExternalID:  parsed.SubResource,
			DisplayName: remoteQuery.Name,
			Username:    account.LoginID,
			ProjectID:   projectID,
		}, now)
		if err != nil {
			return errs.DataStoreInaccessible("upsert query", err)
		}

		typeIDs, err := upsertWorkItemTypes(ctx, tx, types, projectID)
		if err != nil {
			return err
		}

		for _, item := range items {
			assignedID, err := ensureIdentity(ctx, tx, item.AssignedToID, item.AssignedToName, "")
			if err != nil {
				return err
			}
			createdByID, err := ensureIdentity(ctx, tx, item.CreatedByID, item.CreatedByName, "")
			if err != nil {
				return err
			}
			changedByID, err := ensureIdentity(ctx, tx, item.ChangedByID, item.ChangedByName, "")
			if err != nil {
				return err
			}

			wiRowID, err := store.UpsertWorkItem(ctx, tx, model.WorkItem{
				ExternalID:     item.ID,
				Title:          item.Title,
				HTMLURL:        item.HTMLURL,
				State:          item.State,
				Reason:         item.Reason,
				AssignedToID:   assignedID,
				CreatedDate:    model.FromTime(item.CreatedDate),
				CreatedByID:    createdByID,
				ChangedDate:    model.FromTime(item.ChangedDate),
				ChangedByID:    changedByID,
				WorkItemTypeID: typeIDs[strings.ToLower(item.TypeName)],
			})
			if err != nil {
				return errs.DataStoreInaccessible("upsert work item", err)
			}

			if err := store.UpsertQueryWorkItem(ctx, tx, queryRowID, wiRowID, now); err != nil {
				return errs.DataStoreInaccessible("upsert query_work_item", err)
			}
		}

		return store.PruneQueryWorkItemsOlderThan(ctx, tx, queryRowID, now)
	})
}

func (u *QueryUpdater) GetCachedDataForSearch(ctx context.Context, search model.Search) (any, error) {
	def := search.Query
	if def == nil {
		return nil, errs.InternalInvariant("QueryUpdater invoked without a QueryDef", nil)
	}
	parsed, err := urlresolve.Parse(def.URL)
	if err != nil {
		return nil, err
	}
	account, err := u.Accounts.GetDefaultAccount(ctx)
	if err != nil {
		return nil, errs.Validation("not signed in", err)
	}
	q, ok, err := u.Cache.GetQueryByExternalID(ctx, parsed.SubResource, account.LoginID)
	if err != nil {
		return nil, errs.DataStoreInaccessible("read query", err)
	}
	if !ok {
		return nil, nil
	}
	return q, nil
}

func (u *QueryUpdater) GetCachedChildren(ctx context.Context, search model.Search) ([]any, error) {
	cached, err := u.GetCachedDataForSearch(ctx, search)
	if err != nil || cached == nil {
		return nil, err
	}
	q := cached.(model.Query)
	items, err := u.Cache.GetWorkItemsForQuery(ctx, q.ID)
	if err != nil {
		return nil, errs.DataStoreInaccessible("read query work items", err)
	}
	out := make([]any, len(items))
	for i, it := range items {
		out[i] = it
	}
	return out, nil
}

func (u *QueryUpdater) IsNewOrStale(ctx context.Context, search model.Search, cooldown time.Duration) (bool, error) {
	cached, err := u.GetCachedDataForSearch(ctx, search)
	if err != nil {
		return false, err
	}
	if cached == nil {
		return true, nil
	}
	q := cached.(model.Query)
	return staleAfter(q.TimeUpdated.Time(), cooldown), nil
}

func (u *QueryUpdater) PruneObsoleteData(ctx context.Context) error {
	return u.Cache.WithTx(ctx, func(tx *sql.Tx) error {
		return store.PruneOrphanWorkItems(ctx, tx)
	})
}

// fetchWorkItemsConcurrently batches ids into groups of WorkItemBatchSize,
// fetches each group concurrently, and dedupes the work-item-type lookups
// across the whole set (one remote fetch per distinct name). A failed
// batch is omitted rather than failing the whole sync; only a context
// cancellation aborts it.
func fetchWorkItemsConcurrently(ctx context.Context, client liveclient.LiveClient, conn liveclient.Connection, ids []int64) ([]liveclient.RemoteWorkItem, map[string]liveclient.RemoteWorkItemType, error) {
	groups := batches(ids, WorkItemBatchSize)

	var mu sync.Mutex
	var items []liveclient.RemoteWorkItem

	g, gctx := errgroup.WithContext(ctx)
	for _, group := range groups {
		group := group
		g.Go(func() error {
			fetched, err := client.GetWorkItems(gctx, conn, group)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				return nil // omit failures per-chunk; only cancellation aborts the group
			}
			mu.Lock()
			items = append(items, fetched...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, errs.Cancelled("work item fetch cancelled")
	}

	types, err := fetchWorkItemTypesDeduped(ctx, client, conn, items)
	if err != nil {
		return nil, nil, err
	}
	return items, types, nil
}

// fetchWorkItemTypesDeduped fetches each distinct (case-insensitive)
// work-item-type name in items exactly once.
func fetchWorkItemTypesDeduped(ctx context.Context, client liveclient.LiveClient, conn liveclient.Connection, items []liveclient.RemoteWorkItem) (map[string]liveclient.RemoteWorkItemType, error) {
	seen := make(map[string]bool)
	result := make(map[string]liveclient.RemoteWorkItemType)
	for _, item := range items {
		key := strings.ToLower(item.TypeName)
		if seen[key] {
			continue
		}
		seen[key] = true
		wt, err := client.GetWorkItemType(ctx, conn, "", item.TypeName)
		if err != nil {
			continue // a missing type definition doesn't block the sync; priority falls back to "other"
		}
		result[key] = wt
	}
	return result, nil
}

// upsertWorkItemTypes writes every fetched type under projectID and
// returns a lowercase-name -> row id map for UpsertWorkItem to consume.
func upsertWorkItemTypes(ctx context.Context, db store.DBTX, types map[string]liveclient.RemoteWorkItemType, projectID int64) (map[string]int64, error) {
	out := make(map[string]int64, len(types))
	for key, t := range types {
		id, err := store.UpsertWorkItemType(ctx, db, model.WorkItemType{
			Name:        t.Name,
			Icon:        t.Icon,
			Color:       t.Color,
			Description: t.Description,
			ProjectID:   projectID,
		})
		if err != nil {
			return nil, errs.DataStoreInaccessible("upsert work item type", err)
		}
		out[key] = id
	}
	return out, nil
}
