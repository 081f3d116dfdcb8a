package updater

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/rohitkatta517/azdevcache/internal/errs"
	"github.com/rohitkatta517/azdevcache/internal/liveclient"
	"github.com/rohitkatta517/azdevcache/internal/model"
	"github.com/rohitkatta517/azdevcache/internal/repository"
	"github.com/rohitkatta517/azdevcache/internal/store"
	"github.com/rohitkatta517/azdevcache/internal/urlresolve"
)

// MyWorkItemsUpdater syncs the implicit "work items assigned to me"
// search for every (organization, project) pair ProjectSettingsRepository
// pins plus every pair discoverable from the other three saved-search
// repositories, synthesizing a WIQL query rather than resolving a
// user-saved one.
type MyWorkItemsUpdater struct {
	deps

	ProjectSettings *repository.ProjectSettingsRepository
	Queries         *repository.QueryRepository
	PullRequests    *repository.PullRequestSearchRepository
	Pipelines       *repository.DefinitionSearchRepository
}

// NewMyWorkItemsUpdater constructs a MyWorkItemsUpdater.
func NewMyWorkItemsUpdater(
	accounts liveclient.AccountProvider,
	conns liveclient.ConnectionProvider,
	client liveclient.LiveClient,
	cache *store.CacheStore,
	projectSettings *repository.ProjectSettingsRepository,
	queries *repository.QueryRepository,
	pullRequests *repository.PullRequestSearchRepository,
	pipelines *repository.DefinitionSearchRepository,
) *MyWorkItemsUpdater {
	return &MyWorkItemsUpdater{
		deps:            deps{Accounts: accounts, Conns: conns, Client: client, Cache: cache},
		ProjectSettings: projectSettings,
		Queries:         queries,
		PullRequests:    pullRequests,
		Pipelines:       pipelines,
	}
}

// orgProjectPair is a discovered (organization, project) target for the
// implicit search, deduped case-insensitively by its key.
type orgProjectPair struct {
	parsed model.ParsedURL
}

func (p orgProjectPair) key() string {
	return strings.ToLower(p.parsed.Org) + "|" + strings.ToLower(p.parsed.Project)
}

// DiscoverTargets unions ProjectSettingsRepository's pinned pairs with
// the distinct (org, project) pairs implied by every other saved search,
// deduped case-insensitively.
func (u *MyWorkItemsUpdater) DiscoverTargets(ctx context.Context) ([]model.ProjectSettings, error) {
	seen := make(map[string]bool)
	var out []model.ProjectSettings

	pinned, err := u.ProjectSettings.GetAll(ctx, false)
	if err != nil {
		return nil, err
	}
	for _, p := range pinned {
		parsedOrg, err := urlresolve.ParseOrg(p.OrganizationURL)
		if err != nil {
			continue
		}
		pair := orgProjectPair{parsed: model.ParsedURL{HostKind: parsedOrg.HostKind, Org: parsedOrg.Org, Project: p.ProjectName}}
		if seen[pair.key()] {
			continue
		}
		seen[pair.key()] = true
		out = append(out, p)
	}

	queries, err := u.Queries.GetAll(ctx, false)
	if err != nil {
		return nil, err
	}
	for _, q := range queries {
		addDiscoveredPair(&out, seen, q.URL)
	}

	prSearches, err := u.PullRequests.GetAll(ctx, false)
	if err != nil {
		return nil, err
	}
	for _, s := range prSearches {
		addDiscoveredPair(&out, seen, s.URL)
	}

	pipelines, err := u.Pipelines.GetAll(ctx, false)
	if err != nil {
		return nil, err
	}
	for _, d := range pipelines {
		addDiscoveredPair(&out, seen, d.URL)
	}

	return out, nil
}

func addDiscoveredPair(out *[]model.ProjectSettings, seen map[string]bool, rawURL string) {
	parsed, err := urlresolve.Parse(rawURL)
	if err != nil {
		return
	}
	pair := orgProjectPair{parsed: parsed}
	if seen[pair.key()] {
		return
	}
	seen[pair.key()] = true
	*out = append(*out, model.ProjectSettings{OrganizationURL: urlresolve.ConnectionURI(parsed), ProjectName: parsed.Project})
}

func (u *MyWorkItemsUpdater) UpdateData(ctx context.Context, search model.Search) error {
	settings := search.MyWorkItems
	if settings == nil {
		return errs.InternalInvariant("MyWorkItemsUpdater invoked without ProjectSettings", nil)
	}

	orgParsed, err := urlresolve.ParseOrg(settings.OrganizationURL)
	if err != nil {
		return err
	}
	parsed := model.ParsedURL{HostKind: orgParsed.HostKind, Org: orgParsed.Org, Project: settings.ProjectName}

	parsed, conn, account, err := u.connectParsed(ctx, parsed)
	if err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return errs.Cancelled("my work items sync cancelled before fetch")
	}

	ids, err := u.Client.RunWIQL(ctx, conn, parsed.Project, model.MyWorkItemsWIQL)
	if err != nil {
		return err
	}

	items, types, err := fetchWorkItemsConcurrently(ctx, u.Client, conn, ids)
	if err != nil {
		return err
	}

	now := model.NowTicks()
	externalID := model.MyWorkItemsExternalID(parsed.Org, parsed.Project)

	return u.Cache.WithTx(ctx, func(tx *sql.Tx) error {
		_, projectID, err := u.ensureOrgProject(ctx, tx, parsed, conn)
		if err != nil {
			return err
		}

		queryRowID, err := store.UpsertQuery(ctx, tx, model.Query{
			ExternalID:  externalID,
			DisplayName: "My Work Items",
			Username:    account.LoginID,
			ProjectID:   projectID,
		}, now)
		if err != nil {
			return errs.DataStoreInaccessible("upsert my work items query", err)
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

func (u *MyWorkItemsUpdater) GetCachedDataForSearch(ctx context.Context, search model.Search) (any, error) {
	settings := search.MyWorkItems
	if settings == nil {
		return nil, errs.InternalInvariant("MyWorkItemsUpdater invoked without ProjectSettings", nil)
	}
	orgParsed, err := urlresolve.ParseOrg(settings.OrganizationURL)
	if err != nil {
		return nil, err
	}
	account, err := u.Accounts.GetDefaultAccount(ctx)
	if err != nil {
		return nil, errs.Validation("not signed in", err)
	}
	externalID := model.MyWorkItemsExternalID(orgParsed.Org, settings.ProjectName)
	q, ok, err := u.Cache.GetQueryByExternalID(ctx, externalID, account.LoginID)
	if err != nil {
		return nil, errs.DataStoreInaccessible("read my work items query", err)
	}
	if !ok {
		return nil, nil
	}
	return q, nil
}

func (u *MyWorkItemsUpdater) GetCachedChildren(ctx context.Context, search model.Search) ([]any, error) {
	cached, err := u.GetCachedDataForSearch(ctx, search)
	if err != nil || cached == nil {
		return nil, err
	}
	q := cached.(model.Query)
	items, err := u.Cache.GetWorkItemsForQuery(ctx, q.ID)
	if err != nil {
		return nil, errs.DataStoreInaccessible("read my work items", err)
	}
	out := make([]any, len(items))
	for i, it := range items {
		out[i] = it
	}
	return out, nil
}

func (u *MyWorkItemsUpdater) IsNewOrStale(ctx context.Context, search model.Search, cooldown time.Duration) (bool, error) {
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

func (u *MyWorkItemsUpdater) PruneObsoleteData(ctx context.Context) error {
	return u.Cache.WithTx(ctx, func(tx *sql.Tx) error {
		return store.PruneOrphanWorkItems(ctx, tx)
	})
}
