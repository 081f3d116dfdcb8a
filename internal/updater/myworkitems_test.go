package updater

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohitkatta517/azdevcache/internal/liveclient"
	"github.com/rohitkatta517/azdevcache/internal/liveclient/faketest"
	"github.com/rohitkatta517/azdevcache/internal/model"
	"github.com/rohitkatta517/azdevcache/internal/repository"
	"github.com/rohitkatta517/azdevcache/internal/store"
)

func newTestPersistent(t *testing.T) *store.PersistentStore {
	t.Helper()
	db, err := store.OpenPersistent(context.Background(), filepath.Join(t.TempDir(), "persistent.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newTestMyWorkItemsUpdater(t *testing.T, account *faketest.Account, conns faketest.ConnectionProvider, client *faketest.Client, cache *store.CacheStore) *MyWorkItemsUpdater {
	t.Helper()
	persistent := newTestPersistent(t)
	projectSettings := repository.NewProjectSettingsRepository(persistent, nil)
	queries := repository.NewQueryRepository(persistent, nil)
	pullRequests := repository.NewPullRequestSearchRepository(persistent, nil)
	pipelines := repository.NewDefinitionSearchRepository(persistent, nil)
	return NewMyWorkItemsUpdater(account, conns, client, cache, projectSettings, queries, pullRequests, pipelines)
}

func TestMyWorkItemsUpdater_DiscoverTargetsUnionsPinnedAndImpliedPairs(t *testing.T) {
	ctx := context.Background()
	account := faketest.NewAccount("alice")
	conns := faketest.ConnectionProvider{}
	client := faketest.NewClient()
	cache := newTestCache(t)

	u := newTestMyWorkItemsUpdater(t, account, conns, client, cache)

	require.NoError(t, u.ProjectSettings.AddOrUpdate(ctx, &model.ProjectSettings{
		OrganizationURL: "https://dev.azure.com/myorg",
		ProjectName:     "pinnedproj",
	}))
	require.NoError(t, u.Queries.AddOrUpdate(ctx, &model.QueryDef{
		Name: "My Query",
		URL:  "https://dev.azure.com/myorg/queryproj/query-guid",
	}))
	// Duplicate of the pinned pair via a pull request search in the same project, case-varied.
	require.NoError(t, u.PullRequests.AddOrUpdate(ctx, &model.PullRequestSearchDef{
		Name: "My PRs",
		URL:  "https://dev.azure.com/MYORG/PINNEDPROJ/somerepo",
		View: model.ViewMine,
	}))

	targets, err := u.DiscoverTargets(ctx)
	require.NoError(t, err)
	require.Len(t, targets, 2, "pinnedproj should be deduped across the pinned row and the PR search's implied pair")

	var names []string
	for _, tg := range targets {
		names = append(names, tg.ProjectName)
	}
	assert.Contains(t, names, "pinnedproj")
	assert.Contains(t, names, "queryproj")
}

func TestMyWorkItemsUpdater_UpdateDataThenCachedReadsReflectIt(t *testing.T) {
	ctx := context.Background()
	account := faketest.NewAccount("alice")
	conns := faketest.ConnectionProvider{}
	client := faketest.NewClient()
	cache := newTestCache(t)

	u := newTestMyWorkItemsUpdater(t, account, conns, client, cache)

	client.Projects["myproj"] = liveclient.RemoteProject{ID: "proj-guid", Name: "myproj"}
	client.WIQLResults["myproj/"+model.MyWorkItemsWIQL] = []int64{7}
	client.WorkItems[7] = liveclient.RemoteWorkItem{
		ID: 7, Title: "assigned to me", State: "Active", TypeName: "Bug",
		AssignedToID: "alice-guid", AssignedToName: "Alice",
		CreatedDate: time.Now(), ChangedDate: time.Now(),
	}

	search := model.Search{Kind: model.UpdateMyWorkItems, MyWorkItems: &model.ProjectSettings{
		OrganizationURL: "https://dev.azure.com/myorg",
		ProjectName:     "myproj",
	}}

	require.NoError(t, u.UpdateData(ctx, search))

	cached, err := u.GetCachedDataForSearch(ctx, search)
	require.NoError(t, err)
	require.NotNil(t, cached)
	q := cached.(model.Query)
	assert.Equal(t, "My Work Items", q.DisplayName)

	children, err := u.GetCachedChildren(ctx, search)
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, "assigned to me", children[0].(model.WorkItem).Title)

	stale, err := u.IsNewOrStale(ctx, search, time.Hour)
	require.NoError(t, err)
	assert.False(t, stale)
}

func TestMyWorkItemsUpdater_GetCachedDataForSearchIsNilBeforeFirstSync(t *testing.T) {
	ctx := context.Background()
	account := faketest.NewAccount("alice")
	conns := faketest.ConnectionProvider{}
	client := faketest.NewClient()
	cache := newTestCache(t)

	u := newTestMyWorkItemsUpdater(t, account, conns, client, cache)
	search := model.Search{Kind: model.UpdateMyWorkItems, MyWorkItems: &model.ProjectSettings{
		OrganizationURL: "https://dev.azure.com/myorg",
		ProjectName:     "myproj",
	}}

	cached, err := u.GetCachedDataForSearch(ctx, search)
	require.NoError(t, err)
	assert.Nil(t, cached)
}
