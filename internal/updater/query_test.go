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
	"github.com/rohitkatta517/azdevcache/internal/store"
)

func newTestCache(t *testing.T) *store.CacheStore {
	t.Helper()
	cache, err := store.OpenCache(context.Background(), filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })
	return cache
}

func TestQueryUpdater_UpdateDataThenCachedReadsReflectIt(t *testing.T) {
	ctx := context.Background()
	account := faketest.NewAccount("alice")
	conns := faketest.ConnectionProvider{}
	client := faketest.NewClient()
	cache := newTestCache(t)

	client.Projects["myproj"] = liveclient.RemoteProject{ID: "proj-guid", Name: "myproj"}
	client.Queries["query-guid"] = liveclient.RemoteQuery{
		ID:   "query-guid",
		Kind: liveclient.QueryFlat,
		WIQL: "select [System.Id] from WorkItems",
		Name: "My Query",
	}
	client.WIQLResults["myproj/select [System.Id] from WorkItems"] = []int64{1, 2}
	client.WorkItems[1] = liveclient.RemoteWorkItem{
		ID: 1, Title: "first", State: "Active", TypeName: "Bug",
		CreatedDate: time.Now(), ChangedDate: time.Now(),
	}
	client.WorkItems[2] = liveclient.RemoteWorkItem{
		ID: 2, Title: "second", State: "New", TypeName: "Task",
		AssignedToID: "user-guid", AssignedToName: "Bob",
		CreatedDate: time.Now(), ChangedDate: time.Now(),
	}

	u := NewQueryUpdater(account, conns, client, cache)
	search := model.Search{Kind: model.UpdateQuery, Query: &model.QueryDef{
		Name: "My Query",
		URL:  "https://dev.azure.com/myorg/myproj/query-guid",
	}}

	require.NoError(t, u.UpdateData(ctx, search))

	cached, err := u.GetCachedDataForSearch(ctx, search)
	require.NoError(t, err)
	require.NotNil(t, cached)
	q := cached.(model.Query)
	assert.Equal(t, "My Query", q.DisplayName)
	assert.Equal(t, "query-guid", q.ExternalID)

	children, err := u.GetCachedChildren(ctx, search)
	require.NoError(t, err)
	require.Len(t, children, 2)

	stale, err := u.IsNewOrStale(ctx, search, time.Hour)
	require.NoError(t, err)
	assert.False(t, stale, "a query just fetched should not be stale under a one-hour cooldown")
}

func TestQueryUpdater_TemporaryQueryIsUnsupported(t *testing.T) {
	ctx := context.Background()
	account := faketest.NewAccount("alice")
	conns := faketest.ConnectionProvider{}
	client := faketest.NewClient()
	cache := newTestCache(t)

	client.Projects["myproj"] = liveclient.RemoteProject{ID: "proj-guid", Name: "myproj"}
	client.Queries["query-guid"] = liveclient.RemoteQuery{ID: "query-guid", Kind: liveclient.QueryTemporary}

	u := NewQueryUpdater(account, conns, client, cache)
	search := model.Search{Kind: model.UpdateQuery, Query: &model.QueryDef{
		URL: "https://dev.azure.com/myorg/myproj/query-guid",
	}}

	err := u.UpdateData(ctx, search)
	require.Error(t, err)
}

func TestQueryUpdater_GetCachedDataForSearchIsNilBeforeFirstSync(t *testing.T) {
	ctx := context.Background()
	account := faketest.NewAccount("alice")
	conns := faketest.ConnectionProvider{}
	client := faketest.NewClient()
	cache := newTestCache(t)

	u := NewQueryUpdater(account, conns, client, cache)
	search := model.Search{Kind: model.UpdateQuery, Query: &model.QueryDef{
		URL: "https://dev.azure.com/myorg/myproj/query-guid",
	}}

	cached, err := u.GetCachedDataForSearch(ctx, search)
	require.NoError(t, err)
	assert.Nil(t, cached)

	stale, err := u.IsNewOrStale(ctx, search, time.Hour)
	require.NoError(t, err)
	assert.True(t, stale, "never-synced data is always stale")
}
