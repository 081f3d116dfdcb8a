package updater

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohitkatta517/azdevcache/internal/liveclient"
	"github.com/rohitkatta517/azdevcache/internal/liveclient/faketest"
	"github.com/rohitkatta517/azdevcache/internal/model"
)

func TestPipelineUpdater_UpdateDataThenCachedReadsReflectIt(t *testing.T) {
	ctx := context.Background()
	account := faketest.NewAccount("alice")
	conns := faketest.ConnectionProvider{}
	client := faketest.NewClient()
	cache := newTestCache(t)

	client.Projects["myproj"] = liveclient.RemoteProject{ID: "proj-guid", Name: "myproj"}
	client.Definitions["myproj"] = []liveclient.RemoteBuildDefinition{
		{ID: 42, Name: "CI", CreationDate: time.Now()},
	}
	client.Builds["myproj/42"] = []liveclient.RemoteBuild{
		{ID: 1, BuildNumber: "20260801.1", Status: "completed", Result: "succeeded", RequesterID: "user-guid", RequesterName: "Bob"},
	}

	u := NewPipelineUpdater(account, conns, client, cache)
	search := model.Search{Kind: model.UpdatePipeline, Pipeline: &model.DefinitionSearchDef{
		URL:        "https://dev.azure.com/myorg/myproj/42",
		ExternalID: 42,
	}}

	require.NoError(t, u.UpdateData(ctx, search))

	cached, err := u.GetCachedDataForSearch(ctx, search)
	require.NoError(t, err)
	require.NotNil(t, cached)
	d := cached.(model.Definition)
	assert.Equal(t, "CI", d.Name)

	children, err := u.GetCachedChildren(ctx, search)
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, "20260801.1", children[0].(model.Build).BuildNumber)

	stale, err := u.IsNewOrStale(ctx, search, time.Hour)
	require.NoError(t, err)
	assert.False(t, stale)
}

func TestPipelineUpdater_UnknownDefinitionIDIsNotFound(t *testing.T) {
	ctx := context.Background()
	account := faketest.NewAccount("alice")
	conns := faketest.ConnectionProvider{}
	client := faketest.NewClient()
	cache := newTestCache(t)

	client.Projects["myproj"] = liveclient.RemoteProject{ID: "proj-guid", Name: "myproj"}
	client.Definitions["myproj"] = []liveclient.RemoteBuildDefinition{{ID: 1, Name: "other"}}

	u := NewPipelineUpdater(account, conns, client, cache)
	search := model.Search{Kind: model.UpdatePipeline, Pipeline: &model.DefinitionSearchDef{
		URL:        "https://dev.azure.com/myorg/myproj/42",
		ExternalID: 42,
	}}

	err := u.UpdateData(ctx, search)
	require.Error(t, err)
}

func TestPipelineUpdater_GetCachedDataForSearchIsNilBeforeFirstSync(t *testing.T) {
	ctx := context.Background()
	account := faketest.NewAccount("alice")
	conns := faketest.ConnectionProvider{}
	client := faketest.NewClient()
	cache := newTestCache(t)

	u := NewPipelineUpdater(account, conns, client, cache)
	search := model.Search{Kind: model.UpdatePipeline, Pipeline: &model.DefinitionSearchDef{
		URL:        "https://dev.azure.com/myorg/myproj/42",
		ExternalID: 42,
	}}

	cached, err := u.GetCachedDataForSearch(ctx, search)
	require.NoError(t, err)
	assert.Nil(t, cached)

	stale, err := u.IsNewOrStale(ctx, search, time.Hour)
	require.NoError(t, err)
	assert.True(t, stale)
}
