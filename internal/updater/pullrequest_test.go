package updater

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohitkatta517/azdevcache/internal/errs"
	"github.com/rohitkatta517/azdevcache/internal/liveclient"
	"github.com/rohitkatta517/azdevcache/internal/liveclient/faketest"
	"github.com/rohitkatta517/azdevcache/internal/model"
)

func TestPullRequestUpdater_UpdateDataThenCachedReadsReflectIt(t *testing.T) {
	ctx := context.Background()
	account := faketest.NewAccount("alice")
	conns := faketest.ConnectionProvider{}
	client := faketest.NewClient()
	cache := newTestCache(t)

	client.Projects["myproj"] = liveclient.RemoteProject{ID: "proj-guid", Name: "myproj"}
	client.Repositories["myproj/myrepo"] = liveclient.RemoteRepository{ID: "repo-guid", Name: "myrepo"}
	client.PullRequests["myproj/repo-guid/Mine"] = []liveclient.RemotePullRequest{
		{ID: 1, Title: "fix bug", RepositoryID: "repo-guid", CreatorID: "user-guid", CreatorName: "Bob", Status: "active", CreationDate: time.Now()},
	}
	client.Policies[1] = []liveclient.RemotePolicyEvaluation{{Status: "approved"}}

	u := NewPullRequestUpdater(account, conns, client, cache)
	search := model.Search{Kind: model.UpdatePullRequests, PullRequest: &model.PullRequestSearchDef{
		URL:  "https://dev.azure.com/myorg/myproj/myrepo",
		View: model.ViewMine,
	}}

	require.NoError(t, u.UpdateData(ctx, search))

	cached, err := u.GetCachedDataForSearch(ctx, search)
	require.NoError(t, err)
	require.NotNil(t, cached)
	s := cached.(model.PullRequestSearch)
	assert.Equal(t, "alice", s.Username)

	children, err := u.GetCachedChildren(ctx, search)
	require.NoError(t, err)
	require.Len(t, children, 1)
	pr := children[0].(model.PullRequest)
	assert.Equal(t, "fix bug", pr.Title)
	assert.Equal(t, model.PolicyApproved, pr.PolicyStatus)

	stale, err := u.IsNewOrStale(ctx, search, time.Hour)
	require.NoError(t, err)
	assert.False(t, stale)
}

func TestPullRequestUpdater_FailedPolicyFetchLeavesApprovedRatherThanFailingSync(t *testing.T) {
	ctx := context.Background()
	account := faketest.NewAccount("alice")
	conns := faketest.ConnectionProvider{}
	client := faketest.NewClient()
	cache := newTestCache(t)

	client.Projects["myproj"] = liveclient.RemoteProject{ID: "proj-guid", Name: "myproj"}
	client.Repositories["myproj/myrepo"] = liveclient.RemoteRepository{ID: "repo-guid", Name: "myrepo"}
	client.PullRequests["myproj/repo-guid/Mine"] = []liveclient.RemotePullRequest{
		{ID: 1, Title: "no policies fetched", RepositoryID: "repo-guid", CreatorID: "user-guid", CreatorName: "Bob"},
	}
	// GetPolicyEvaluations fails for PR 1; the sync must still succeed.
	client.ErrOnMethod["GetPolicyEvaluations"] = errs.Remote("policy service unavailable", 503, nil)

	u := NewPullRequestUpdater(account, conns, client, cache)
	search := model.Search{Kind: model.UpdatePullRequests, PullRequest: &model.PullRequestSearchDef{
		URL:  "https://dev.azure.com/myorg/myproj/myrepo",
		View: model.ViewMine,
	}}

	require.NoError(t, u.UpdateData(ctx, search))

	children, err := u.GetCachedChildren(ctx, search)
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, model.PolicyApproved, children[0].(model.PullRequest).PolicyStatus)
}

func TestPullRequestUpdater_GetCachedDataForSearchIsNilBeforeFirstSync(t *testing.T) {
	ctx := context.Background()
	account := faketest.NewAccount("alice")
	conns := faketest.ConnectionProvider{}
	client := faketest.NewClient()
	cache := newTestCache(t)

	u := NewPullRequestUpdater(account, conns, client, cache)
	search := model.Search{Kind: model.UpdatePullRequests, PullRequest: &model.PullRequestSearchDef{
		URL:  "https://dev.azure.com/myorg/myproj/myrepo",
		View: model.ViewMine,
	}}

	cached, err := u.GetCachedDataForSearch(ctx, search)
	require.NoError(t, err)
	assert.Nil(t, cached)
}
