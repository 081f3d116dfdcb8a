// Package faketest implements in-memory fakes of the liveclient
// interfaces for use in updater and service tests, avoiding any network
// dependency.
package faketest

import (
	"context"
	"strconv"
	"sync"

	"github.com/rohitkatta517/azdevcache/internal/errs"
	"github.com/rohitkatta517/azdevcache/internal/liveclient"
	"github.com/rohitkatta517/azdevcache/internal/model"
)

// Conn is the fake Connection returned by ConnectionProvider.
type Conn struct {
	OrgURI string
}

func (c Conn) OrganizationURI() string { return c.OrgURI }

// Account is a fake AccountProvider: it reports a default account for a
// login id without performing real auth.
type Account struct {
	mu         sync.Mutex
	signedIn   bool
	defaultAcc liveclient.Account
}

// NewAccount constructs a signed-in fake account provider.
func NewAccount(loginID string) *Account {
	return &Account{signedIn: true, defaultAcc: liveclient.Account{LoginID: loginID}}
}

func (a *Account) IsSignedIn(ctx context.Context) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.signedIn, nil
}

func (a *Account) GetDefaultAccount(ctx context.Context) (liveclient.Account, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.signedIn {
		return liveclient.Account{}, errs.Validation("not signed in", nil)
	}
	return a.defaultAcc, nil
}

func (a *Account) SignIn(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.signedIn = true
	return nil
}

func (a *Account) SignOut(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.signedIn = false
	return nil
}

// ConnectionProvider is a fake liveclient.ConnectionProvider that never
// fails and never pools: every call returns a fresh Conn.
type ConnectionProvider struct{}

func (ConnectionProvider) GetConnection(ctx context.Context, orgURI string, account liveclient.Account) (liveclient.Connection, error) {
	return Conn{OrgURI: orgURI}, nil
}

// Client is an in-memory, fully scriptable liveclient.LiveClient. Tests
// populate its fields directly before exercising an updater, and may set
// Err* fields to force a given call to fail.
type Client struct {
	mu sync.Mutex

	Queries       map[string]liveclient.RemoteQuery
	WorkItems     map[int64]liveclient.RemoteWorkItem
	WorkItemTypes map[string]liveclient.RemoteWorkItemType // keyed by project+"/"+name

	PullRequests map[string][]liveclient.RemotePullRequest // keyed by project+"/"+repositoryID+"/"+view
	Policies     map[int64][]liveclient.RemotePolicyEvaluation

	Definitions map[string][]liveclient.RemoteBuildDefinition // keyed by project
	Builds      map[string][]liveclient.RemoteBuild           // keyed by project+"/"+definitionID

	Projects     map[string]liveclient.RemoteProject
	Repositories map[string]liveclient.RemoteRepository // keyed by project+"/"+name

	WIQLResults map[string][]int64 // keyed by project+"/"+wiql

	Avatars map[string][]byte

	// ErrOnMethod, if set, makes the named method fail with this error on
	// its next call regardless of scripted data.
	ErrOnMethod map[string]error
}

// NewClient constructs an empty Client with all maps initialized.
func NewClient() *Client {
	return &Client{
		Queries:       make(map[string]liveclient.RemoteQuery),
		WorkItems:     make(map[int64]liveclient.RemoteWorkItem),
		WorkItemTypes: make(map[string]liveclient.RemoteWorkItemType),
		PullRequests:  make(map[string][]liveclient.RemotePullRequest),
		Policies:      make(map[int64][]liveclient.RemotePolicyEvaluation),
		Definitions:   make(map[string][]liveclient.RemoteBuildDefinition),
		Builds:        make(map[string][]liveclient.RemoteBuild),
		Projects:      make(map[string]liveclient.RemoteProject),
		Repositories:  make(map[string]liveclient.RemoteRepository),
		WIQLResults:   make(map[string][]int64),
		Avatars:       make(map[string][]byte),
		ErrOnMethod:   make(map[string]error),
	}
}

func (c *Client) failIfScripted(method string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err, ok := c.ErrOnMethod[method]; ok {
		delete(c.ErrOnMethod, method)
		return err
	}
	return nil
}

func (c *Client) GetWorkItemQuery(ctx context.Context, conn liveclient.Connection, queryID string) (liveclient.RemoteQuery, error) {
	if err := c.failIfScripted("GetWorkItemQuery"); err != nil {
		return liveclient.RemoteQuery{}, err
	}
	q, ok := c.Queries[queryID]
	if !ok {
		return liveclient.RemoteQuery{}, errs.NotFound("query " + queryID)
	}
	return q, nil
}

func (c *Client) GetWorkItems(ctx context.Context, conn liveclient.Connection, ids []int64) ([]liveclient.RemoteWorkItem, error) {
	if err := c.failIfScripted("GetWorkItems"); err != nil {
		return nil, err
	}
	out := make([]liveclient.RemoteWorkItem, 0, len(ids))
	for _, id := range ids {
		if wi, ok := c.WorkItems[id]; ok {
			out = append(out, wi)
		}
	}
	return out, nil
}

func (c *Client) GetWorkItemType(ctx context.Context, conn liveclient.Connection, project, name string) (liveclient.RemoteWorkItemType, error) {
	if err := c.failIfScripted("GetWorkItemType"); err != nil {
		return liveclient.RemoteWorkItemType{}, err
	}
	wt, ok := c.WorkItemTypes[project+"/"+name]
	if !ok {
		return liveclient.RemoteWorkItemType{Name: name}, nil
	}
	return wt, nil
}

func (c *Client) SearchPullRequests(ctx context.Context, conn liveclient.Connection, project, repositoryID string, view model.PullRequestView, self string) ([]liveclient.RemotePullRequest, error) {
	if err := c.failIfScripted("SearchPullRequests"); err != nil {
		return nil, err
	}
	return c.PullRequests[project+"/"+repositoryID+"/"+string(view)], nil
}

func (c *Client) GetPolicyEvaluations(ctx context.Context, conn liveclient.Connection, project string, prID int64) ([]liveclient.RemotePolicyEvaluation, error) {
	if err := c.failIfScripted("GetPolicyEvaluations"); err != nil {
		return nil, err
	}
	return c.Policies[prID], nil
}

func (c *Client) GetBuildDefinitions(ctx context.Context, conn liveclient.Connection, project string) ([]liveclient.RemoteBuildDefinition, error) {
	if err := c.failIfScripted("GetBuildDefinitions"); err != nil {
		return nil, err
	}
	return c.Definitions[project], nil
}

func (c *Client) GetBuilds(ctx context.Context, conn liveclient.Connection, project string, definitionID int64) ([]liveclient.RemoteBuild, error) {
	if err := c.failIfScripted("GetBuilds"); err != nil {
		return nil, err
	}
	key := project + "/" + strconv.FormatInt(definitionID, 10)
	return c.Builds[key], nil
}

func (c *Client) GetProject(ctx context.Context, conn liveclient.Connection, project string) (liveclient.RemoteProject, error) {
	if err := c.failIfScripted("GetProject"); err != nil {
		return liveclient.RemoteProject{}, err
	}
	p, ok := c.Projects[project]
	if !ok {
		return liveclient.RemoteProject{}, errs.NotFound("project " + project)
	}
	return p, nil
}

func (c *Client) GetRepository(ctx context.Context, conn liveclient.Connection, project, repository string) (liveclient.RemoteRepository, error) {
	if err := c.failIfScripted("GetRepository"); err != nil {
		return liveclient.RemoteRepository{}, err
	}
	r, ok := c.Repositories[project+"/"+repository]
	if !ok {
		return liveclient.RemoteRepository{}, errs.NotFound("repository " + repository)
	}
	return r, nil
}

func (c *Client) GetAvatar(ctx context.Context, conn liveclient.Connection, identityID string) ([]byte, error) {
	if err := c.failIfScripted("GetAvatar"); err != nil {
		return nil, err
	}
	return c.Avatars[identityID], nil
}

func (c *Client) RunWIQL(ctx context.Context, conn liveclient.Connection, project, wiql string) ([]int64, error) {
	if err := c.failIfScripted("RunWIQL"); err != nil {
		return nil, err
	}
	return c.WIQLResults[project+"/"+wiql], nil
}
