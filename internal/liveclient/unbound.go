package liveclient

import (
	"context"

	"github.com/rohitkatta517/azdevcache/internal/errs"
	"github.com/rohitkatta517/azdevcache/internal/model"
)

var errUnbound = errs.Unsupported("no live transport bound")

// UnboundClient is a LiveClient that rejects every call. It lets a
// deployment start up and serve whatever is already cached without a
// real transport bound, since the wire format to the remote
// collaboration service is out of this core's scope; a real deployment
// replaces it with a concrete LiveClient.
type UnboundClient struct{}

// NewUnboundClient constructs an UnboundClient.
func NewUnboundClient() *UnboundClient { return &UnboundClient{} }

func (UnboundClient) GetWorkItemQuery(ctx context.Context, conn Connection, queryID string) (RemoteQuery, error) {
	return RemoteQuery{}, errUnbound
}

func (UnboundClient) GetWorkItems(ctx context.Context, conn Connection, ids []int64) ([]RemoteWorkItem, error) {
	return nil, errUnbound
}

func (UnboundClient) GetWorkItemType(ctx context.Context, conn Connection, project, name string) (RemoteWorkItemType, error) {
	return RemoteWorkItemType{}, errUnbound
}

func (UnboundClient) SearchPullRequests(ctx context.Context, conn Connection, project, repositoryID string, view model.PullRequestView, self string) ([]RemotePullRequest, error) {
	return nil, errUnbound
}

func (UnboundClient) GetPolicyEvaluations(ctx context.Context, conn Connection, project string, prID int64) ([]RemotePolicyEvaluation, error) {
	return nil, errUnbound
}

func (UnboundClient) GetBuildDefinitions(ctx context.Context, conn Connection, project string) ([]RemoteBuildDefinition, error) {
	return nil, errUnbound
}

func (UnboundClient) GetBuilds(ctx context.Context, conn Connection, project string, definitionID int64) ([]RemoteBuild, error) {
	return nil, errUnbound
}

func (UnboundClient) GetProject(ctx context.Context, conn Connection, project string) (RemoteProject, error) {
	return RemoteProject{}, errUnbound
}

func (UnboundClient) GetRepository(ctx context.Context, conn Connection, project, repository string) (RemoteRepository, error) {
	return RemoteRepository{}, errUnbound
}

func (UnboundClient) GetAvatar(ctx context.Context, conn Connection, identityID string) ([]byte, error) {
	return nil, errUnbound
}

func (UnboundClient) RunWIQL(ctx context.Context, conn Connection, project, wiql string) ([]int64, error) {
	return nil, errUnbound
}
