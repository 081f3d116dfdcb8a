// Package liveclient declares the narrow interfaces this core consumes
// from the remote collaboration service and the surrounding auth/
// connection infrastructure, plus a connection pool
// implementation. No concrete remote SDK binding lives here — the wire
// format is explicitly out of scope.
package liveclient

import (
	"context"
	"time"

	"github.com/rohitkatta517/azdevcache/internal/model"
)

// AccountProvider is the consumed credential-acquisition collaborator.
// The protocol that yields a bearer connection token is out of scope;
// this interface is the seam.
type AccountProvider interface {
	IsSignedIn(ctx context.Context) (bool, error)
	GetDefaultAccount(ctx context.Context) (Account, error)
	SignIn(ctx context.Context) error
	SignOut(ctx context.Context) error
}

// Account identifies the signed-in identity used to key pooled connections.
type Account struct {
	LoginID string
}

// Connection is an authenticated handle to one organization, as returned
// by ConnectionProvider and consumed by LiveClient method implementations.
type Connection interface {
	OrganizationURI() string
}

// ConnectionProvider resolves (and pools) connections to an organization
// for a given account.
type ConnectionProvider interface {
	GetConnection(ctx context.Context, orgURI string, account Account) (Connection, error)
}

// WorkItemQueryKind distinguishes the remote query kinds QueryUpdater
// supports vs. rejects.
type WorkItemQueryKind int

const (
	QueryFlat WorkItemQueryKind = iota
	QueryTree
	QueryOneHop
	QueryTemporary // unsaved; rejected with Unsupported
)

// RemoteQuery is the remote representation of a saved work-item query.
type RemoteQuery struct {
	ID       string
	Kind     WorkItemQueryKind
	WIQL     string
	Name     string
}

// RemoteWorkItem is the remote representation of one work item.
type RemoteWorkItem struct {
	ID             int64
	Title          string
	HTMLURL        string
	State          string
	Reason         string
	AssignedToID   string // external GUID
	AssignedToName string
	CreatedDate    time.Time
	CreatedByID    string
	CreatedByName  string
	ChangedDate    time.Time
	ChangedByID    string
	ChangedByName  string
	TypeName       string
}

// RemoteWorkItemType is the remote representation of a work-item type.
type RemoteWorkItemType struct {
	Name        string
	Icon        string
	Color       string
	Description string
}

// RemotePullRequest is the remote representation of one pull request.
type RemotePullRequest struct {
	ID             int64
	Title          string
	URL            string
	HTMLURL        string
	RepositoryID   string
	CreatorID      string
	CreatorName    string
	Status         string
	TargetBranch   string
	CreationDate   time.Time
}

// RemotePolicyEvaluation is one policy check result for a pull request.
type RemotePolicyEvaluation struct {
	Status string // maps to model.PolicyStatus via ParsePolicyStatus
	Reason string
}

// RemoteBuildDefinition is the remote representation of a pipeline definition.
type RemoteBuildDefinition struct {
	ID           int64
	Name         string
	CreationDate time.Time
	HTMLURL      string
}

// RemoteBuild is the remote representation of one build run.
type RemoteBuild struct {
	ID              int64
	BuildNumber     string
	Status          string
	Result          string
	QueueTime       time.Time
	StartTime       time.Time
	FinishTime      time.Time
	URL             string
	DefinitionID    int64
	SourceBranch    string
	TriggerMessage  string
	RequesterID     string
	RequesterName   string
}

// RemoteProject is the remote representation of a project.
type RemoteProject struct {
	ID          string
	Name        string
	Description string
}

// RemoteRepository is the remote representation of a git repository.
type RemoteRepository struct {
	ID        string
	Name      string
	CloneURL  string
	IsPrivate bool
}

// LiveClient is the full narrow surface consumed from the remote
// collaboration service. Every method is cancellable via
// ctx and fails with an errs.Remote-wrapped error on HTTP/transport
// failure.
type LiveClient interface {
	GetWorkItemQuery(ctx context.Context, conn Connection, queryID string) (RemoteQuery, error)
	GetWorkItems(ctx context.Context, conn Connection, ids []int64) ([]RemoteWorkItem, error)
	GetWorkItemType(ctx context.Context, conn Connection, project, name string) (RemoteWorkItemType, error)

	SearchPullRequests(ctx context.Context, conn Connection, project, repositoryID string, view model.PullRequestView, self string) ([]RemotePullRequest, error)
	GetPolicyEvaluations(ctx context.Context, conn Connection, project string, prID int64) ([]RemotePolicyEvaluation, error)

	GetBuildDefinitions(ctx context.Context, conn Connection, project string) ([]RemoteBuildDefinition, error)
	GetBuilds(ctx context.Context, conn Connection, project string, definitionID int64) ([]RemoteBuild, error)

	GetProject(ctx context.Context, conn Connection, project string) (RemoteProject, error)
	GetRepository(ctx context.Context, conn Connection, project, repository string) (RemoteRepository, error)

	GetAvatar(ctx context.Context, conn Connection, identityID string) ([]byte, error)

	// RunWIQL executes a WIQL literal (used by MyWorkItemsUpdater's
	// synthesized query, ) and returns the matching work item ids.
	RunWIQL(ctx context.Context, conn Connection, project, wiql string) ([]int64, error)
}

// ParsePolicyStatus maps a remote policy-evaluation status string to the
// ordered model.PolicyStatus enum used for worst-severity reduction.
func ParsePolicyStatus(s string) model.PolicyStatus {
	switch s {
	case "approved", "Approved":
		return model.PolicyApproved
	case "running", "Running":
		return model.PolicyRunning
	case "queued", "Queued":
		return model.PolicyQueued
	case "rejected", "Rejected":
		return model.PolicyRejected
	case "broken", "Broken":
		return model.PolicyBroken
	default:
		return model.PolicyNotApplicable
	}
}
