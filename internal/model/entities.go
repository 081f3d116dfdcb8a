package model

// Organization is the cache row for a remote collaboration-service
// organization.
type Organization struct {
	ID           int64
	Name         string
	Connection   string // unique: the pooled-connection key, e.g. "https://dev.azure.com/acme"
	TimeUpdated  Ticks
	TimeLastSync Ticks
}

// Project is the cache row for a project within an Organization.
type Project struct {
	ID             int64
	Name           string
	ExternalID     string // GUID, unique
	Description    string
	OrganizationID int64
	TimeUpdated    Ticks
}

// Identity is the cache row for a person or service identity.
type Identity struct {
	ID          int64
	Name        string
	ExternalID  string // GUID, unique
	AvatarBlob  []byte
	LoginID     string
	TimeUpdated Ticks
}

// Repository is the cache row for a git repository within a Project.
type Repository struct {
	ID          int64
	Name        string
	ExternalID  string
	ProjectID   int64
	CloneURL    string
	IsPrivate   bool
	TimeUpdated Ticks
}

// Query is the cache row for a work-item query, user-defined or
// synthesized (e.g. MyWorkItems).
type Query struct {
	ID          int64
	ExternalID  string // unique(ExternalID, Username)
	DisplayName string
	Username    string
	ProjectID   int64
	TimeUpdated Ticks
}

// MyWorkItemsExternalID builds the synthesized query key for the implicit
// "my work items" search.
func MyWorkItemsExternalID(org, project string) string {
	return "my-work-items:" + org + "|" + project
}

// WorkItemType is the cache row for a work-item type definition, scoped
// to a project (unique(Name, ProjectID)).
type WorkItemType struct {
	ID          int64
	Name        string
	Icon        string
	Color       string
	Description string
	ProjectID   int64
}

// TypePriority implements the work-item-type sort order: lower sorts
// first. Unknown types fall in the middle at priority 5.
func TypePriority(typeName string) int {
	switch typeName {
	case "Bug":
		return 0
	case "Feature":
		return 1
	case "Product Backlog Item", "ProductBacklogItem":
		return 2
	case "User Story", "UserStory":
		return 3
	case "Task":
		return 10
	default:
		return 5
	}
}

// WorkItem is the cache row for a single work item.
type WorkItem struct {
	ID             int64
	ExternalID     int64
	Title          string
	HTMLURL        string
	State          string
	Reason         string
	AssignedToID   int64
	CreatedDate    Ticks
	CreatedByID    int64
	ChangedDate    Ticks
	ChangedByID    int64
	WorkItemTypeID int64
}

// QueryWorkItem is the join row making a WorkItem belong to a Query
// (unique(QueryID, WorkItemID)); the sole pruneable link for work items.
type QueryWorkItem struct {
	ID          int64
	QueryID     int64
	WorkItemID  int64
	TimeUpdated Ticks
}

// PullRequestSearch is the cache row for a persisted PR search scoped to
// a repository and user (unique(ProjectID, RepositoryID, Username, ViewID)).
type PullRequestSearch struct {
	ID           int64
	RepositoryID int64
	Username     string
	ProjectID    int64
	ViewID       PullRequestView
	TimeUpdated  Ticks
}

// PolicyStatus is the worst-severity outcome of a pull request's policy
// evaluations; ordered least-blocking first, so the worst outcome is
// the largest value.
type PolicyStatus int

const (
	PolicyApproved PolicyStatus = iota
	PolicyNotApplicable
	PolicyRunning
	PolicyQueued
	PolicyBroken
	PolicyRejected
)

func (p PolicyStatus) String() string {
	switch p {
	case PolicyApproved:
		return "Approved"
	case PolicyRunning:
		return "Running"
	case PolicyQueued:
		return "Queued"
	case PolicyRejected:
		return "Rejected"
	case PolicyBroken:
		return "Broken"
	case PolicyNotApplicable:
		return "NotApplicable"
	default:
		return "Unknown"
	}
}

// WorstPolicyStatus reduces a set of per-check policy statuses to the
// single worst (most-blocking) outcome.
func WorstPolicyStatus(statuses []PolicyStatus) PolicyStatus {
	worst := PolicyApproved
	for _, s := range statuses {
		if s > worst {
			worst = s
		}
	}
	return worst
}

// PullRequest is the cache row for a single pull request.
type PullRequest struct {
	ID                  int64
	ExternalID          int64
	Title               string
	URL                 string
	RepositoryID        int64
	CreatorID           int64
	Status              string
	PolicyStatus        PolicyStatus
	PolicyStatusReason  string
	TargetBranch        string
	CreationDate        Ticks
	HTMLURL             string
}

// PullRequestSearchPullRequest is the join row for a PR belonging to a
// search (unique(SearchID, PullRequestID)).
type PullRequestSearchPullRequest struct {
	ID              int64
	SearchID        int64
	PullRequestID   int64
	TimeUpdated     Ticks
}

// Definition is the cache row for a pipeline/build definition.
type Definition struct {
	ID           int64
	ExternalID   int64
	Name         string
	ProjectID    int64
	CreationDate Ticks
	HTMLURL      string
	TimeUpdated  Ticks
}

// Build is the cache row for a single build run of a Definition.
type Build struct {
	ID             int64
	ExternalID     int64
	BuildNumber    string
	Status         string
	Result         string
	QueueTime      Ticks
	StartTime      Ticks
	FinishTime     Ticks
	URL            string
	DefinitionID   int64
	SourceBranch   string
	TriggerMessage string
	RequesterID    int64
	TimeUpdated    Ticks
}
