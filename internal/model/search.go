package model

// UpdateKind identifies which family of Updater a dispatch targets.
// All is the aggregate that fans out to every kind.
type UpdateKind int

const (
	UpdateAll UpdateKind = iota
	UpdateQuery
	UpdatePullRequests
	UpdatePipeline
	UpdateMyWorkItems
)

func (k UpdateKind) String() string {
	switch k {
	case UpdateAll:
		return "All"
	case UpdateQuery:
		return "Query"
	case UpdatePullRequests:
		return "PullRequests"
	case UpdatePipeline:
		return "Pipeline"
	case UpdateMyWorkItems:
		return "MyWorkItems"
	default:
		return "Unknown"
	}
}

// Search is the closed tagged union of the four search kinds the UI can
// request a refresh for, used in place of an open subtype hierarchy.
//
// Exactly one of the Query/PullRequest/Pipeline/MyWorkItems fields is
// non-nil, selected by Kind. NaturalKey labels a search in log lines
// and lets LiveDataProvider match an update event to its search.
type Search struct {
	Kind         UpdateKind
	Query        *QueryDef
	PullRequest  *PullRequestSearchDef
	Pipeline     *DefinitionSearchDef
	MyWorkItems  *ProjectSettings
}

// NaturalKey returns a string uniquely identifying this search, used to
// match update events to it and to label it in logs.
func (s Search) NaturalKey() string {
	switch s.Kind {
	case UpdateQuery:
		if s.Query != nil {
			return "query:" + s.Query.URL
		}
	case UpdatePullRequests:
		if s.PullRequest != nil {
			return "pr:" + s.PullRequest.URL + "|" + string(s.PullRequest.View)
		}
	case UpdatePipeline:
		if s.Pipeline != nil {
			return "pipeline:" + s.Pipeline.URL
		}
	case UpdateMyWorkItems:
		if s.MyWorkItems != nil {
			return "mywi:" + s.MyWorkItems.OrganizationURL + "|" + s.MyWorkItems.ProjectName
		}
	}
	return "all"
}

// MyWorkItemsWIQL is the literal WIQL the MyWorkItemsUpdater synthesizes
// for every discovered (org, project) pair.
const MyWorkItemsWIQL = "SELECT [System.Id] FROM WorkItems WHERE [System.AssignedTo] = @Me " +
	"AND [System.State] <> 'Closed' AND [System.State] <> 'Removed' " +
	"ORDER BY [System.ChangedDate] DESC"
