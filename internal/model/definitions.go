package model

// PullRequestView selects the server-side filter a PullRequestSearchDef
// applies when fetching from the remote service.
type PullRequestView string

const (
	ViewMine     PullRequestView = "Mine"
	ViewAssigned PullRequestView = "Assigned"
	ViewAll      PullRequestView = "All"
)

// QueryDef is a persisted work-item-query search definition.
type QueryDef struct {
	ID         int64
	Name       string
	URL        string
	IsTopLevel bool
}

// PullRequestSearchDef is a persisted pull-request search definition.
type PullRequestSearchDef struct {
	ID         int64
	URL        string
	Name       string
	View       PullRequestView
	IsTopLevel bool
}

// DefinitionSearchDef is a persisted pipeline-definition search definition.
type DefinitionSearchDef struct {
	ID         int64
	Name       string
	ExternalID int64
	URL        string
	IsTopLevel bool
}

// ProjectSettings pins an organization/project pair; it implicitly
// defines that project's MyWorkItems search.
type ProjectSettings struct {
	ID              int64
	OrganizationURL string
	ProjectName     string
}

// ParsedURL is the decomposition of a definition's URL into the
// components needed to resolve a remote connection.
type ParsedURL struct {
	HostKind    string // e.g. "visualstudio.com", "dev.azure.com"
	Org         string
	Project     string
	SubResource string // optional: repository name, definition path, etc.
}
