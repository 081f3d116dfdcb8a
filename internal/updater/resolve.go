package updater

import (
	"context"

	"github.com/rohitkatta517/azdevcache/internal/errs"
	"github.com/rohitkatta517/azdevcache/internal/liveclient"
	"github.com/rohitkatta517/azdevcache/internal/model"
	"github.com/rohitkatta517/azdevcache/internal/store"
	"github.com/rohitkatta517/azdevcache/internal/urlresolve"
)

// deps is the narrow set of collaborators every concrete updater needs:
// the authenticated path to the remote service and the cache store to
// persist into. Concrete updaters embed it rather than repeating the
// same four fields four times.
type deps struct {
	Accounts liveclient.AccountProvider
	Conns    liveclient.ConnectionProvider
	Client   liveclient.LiveClient
	Cache    *store.CacheStore
}

// connect resolves the authenticated identity and a pooled connection to
// the organization owning rawURL, step 1 of the generic sync algorithm.
func (d deps) connect(ctx context.Context, rawURL string) (model.ParsedURL, liveclient.Connection, liveclient.Account, error) {
	parsed, err := urlresolve.Parse(rawURL)
	if err != nil {
		return model.ParsedURL{}, nil, liveclient.Account{}, err
	}
	return d.connectParsed(ctx, parsed)
}

// connectParsed is connect's second half, reused by MyWorkItemsUpdater
// which builds its ParsedURL from a ProjectSettings row instead of a
// single definition URL.
func (d deps) connectParsed(ctx context.Context, parsed model.ParsedURL) (model.ParsedURL, liveclient.Connection, liveclient.Account, error) {
	account, err := d.Accounts.GetDefaultAccount(ctx)
	if err != nil {
		return model.ParsedURL{}, nil, liveclient.Account{}, errs.Validation("not signed in", err)
	}
	conn, err := d.Conns.GetConnection(ctx, urlresolve.ConnectionURI(parsed), account)
	if err != nil {
		return model.ParsedURL{}, nil, liveclient.Account{}, err
	}
	return parsed, conn, account, nil
}

// ensureOrgProject is step 2 of the generic sync algorithm: locate or
// create the Organization and Project parent rows, fetching the
// project's remote metadata to keep Project.Name current on every sync.
func (d deps) ensureOrgProject(ctx context.Context, db store.DBTX, parsed model.ParsedURL, conn liveclient.Connection) (orgID, projectID int64, err error) {
	now := model.NowTicks()

	orgID, err = store.UpsertOrganization(ctx, db, parsed.Org, urlresolve.ConnectionURI(parsed), now)
	if err != nil {
		return 0, 0, errs.DataStoreInaccessible("upsert organization", err)
	}

	remoteProject, err := d.Client.GetProject(ctx, conn, parsed.Project)
	if err != nil {
		return 0, 0, err
	}

	projectID, err = store.UpsertProject(ctx, db, model.Project{
		Name:           remoteProject.Name,
		ExternalID:     remoteProject.ID,
		Description:    remoteProject.Description,
		OrganizationID: orgID,
	}, now)
	if err != nil {
		return 0, 0, errs.DataStoreInaccessible("upsert project", err)
	}

	return orgID, projectID, nil
}

// cachedProject resolves rawURL's (organization, project) pair to cached
// row ids without touching the network, the lookup PullRequestUpdater's
// GetCachedDataForSearch uses. ok is false if either row has never been
// synced yet.
func (d deps) cachedProject(ctx context.Context, rawURL string) (parsed model.ParsedURL, projectID int64, ok bool, err error) {
	parsed, err = urlresolve.Parse(rawURL)
	if err != nil {
		return model.ParsedURL{}, 0, false, err
	}
	org, found, err := d.Cache.GetOrganizationByConnection(ctx, urlresolve.ConnectionURI(parsed))
	if err != nil {
		return model.ParsedURL{}, 0, false, errs.DataStoreInaccessible("read organization", err)
	}
	if !found {
		return parsed, 0, false, nil
	}
	project, found, err := d.Cache.GetProjectByOrgAndName(ctx, org.ID, parsed.Project)
	if err != nil {
		return model.ParsedURL{}, 0, false, errs.DataStoreInaccessible("read project", err)
	}
	if !found {
		return parsed, 0, false, nil
	}
	return parsed, project.ID, true, nil
}

// ensureIdentity upserts the Identity row for a remote (externalID,
// name) pair and returns its row id, skipping the write when externalID
// is empty (unassigned work items, system-authored builds, etc.).
func ensureIdentity(ctx context.Context, db store.DBTX, externalID, name, loginID string) (int64, error) {
	if externalID == "" {
		return 0, nil
	}
	now := model.NowTicks()
	id, err := store.UpsertIdentity(ctx, db, model.Identity{
		Name:       name,
		ExternalID: externalID,
		LoginID:    loginID,
	}, now)
	if err != nil {
		return 0, errs.DataStoreInaccessible("upsert identity", err)
	}
	return id, nil
}
