package updater

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rohitkatta517/azdevcache/internal/errs"
	"github.com/rohitkatta517/azdevcache/internal/liveclient"
	"github.com/rohitkatta517/azdevcache/internal/model"
	"github.com/rohitkatta517/azdevcache/internal/store"
)

// PullRequestUpdater syncs a saved pull-request search against one
// repository, applying the search's server-side view filter (Mine,
// Assigned, All) and reducing each PR's policy evaluations to its worst
// outcome for display.
type PullRequestUpdater struct {
	deps
}

// NewPullRequestUpdater constructs a PullRequestUpdater.
func NewPullRequestUpdater(accounts liveclient.AccountProvider, conns liveclient.ConnectionProvider, client liveclient.LiveClient, cache *store.CacheStore) *PullRequestUpdater {
	return &PullRequestUpdater{deps{Accounts: accounts, Conns: conns, Client: client, Cache: cache}}
}

func (u *PullRequestUpdater) UpdateData(ctx context.Context, search model.Search) error {
	def := search.PullRequest
	if def == nil {
		return errs.InternalInvariant("PullRequestUpdater invoked without a PullRequestSearchDef", nil)
	}

	parsed, conn, account, err := u.connect(ctx, def.URL)
	if err != nil {
		return err
	}

	remoteRepo, err := u.Client.GetRepository(ctx, conn, parsed.Project, parsed.SubResource)
	if err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return errs.Cancelled("pull request sync cancelled before fetch")
	}

	prs, err := u.Client.SearchPullRequests(ctx, conn, parsed.Project, remoteRepo.ID, def.View, account.LoginID)
	if err != nil {
		return err
	}

	worst, err := fetchWorstPolicyStatuses(ctx, u.Client, conn, parsed.Project, prs)
	if err != nil {
		return err
	}

	now := model.NowTicks()
	return u.Cache.WithTx(ctx, func(tx *sql.Tx) error {
		_, projectID, err := u.ensureOrgProject(ctx, tx, parsed, conn)
		if err != nil {
			return err
		}

		repoRowID, err := store.UpsertRepository(ctx, tx, model.Repository{
			Name:       remoteRepo.Name,
			ExternalID: remoteRepo.ID,
			ProjectID:  projectID,
			CloneURL:   remoteRepo.CloneURL,
			IsPrivate:  remoteRepo.IsPrivate,
		}, now)
		if err != nil {
			return errs.DataStoreInaccessible("upsert repository", err)
		}

		searchRowID, err := store.UpsertPullRequestSearch(ctx, tx, model.PullRequestSearch{
			RepositoryID: repoRowID,
			Username:     account.LoginID,
			ProjectID:    projectID,
			ViewID:       def.View,
		}, now)
		if err != nil {
			return errs.DataStoreInaccessible("upsert pull request search", err)
		}

		for _, pr := range prs {
			creatorID, err := ensureIdentity(ctx, tx, pr.CreatorID, pr.CreatorName, "")
			if err != nil {
				return err
			}

			status := worst[pr.ID]
			prRowID, err := store.UpsertPullRequest(ctx, tx, model.PullRequest{
				ExternalID:   pr.ID,
				Title:        pr.Title,
				URL:          pr.URL,
				RepositoryID: repoRowID,
				CreatorID:    creatorID,
				Status:       pr.Status,
				PolicyStatus: status,
				TargetBranch: pr.TargetBranch,
				CreationDate: model.FromTime(pr.CreationDate),
				HTMLURL:      pr.HTMLURL,
			})
			if err != nil {
				return errs.DataStoreInaccessible("upsert pull request", err)
			}

			if err := store.UpsertPullRequestSearchPullRequest(ctx, tx, searchRowID, prRowID, now); err != nil {
				return errs.DataStoreInaccessible("upsert pull_request_search_pull_request", err)
			}
		}

		return store.PrunePullRequestSearchPullRequestsOlderThan(ctx, tx, searchRowID, now)
	})
}

func (u *PullRequestUpdater) GetCachedDataForSearch(ctx context.Context, search model.Search) (any, error) {
	def := search.PullRequest
	if def == nil {
		return nil, errs.InternalInvariant("PullRequestUpdater invoked without a PullRequestSearchDef", nil)
	}
	parsed, projectID, ok, err := u.cachedProject(ctx, def.URL)
	if err != nil || !ok {
		return nil, err
	}
	account, err := u.Accounts.GetDefaultAccount(ctx)
	if err != nil {
		return nil, errs.Validation("not signed in", err)
	}
	repo, ok, err := u.Cache.GetRepositoryByProjectAndName(ctx, projectID, parsed.SubResource)
	if err != nil {
		return nil, errs.DataStoreInaccessible("read repository", err)
	}
	if !ok {
		return nil, nil
	}
	s, ok, err := u.Cache.GetPullRequestSearch(ctx, projectID, repo.ID, account.LoginID, def.View)
	if err != nil {
		return nil, errs.DataStoreInaccessible("read pull request search", err)
	}
	if !ok {
		return nil, nil
	}
	return s, nil
}

func (u *PullRequestUpdater) GetCachedChildren(ctx context.Context, search model.Search) ([]any, error) {
	cached, err := u.GetCachedDataForSearch(ctx, search)
	if err != nil || cached == nil {
		return nil, err
	}
	s := cached.(model.PullRequestSearch)
	prs, err := u.Cache.GetPullRequestsForSearch(ctx, s.ID)
	if err != nil {
		return nil, errs.DataStoreInaccessible("read pull requests", err)
	}
	out := make([]any, len(prs))
	for i, pr := range prs {
		out[i] = pr
	}
	return out, nil
}

func (u *PullRequestUpdater) IsNewOrStale(ctx context.Context, search model.Search, cooldown time.Duration) (bool, error) {
	cached, err := u.GetCachedDataForSearch(ctx, search)
	if err != nil {
		return false, err
	}
	if cached == nil {
		return true, nil
	}
	s := cached.(model.PullRequestSearch)
	return staleAfter(s.TimeUpdated.Time(), cooldown), nil
}

func (u *PullRequestUpdater) PruneObsoleteData(ctx context.Context) error {
	return u.Cache.WithTx(ctx, func(tx *sql.Tx) error {
		return store.PruneOrphanPullRequests(ctx, tx)
	})
}

// fetchWorstPolicyStatuses fetches each pull request's policy evaluations
// concurrently and reduces each to its worst outcome. A failed fetch
// leaves that PR's status at the zero value (Approved) rather than
// failing the whole sync.
func fetchWorstPolicyStatuses(ctx context.Context, client liveclient.LiveClient, conn liveclient.Connection, project string, prs []liveclient.RemotePullRequest) (map[int64]model.PolicyStatus, error) {
	var mu sync.Mutex
	out := make(map[int64]model.PolicyStatus, len(prs))

	g, gctx := errgroup.WithContext(ctx)
	for _, pr := range prs {
		pr := pr
		g.Go(func() error {
			evals, err := client.GetPolicyEvaluations(gctx, conn, project, pr.ID)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				return nil
			}
			statuses := make([]model.PolicyStatus, len(evals))
			for i, e := range evals {
				statuses[i] = liveclient.ParsePolicyStatus(e.Status)
			}
			mu.Lock()
			out[pr.ID] = model.WorstPolicyStatus(statuses)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errs.Cancelled("policy evaluation fetch cancelled")
	}
	return out, nil
}
