package updater

import (
	"context"
	"database/sql"
	"time"

	"github.com/rohitkatta517/azdevcache/internal/errs"
	"github.com/rohitkatta517/azdevcache/internal/liveclient"
	"github.com/rohitkatta517/azdevcache/internal/model"
	"github.com/rohitkatta517/azdevcache/internal/store"
)

// DefinitionStaleness is the minimum interval between re-writing a
// Definition row's metadata; build definitions barely change, so a sync
// that only found new builds shouldn't also rewrite the definition row
// every pass.
const DefinitionStaleness = 4 * time.Hour

// PipelineUpdater syncs a saved pipeline (build definition) search: the
// Definition row itself is rate-limited, its Build rows are not.
type PipelineUpdater struct {
	deps
}

// NewPipelineUpdater constructs a PipelineUpdater.
func NewPipelineUpdater(accounts liveclient.AccountProvider, conns liveclient.ConnectionProvider, client liveclient.LiveClient, cache *store.CacheStore) *PipelineUpdater {
	return &PipelineUpdater{deps{Accounts: accounts, Conns: conns, Client: client, Cache: cache}}
}

func (u *PipelineUpdater) UpdateData(ctx context.Context, search model.Search) error {
	def := search.Pipeline
	if def == nil {
		return errs.InternalInvariant("PipelineUpdater invoked without a DefinitionSearchDef", nil)
	}

	parsed, conn, _, err := u.connect(ctx, def.URL)
	if err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return errs.Cancelled("pipeline sync cancelled before fetch")
	}

	definitions, err := u.Client.GetBuildDefinitions(ctx, conn, parsed.Project)
	if err != nil {
		return err
	}
	var remoteDef *liveclient.RemoteBuildDefinition
	for i := range definitions {
		if definitions[i].ID == def.ExternalID {
			remoteDef = &definitions[i]
			break
		}
	}
	if remoteDef == nil {
		return errs.NotFound("build definition " + parsed.SubResource)
	}

	builds, err := u.Client.GetBuilds(ctx, conn, parsed.Project, remoteDef.ID)
	if err != nil {
		return err
	}

	now := model.NowTicks()
	return u.Cache.WithTx(ctx, func(tx *sql.Tx) error {
		_, projectID, err := u.ensureOrgProject(ctx, tx, parsed, conn)
		if err != nil {
			return err
		}

		_, defRowID, err := store.UpsertDefinitionIfStale(ctx, tx, model.Definition{
			ExternalID:   remoteDef.ID,
			Name:         remoteDef.Name,
			ProjectID:    projectID,
			CreationDate: model.FromTime(remoteDef.CreationDate),
			HTMLURL:      remoteDef.HTMLURL,
		}, now, DefinitionStaleness)
		if err != nil {
			return errs.DataStoreInaccessible("upsert definition", err)
		}

		for _, b := range builds {
			requesterID, err := ensureIdentity(ctx, tx, b.RequesterID, b.RequesterName, "")
			if err != nil {
				return err
			}

			if _, err := store.UpsertBuild(ctx, tx, model.Build{
				ExternalID:     b.ID,
				BuildNumber:    b.BuildNumber,
				Status:         b.Status,
				Result:         b.Result,
				QueueTime:      model.FromTime(b.QueueTime),
				StartTime:      model.FromTime(b.StartTime),
				FinishTime:     model.FromTime(b.FinishTime),
				URL:            b.URL,
				DefinitionID:   defRowID,
				SourceBranch:   b.SourceBranch,
				TriggerMessage: b.TriggerMessage,
				RequesterID:    requesterID,
			}, now); err != nil {
				return errs.DataStoreInaccessible("upsert build", err)
			}
		}

		return nil
	})
}

func (u *PipelineUpdater) GetCachedDataForSearch(ctx context.Context, search model.Search) (any, error) {
	def := search.Pipeline
	if def == nil {
		return nil, errs.InternalInvariant("PipelineUpdater invoked without a DefinitionSearchDef", nil)
	}
	d, ok, err := u.Cache.GetDefinitionByExternalID(ctx, def.ExternalID)
	if err != nil {
		return nil, errs.DataStoreInaccessible("read definition", err)
	}
	if !ok {
		return nil, nil
	}
	return d, nil
}

func (u *PipelineUpdater) GetCachedChildren(ctx context.Context, search model.Search) ([]any, error) {
	cached, err := u.GetCachedDataForSearch(ctx, search)
	if err != nil || cached == nil {
		return nil, err
	}
	d := cached.(model.Definition)
	builds, err := u.Cache.GetBuildsForDefinition(ctx, d.ID)
	if err != nil {
		return nil, errs.DataStoreInaccessible("read builds", err)
	}
	out := make([]any, len(builds))
	for i, b := range builds {
		out[i] = b
	}
	return out, nil
}

func (u *PipelineUpdater) IsNewOrStale(ctx context.Context, search model.Search, cooldown time.Duration) (bool, error) {
	cached, err := u.GetCachedDataForSearch(ctx, search)
	if err != nil {
		return false, err
	}
	if cached == nil {
		return true, nil
	}
	// The definition row is rewritten at most every DefinitionStaleness,
	// but every sync rewrites its builds, so the newest build row marks
	// the last fetch.
	d := cached.(model.Definition)
	last := d.TimeUpdated
	builds, err := u.Cache.GetBuildsForDefinition(ctx, d.ID)
	if err != nil {
		return false, errs.DataStoreInaccessible("read builds", err)
	}
	for _, b := range builds {
		if b.TimeUpdated > last {
			last = b.TimeUpdated
		}
	}
	return staleAfter(last.Time(), cooldown), nil
}

func (u *PipelineUpdater) PruneObsoleteData(ctx context.Context) error {
	return u.Cache.WithTx(ctx, func(tx *sql.Tx) error {
		return store.PruneOrphanDefinitions(ctx, tx)
	})
}
