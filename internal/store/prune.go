package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/rohitkatta517/azdevcache/internal/model"
)

// PruneQueryWorkItemsOlderThan deletes query_work_items join rows whose
// time_updated is older than cutoff, for one query. Used by QueryUpdater
// and MyWorkItemsUpdater to drop the join rows their sync did not touch.
func PruneQueryWorkItemsOlderThan(ctx context.Context, db DBTX, queryID int64, cutoff model.Ticks) error {
	_, err := db.ExecContext(ctx, `
		DELETE FROM query_work_items WHERE query_id = ? AND time_updated < ?
	`, queryID, int64(cutoff))
	return err
}

// myWorkItemsExternalIDPattern matches the synthesized key
// MyWorkItemsExternalID builds, letting the scheduled sweep single out
// "my work items" join rows for their own, much tighter TTL without a
// dedicated join-row kind column.
const myWorkItemsExternalIDPattern = "my-work-items:%"

// PruneAllQueryWorkItemsOlderThan deletes stale join rows across every
// saved query (excluding the synthesized MyWorkItems queries, which are
// pruned separately on their own cutoff), used by the scheduled sweep
// rather than a single sync pass.
func PruneAllQueryWorkItemsOlderThan(ctx context.Context, db DBTX, cutoff model.Ticks) error {
	_, err := db.ExecContext(ctx, `
		DELETE FROM query_work_items
		WHERE time_updated < ?
		AND query_id NOT IN (SELECT id FROM queries WHERE external_id LIKE ?)
	`, int64(cutoff), myWorkItemsExternalIDPattern)
	return err
}

// PruneMyWorkItemsQueryWorkItemsOlderThan deletes stale join rows for the
// synthesized MyWorkItems queries, on their own cutoff — the assignment
// set churns far faster than a saved query's, so it gets a tighter TTL.
func PruneMyWorkItemsQueryWorkItemsOlderThan(ctx context.Context, db DBTX, cutoff model.Ticks) error {
	_, err := db.ExecContext(ctx, `
		DELETE FROM query_work_items
		WHERE time_updated < ?
		AND query_id IN (SELECT id FROM queries WHERE external_id LIKE ?)
	`, int64(cutoff), myWorkItemsExternalIDPattern)
	return err
}

// PrunePullRequestSearchPullRequestsOlderThan deletes stale join rows for
// one search.
func PrunePullRequestSearchPullRequestsOlderThan(ctx context.Context, db DBTX, searchID int64, cutoff model.Ticks) error {
	_, err := db.ExecContext(ctx, `
		DELETE FROM pull_request_search_pull_requests WHERE search_id = ? AND time_updated < ?
	`, searchID, int64(cutoff))
	return err
}

// PruneBuildsOlderThan deletes Build rows older than the buildRetention
// cutoff.
func PruneBuildsOlderThan(ctx context.Context, db DBTX, cutoff model.Ticks) error {
	_, err := db.ExecContext(ctx, `DELETE FROM builds WHERE time_updated < ?`, int64(cutoff))
	return err
}

// PruneOrphanWorkItems deletes WorkItem rows that appear in no
// query_work_items join row. Must run after
// TTL prune so newly orphaned parents are collected in the same pass.
func PruneOrphanWorkItems(ctx context.Context, db DBTX) error {
	_, err := db.ExecContext(ctx, `
		DELETE FROM work_items WHERE id NOT IN (SELECT work_item_id FROM query_work_items)
	`)
	return err
}

// PruneOrphanPullRequests deletes PullRequest rows that appear in no
// pull_request_search_pull_requests join row.
func PruneOrphanPullRequests(ctx context.Context, db DBTX) error {
	_, err := db.ExecContext(ctx, `
		DELETE FROM pull_requests WHERE id NOT IN (SELECT pull_request_id FROM pull_request_search_pull_requests)
	`)
	return err
}

// PruneOrphanDefinitions deletes Definition rows referenced by no Build
// row.
func PruneOrphanDefinitions(ctx context.Context, db DBTX) error {
	_, err := db.ExecContext(ctx, `
		DELETE FROM definitions WHERE id NOT IN (SELECT definition_id FROM builds)
	`)
	return err
}

// RunScheduledPrune runs the full two-phase sweep (TTL then orphan) that
// DataUpdateService triggers on a schedule and at the end of each sync
// pass. TTL prune always runs before orphan prune so rows orphaned by
// this pass's own TTL prune are collected too.
func RunScheduledPrune(ctx context.Context, cache *CacheStore, cfg PruneConfig) error {
	now := model.NowTicks()
	buildCutoff := now.AddDuration(-cfg.BuildRetention)
	queryCutoff := now.AddDuration(-cfg.QueryWorkItemTTL)
	myWorkItemsCutoff := now.AddDuration(-cfg.MyWorkItemsTTL)
	prCutoff := now.AddDuration(-cfg.QueryWorkItemTTL)

	return cache.WithTx(ctx, func(tx *sql.Tx) error {
		// TTL prune first, so newly orphaned parents are collected in
		// the same pass's orphan prune below.
		if err := PruneAllQueryWorkItemsOlderThan(ctx, tx, queryCutoff); err != nil {
			return err
		}
		if err := PruneMyWorkItemsQueryWorkItemsOlderThan(ctx, tx, myWorkItemsCutoff); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM pull_request_search_pull_requests WHERE time_updated < ?
		`, int64(prCutoff)); err != nil {
			return err
		}
		if err := PruneBuildsOlderThan(ctx, tx, buildCutoff); err != nil {
			return err
		}

		if err := PruneOrphanWorkItems(ctx, tx); err != nil {
			return err
		}
		if err := PruneOrphanPullRequests(ctx, tx); err != nil {
			return err
		}
		return PruneOrphanDefinitions(ctx, tx)
	})
}

// PruneConfig carries the TTL knobs RunScheduledPrune needs, mirroring
// config.Config's prune-related fields without importing the config
// package (avoids a dependency cycle: config doesn't need to know about
// store).
type PruneConfig struct {
	BuildRetention   time.Duration
	QueryWorkItemTTL time.Duration
	MyWorkItemsTTL   time.Duration
}
