// Package updater implements the four concrete data updaters (work-item
// query, pull requests, pipeline, and the implicit "my work items"
// search) behind one shared interface, plus the generic
// is-it-stale-enough-to-refresh and prune-the-children gates
// DataUpdateService drives every sync pass through.
package updater

import (
	"context"
	"time"

	"github.com/rohitkatta517/azdevcache/internal/model"
)

// Updater is the shared contract every concrete updater satisfies.
// CacheManager's periodic sweep and LiveDataProvider's warm-read path
// call IsNewOrStale to decide whether a fetch is warranted; a dispatch
// calls UpdateData to run it. An on-demand CacheManager.RequestRefresh
// dispatches without consulting IsNewOrStale. PruneObsoleteData runs on
// a schedule, not every dispatch, to drop rows the last fetch dropped
// or that aged out. GetCachedDataForSearch and
// GetCachedChildren never touch the network; they serve
// LiveDataProvider's warm-read path.
type Updater interface {
	// UpdateData fetches the remote state for search and applies it to
	// the cache store inside one transaction.
	UpdateData(ctx context.Context, search model.Search) error

	// GetCachedDataForSearch looks up the single row identifying search
	// itself (e.g. the Query or Definition row), nil if never fetched.
	GetCachedDataForSearch(ctx context.Context, search model.Search) (any, error)

	// GetCachedChildren returns search's cached child rows in render
	// order (e.g. the WorkItems for a Query, the Builds for a Definition).
	GetCachedChildren(ctx context.Context, search model.Search) ([]any, error)

	// IsNewOrStale reports whether search has never been fetched or its
	// last fetch is older than cooldown.
	IsNewOrStale(ctx context.Context, search model.Search, cooldown time.Duration) (bool, error)

	// PruneObsoleteData removes rows made obsolete by retention rules
	// (TTL expiry, orphaning) rather than by a single sync's diff.
	PruneObsoleteData(ctx context.Context) error
}

// staleAfter reports whether last is the zero time or older than ttl.
func staleAfter(last time.Time, ttl time.Duration) bool {
	if last.IsZero() {
		return true
	}
	return time.Since(last) >= ttl
}

// batches splits ids into chunks of at most size, preserving order. Used
// by QueryUpdater and MyWorkItemsUpdater to stay under the remote
// service's per-request work-item id cap.
func batches(ids []int64, size int) [][]int64 {
	if size <= 0 {
		size = len(ids)
	}
	var out [][]int64
	for len(ids) > 0 {
		n := size
		if n > len(ids) {
			n = len(ids)
		}
		out = append(out, ids[:n])
		ids = ids[n:]
	}
	return out
}
