package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rohitkatta517/azdevcache/internal/model"
)

func newTestCacheStore(t *testing.T) *CacheStore {
	t.Helper()
	db, err := OpenCache(context.Background(), filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// seedQueryWorkItem creates a query (ordinary or MyWorkItems-shaped per
// externalID) with a single joined work item whose time_updated is
// ageAgo in the past, and returns the query row's id.
func seedQueryWorkItem(t *testing.T, ctx context.Context, db *CacheStore, externalID string, ageAgo time.Duration) int64 {
	t.Helper()
	now := model.NowTicks()
	queryID, err := UpsertQuery(ctx, db.DB(), model.Query{ExternalID: externalID, DisplayName: externalID, Username: "alice"}, now)
	require.NoError(t, err)
	wiID, err := UpsertWorkItem(ctx, db.DB(), model.WorkItem{ExternalID: queryID*1000 + 1, Title: "item"})
	require.NoError(t, err)
	require.NoError(t, UpsertQueryWorkItem(ctx, db.DB(), queryID, wiID, now.AddDuration(-ageAgo)))
	return queryID
}

func countQueryWorkItems(t *testing.T, ctx context.Context, db *CacheStore, queryID int64) int {
	t.Helper()
	var n int
	require.NoError(t, db.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM query_work_items WHERE query_id = ?`, queryID).Scan(&n))
	return n
}

func TestRunScheduledPrune_AppliesTighterTTLToMyWorkItemsJoinRows(t *testing.T) {
	ctx := context.Background()
	db := newTestCacheStore(t)

	// Old enough to be pruned under the 2-minute MyWorkItems cutoff but
	// well inside the 7-day regular query cutoff.
	myWorkItemsQuery := seedQueryWorkItem(t, ctx, db, model.MyWorkItemsExternalID("myorg", "myproj"), 5*time.Minute)
	regularQuery := seedQueryWorkItem(t, ctx, db, "saved-query-guid", 5*time.Minute)

	err := RunScheduledPrune(ctx, db, PruneConfig{
		BuildRetention:   7 * 24 * time.Hour,
		QueryWorkItemTTL: 7 * 24 * time.Hour,
		MyWorkItemsTTL:   2 * time.Minute,
	})
	require.NoError(t, err)

	require.Equal(t, 0, countQueryWorkItems(t, ctx, db, myWorkItemsQuery), "a MyWorkItems join row past the 2-minute cutoff must be pruned")
	require.Equal(t, 1, countQueryWorkItems(t, ctx, db, regularQuery), "a regular query join row inside the 7-day cutoff must survive")
}

func TestRunScheduledPrune_LeavesFreshMyWorkItemsJoinRows(t *testing.T) {
	ctx := context.Background()
	db := newTestCacheStore(t)

	myWorkItemsQuery := seedQueryWorkItem(t, ctx, db, model.MyWorkItemsExternalID("myorg", "myproj"), 30*time.Second)

	err := RunScheduledPrune(ctx, db, PruneConfig{
		QueryWorkItemTTL: 7 * 24 * time.Hour,
		MyWorkItemsTTL:   2 * time.Minute,
	})
	require.NoError(t, err)

	require.Equal(t, 1, countQueryWorkItems(t, ctx, db, myWorkItemsQuery), "a MyWorkItems join row inside the 2-minute cutoff must survive")
}
