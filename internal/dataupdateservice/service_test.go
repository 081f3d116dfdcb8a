package dataupdateservice

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohitkatta517/azdevcache/internal/errs"
	"github.com/rohitkatta517/azdevcache/internal/events"
	"github.com/rohitkatta517/azdevcache/internal/model"
	"github.com/rohitkatta517/azdevcache/internal/store"
	"github.com/rohitkatta517/azdevcache/internal/updater"
)

var _ updater.Updater = (*fakeUpdater)(nil)

type fakeUpdater struct {
	updateErr  error
	panicOn    bool
	cached     any
	children   []any
	stale      bool
	pruneCalls int
}

func (f *fakeUpdater) UpdateData(ctx context.Context, search model.Search) error {
	if f.panicOn {
		panic("boom")
	}
	return f.updateErr
}

func (f *fakeUpdater) GetCachedDataForSearch(ctx context.Context, search model.Search) (any, error) {
	return f.cached, nil
}

func (f *fakeUpdater) GetCachedChildren(ctx context.Context, search model.Search) ([]any, error) {
	return f.children, nil
}

func (f *fakeUpdater) IsNewOrStale(ctx context.Context, search model.Search, cooldown time.Duration) (bool, error) {
	return f.stale, nil
}

func (f *fakeUpdater) PruneObsoleteData(ctx context.Context) error {
	f.pruneCalls++
	return nil
}

func newTestService(t *testing.T, u *fakeUpdater) *Service {
	t.Helper()
	ctx := context.Background()
	cache, err := store.OpenCache(ctx, filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })

	bus := events.NewBus[model.UpdateEvent]()
	return New(cache, bus, map[model.UpdateKind]updater.Updater{model.UpdateQuery: u})
}

func TestDispatch_SuccessRecordsLastUpdatedAndPublishesUpdated(t *testing.T) {
	svc := newTestService(t, &fakeUpdater{})
	ctx := context.Background()

	var seen []model.UpdateEvent
	svc.Subscribe(func(e model.UpdateEvent) { seen = append(seen, e) })

	search := model.Search{Kind: model.UpdateQuery}
	event := svc.Dispatch(ctx, search)

	assert.Equal(t, model.EventUpdated, event.Kind)
	require.Len(t, seen, 1)
	assert.Equal(t, model.EventUpdated, seen[0].Kind)

	last, err := svc.GetLastUpdated(ctx, model.UpdateQuery)
	require.NoError(t, err)
	assert.NotZero(t, last)
}

func TestDispatch_UpdaterErrorYieldsErrorEvent(t *testing.T) {
	svc := newTestService(t, &fakeUpdater{updateErr: errs.Remote("boom", 500, nil)})
	event := svc.Dispatch(context.Background(), model.Search{Kind: model.UpdateQuery})
	assert.Equal(t, model.EventError, event.Kind)
	assert.Error(t, event.Err)
}

func TestDispatch_CancelledErrorYieldsCancelEvent(t *testing.T) {
	svc := newTestService(t, &fakeUpdater{updateErr: errs.Cancelled("stopped")})
	event := svc.Dispatch(context.Background(), model.Search{Kind: model.UpdateQuery})
	assert.Equal(t, model.EventCancel, event.Kind)
}

func TestDispatch_PanicIsRecoveredAsErrorEvent(t *testing.T) {
	svc := newTestService(t, &fakeUpdater{panicOn: true})

	var seen []model.UpdateEvent
	svc.Subscribe(func(e model.UpdateEvent) { seen = append(seen, e) })

	event := svc.Dispatch(context.Background(), model.Search{Kind: model.UpdateQuery})
	assert.Equal(t, model.EventError, event.Kind)
	require.Len(t, seen, 1, "exactly one terminal event must fire even on panic")
}

func TestDispatch_UnknownKindYieldsErrorEvent(t *testing.T) {
	svc := newTestService(t, &fakeUpdater{})
	event := svc.Dispatch(context.Background(), model.Search{Kind: model.UpdatePullRequests})
	assert.Equal(t, model.EventError, event.Kind)
}

func TestDispatchAll_OneFailureDoesNotStopTheRest(t *testing.T) {
	u := &fakeUpdater{}
	svc := newTestService(t, u)

	// The middle search has no registered updater, so its dispatch fails.
	searches := []model.Search{
		{Kind: model.UpdateQuery},
		{Kind: model.UpdatePullRequests},
		{Kind: model.UpdateQuery},
	}
	events := svc.DispatchAll(context.Background(), searches)
	require.Len(t, events, 3)
	assert.Equal(t, model.EventUpdated, events[0].Kind)
	assert.Equal(t, model.EventError, events[1].Kind)
	assert.Equal(t, model.EventUpdated, events[2].Kind)
}

func TestDispatchAll_StopsIssuingNewWorkOnceContextCancelled(t *testing.T) {
	u := &fakeUpdater{}
	svc := newTestService(t, u)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	events := svc.DispatchAll(ctx, []model.Search{{Kind: model.UpdateQuery}})
	require.Len(t, events, 1)
	assert.Equal(t, model.EventCancel, events[0].Kind)
}

func TestPruneAll_RunsEveryUpdatersPrune(t *testing.T) {
	u := &fakeUpdater{}
	svc := newTestService(t, u)

	err := svc.PruneAll(context.Background(), store.PruneConfig{
		BuildRetention:   24 * time.Hour,
		QueryWorkItemTTL: 24 * time.Hour,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, u.pruneCalls)
}

func TestIsNewOrStale_DelegatesToUpdater(t *testing.T) {
	u := &fakeUpdater{stale: true}
	svc := newTestService(t, u)

	stale, err := svc.IsNewOrStale(context.Background(), model.Search{Kind: model.UpdateQuery}, time.Minute)
	require.NoError(t, err)
	assert.True(t, stale)
}
