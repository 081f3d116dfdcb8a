package livedata

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohitkatta517/azdevcache/internal/errs"
	"github.com/rohitkatta517/azdevcache/internal/events"
	"github.com/rohitkatta517/azdevcache/internal/model"
)

type fakeService struct {
	mu sync.Mutex

	cached      any
	children    []any
	stale       bool
	dispatchErr error
	fetchResult any // what Dispatch writes into cached on success, simulating a real fetch-and-store

	handlers     []events.Handler[model.UpdateEvent]
	dispatched   []model.Search
	subscribedAt int // records handler count when RequestRefresh was called, for ordering assertions
}

func (f *fakeService) GetCachedDataForSearch(ctx context.Context, search model.Search) (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cached, nil
}

func (f *fakeService) GetCachedChildren(ctx context.Context, search model.Search) ([]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.children, nil
}

func (f *fakeService) IsNewOrStale(ctx context.Context, search model.Search, cooldown time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stale, nil
}

func (f *fakeService) RequestRefresh(ctx context.Context, search model.Search) {
	f.mu.Lock()
	f.dispatched = append(f.dispatched, search)
	f.subscribedAt = len(f.handlers)
	handlers := append([]events.Handler[model.UpdateEvent]{}, f.handlers...)
	dispatchErr := f.dispatchErr
	if dispatchErr == nil {
		f.cached = f.fetchResult
	}
	f.mu.Unlock()

	var event model.UpdateEvent
	if dispatchErr != nil {
		event = model.UpdateEvent{Kind: model.EventError, Search: search, Err: dispatchErr}
	} else {
		event = model.UpdateEvent{Kind: model.EventUpdated, Search: search}
	}

	for _, h := range handlers {
		h(event)
	}
}

func (f *fakeService) Subscribe(handler events.Handler[model.UpdateEvent]) events.Unsubscribe {
	f.mu.Lock()
	f.handlers = append(f.handlers, handler)
	f.mu.Unlock()
	return func() {}
}

func TestGetContentData_WarmHitReturnsImmediatelyWithoutBlocking(t *testing.T) {
	svc := &fakeService{cached: "cached-value", stale: false}
	p := New(svc)

	v, err := GetContentData[string](context.Background(), p, model.Search{Kind: model.UpdateQuery}, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "cached-value", v)
	assert.Empty(t, svc.dispatched, "a fresh warm hit must not trigger any dispatch")
}

func TestGetContentData_WarmButStaleFiresBackgroundRefresh(t *testing.T) {
	svc := &fakeService{cached: "cached-value", stale: true}
	p := New(svc)

	v, err := GetContentData[string](context.Background(), p, model.Search{Kind: model.UpdateQuery}, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "cached-value", v, "a stale warm hit still returns immediately")

	require.Eventually(t, func() bool {
		svc.mu.Lock()
		defer svc.mu.Unlock()
		return len(svc.dispatched) == 1
	}, time.Second, time.Millisecond, "background refresh should fire even though the read already returned")
}

func TestGetContentData_ColdMissBlocksUntilDispatchCompletes(t *testing.T) {
	svc := &fakeService{cached: nil, fetchResult: "fetched-value"}
	p := New(svc)

	v, err := GetContentData[string](context.Background(), p, model.Search{Kind: model.UpdateQuery}, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "fetched-value", v)
	assert.Len(t, svc.dispatched, 1)
	assert.Equal(t, 1, svc.subscribedAt, "subscription must be registered before the triggering dispatch is issued")
}

func TestGetContentData_ColdMissPropagatesDispatchError(t *testing.T) {
	svc := &fakeService{cached: nil, dispatchErr: errs.Remote("boom", 503, nil)}
	p := New(svc)

	_, err := GetContentData[string](context.Background(), p, model.Search{Kind: model.UpdateQuery}, time.Minute)
	assert.Error(t, err)
}

func TestGetContentData_ColdMissRespectsContextCancellation(t *testing.T) {
	svc := &blockingService{fakeService: &fakeService{cached: nil}}
	p := New(svc)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()

	_, err := GetContentData[string](ctx, p, model.Search{Kind: model.UpdateQuery}, time.Minute)
	assert.Error(t, err)
}

// blockingService wraps fakeService but never invokes subscribers,
// simulating a refresh that never completes so ensureFresh's
// ctx.Done() branch is exercised.
type blockingService struct {
	*fakeService
}

func (b *blockingService) RequestRefresh(ctx context.Context, search model.Search) {}

func TestGetSearchData_WarmHitReturnsCachedChildren(t *testing.T) {
	svc := &fakeService{cached: "present", children: []any{1, 2, 3}}
	p := New(svc)

	v, err := GetSearchData[int](context.Background(), p, model.Search{Kind: model.UpdateQuery}, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, v)
}

func TestGetSearchData_TypeMismatchIsAnInternalInvariantError(t *testing.T) {
	svc := &fakeService{cached: "present", children: []any{"not-an-int"}}
	p := New(svc)

	_, err := GetSearchData[int](context.Background(), p, model.Search{Kind: model.UpdateQuery}, time.Minute)
	assert.Error(t, err)
}
