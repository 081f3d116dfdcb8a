// Package livedata implements the read path the UI layer consumes: a
// warm cache hit returns immediately and kicks off a background refresh
// if stale, while a cold miss blocks on the triggering refresh's
// terminal event before returning.
package livedata

import (
	"context"
	"time"

	"github.com/rohitkatta517/azdevcache/internal/errs"
	"github.com/rohitkatta517/azdevcache/internal/events"
	"github.com/rohitkatta517/azdevcache/internal/model"
)

// Service is the narrow collaborator Provider consumes: cache reads plus
// CacheManager's refresh/subscribe surface. Refreshes are requested
// through CacheManager rather than dispatched directly so a warm-read
// or cold-miss refresh is serialized behind the same state machine that
// drives the periodic sweep, instead of racing it.
type Service interface {
	GetCachedDataForSearch(ctx context.Context, search model.Search) (any, error)
	GetCachedChildren(ctx context.Context, search model.Search) ([]any, error)
	IsNewOrStale(ctx context.Context, search model.Search, cooldown time.Duration) (bool, error)
	RequestRefresh(ctx context.Context, search model.Search)
	Subscribe(handler events.Handler[model.UpdateEvent]) events.Unsubscribe
}

// Provider is the read-side facade over Service. It never itself
// decides whether to refresh beyond the warm/cold split below; cooldown
// bookkeeping for the periodic sweep belongs to CacheManager.
type Provider struct {
	svc Service
}

// New constructs a Provider over svc.
func New(svc Service) *Provider {
	return &Provider{svc: svc}
}

// ensureFresh guarantees search's cached content exists and is not
// stale-without-a-refresh-in-flight by the time it returns successfully.
//
// Warm hit: a refresh is requested through CacheManager if the cached
// row is older than cooldown, but the call returns immediately
// regardless — a caller sees slightly stale data rather than waiting on
// the network.
//
// Cold miss: the caller blocks until the triggering refresh's terminal
// event arrives. The subscription is registered before the refresh is
// requested so a refresh that settles synchronously (e.g. a fake
// collaborator in tests) can never fire its event before anyone is
// listening.
func (p *Provider) ensureFresh(ctx context.Context, search model.Search, cooldown time.Duration) error {
	cached, err := p.svc.GetCachedDataForSearch(ctx, search)
	if err != nil {
		return err
	}

	if cached != nil {
		stale, err := p.svc.IsNewOrStale(ctx, search, cooldown)
		if err != nil {
			return err
		}
		if stale {
			p.svc.RequestRefresh(context.Background(), search)
		}
		return nil
	}

	key := search.NaturalKey()
	result := make(chan model.UpdateEvent, 1)
	unsubscribe := p.svc.Subscribe(func(e model.UpdateEvent) {
		if e.Search.NaturalKey() != key {
			return
		}
		select {
		case result <- e:
		default:
		}
	})
	defer unsubscribe()

	p.svc.RequestRefresh(ctx, search)

	select {
	case e := <-result:
		if e.Kind == model.EventError {
			return e.Err
		}
		if e.Kind == model.EventCancel {
			return errs.Cancelled("initial fetch was cancelled")
		}
		return nil
	case <-ctx.Done():
		return errs.Cancelled("wait for initial fetch cancelled")
	}
}

// GetContentData returns search's single content row (the Query,
// PullRequestSearch, or Definition row identifying the search itself),
// refreshing per ensureFresh's warm/cold rule first.
func GetContentData[T any](ctx context.Context, p *Provider, search model.Search, cooldown time.Duration) (T, error) {
	var zero T
	if err := p.ensureFresh(ctx, search, cooldown); err != nil {
		return zero, err
	}
	data, err := p.svc.GetCachedDataForSearch(ctx, search)
	if err != nil {
		return zero, err
	}
	if data == nil {
		return zero, nil
	}
	v, ok := data.(T)
	if !ok {
		return zero, errs.InternalInvariant("cached content had an unexpected type", nil)
	}
	return v, nil
}

// GetSearchData returns search's cached child rows (the WorkItems for a
// Query, the PullRequests for a search, the Builds for a Definition),
// refreshing per ensureFresh's warm/cold rule first.
func GetSearchData[T any](ctx context.Context, p *Provider, search model.Search, cooldown time.Duration) ([]T, error) {
	if err := p.ensureFresh(ctx, search, cooldown); err != nil {
		return nil, err
	}
	children, err := p.svc.GetCachedChildren(ctx, search)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(children))
	for _, c := range children {
		v, ok := c.(T)
		if !ok {
			return nil, errs.InternalInvariant("cached child had an unexpected type", nil)
		}
		out = append(out, v)
	}
	return out, nil
}
