// Package dataupdateservice dispatches a single search to its kind's
// Updater and guarantees exactly one terminal UpdateEvent fires per
// dispatch, the narrow job CacheManager and LiveDataProvider both sit
// above without touching liveclient or store directly.
package dataupdateservice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rohitkatta517/azdevcache/internal/errs"
	"github.com/rohitkatta517/azdevcache/internal/events"
	"github.com/rohitkatta517/azdevcache/internal/model"
	"github.com/rohitkatta517/azdevcache/internal/store"
	"github.com/rohitkatta517/azdevcache/internal/updater"
)

// Service owns the kind->Updater registry, the cache store's
// lastUpdated bookkeeping, and the OnUpdate bus every dispatch publishes
// its terminal event to.
type Service struct {
	updaters map[model.UpdateKind]updater.Updater
	cache    *store.CacheStore
	bus      *events.Bus[model.UpdateEvent]
}

// New constructs a Service over a fixed kind->Updater registry. The
// UpdateAll key is never looked up directly; DispatchAll iterates the
// other four kinds' searches itself.
func New(cache *store.CacheStore, bus *events.Bus[model.UpdateEvent], updaters map[model.UpdateKind]updater.Updater) *Service {
	return &Service{updaters: updaters, cache: cache, bus: bus}
}

// Subscribe registers handler on the OnUpdate bus every Dispatch and
// DispatchAll call publishes its terminal events to.
func (s *Service) Subscribe(handler events.Handler[model.UpdateEvent]) events.Unsubscribe {
	return s.bus.Subscribe(handler)
}

func (s *Service) updaterFor(kind model.UpdateKind) (updater.Updater, error) {
	u, ok := s.updaters[kind]
	if !ok {
		return nil, errs.InternalInvariant(fmt.Sprintf("no updater registered for kind %s", kind), nil)
	}
	return u, nil
}

// Dispatch runs one search's fetch-and-apply cycle and publishes exactly
// one terminal event to the bus, regardless of outcome: a panicking or
// erroring Updater still yields an EventError rather than propagating,
// so a caller fanning out over many searches never loses track of one.
func (s *Service) Dispatch(ctx context.Context, search model.Search) (event model.UpdateEvent) {
	defer func() {
		if r := recover(); r != nil {
			event = model.UpdateEvent{Kind: model.EventError, Search: search, Err: errs.InternalInvariant(fmt.Sprintf("updater panicked: %v", r), nil)}
			s.bus.Publish(event)
		}
	}()

	u, err := s.updaterFor(search.Kind)
	if err != nil {
		event = model.UpdateEvent{Kind: model.EventError, Search: search, Err: err}
		s.bus.Publish(event)
		return event
	}

	err = u.UpdateData(ctx, search)
	switch {
	case err == nil:
		if setErr := s.cache.SetLastUpdated(ctx, search.Kind.String(), model.NowTicks()); setErr != nil {
			event = model.UpdateEvent{Kind: model.EventError, Search: search, Err: errs.DataStoreInaccessible("record last updated", setErr)}
			break
		}
		event = model.UpdateEvent{Kind: model.EventUpdated, Search: search}
	case errors.Is(err, errs.ErrCancelled):
		event = model.UpdateEvent{Kind: model.EventCancel, Search: search, Err: err}
	default:
		event = model.UpdateEvent{Kind: model.EventError, Search: search, Err: err}
	}

	s.bus.Publish(event)
	return event
}

// DispatchAll runs Dispatch for every search in searches. Kind ==
// UpdateAll is a pure fan-out trigger; it never appears as a search's
// own Kind, so DispatchAll (not Dispatch) is the entry point a full
// refresh uses. One search failing never stops the rest: each gets its
// own recovered Dispatch call and its own terminal event.
func (s *Service) DispatchAll(ctx context.Context, searches []model.Search) []model.UpdateEvent {
	out := make([]model.UpdateEvent, 0, len(searches))
	for _, search := range searches {
		if ctx.Err() != nil {
			cancelled := model.UpdateEvent{Kind: model.EventCancel, Search: search, Err: errs.Cancelled("dispatch cancelled")}
			s.bus.Publish(cancelled)
			out = append(out, cancelled)
			continue
		}
		out = append(out, s.Dispatch(ctx, search))
	}
	return out
}

// IsNewOrStale delegates to search.Kind's Updater.
func (s *Service) IsNewOrStale(ctx context.Context, search model.Search, cooldown time.Duration) (bool, error) {
	u, err := s.updaterFor(search.Kind)
	if err != nil {
		return false, err
	}
	return u.IsNewOrStale(ctx, search, cooldown)
}

// GetCachedDataForSearch delegates to search.Kind's Updater, the
// network-free read LiveDataProvider's warm path uses.
func (s *Service) GetCachedDataForSearch(ctx context.Context, search model.Search) (any, error) {
	u, err := s.updaterFor(search.Kind)
	if err != nil {
		return nil, err
	}
	return u.GetCachedDataForSearch(ctx, search)
}

// GetCachedChildren delegates to search.Kind's Updater.
func (s *Service) GetCachedChildren(ctx context.Context, search model.Search) ([]any, error) {
	u, err := s.updaterFor(search.Kind)
	if err != nil {
		return nil, err
	}
	return u.GetCachedChildren(ctx, search)
}

// PruneAll runs every registered Updater's PruneObsoleteData and then
// the cross-kind TTL sweep, TTL-then-orphan within RunScheduledPrune so
// rows orphaned by the TTL pass are collected in the same transaction.
func (s *Service) PruneAll(ctx context.Context, cfg store.PruneConfig) error {
	for _, u := range s.updaters {
		if err := u.PruneObsoleteData(ctx); err != nil {
			return err
		}
	}
	return store.RunScheduledPrune(ctx, s.cache, cfg)
}

// PurgeAllData drops and recreates the entire cache schema, the
// "clear cache" action exposed to the UI layer.
func (s *Service) PurgeAllData(ctx context.Context) error {
	return s.cache.Purge(ctx)
}

// GetLastUpdated returns the wall-clock of kind's last successful
// dispatch, or the zero Ticks if it has never run.
func (s *Service) GetLastUpdated(ctx context.Context, kind model.UpdateKind) (model.Ticks, error) {
	return s.cache.GetLastUpdated(ctx, kind.String())
}
