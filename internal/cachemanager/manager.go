package cachemanager

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rohitkatta517/azdevcache/internal/dataupdateservice"
	"github.com/rohitkatta517/azdevcache/internal/events"
	"github.com/rohitkatta517/azdevcache/internal/liveclient"
	"github.com/rohitkatta517/azdevcache/internal/model"
	"github.com/rohitkatta517/azdevcache/internal/repository"
	"github.com/rohitkatta517/azdevcache/internal/store"
	"github.com/rohitkatta517/azdevcache/internal/updater"
)

// Manager drives DataUpdateService through its periodic and on-demand
// refresh cycle: a 10-minute tick fans out to every saved search still
// past its refresh cooldown, a cancel request or sign-out interrupts an
// in-flight pass, sign-out clears the cache once the interrupted pass
// settles, and a refresh request arriving mid-dispatch is stashed in
// pendingSearch and drained once that dispatch settles.
type Manager struct {
	mu            sync.Mutex
	state         State
	mem           Memory
	pendingSearch *model.Search
	cancel        context.CancelFunc

	svc      *dataupdateservice.Service
	accounts liveclient.AccountProvider
	auth     *events.AuthMediator

	queries      *repository.QueryRepository
	pullRequests *repository.PullRequestSearchRepository
	pipelines    *repository.DefinitionSearchRepository
	myWorkItems  *updater.MyWorkItemsUpdater

	interval    time.Duration
	cooldown    time.Duration
	pruneConfig store.PruneConfig
	log         *slog.Logger

	stop context.CancelFunc
}

// New constructs a Manager. Call Start to begin the periodic tick and
// auth subscription.
func New(
	svc *dataupdateservice.Service,
	accounts liveclient.AccountProvider,
	auth *events.AuthMediator,
	queries *repository.QueryRepository,
	pullRequests *repository.PullRequestSearchRepository,
	pipelines *repository.DefinitionSearchRepository,
	myWorkItems *updater.MyWorkItemsUpdater,
	interval, cooldown time.Duration,
	pruneConfig store.PruneConfig,
	log *slog.Logger,
) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		state:        StateSignedOut,
		svc:          svc,
		accounts:     accounts,
		auth:         auth,
		queries:      queries,
		pullRequests: pullRequests,
		pipelines:    pipelines,
		myWorkItems:  myWorkItems,
		interval:     interval,
		cooldown:     cooldown,
		pruneConfig:  pruneConfig,
		log:          log,
	}
}

// State returns the manager's current state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Start determines the initial signed-in state, subscribes to auth
// events, and begins the periodic tick loop. ctx governs the manager's
// whole lifetime; cancel it (or call Stop) to tear the loop down.
func (m *Manager) Start(ctx context.Context) {
	runCtx, stop := context.WithCancel(ctx)
	m.stop = stop

	signedIn, err := m.accounts.IsSignedIn(runCtx)
	if err == nil && signedIn {
		m.mu.Lock()
		m.state = StateIdle
		m.mu.Unlock()
	}

	m.auth.Subscribe(func(e events.AuthEvent) {
		switch e.Kind {
		case events.AuthSignIn:
			m.feed(runCtx, InputSignedIn, nil)
		case events.AuthSignOut:
			m.feed(runCtx, InputSignedOut, nil)
		}
	})

	go m.tickLoop(runCtx)
}

// Stop ends the periodic tick loop. In-flight refreshes are cancelled.
func (m *Manager) Stop() {
	if m.stop != nil {
		m.stop()
	}
}

func (m *Manager) tickLoop(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.feed(ctx, InputTick, nil)
		}
	}
}

// RequestRefresh triggers an on-demand refresh of a single search,
// ignoring the cooldown every periodic tick honors.
func (m *Manager) RequestRefresh(ctx context.Context, search model.Search) {
	m.feed(ctx, InputRefreshRequested, &search)
}

// RequestCancel interrupts an in-flight refresh, if any.
func (m *Manager) RequestCancel(ctx context.Context) {
	m.feed(ctx, InputCancelRequested, nil)
}

// Subscribe registers handler on the shared OnUpdate bus via
// DataUpdateService; exposed here so callers only need one handle to
// both trigger and observe refreshes.
func (m *Manager) Subscribe(handler events.Handler[model.UpdateEvent]) events.Unsubscribe {
	return m.svc.Subscribe(handler)
}

// GetCachedDataForSearch, GetCachedChildren, and IsNewOrStale proxy
// straight through to DataUpdateService. They make Manager a complete
// collaborator for livedata.Provider, which reads the cache and
// requests refreshes through the same handle so a warm-read or
// cold-miss refresh is always serialized behind this state machine.
func (m *Manager) GetCachedDataForSearch(ctx context.Context, search model.Search) (any, error) {
	return m.svc.GetCachedDataForSearch(ctx, search)
}

func (m *Manager) GetCachedChildren(ctx context.Context, search model.Search) ([]any, error) {
	return m.svc.GetCachedChildren(ctx, search)
}

func (m *Manager) IsNewOrStale(ctx context.Context, search model.Search, cooldown time.Duration) (bool, error) {
	return m.svc.IsNewOrStale(ctx, search, cooldown)
}

// feed runs input through the state machine and carries out whatever
// Action it returns. A RefreshRequested/Tick input always carries its
// own target in single (a specific search, or nil for a full sweep);
// a terminal event (DispatchSucceeded/Failed) always feeds single=nil,
// so an ActionStartDispatch triggered by one of those means the
// transition drained a previously stashed refresh, and the target is
// whatever RequestRefresh last stashed in m.pendingSearch.
func (m *Manager) feed(ctx context.Context, input Input, single *model.Search) {
	m.mu.Lock()
	newState, action, newMem := transition(m.state, input, m.mem)
	m.state = newState
	m.mem = newMem

	if input == InputRefreshRequested && newMem.PendingRefresh {
		m.pendingSearch = single
	}

	var target *model.Search
	switch action {
	case ActionStartDispatch:
		switch input {
		case InputRefreshRequested, InputTick:
			target = single
		default:
			target = m.pendingSearch
			m.pendingSearch = nil
		}
	}
	m.mu.Unlock()

	switch action {
	case ActionStartDispatch:
		go m.runRefresh(ctx, target)
	case ActionCancelDispatch:
		m.mu.Lock()
		cancel := m.cancel
		m.mu.Unlock()
		if cancel != nil {
			cancel()
		}
	case ActionClearCache:
		go func() {
			if err := m.svc.PurgeAllData(context.Background()); err != nil {
				m.log.Error("clear cache on sign-out failed", "error", err)
			}
		}()
	}
}

func (m *Manager) runRefresh(ctx context.Context, single *model.Search) {
	childCtx, cancel := context.WithCancel(ctx)
	m.mu.Lock()
	m.cancel = cancel
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.cancel = nil
		m.mu.Unlock()
		cancel()
	}()

	refreshID := uuid.NewString()
	log := m.log.With("refresh_id", refreshID)
	log.Debug("refresh pass starting")

	var outcomes []model.UpdateEvent
	if single != nil {
		outcomes = []model.UpdateEvent{m.svc.Dispatch(childCtx, *single)}
	} else {
		outcomes = m.runFullSweep(childCtx)
	}

	failed := false
	for _, e := range outcomes {
		if e.Kind == model.EventError {
			failed = true
			log.Warn("search dispatch failed", "search", e.Search.NaturalKey(), "error", e.Err)
		}
	}

	if failed {
		m.feed(ctx, InputDispatchFailed, nil)
	} else {
		m.feed(ctx, InputDispatchSucceeded, nil)
	}
}

func (m *Manager) runFullSweep(ctx context.Context) []model.UpdateEvent {
	searches, err := m.collectSearches(ctx)
	if err != nil {
		m.log.Error("collect searches failed", "error", err)
		return []model.UpdateEvent{{Kind: model.EventError, Err: err}}
	}

	var due []model.Search
	for _, s := range searches {
		stale, err := m.svc.IsNewOrStale(ctx, s, m.cooldown)
		if err != nil {
			m.log.Warn("staleness check failed", "search", s.NaturalKey(), "error", err)
			continue
		}
		if stale {
			due = append(due, s)
		}
	}
	if len(due) == 0 {
		return nil
	}

	outcomes := m.svc.DispatchAll(ctx, due)

	if err := m.svc.PruneAll(ctx, m.pruneConfig); err != nil {
		m.log.Warn("scheduled prune failed", "error", err)
	}

	return outcomes
}

// collectSearches gathers every saved search definition plus every
// discovered MyWorkItems target into the Search union the dispatch
// layer consumes.
func (m *Manager) collectSearches(ctx context.Context) ([]model.Search, error) {
	var out []model.Search

	queries, err := m.queries.GetAll(ctx, false)
	if err != nil {
		return nil, err
	}
	for i := range queries {
		out = append(out, model.Search{Kind: model.UpdateQuery, Query: &queries[i]})
	}

	prSearches, err := m.pullRequests.GetAll(ctx, false)
	if err != nil {
		return nil, err
	}
	for i := range prSearches {
		out = append(out, model.Search{Kind: model.UpdatePullRequests, PullRequest: &prSearches[i]})
	}

	pipelines, err := m.pipelines.GetAll(ctx, false)
	if err != nil {
		return nil, err
	}
	for i := range pipelines {
		out = append(out, model.Search{Kind: model.UpdatePipeline, Pipeline: &pipelines[i]})
	}

	targets, err := m.myWorkItems.DiscoverTargets(ctx)
	if err != nil {
		return nil, err
	}
	for i := range targets {
		out = append(out, model.Search{Kind: model.UpdateMyWorkItems, MyWorkItems: &targets[i]})
	}

	return out, nil
}
