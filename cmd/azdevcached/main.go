// Command azdevcached wires the cache-and-sync core into a standalone
// background process: it owns both SQLite databases, the periodic
// refresh cycle, and the update-event bus, and exits only on a
// termination signal or an unrecoverable startup error.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/rohitkatta517/azdevcache/internal/cachemanager"
	"github.com/rohitkatta517/azdevcache/internal/config"
	"github.com/rohitkatta517/azdevcache/internal/dataupdateservice"
	"github.com/rohitkatta517/azdevcache/internal/errs"
	"github.com/rohitkatta517/azdevcache/internal/events"
	"github.com/rohitkatta517/azdevcache/internal/liveclient"
	"github.com/rohitkatta517/azdevcache/internal/model"
	"github.com/rohitkatta517/azdevcache/internal/repository"
	"github.com/rohitkatta517/azdevcache/internal/store"
	"github.com/rohitkatta517/azdevcache/internal/updater"
	"github.com/rohitkatta517/azdevcache/internal/urlresolve"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}

	log := config.NewLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("azdevcached exited with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return errs.DataStoreInaccessible("create data directory", err)
	}

	cache, err := store.OpenCache(ctx, cfg.CacheDBPath())
	if err != nil {
		return errs.DataStoreInaccessible("open cache database", err)
	}
	persistent, err := store.OpenPersistent(ctx, cfg.PersistentDBPath())
	if err != nil {
		return errs.DataStoreInaccessible("open persistent database", err)
	}

	accounts := newUnboundAccountProvider()
	conns := liveclient.NewPool(dialNotConfigured)
	client := liveclient.NewUnboundClient()

	validator := urlresolve.Resolver{Accounts: accounts, Conns: conns, Client: client}

	queries := repository.NewQueryRepository(persistent, validator)
	pullRequests := repository.NewPullRequestSearchRepository(persistent, validator)
	pipelines := repository.NewDefinitionSearchRepository(persistent, validator)
	projectSettings := repository.NewProjectSettingsRepository(persistent, validator)

	queryUpdater := updater.NewQueryUpdater(accounts, conns, client, cache)
	pullRequestUpdater := updater.NewPullRequestUpdater(accounts, conns, client, cache)
	pipelineUpdater := updater.NewPipelineUpdater(accounts, conns, client, cache)
	myWorkItemsUpdater := updater.NewMyWorkItemsUpdater(accounts, conns, client, cache, projectSettings, queries, pullRequests, pipelines)

	bus := events.NewBus[model.UpdateEvent]()
	svc := dataupdateservice.New(cache, bus, map[model.UpdateKind]updater.Updater{
		model.UpdateQuery:        queryUpdater,
		model.UpdatePullRequests: pullRequestUpdater,
		model.UpdatePipeline:     pipelineUpdater,
		model.UpdateMyWorkItems:  myWorkItemsUpdater,
	})

	svc.Subscribe(func(e model.UpdateEvent) {
		switch e.Kind {
		case model.EventError:
			log.Warn("search refresh failed", "search", e.Search.NaturalKey(), "error", e.Err)
		case model.EventCancel:
			log.Info("search refresh cancelled", "search", e.Search.NaturalKey())
		case model.EventUpdated:
			log.Debug("search refreshed", "search", e.Search.NaturalKey())
		}
	})

	auth := events.NewAuthMediator()
	manager := cachemanager.New(
		svc, accounts, auth,
		queries, pullRequests, pipelines, myWorkItemsUpdater,
		cfg.PeriodicInterval, cfg.RefreshCooldown,
		store.PruneConfig{
			BuildRetention:   cfg.BuildRetention,
			QueryWorkItemTTL: cfg.QueryWorkItemTTL,
			MyWorkItemsTTL:   cfg.MyWorkItemsQueryTTL,
		},
		log,
	)
	manager.Start(ctx)
	defer manager.Stop()

	log.Info("azdevcached started",
		"data_dir", cfg.DataDir,
		"periodic_interval", cfg.PeriodicInterval,
		"refresh_cooldown", cfg.RefreshCooldown,
	)

	<-ctx.Done()
	log.Info("azdevcached shutting down")
	return ctx.Err()
}

// dialNotConfigured is the Pool.DialFunc placeholder: binding a real
// Azure DevOps REST transport is out of this core's scope, so every
// dial fails until a caller supplies a real liveclient.LiveClient and
// wires its own DialFunc in place of this one.
func dialNotConfigured(ctx context.Context, orgURI string, account liveclient.Account) (liveclient.Connection, error) {
	return nil, errs.Unsupported("no live transport configured for " + orgURI)
}
