package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/compass-hr/pricing-engine/internal/cache"
	"github.com/compass-hr/pricing-engine/internal/confidence"
	"github.com/compass-hr/pricing-engine/internal/location"
	"github.com/compass-hr/pricing-engine/internal/matcher"
	"github.com/compass-hr/pricing-engine/internal/pricing"
	"github.com/compass-hr/pricing-engine/internal/source"
	"github.com/compass-hr/pricing-engine/internal/store"
	"github.com/compass-hr/pricing-engine/internal/weight"
)

// env bundles the wired pipeline for command handlers.
type env struct {
	Store  store.Store
	Engine *pricing.Engine
}

func (e *env) Close() {
	_ = e.Store.Close()
}

// openStore opens the configured database backend.
func openStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite", "":
		return store.NewSQLite(cfg.Store.DatabaseURL)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, cfg.Store.Pool)
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// initEngine opens the store and wires the full pricing pipeline.
func initEngine(ctx context.Context) (*env, error) {
	st, err := openStore(ctx)
	if err != nil {
		return nil, err
	}

	adj := location.New(st, cfg.Location)

	registry := source.NewRegistry()
	for _, srcCfg := range cfg.Sources {
		provider := source.NewStoreProvider(st, srcCfg, adj.Reference())
		registry.Register(source.Guard(provider, srcCfg))
	}

	engine := pricing.New(
		matcher.New(st, cfg.Matcher),
		registry,
		weight.New(cfg.Weights),
		adj,
		confidence.New(cfg.Confidence),
		cache.New(st, cfg.Cache),
		cfg.Engine,
	)

	return &env{Store: st, Engine: engine}, nil
}
