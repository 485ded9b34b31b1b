// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/oponeoficial/fomibrasil.com.br-sub000/internal/catalog"
	"github.com/oponeoficial/fomibrasil.com.br-sub000/internal/dedup"
	"github.com/oponeoficial/fomibrasil.com.br-sub000/internal/ingest"
	"github.com/oponeoficial/fomibrasil.com.br-sub000/internal/metrics"
	"github.com/oponeoficial/fomibrasil.com.br-sub000/internal/provider"
	"github.com/oponeoficial/fomibrasil.com.br-sub000/internal/search"
	"github.com/oponeoficial/fomibrasil.com.br-sub000/pkg/types"
)

// app holds the components shared by the subcommands.
type app struct {
	cfg     types.Config
	log     *zap.Logger
	metrics *metrics.Registry
	store   catalog.Store
	gateway provider.Gateway
}

func newApp(cfg types.Config, log *zap.Logger) (*app, error) {
	store, err := catalog.Open(cfg.Store)
	if err != nil {
		return nil, eris.Wrapf(err, "opening %s catalog", storeDriver(cfg.Store))
	}
	if cfg.Provider.APIKey == "" {
		log.Warn("no places API key configured; provider calls will fail")
	}
	m := metrics.NewRegistry()
	return &app{
		cfg:     cfg,
		log:     log,
		metrics: m,
		store:   store,
		gateway: provider.NewPlacesClient(cfg.Provider, log, m),
	}, nil
}

func (a *app) orchestrator() *search.Orchestrator {
	resolver := dedup.New(a.store, a.cfg.Dedup, a.log)
	return search.New(a.store, a.gateway, resolver, a.cfg.Search, a.log, a.metrics)
}

func (a *app) job() *ingest.Job {
	return ingest.New(a.store, a.gateway, a.cfg.Ingestion, a.log, a.metrics)
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.log.Warn("closing catalog", zap.Error(err))
	}
}

func storeDriver(cfg types.StoreConfig) types.StoreDriver {
	if cfg.Driver == "" {
		return types.DriverSQLite
	}
	return cfg.Driver
}

// loadPlan reads path, or the configured plan file, or falls back to the
// built-in plan.
func loadPlan(path string) (ingest.Plan, error) {
	if path == "" {
		path = cfg.Ingestion.PlanFile
	}
	if path == "" {
		return ingest.DefaultPlan(), nil
	}
	p, err := ingest.LoadPlan(path)
	if err != nil {
		return ingest.Plan{}, eris.Wrap(err, "loading ingestion plan")
	}
	return p, nil
}
