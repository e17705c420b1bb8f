package svc

import (
	"context"
	"fmt"

	"github.com/inkos/inkd/internal/ai"
	"github.com/inkos/inkd/internal/chat"
	"github.com/inkos/inkd/internal/config"
	"github.com/inkos/inkd/internal/credential"
	"github.com/inkos/inkd/internal/db"
	"github.com/inkos/inkd/internal/eventlog"
	"github.com/inkos/inkd/internal/jobs"
	"github.com/inkos/inkd/internal/keyring"
	"github.com/inkos/inkd/internal/logging"
	"github.com/inkos/inkd/internal/provider"
	"github.com/inkos/inkd/internal/summary"
)

// ServiceContext wires every component over the single shared store. Handlers
// receive it and stay free of construction logic.
type ServiceContext struct {
	Config     config.Config
	DB         *db.Store
	Vault      *credential.Vault
	Catalog    *provider.Catalog
	Registry   *provider.Registry
	Events     *eventlog.Logger
	Router     *ai.Router
	Summarizer *summary.Summarizer
	Chat       *chat.Engine
	Jobs       *jobs.Pool
	Scheduler  *jobs.Scheduler
}

// NewServiceContext opens the database, seeds defaults and builds the
// component graph. Background machinery (workers, cron, catalog watcher) is
// constructed but not started; the server owns its lifecycle.
func NewServiceContext(c config.Config) (*ServiceContext, error) {
	store, err := db.NewSQLite(c.DBPath())
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	masterKey, err := keyring.LoadOrCreate(c.DataDir)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to load master key: %w", err)
	}
	vault, err := credential.New(masterKey, store)
	if err != nil {
		store.Close()
		return nil, err
	}

	catalog := provider.NewCatalog(c.ModelsPath())
	registry := provider.NewRegistry(store, catalog, vault)
	if err := registry.SeedDefaults(context.Background()); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to seed providers: %w", err)
	}

	events := eventlog.New(store)
	router := ai.NewRouter(registry, events, c.AllowCloudFallback)
	cache := summary.NewCache(store)
	summarizer := summary.New(store, cache, router, events)
	engine := chat.NewEngine(store, registry, summarizer, events)

	pool := jobs.NewPool(store, events, c.Workers)
	digest := jobs.NewDigest(store, summarizer, events)
	pool.Register(jobs.KindDailyDigest, digest.Handler)
	pool.Register(jobs.KindSummarize, jobs.NewSummarizeRunner(store, summarizer).Handler)

	svcCtx := &ServiceContext{
		Config:     c,
		DB:         store,
		Vault:      vault,
		Catalog:    catalog,
		Registry:   registry,
		Events:     events,
		Router:     router,
		Summarizer: summarizer,
		Chat:       engine,
		Jobs:       pool,
		Scheduler:  jobs.NewScheduler(pool),
	}
	return svcCtx, nil
}

// Close releases everything the context owns
func (s *ServiceContext) Close() {
	s.Catalog.Close()
	if err := s.DB.Close(); err != nil {
		logging.Errorf("failed to close store: %v", err)
	}
}
