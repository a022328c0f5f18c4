// Package app wires configuration, storage, clients, and services into
// a runnable chartd instance.
package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/chartstack/chartd/internal/clients/fmp"
	"github.com/chartstack/chartd/internal/common"
	"github.com/chartstack/chartd/internal/interfaces"
	"github.com/chartstack/chartd/internal/server"
	"github.com/chartstack/chartd/internal/services/query"
	syncsvc "github.com/chartstack/chartd/internal/services/sync"
	"github.com/chartstack/chartd/internal/storage/mysql"
	"github.com/chartstack/chartd/internal/storage/rediscache"
)

// App holds the assembled components.
type App struct {
	Config *common.Config
	Logger *common.Logger
	Store  interfaces.Store
	Cache  interfaces.Cache
	Query  interfaces.QueryService
	Sync   interfaces.SyncService
	Server *server.Server
}

// NewApp loads configuration and assembles all components. Config files
// are read from the default location plus CHARTD_CONFIG when set.
func NewApp() (*App, error) {
	paths := []string{"config/chartd.toml"}
	if extra := os.Getenv("CHARTD_CONFIG"); extra != "" {
		paths = append(paths, extra)
	}

	cfg, err := common.LoadConfig(paths...)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := common.NewLogger(cfg.Logging.Level)

	store, err := mysql.NewStore(cfg.Storage.MySQL, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	cache := rediscache.New(cfg.Storage.Redis, logger)
	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := cache.Ping(pingCtx); err != nil {
		// The read path degrades to store-only when Redis is down.
		logger.Warn().Err(err).Str("addr", cfg.Storage.Redis.Addr).Msg("redis unreachable, queries will bypass cache")
	}

	client := fmp.NewClient(cfg.Clients.FMP.APIKey,
		fmp.WithBaseURL(cfg.Clients.FMP.BaseURL),
		fmp.WithRateLimit(cfg.Clients.FMP.RateLimit),
		fmp.WithTimeout(cfg.Clients.FMP.GetTimeout()),
		fmp.WithLogger(logger),
	)

	syncService := syncsvc.NewService(client, store, logger)
	queryService := query.NewService(store, cache, syncService, logger)
	srv := server.NewServer(cfg.Server, queryService, syncService, logger)

	logger.Info().
		Str("environment", cfg.Environment).
		Str("version", common.Version).
		Msg("chartd assembled")

	return &App{
		Config: cfg,
		Logger: logger,
		Store:  store,
		Cache:  cache,
		Query:  queryService,
		Sync:   syncService,
		Server: srv,
	}, nil
}

// Close releases storage and cache connections.
func (a *App) Close() {
	if err := a.Cache.Close(); err != nil {
		a.Logger.Warn().Err(err).Msg("cache close failed")
	}
	if err := a.Store.Close(); err != nil {
		a.Logger.Warn().Err(err).Msg("store close failed")
	}
}
