package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/guttosm/candlefeed/config"
	"github.com/guttosm/candlefeed/internal/api"
	"github.com/guttosm/candlefeed/internal/feed"
	"github.com/guttosm/candlefeed/internal/history"
	"github.com/guttosm/candlefeed/internal/logger"
	"github.com/guttosm/candlefeed/internal/service"
	"github.com/guttosm/candlefeed/internal/storage"
)

// InitializeApp sets up all application dependencies and returns
// a fully configured Gin router, a cleanup function for graceful shutdown,
// and any error encountered during initialization.
//
// Responsibilities:
//   - Connects to PostgreSQL using InitPostgres().
//   - Connects to Redis when REDIS_ADDR is set and wraps the history provider with the page cache.
//   - Picks the history provider: remote HTTP when HISTORY_BASE_URL is set, Postgres otherwise.
//   - Creates the chart service, HTTP handler and router.
//   - Registers health and readiness probes.
//   - Starts the live tick feed when FEED_URL is set.
//   - Provides a cleanup function that stops the feed and closes connections.
func InitializeApp() (*gin.Engine, func(), error) {
	// Load global configuration
	cfg := config.AppConfig

	// Connect to PostgreSQL
	// indirection for unit testing
	db, err := postgresOpener(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize postgres: %w", err)
	}
	checks := []api.Check{{Name: "postgres", Ping: db.Ping}}
	closers := []func(){func() { _ = db.Close() }}

	repo := repoCtor(db)

	// ─── History provider ─────────────────────────
	var provider history.Provider
	if cfg.History.BaseURL != "" {
		provider = history.NewHTTPProvider(cfg.History.BaseURL, nil, cfg.History.FetchTimeout)
		logger.L().Info().Str("base_url", cfg.History.BaseURL).Msg("history served by remote provider")
	} else {
		provider = history.NewStoreProvider(repo)
		logger.L().Info().Msg("history served from postgres")
	}

	if cfg.Redis.Enabled() {
		rdb, err := redisOpener(cfg)
		if err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("failed to initialize redis: %w", err)
		}
		provider = history.NewCachedProvider(provider, rdb, cfg.Redis.CacheTTL,
			history.WithSharedFetchTimeout(cfg.History.FetchTimeout))
		checks = append(checks, api.Check{Name: "redis", Ping: func() error {
			return rdb.Ping(context.Background()).Err()
		}})
		closers = append(closers, func() { _ = rdb.Close() })
	}

	// Initialize service layer (business logic)
	opts := service.Options{
		PageLimit:       cfg.History.PageLimit,
		FetchTimeout:    cfg.History.FetchTimeout,
		TickBuffer:      cfg.Live.TickBuffer,
		DefaultMAPeriod: cfg.MA.DefaultPeriod,
		MaxSymbols:      cfg.Live.MaxSymbols,
	}
	if cfg.Feed.URL != "" {
		// With a live feed only its symbols are served.
		opts.Symbols = cfg.Feed.Symbols
	}
	svc := service.NewChartService(provider, opts)

	// Setup Gin router with routes
	router := api.NewRouter(api.NewHandler(svc), cfg.RateLimit.PerMinute)

	// ─── Live feed ────────────────────────────────
	stopFeed := func() {}
	if cfg.Feed.URL != "" {
		client := feed.NewClient(cfg.Feed.URL, cfg.Feed.Symbols, tickHandler(svc),
			feed.WithReconnectDelay(cfg.Feed.ReconnectDelay))
		checks = append(checks, api.Check{Name: "feed", Ping: client.Health})
		stopFeed = startFeed(client)
	}

	// Register health and readiness probes
	api.NewHealthHandler(checks...).Register(router)

	// Cleanup resources on shutdown
	cleanup := func() {
		stopFeed()
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	return router, cleanup, nil
}

// repoCtor is an indirection for unit testing.
var repoCtor = storage.NewCandlesRepository

// tickHandler folds feed updates into the chart service.
func tickHandler(svc service.ChartService) feed.TickHandler {
	return func(u feed.Update) {
		if err := svc.IngestTick(u.Symbol, u.Tick); err != nil {
			logger.L().Debug().Err(err).Str("symbol", u.Symbol).Msg("feed tick rejected")
		}
	}
}

// feedRunner is the part of feed.Client driven by the app.
type feedRunner interface {
	Run(ctx context.Context) error
}

// startFeed runs the feed in the background. The returned func cancels it
// and waits for it to exit.
func startFeed(f feedRunner) func() {
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := f.Run(ctx); err != nil {
			logger.L().Error().Err(err).Msg("feed stopped")
		}
	}()
	return func() {
		cancel()
		wg.Wait()
	}
}
