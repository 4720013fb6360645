package main

//
//  @title           candlefeed API
//  @version         1.0
//  @description     Tick-to-candle aggregation, paged candle history and live chart series.
//  @termsOfService  https://github.com/guttosm/candlefeed
//  @contact.name    API Support
//  @contact.url     https://github.com/guttosm/candlefeed
//  @contact.email   support@example.com
//  @license.name    MIT
//  @license.url     https://opensource.org/licenses/MIT
//  @host            localhost:8080
//  @BasePath        /
//  @schemes         http
//
//  @tag.name        candles
//  @tag.description Paged historical candles
//
//  @tag.name        chart
//  @tag.description Merged history and live chart series with moving average
//
//  @tag.name        ticks
//  @tag.description Live tick ingestion
//
//  @tag.name        health
//  @tag.description Liveness and readiness probes

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/guttosm/candlefeed/config"
	_ "github.com/guttosm/candlefeed/docs" // swagger docs
	"github.com/guttosm/candlefeed/internal/app"
	"github.com/guttosm/candlefeed/internal/candle"
	"github.com/guttosm/candlefeed/internal/ingestion"
	"github.com/guttosm/candlefeed/internal/logger"
)

// startServer initializes and starts the HTTP server in a separate goroutine.
//
// Parameters:
//   - router (http.Handler): The HTTP router (Gin Engine) configured with all routes.
//   - port (string): The port where the server will listen for incoming requests.
//
// Returns:
//   - *http.Server: The initialized HTTP server instance.
func startServer(router http.Handler, port string) *http.Server {
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.L().Info().Str("port", port).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.L().Fatal().Err(err).Msg("server failed to start")
		}
	}()

	return server
}

// gracefulShutdown gracefully terminates the HTTP server and cleans up resources
// when an OS interrupt signal (SIGINT, SIGTERM) is received.
//
// Parameters:
//   - ctx (context.Context): A context with timeout for graceful shutdown.
//   - server (*http.Server): The HTTP server instance to shut down.
//   - cleanup (func()): Cleanup callback to release resources (e.g., DB connections).
func gracefulShutdown(ctx context.Context, server *http.Server, cleanup func()) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	logger.L().Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.L().Fatal().Err(err).Msg("server forced to shutdown")
	}

	cleanup()
	logger.L().Info().Msg("server exited gracefully")
}

// parseTimeframes turns a comma separated list into timeframes. Empty input
// selects every supported timeframe; unknown names are an error.
func parseTimeframes(s string) ([]candle.Timeframe, error) {
	if strings.TrimSpace(s) == "" {
		return candle.Timeframes(), nil
	}
	var out []candle.Timeframe
	seen := map[candle.Timeframe]bool{}
	for _, part := range strings.Split(s, ",") {
		tf := candle.Timeframe(strings.TrimSpace(part))
		if !tf.IsKnown() {
			return nil, fmt.Errorf("unknown timeframe %q", part)
		}
		if !seen[tf] {
			seen[tf] = true
			out = append(out, tf)
		}
	}
	return out, nil
}

// main is the entry point of the candlefeed application.
//
// Modes (selected via --mode flag):
//   - backfill: Aggregates {SYMBOL}_{YYYY-MM-DD}.csv tick files from --dir into stored candles.
//   - api:      Starts the REST API serving history, charts and live tick ingestion.
//
// Flags:
//   - --mode:       Execution mode ("backfill" or "api"). Default: "api".
//   - --dir:        Directory containing .csv tick files. Default: "./data/ticks".
//   - --timeframes: Comma separated timeframes to build. Default: all.
//   - --parallel:   Files processed concurrently (0=auto up to CPU, max 8).
//   - --force:      Rebuild days already ingested.
//   - --port:       Port for the API server. Defaults to value from config (SERVER_PORT).
func main() {
	ctx := context.Background()

	// Load configuration from environment or .env file
	config.LoadConfig()

	// Initialize JSON logger
	logger.Init()

	// Parse CLI flags (override config defaults if provided)
	mode := flag.String("mode", "api", "Mode: backfill or api")
	dir := flag.String("dir", "./data/ticks", "Directory with {SYMBOL}_{YYYY-MM-DD}.csv tick files")
	tfs := flag.String("timeframes", "", "Comma separated timeframes to build (default: all)")
	parallel := flag.Int("parallel", 0, "How many files to process concurrently (0=auto up to CPU, max 8)")
	force := flag.Bool("force", false, "Reprocess files even if already ingested (deletes existing candles for that symbol-day)")
	port := flag.String("port", config.AppConfig.Server.Port, "Port for API mode")
	flag.Parse()

	switch *mode {
	case "backfill":
		// Backfill mode: aggregate tick files and persist candles
		timeframes, err := parseTimeframes(*tfs)
		if err != nil {
			logger.L().Fatal().Err(err).Msg("invalid --timeframes")
		}
		logger.L().Info().Str("dir", *dir).Int("timeframes", len(timeframes)).Msg("running backfill")

		// Direct DB connection for ingestion
		db, err := app.InitPostgres(config.AppConfig)
		if err != nil {
			logger.L().Fatal().Err(err).Msg("db connect error")
		}
		defer func() { _ = db.Close() }()

		if err := ingestion.ProcessDirectory(ctx, *dir, db, timeframes, *parallel, *force); err != nil {
			logger.L().Fatal().Err(err).Msg("backfill failed")
		}
		logger.L().Info().Msg("backfill completed successfully")

	case "api":
		// API mode: start the HTTP server
		logger.L().Info().Msg("starting API server")

		router, cleanup, err := app.InitializeApp()
		if err != nil {
			logger.L().Fatal().Err(err).Msg("app init error")
		}

		server := startServer(router, *port)
		gracefulShutdown(ctx, server, cleanup)

	default:
		logger.L().Fatal().Str("mode", *mode).Msg("unknown mode")
	}
}
