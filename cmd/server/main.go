/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the bookstore order intake server. Handles
  configuration, dependency wiring, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Initialize SQLite store (and optionally seed the catalog)
  3. Start the deferred commit runner
  4. Configure HTTP router
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port     HTTP server port (default: 8080)
  -db       SQLite database path (default: bookstore.db)
            Use ":memory:" for an in-memory database
  -workers  Commit worker pool size (default: 4)
  -queue    Commit queue capacity (default: 256)
  -seed     Seed the demo stock catalog on startup

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections (30s drain)
  2. Stop the commit runner, letting queued commits drain
  3. Close the database
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/warp/bookstore/api"
	"github.com/warp/bookstore/inventory"
	"github.com/warp/bookstore/observe"
	"github.com/warp/bookstore/orders"
	"github.com/warp/bookstore/store/sqlite"
)

func main() {
	// Flags
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "bookstore.db", "SQLite database path")
	workers := flag.Int("workers", 4, "commit worker pool size")
	queueSize := flag.Int("queue", 256, "commit queue capacity")
	seed := flag.Bool("seed", false, "seed the demo stock catalog on startup")
	flag.Parse()

	// Logger
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	recorder := observe.NewZerologRecorder(log.Logger)

	// Store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer store.Close()

	if *seed {
		if err := store.Seed(context.Background()); err != nil {
			log.Fatal().Err(err).Msg("failed to seed stock")
		}
		log.Info().Msg("seeded demo stock catalog")
	}

	// Metrics
	registry := prometheus.NewRegistry()
	metrics := observe.NewMetrics(registry)

	// Core
	stock := inventory.NewLedger(store)
	orderLog := orders.NewLog(store)
	runner := orders.NewCommitRunner(stock, store, recorder, metrics, *workers, *queueSize)
	runner.Start()

	intake := orders.NewIntake(stock, orderLog, runner, recorder, metrics)

	// HTTP
	handler := api.NewHandler(intake, stock, store)
	router := api.NewRouter(handler, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Int("port", *port).Str("db", *dbPath).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	// Let queued commits land before the database closes.
	runner.Stop()

	log.Info().Msg("server stopped")
}
