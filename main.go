package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"sjsage522/cafe24worker/config"
	"sjsage522/cafe24worker/internal/api"
	"sjsage522/cafe24worker/logger"
	"sjsage522/cafe24worker/services/cache"
	"sjsage522/cafe24worker/services/runstore"
	"sjsage522/cafe24worker/services/worker"
)

func main() {
	once := flag.Bool("once", false, "execute a single scraper run and exit")
	runID := flag.String("run-id", "", "identifier for the run directory in -once mode (defaults to a timestamp)")
	flag.Parse()

	// Load environment variables
	godotenv.Load()

	// Initialize logger first
	logger.Init()
	log := logger.Default

	cfg := config.LoadConfig()

	if *once {
		runOnce(cfg, *runID, log)
		return
	}
	serve(cfg, log)
}

// runOnce executes one pipeline run directly and exits
func runOnce(cfg config.Config, runID string, log *logger.Logger) {
	if err := cfg.ValidateRunOnce(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	if runID == "" {
		runID = time.Now().UTC().Format("20060102-150405")
	}

	executor := worker.NewExecutor(cfg, newBlockCache(cfg, log))
	store := runstore.NewMemoryStore()
	w := worker.NewWorker(executor, store, cfg.OutputRoot)

	ctx, cancel := signalContext(log)
	defer cancel()

	go w.Start(ctx)

	id, err := w.Submit(ctx, cfg.InputPath, "cli")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to submit run")
	}

	// Poll the store until the single run finishes
	for {
		select {
		case <-ctx.Done():
			log.Warn().Msg("Shutdown requested before the run finished")
			return
		case <-time.After(200 * time.Millisecond):
		}
		record, err := store.GetRun(ctx, id)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load run")
		}
		switch record.Status {
		case runstore.StatusSucceeded:
			log.Info().Str("output_dir", record.Artifacts.OutputDir).Msg("Run succeeded")
			return
		case runstore.StatusFailed:
			log.Error().Str("error", record.Error).Msg("Run failed")
			os.Exit(1)
		}
	}
}

// serve starts the API server with the single-slot run worker
func serve(cfg config.Config, log *logger.Logger) {
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	store := runstore.NewRedisStore(cfg.RedisAddr, cfg.RedisDB)
	defer store.Close()
	log.Info().Str("addr", cfg.RedisAddr).Int("db", cfg.RedisDB).Msg("Connected to Redis")

	executor := worker.NewExecutor(cfg, newBlockCache(cfg, log))
	w := worker.NewWorker(executor, store, cfg.OutputRoot)

	ctx, cancel := signalContext(log)
	defer cancel()

	go w.Start(ctx)

	handlers := api.NewHandlers(w, store, cfg.InputPath)
	server := api.NewServer(cfg.ListenAddr, handlers)

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- server.Start()
	}()

	select {
	case <-ctx.Done():
	case err := <-serverDone:
		if err != nil {
			log.Error().Err(err).Msg("API server exited with error")
		}
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("API server shutdown failed")
	}
	log.Info().Msg("Shutting down gracefully...")
}

// newBlockCache wires the memcache block cache when an address is
// configured; a nil cache disables rate-limit blocking
func newBlockCache(cfg config.Config, log *logger.Logger) cache.Service {
	if cfg.MemcacheAddr == "" {
		return nil
	}
	log.Info().Str("addr", cfg.MemcacheAddr).Msg("Connected to Memcache")
	return cache.NewMemcacheService(cfg.MemcacheAddr)
}

// signalContext returns a context cancelled by SIGINT/SIGTERM
func signalContext(log *logger.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	return ctx, cancel
}
