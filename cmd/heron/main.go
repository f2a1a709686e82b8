// Heron - Cashflow-first risk scoring for MSME lending.
// Copyright (c) 2025 opensource.finance
// Licensed under the Apache License 2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/opensource-finance/heron/internal/api"
	"github.com/opensource-finance/heron/internal/assess"
	"github.com/opensource-finance/heron/internal/bus"
	"github.com/opensource-finance/heron/internal/cache"
	"github.com/opensource-finance/heron/internal/domain"
	"github.com/opensource-finance/heron/internal/history"
	"github.com/opensource-finance/heron/internal/indicators"
	"github.com/opensource-finance/heron/internal/repository"
	"github.com/opensource-finance/heron/internal/worker"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	// Initialize structured logger
	logLevel := slog.LevelInfo
	if os.Getenv("HERON_DEBUG") == "true" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Log startup
	slog.Info("starting heron",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)

	// Load configuration
	cfg := domain.DefaultConfig()

	// Check for Pro tier via environment
	if os.Getenv("HERON_TIER") == "pro" {
		cfg = domain.ProConfig()
		slog.Info("running in Pro tier mode")
	}

	slog.Info("configuration loaded",
		"tier", cfg.Tier,
		"repository", cfg.Repository.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Initialize Repository
	repo, err := repository.New(cfg.Repository)
	if err != nil {
		slog.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

	// Initialize Cache
	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		slog.Error("failed to initialize cache", "error", err)
		os.Exit(1)
	}
	defer cacheImpl.Close()
	slog.Info("cache initialized", "type", cfg.Cache.Type)

	// Initialize EventBus
	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		slog.Error("failed to initialize event bus", "error", err)
		os.Exit(1)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	// Initialize History Service
	historySvc := history.NewService(repo, cacheImpl)
	slog.Info("history service initialized")

	// Initialize Indicator Engine with prior-score getter
	engine, err := indicators.NewEngine(historySvc.PriorScoreGetter(), 100)
	if err != nil {
		slog.Error("failed to initialize indicator engine", "error", err)
		os.Exit(1)
	}

	// Load indicators from database, falling back to the builtin checklist
	if err := loadIndicatorsFromDatabase(ctx, repo, engine); err != nil {
		slog.Error("failed to load indicators", "error", err)
		os.Exit(1)
	}
	slog.Info("indicator engine initialized", "indicator_count", engine.Count())

	// Load the latest scoring config from the database, default otherwise
	scoringCfg := loadScoringConfigFromDatabase(ctx, repo)

	// Initialize Assessment Pipeline
	pipeline, err := assess.New(scoringCfg, engine, historySvc)
	if err != nil {
		slog.Error("failed to initialize assessment pipeline", "error", err)
		os.Exit(1)
	}
	slog.Info("assessment pipeline initialized",
		"config_version", pipeline.Config().Version,
		"engine_version", assess.EngineVersion,
	)

	// Initialize async Worker (Pro tier)
	var asyncWorker *worker.Worker
	if cfg.Tier == domain.TierPro || os.Getenv("HERON_ASYNC_WORKER") == "true" {
		asyncWorker = worker.NewWorker(busImpl, repo, cacheImpl, pipeline)

		tenantIDs := []string{}
		if envTenants := os.Getenv("HERON_TENANTS"); envTenants != "" {
			for _, t := range strings.Split(envTenants, ",") {
				if t = strings.TrimSpace(t); t != "" {
					tenantIDs = append(tenantIDs, t)
				}
			}
		}

		workerCfg := worker.Config{
			TenantIDs:   tenantIDs,
			WorkerCount: 5,
		}

		if err := asyncWorker.Start(workerCfg); err != nil {
			slog.Error("failed to start async worker", "error", err)
		} else {
			slog.Info("async worker started", "tenant_count", len(tenantIDs))
		}
	}

	// Initialize Server
	srv := api.NewServer(cfg.Server, repo, cacheImpl, busImpl, engine, pipeline, Version)

	// Start Server in goroutine
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("heron is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	printBanner(cfg, Version)

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("shutting down...")

	// Stop async worker first
	if asyncWorker != nil {
		if err := asyncWorker.Stop(); err != nil {
			slog.Error("failed to stop async worker", "error", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("heron shutdown complete")
}

// GlobalTenantID is used for configs that apply to all tenants.
const GlobalTenantID = "*"

// loadIndicatorsFromDatabase loads the checklist from the database into the
// engine. An empty table falls back to the builtin checklist so a fresh
// install produces useful recommendations out of the box.
func loadIndicatorsFromDatabase(ctx context.Context, repo domain.Repository, engine *indicators.Engine) error {
	dbIndicators, err := repo.ListIndicatorConfigs(ctx, GlobalTenantID)
	if err != nil {
		slog.Warn("failed to list indicators from database", "error", err)
		dbIndicators = nil
	}

	if len(dbIndicators) > 0 {
		slog.Info("loading indicators from database", "count", len(dbIndicators))
		engine.SetSource("database")
		return engine.LoadIndicators(dbIndicators)
	}

	slog.Info("no indicators in database - loading builtin checklist")
	engine.SetSource("builtin")
	return engine.LoadIndicators(indicators.Builtin())
}

// loadScoringConfigFromDatabase returns the latest persisted scoring config,
// or nil so the pipeline starts with the default.
func loadScoringConfigFromDatabase(ctx context.Context, repo domain.Repository) *domain.ScoringConfig {
	cfg, err := repo.LatestScoringConfig(ctx, GlobalTenantID)
	if err != nil {
		slog.Info("no scoring config in database - using default")
		return nil
	}
	slog.Info("loaded scoring config from database", "version", cfg.Version)
	return cfg
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  ╔═══════════════════════════════════════════╗")
	fmt.Println("  ║               🪶 HERON                    ║")
	fmt.Println("  ║       MSME Risk Scoring Engine            ║")
	fmt.Println("  ║   Cashflow first, collateral last.        ║")
	fmt.Println("  ╚═══════════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Tier:     %s\n", cfg.Tier)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    POST /customers/{id}/dataset            - Ingest raw source rows")
	fmt.Println("    POST /customers/{id}/assess             - Run an assessment")
	fmt.Println("    GET  /assessments/{id}                  - Get assessment by ID")
	fmt.Println("    GET  /customers/{id}/assessments/latest - Latest assessment")
	fmt.Println("    GET  /customers/{id}/assessments        - Assessment history")
	fmt.Println("    GET  /indicators                        - List checklist indicators")
	fmt.Println("    POST /indicators                        - Create an indicator")
	fmt.Println("    POST /indicators/reload                 - Hot-reload indicators")
	fmt.Println("    GET  /config/scoring                    - Active scoring config")
	fmt.Println("    PUT  /config/scoring                    - Replace scoring config")
	fmt.Println("    GET  /health                            - Health check")
	fmt.Println()
}
