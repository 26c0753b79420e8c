// Package main is the entry point of the QA Playground progress service.
//
// The service awards XP for completed practice scenarios, resets monthly
// progress lazily and serves the Power Ranking over HTTP.
//
// Layout follows Clean Architecture:
// - Domain: catalog, progress engine, ranking aggregation
// - Application: commands and queries
// - Infrastructure: Postgres or in-memory store, Redis cache, metrics
// - Interface: HTTP API
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/qaplayground/playground-hub/config"
	"github.com/qaplayground/playground-hub/internal/app"
	httpserver "github.com/qaplayground/playground-hub/internal/interface/http"
	"github.com/qaplayground/playground-hub/internal/interface/http/handlers"
	"github.com/qaplayground/playground-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN
// ══════════════════════════════════════════════════════════════════════════════

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	log := app.NewLogger(cfg)
	defer func() { _ = log.Sync() }()

	log.Info("starting playground hub",
		logger.String("version", cfg.App.Version),
		logger.String("timezone", cfg.Progress.Location.String()),
		logger.Bool("database", cfg.UsesDatabase()),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. COMPONENTS
	// ─────────────────────────────────────────────────────────────────────────
	a, err := app.New(ctx, cfg, log, app.Options{})
	if err != nil {
		return err
	}
	defer func() {
		log.Info("closing connections...")
		a.Close()
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 4. HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	httpCfg := httpserver.DefaultConfig()
	httpCfg.Host = cfg.HTTP.Host
	httpCfg.Port = cfg.HTTP.Port
	httpCfg.ReadTimeout = cfg.HTTP.ReadTimeout
	httpCfg.WriteTimeout = cfg.HTTP.WriteTimeout
	httpCfg.IdleTimeout = cfg.HTTP.IdleTimeout
	httpCfg.ShutdownTimeout = cfg.App.ShutdownTimeout
	httpCfg.MaxBodyBytes = cfg.HTTP.MaxBodyBytes
	httpCfg.RateLimitPerMinute = cfg.HTTP.RateLimitPerMinute
	httpCfg.EnableCORS = cfg.HTTP.CORSEnabled
	httpCfg.CORS = handlers.DefaultCORSConfig()
	httpCfg.CORS.AllowedOrigins = cfg.HTTP.CORSAllowedOrigins
	httpCfg.EnableMetrics = cfg.Observability.MetricsEnabled
	httpCfg.Version = cfg.App.Version

	server := httpserver.NewServer(httpCfg, httpserver.Dependencies{
		CompleteScenario: a.CompleteScenario,
		ResetProgress:    a.ResetProgress,
		SaveProfile:      a.SaveProfile,
		GetProgress:      a.GetProgress,
		GetProfile:       a.GetProfile,
		GetRanking:       a.GetRanking,
		ListScenarios:    a.ListScenarios,
		Logger:           log,
		HealthChecker:    a.HealthChecker(),
		Metrics:          a.Metrics,
	})

	log.Info("HTTP server listening", logger.String("address", httpCfg.Address()))

	// ─────────────────────────────────────────────────────────────────────────
	// 5. RUN UNTIL SIGNAL
	// ─────────────────────────────────────────────────────────────────────────
	if err := server.Run(ctx); err != nil {
		return fmt.Errorf("http server: %w", err)
	}

	log.Info("shutdown completed successfully")
	return nil
}
