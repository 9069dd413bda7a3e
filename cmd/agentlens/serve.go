package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/use-agent/agentlens/api"
	"github.com/use-agent/agentlens/cache"
	"github.com/use-agent/agentlens/config"
	"github.com/use-agent/agentlens/driver"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the analysis HTTP API",
		Long: `Serve starts the HTTP API with one shared headless browser behind it.

Endpoints:
  GET  /api/v1/health
  POST /api/v1/analyze
  POST /api/v1/batch/analyze`,
		Args: cobra.NoArgs,
		RunE: runServeCmd,
	}
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log, getVerboseFlag(cmd))
	slog.Info("agentlens starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
	)

	// ── 3. Launch the shared browser and wire the analyzer ──────────
	an, closeBrowser, err := newAnalyzer(cfg)
	if err != nil {
		return err
	}
	defer closeBrowser()

	engineIDs := make([]string, 0)
	for _, spec := range driver.DefaultEngines() {
		engineIDs = append(engineIDs, spec.ID)
	}

	// ── 4. Initialise report cache ──────────────────────────────────
	cc := cache.New(cfg.Cache.MaxEntries, cfg.Cache.TTL)

	// ── 5. Setup router ──────────────────────────────────────────────
	startTime := time.Now()
	router := api.NewRouter(an, cfg, cc, engineIDs, startTime)

	// ── 6. Start HTTP server ────────────────────────────────────────
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// ── 7. Graceful shutdown ────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig.String())

	// Give in-flight requests 5 seconds to complete.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	slog.Info("agentlens stopped")
	return nil
}
