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

	"golang.org/x/sync/errgroup"

	"github.com/scrapegate/scrapegate/internal/adapters/upstream"
	scrapecatalog "github.com/scrapegate/scrapegate/internal/catalog"
	appconfig "github.com/scrapegate/scrapegate/internal/config"
	"github.com/scrapegate/scrapegate/internal/core/services"
	"github.com/scrapegate/scrapegate/pkg/debughttp"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger.Info("starting scrapegate")

	if err := run(logger); err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		logger.Info("shutting down")
		cancel()
	}()

	cfg, err := appconfig.FromEnv()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.ScraperToken == "" && cfg.PublicToken == "" {
		logger.Warn("no upstream tokens configured; upstream calls will be rejected")
	}

	catalog, err := scrapecatalog.Load(cfg.CatalogFile)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}
	logger.Info("catalog loaded", "extractors", catalog.Len(), "groups", len(catalog.Groups()))

	client := upstream.NewClient(logger, cfg)

	eventBus := services.NewEventBus(logger) // Telemetry
	registry := services.NewRegistry(logger, eventBus)
	if err := services.RegisterAll(registry, logger, cfg, client, catalog); err != nil {
		return fmt.Errorf("failed to register tools: %w", err)
	}
	logger.Info("tool surface registered", "mode", cfg.Mode, "tools", len(registry.List()))

	debugServer := debughttp.NewServer(logger, registry, eventBus)
	httpServer := &http.Server{
		Addr:    cfg.DebugAddr,
		Handler: debugServer.Handler(),
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting debug api server", "addr", cfg.DebugAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("debug server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("shutting down debug api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
