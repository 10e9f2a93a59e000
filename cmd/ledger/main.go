package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"expenses/internal/cache"
	"expenses/internal/chart"
	"expenses/internal/cli"
	apphttp "expenses/internal/http"
	"expenses/internal/log"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "ledger:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		return err
	}
	logger, err := cli.SetupLogger(cfg.LogLevel, log.ComponentApp, nil)
	if err != nil {
		return err
	}

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	l, err := cli.OpenLedger(ctx, logger, cfg)
	if err != nil {
		logger.Error("Failed to initialize ledger", log.FieldBackend, cfg.DataBackend, log.FieldError, err.Error())
		return err
	}
	defer func() {
		if err := l.Close(); err != nil {
			logger.Error("Cleanup failed", log.FieldOperation, log.OpShutdown, log.FieldError, err.Error())
		}
	}()

	chartCache := cache.NewLRUCache[[]byte](cfg.ChartCacheSize, cfg.ChartCacheTTL)
	janitor := cache.NewManager(logger.Logger.With(log.FieldComponent, log.ComponentCache))
	janitor.Register(chartCache)

	srv, err := apphttp.NewServer(cfg.Addr(), l.Service, apphttp.Options{
		Logger:             logger,
		Charts:             chart.NewRenderer(chartCache),
		CurrencySymbol:     cfg.CurrencySymbol,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting ledger server", "addr", srv.Addr, log.FieldBackend, cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return janitor.Run(gctx, cfg.ChartCacheTTL)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown signal received", log.FieldOperation, log.OpShutdown)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server stopped with error", log.FieldError, err.Error())
		return err
	}

	hits, misses := chartCache.Stats()
	logger.Info("Server stopped gracefully", "chart_cache_hits", hits, "chart_cache_misses", misses)
	return nil
}
