// Command ledger-worker mirrors the ledger into MIRROR_BACKEND by consuming
// change events from AMQP, with a full resync at startup and every SYNC_INTERVAL.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"expenses/internal/amqp"
	"expenses/internal/cli"
	"expenses/internal/ledger"
	"expenses/internal/log"
	"expenses/internal/worker"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "ledger-worker:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		return err
	}
	logger, err := cli.SetupLogger(cfg.LogLevel, log.ComponentWorker, nil)
	if err != nil {
		return err
	}
	if cfg.AMQPURL == "" || cfg.MirrorBackend == "" {
		return errors.New("ledger-worker needs AMQP_URL and MIRROR_BACKEND")
	}

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	source, err := cli.OpenStore(ctx, logger, cfg, cfg.DataBackend)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer source.Close()

	mirror, err := cli.OpenStore(ctx, logger, cfg, cfg.MirrorBackend)
	if err != nil {
		return fmt.Errorf("open mirror: %w", err)
	}
	defer mirror.Close()

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		return fmt.Errorf("connect broker: %w", err)
	}
	defer client.Close()

	w := worker.NewSyncWorker(ledger.NewService(source.Store), mirror.Store)

	logger.Info("Starting ledger-worker",
		log.FieldBackend, cfg.DataBackend,
		"mirror", cfg.MirrorBackend,
		"queue", cfg.AMQPQueue)

	// A failed startup resync is not fatal: events still flow and the
	// periodic resync retries.
	if _, err := w.Resync(ctx); err != nil {
		logger.Error("Startup resync failed", log.FieldError, err.Error())
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := client.Consume(gctx, w.HandleEventMessage)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		ticker := time.NewTicker(cfg.SyncInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if _, err := w.Resync(gctx); err != nil {
					logger.Error("Periodic resync failed", log.FieldError, err.Error())
				}
			}
		}
	})

	if err := g.Wait(); err != nil {
		logger.Error("Worker stopped with error", log.FieldError, err.Error())
		return err
	}
	logger.Info("Worker shutdown complete")
	return nil
}
