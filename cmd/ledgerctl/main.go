// Command ledgerctl runs ledger operations from the shell against the
// configured backend.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"expenses/internal/amqp"
	"expenses/internal/cli"
	"expenses/internal/core"
	"expenses/internal/log"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "ledgerctl:", err)
		}
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		return err
	}
	logger, err := cli.SetupLogger(cfg.LogLevel, log.ComponentCLI, os.Stderr)
	if err != nil {
		return err
	}

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	l, err := cli.OpenLedger(ctx, logger, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := l.Close(); err != nil {
			logger.Error("Cleanup failed", log.FieldOperation, log.OpShutdown, log.FieldError, err.Error())
		}
	}()

	a := &app{
		svc:      l.Service,
		out:      os.Stdout,
		currency: cfg.CurrencySymbol,
		today:    core.Today,
	}
	if cfg.AMQPURL != "" {
		a.events = func() (consumer, error) {
			return amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		}
	}
	return a.run(ctx, args)
}
