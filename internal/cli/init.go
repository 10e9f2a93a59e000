// Package cli provides common initialization shared by cmd/ledger and
// cmd/ledgerctl.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"expenses/internal/backend"
	"expenses/internal/config"
	"expenses/internal/ledger"
	"expenses/internal/log"
)

// SetupLogger builds a component logger at the configured level and makes it the default.
// The returned logger writes to out, or stdout when out is nil.
func SetupLogger(level, component string, out io.Writer) (*log.Logger, error) {
	lvl, err := config.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = os.Stdout
	}
	logger := log.New(log.Config{Level: lvl, Component: component, Output: out})
	log.SetDefault(logger)
	return logger, nil
}

// LoadAndValidateConfig loads .env (when present) and the environment, then validates the result.
func LoadAndValidateConfig() (*config.Config, error) {
	if err := config.LoadEnvFile(); err != nil {
		return nil, err
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Ledger bundles the service with the resources that back it.
type Ledger struct {
	Service *ledger.Service
	Store   *backend.Result

	closePublisher backend.CleanupFunc
}

// Close releases the publisher and the store. It is safe on a partially built Ledger.
func (l *Ledger) Close() error {
	var firstErr error
	if l.closePublisher != nil {
		if err := l.closePublisher(); err != nil {
			firstErr = fmt.Errorf("close publisher: %w", err)
		}
	}
	if l.Store != nil {
		if err := l.Store.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close store: %w", err)
		}
	}
	return firstErr
}

// OpenLedger creates the configured store and, when AMQP is configured, the event publisher.
func OpenLedger(ctx context.Context, logger *log.Logger, cfg *config.Config) (*Ledger, error) {
	res, err := OpenStore(ctx, logger, cfg, cfg.DataBackend)
	if err != nil {
		return nil, err
	}

	pub, closePub := backend.NewPublisher(logger.Logger.With(log.FieldComponent, log.ComponentAMQP), cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	var opts []ledger.Option
	if pub != nil {
		opts = append(opts, ledger.WithPublisher(pub))
	}
	return &Ledger{
		Service:        ledger.NewService(res.Store, opts...),
		Store:          res,
		closePublisher: closePub,
	}, nil
}

// OpenStore creates a store of the given backend kind from the shared backend settings in cfg.
func OpenStore(ctx context.Context, logger *log.Logger, cfg *config.Config, kind string) (*backend.Result, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	bcfg.Type = backend.BackendType(kind)
	return backend.NewFactory(logger.Logger.With(log.FieldComponent, log.ComponentBackend)).CreateBackend(ctx, bcfg)
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}
