// Package backend builds the ledger store selected by configuration.
package backend

import (
	"context"
	"fmt"
	"log/slog"

	"expenses/internal/amqp"
	"expenses/internal/ledger"
	gsheet "expenses/internal/sheets/google"
	"expenses/internal/storage"
	"expenses/internal/storage/jsonfile"
	"expenses/internal/storage/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case JSONBackend:
		return f.createJSONBackend(config)
	case MemoryBackend:
		return f.createMemoryBackend(config)
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case SheetsBackend:
		return f.createSheetsBackend(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createJSONBackend(config Config) (*Result, error) {
	f.logger.Info("Initialized JSON file backend", "path", config.LedgerFile)
	return &Result{Store: jsonfile.New(config.LedgerFile)}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*Result, error) {
	if config.LedgerFile == "" {
		f.logger.Info("Initialized empty memory backend")
		return &Result{Store: memory.New()}, nil
	}
	store, err := memory.NewFromFile(config.LedgerFile)
	if err != nil {
		return nil, fmt.Errorf("failed to seed memory backend: %w", err)
	}
	f.logger.Info("Initialized memory backend", "seed", config.LedgerFile, "records", store.Len())
	return &Result{Store: store}, nil
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*Result, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	return &Result{Store: repo, Cleanup: repo.Close}, nil
}

func (f *DefaultFactory) createSheetsBackend(ctx context.Context, config Config) (*Result, error) {
	cli, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:   config.GoogleSpreadsheetID,
		SheetName:       config.GoogleSheetName,
		CredentialsJSON: config.GoogleServiceAccountJSON,
		CredentialsFile: config.GoogleServiceAccountFile,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	f.logger.Info("Initialized Google Sheets backend", "sheet", config.GoogleSheetName)
	return &Result{Store: cli}, nil
}

// NewPublisher connects to the broker when url is set. Connection failures
// are logged and yield a nil publisher so the ledger keeps working without events.
func NewPublisher(logger *slog.Logger, url, exchange, queue string) (ledger.EventPublisher, CleanupFunc) {
	if logger == nil {
		logger = slog.Default()
	}
	if url == "" {
		return nil, nil
	}
	client, err := amqp.NewClient(url, exchange, queue)
	if err != nil {
		logger.Warn("Failed to initialize AMQP client, continuing without events", "error", err)
		return nil, nil
	}
	logger.Info("Initialized AMQP client", "exchange", exchange, "queue", queue)
	return client, client.Close
}
