// Package storage keeps the ledger in a SQLite database. Row order is
// preserved through an explicit position column.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"expenses/internal/core"
	"expenses/internal/ledger"

	_ "modernc.org/sqlite"
)

const (
	selectExpenses = `SELECT id, date, category, amount, description FROM expenses ORDER BY position`
	deleteExpenses = `DELETE FROM expenses`
	insertExpense  = `INSERT INTO expenses (id, position, date, category, amount, description) VALUES (?, ?, ?, ?, ?, ?)`
)

// SQLiteRepository implements ledger.Store on top of database/sql.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository opens (creating if needed) the database at dbPath and migrates it.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	version, err := RunMigrations(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	slog.Debug("Ledger database ready", "path", dbPath, "schema_version", version)
	return &SQLiteRepository{db: db}, nil
}

// Close releases the database handle.
func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Load implements ledger.Store.
func (r *SQLiteRepository) Load(ctx context.Context) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx, selectExpenses)
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}
	defer rows.Close()

	records := []core.Expense{}
	for rows.Next() {
		var id, date, category, amount, description string
		if err := rows.Scan(&id, &date, &category, &amount, &description); err != nil {
			return nil, fmt.Errorf("%w: scan row %d: %v", ledger.ErrMalformed, len(records), err)
		}
		e, err := decodeRow(id, date, category, amount, description)
		if err != nil {
			slog.ErrorContext(ctx, "Malformed ledger row in SQLite", "position", len(records), "error", err)
			return nil, fmt.Errorf("%w: row %d: %v", ledger.ErrMalformed, len(records), err)
		}
		records = append(records, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}
	return records, nil
}

// Save implements ledger.Store by replacing every row inside one transaction.
func (r *SQLiteRepository) Save(ctx context.Context, records []core.Expense) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin transaction: %v", ledger.ErrPersist, err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				slog.ErrorContext(ctx, "Failed to roll back ledger save", "error", rbErr)
			}
		}
	}()

	if _, err = tx.ExecContext(ctx, deleteExpenses); err != nil {
		return fmt.Errorf("%w: clear expenses: %v", ledger.ErrPersist, err)
	}
	stmt, err := tx.PrepareContext(ctx, insertExpense)
	if err != nil {
		return fmt.Errorf("%w: prepare insert: %v", ledger.ErrPersist, err)
	}
	defer stmt.Close()

	for i, e := range records {
		if _, err = stmt.ExecContext(ctx, e.ID, i, e.Date.String(), e.Category.String(), e.Amount.Plain(), e.Description); err != nil {
			return fmt.Errorf("%w: insert row %d: %v", ledger.ErrPersist, i, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", ledger.ErrPersist, err)
	}

	slog.DebugContext(ctx, "Ledger saved to SQLite", "records", len(records))
	return nil
}

func decodeRow(id, date, category, amount, description string) (core.Expense, error) {
	d, err := core.ParseDate(date)
	if err != nil {
		return core.Expense{}, err
	}
	c, err := core.ParseCategory(category)
	if err != nil {
		return core.Expense{}, err
	}
	a, err := core.ParseStoredAmount(amount)
	if err != nil {
		return core.Expense{}, err
	}
	e := core.Expense{ID: id, Date: d, Category: c, Amount: a, Description: description}
	return e, e.ValidateStored()
}
