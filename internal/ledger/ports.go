// Package ledger owns the expense ledger: the store port, the mutation
// cycle, and the change events emitted after each persisted mutation.
package ledger

import (
	"context"
	"errors"
	"time"

	"expenses/internal/core"
)

var (
	// ErrMalformed reports backing content that cannot be parsed into a ledger.
	ErrMalformed = errors.New("malformed ledger")
	// ErrPersist reports a failure writing the ledger back to its store.
	ErrPersist = errors.New("persist ledger")
	// ErrNotFound reports a delete of an unknown expense ID.
	ErrNotFound = errors.New("expense not found")
	// ErrIndexOutOfRange reports a positional delete against a stale or short ledger.
	ErrIndexOutOfRange = errors.New("index out of range")
)

// Ports for outbound adapters.
type (
	// Store loads and saves the whole ledger as one unit.
	Store interface {
		// Load returns an empty slice when the backing store does not exist yet.
		Load(ctx context.Context) ([]core.Expense, error)
		// Save overwrites the backing store with records.
		Save(ctx context.Context, records []core.Expense) error
	}

	// EventPublisher receives a notification after every persisted mutation.
	EventPublisher interface {
		Publish(ctx context.Context, ev Event) error
	}
)

// EventKind names a ledger change.
type EventKind string

const (
	EventExpenseAdded   EventKind = "expense.added"
	EventExpenseDeleted EventKind = "expense.deleted"
)

// Event describes one persisted mutation.
type Event struct {
	Kind      EventKind    `json:"kind"`
	Expense   core.Expense `json:"expense"`
	Position  int          `json:"position"`
	LedgerLen int          `json:"ledger_len"`
	Timestamp time.Time    `json:"timestamp"`
}
