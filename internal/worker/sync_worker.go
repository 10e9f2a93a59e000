// Package worker mirrors the ledger into a second backend by replaying
// change events from the message broker.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"expenses/internal/amqp"
	"expenses/internal/core"
	"expenses/internal/ledger"
)

// Lister reads the authoritative ledger with IDs assigned.
type Lister interface {
	List(ctx context.Context) ([]core.Expense, error)
}

// SyncWorker applies ledger events to a mirror store. Applying the same
// event twice leaves the mirror unchanged.
type SyncWorker struct {
	mu     sync.Mutex
	source Lister
	mirror ledger.Store
}

func NewSyncWorker(source Lister, mirror ledger.Store) *SyncWorker {
	return &SyncWorker{source: source, mirror: mirror}
}

// HandleEventMessage processes a single ledger event from AMQP.
func (w *SyncWorker) HandleEventMessage(ctx context.Context, msg *amqp.EventMessage) error {
	ev := msg.Event
	slog.InfoContext(ctx, "Processing ledger event",
		"kind", string(ev.Kind),
		"expense_id", ev.Expense.ID,
		"position", ev.Position)

	w.mu.Lock()
	defer w.mu.Unlock()

	records, err := w.mirror.Load(ctx)
	if err != nil {
		return fmt.Errorf("load mirror: %w", err)
	}

	var changed bool
	switch ev.Kind {
	case ledger.EventExpenseAdded:
		records, changed = insert(records, ev.Expense, ev.Position)
	case ledger.EventExpenseDeleted:
		records, changed = remove(records, ev.Expense.ID)
	default:
		slog.WarnContext(ctx, "Ignoring unknown ledger event", "kind", string(ev.Kind))
		return nil
	}
	if !changed {
		slog.DebugContext(ctx, "Mirror already up to date", "expense_id", ev.Expense.ID)
		return nil
	}

	if err := w.mirror.Save(ctx, records); err != nil {
		return fmt.Errorf("save mirror: %w", err)
	}
	if len(records) != ev.LedgerLen {
		slog.WarnContext(ctx, "Mirror length differs from ledger, next resync will repair it",
			"mirror_len", len(records),
			"ledger_len", ev.LedgerLen)
	}
	return nil
}

// Resync overwrites the mirror with the current ledger. It is the backup
// path for events lost while the worker was down. The snapshot is taken
// under the worker lock so no event lands between the read and the write.
func (w *SyncWorker) Resync(ctx context.Context) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	records, err := w.source.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list ledger: %w", err)
	}

	if err := w.mirror.Save(ctx, records); err != nil {
		return 0, fmt.Errorf("save mirror: %w", err)
	}
	slog.InfoContext(ctx, "Mirror resynced", "records", len(records))
	return len(records), nil
}

// insert places e at position unless a record with its ID is already present.
func insert(records []core.Expense, e core.Expense, position int) ([]core.Expense, bool) {
	for _, r := range records {
		if r.ID == e.ID {
			return records, false
		}
	}
	if position < 0 || position > len(records) {
		position = len(records)
	}
	out := make([]core.Expense, 0, len(records)+1)
	out = append(out, records[:position]...)
	out = append(out, e)
	out = append(out, records[position:]...)
	return out, true
}

func remove(records []core.Expense, id string) ([]core.Expense, bool) {
	for i, r := range records {
		if r.ID == id {
			out := make([]core.Expense, 0, len(records)-1)
			out = append(out, records[:i]...)
			return append(out, records[i+1:]...), true
		}
	}
	return records, false
}
