package memory

import (
	"context"
	"fmt"
	"os"
	"sync"

	"expenses/internal/core"
	"expenses/internal/ledger"
	"expenses/internal/storage/jsonfile"
)

// Store keeps the ledger in process memory. Nothing survives a restart.
type Store struct {
	mu    sync.Mutex
	items []core.Expense
	// failSave makes Save return an error; lets tests exercise persist failures.
	failSave error
}

var _ ledger.Store = (*Store)(nil)

func New(seed ...core.Expense) *Store {
	return &Store{items: append([]core.Expense(nil), seed...)}
}

// NewFromFile seeds the store from a ledger JSON file when present. The seed
// goes through the same checks as the JSON backend; a missing file yields an
// empty store.
func NewFromFile(path string) (*Store, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(), nil
		}
		return nil, fmt.Errorf("read seed %s: %w", path, err)
	}
	seed, err := jsonfile.Decode(b)
	if err != nil {
		return nil, fmt.Errorf("seed %s: %w", path, err)
	}
	return New(seed...), nil
}

// Load returns a copy of the stored ledger.
func (s *Store) Load(_ context.Context) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Expense{}, s.items...), nil
}

// Save replaces the stored ledger with a copy of records.
func (s *Store) Save(_ context.Context, records []core.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSave != nil {
		return fmt.Errorf("%w: %v", ledger.ErrPersist, s.failSave)
	}
	s.items = append([]core.Expense(nil), records...)
	return nil
}

// FailSaves makes every subsequent Save fail with err; nil restores normal behaviour.
func (s *Store) FailSaves(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failSave = err
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
