package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"expenses/internal/core"
	"expenses/internal/log"
)

// Service runs every mutation as one reload, mutate, persist cycle.
// The mutex only serializes cycles inside this process; concurrent writers
// in other processes still race with last-write-wins.
type Service struct {
	mu        sync.Mutex
	store     Store
	publisher EventPublisher
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithPublisher attaches an event publisher. A nil publisher disables events.
func WithPublisher(p EventPublisher) Option {
	return func(s *Service) { s.publisher = p }
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{store: store, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List loads the current ledger.
func (s *Service) List(ctx context.Context) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// Add validates e, assigns an ID when missing, appends it and persists.
// It returns the updated ledger.
func (s *Service) Add(ctx context.Context, e core.Expense) ([]core.Expense, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}

	records, err := s.appendRecord(ctx, e)
	if err != nil {
		return nil, err
	}

	pos := len(records) - 1
	s.logChange(ctx, "Expense added", log.OpAdd, e, pos, len(records))
	s.publish(ctx, Event{Kind: EventExpenseAdded, Expense: e, Position: pos, LedgerLen: len(records)})
	return records, nil
}

func (s *Service) appendRecord(ctx context.Context, e core.Expense) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	records = append(records, e)
	if err := s.save(ctx, records); err != nil {
		return nil, err
	}
	return records, nil
}

// Delete removes the expense with the given ID and returns it.
func (s *Service) Delete(ctx context.Context, id string) (core.Expense, error) {
	return s.remove(ctx, func(records []core.Expense) (int, error) {
		for i := range records {
			if records[i].ID == id {
				return i, nil
			}
		}
		return 0, fmt.Errorf("%w: %s", ErrNotFound, id)
	})
}

// RemoveAt removes the expense at index in the freshly loaded ledger order.
// The index is only meaningful against the caller's last load.
func (s *Service) RemoveAt(ctx context.Context, index int) (core.Expense, error) {
	return s.remove(ctx, func(records []core.Expense) (int, error) {
		if index < 0 || index >= len(records) {
			return 0, fmt.Errorf("%w: %d (ledger has %d records)", ErrIndexOutOfRange, index, len(records))
		}
		return index, nil
	})
}

// remove deletes the record pick selects. The event goes out after the
// lock is released so a slow broker never holds up other mutations.
func (s *Service) remove(ctx context.Context, pick func([]core.Expense) (int, error)) (core.Expense, error) {
	removed, index, remaining, err := s.removeLocked(ctx, pick)
	if err != nil {
		return core.Expense{}, err
	}
	s.logChange(ctx, "Expense deleted", log.OpDelete, removed, index, remaining)
	s.publish(ctx, Event{Kind: EventExpenseDeleted, Expense: removed, Position: index, LedgerLen: remaining})
	return removed, nil
}

func (s *Service) removeLocked(ctx context.Context, pick func([]core.Expense) (int, error)) (core.Expense, int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load(ctx)
	if err != nil {
		return core.Expense{}, 0, 0, err
	}
	index, err := pick(records)
	if err != nil {
		return core.Expense{}, 0, 0, err
	}
	removed := records[index]
	remaining := make([]core.Expense, 0, len(records)-1)
	remaining = append(remaining, records[:index]...)
	remaining = append(remaining, records[index+1:]...)
	if err := s.save(ctx, remaining); err != nil {
		return core.Expense{}, 0, 0, err
	}
	return removed, index, len(remaining), nil
}

func (s *Service) logChange(ctx context.Context, msg, op string, e core.Expense, position, ledgerLen int) {
	fields := log.NewFields().WithExpense(e).WithOperation(op)
	fields[log.FieldPosition] = position
	fields[log.FieldLedgerLen] = ledgerLen
	log.FromContext(ctx).WithComponent(log.ComponentLedger).InfoContext(ctx, msg, fields.ToSlice()...)
}

// legacyIDSpace namespaces IDs derived for records stored without one.
var legacyIDSpace = uuid.MustParse("6f1c5a8e-3b0d-4f6a-9a57-2c1e8d4b7f30")

// load reads the store and backfills IDs for records written without one.
// Backfilled IDs are derived from position and content so they stay stable
// across reloads until the next save persists them.
func (s *Service) load(ctx context.Context) ([]core.Expense, error) {
	records, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	for i := range records {
		if records[i].ID == "" {
			records[i].ID = legacyID(i, records[i])
		}
	}
	return records, nil
}

func legacyID(position int, e core.Expense) string {
	key := fmt.Sprintf("%d|%s|%s|%s|%s", position, e.Date, e.Category, e.Amount.String(), e.Description)
	return uuid.NewSHA1(legacyIDSpace, []byte(key)).String()
}

func (s *Service) save(ctx context.Context, records []core.Expense) error {
	if err := s.store.Save(ctx, records); err != nil {
		return fmt.Errorf("save ledger: %w", err)
	}
	return nil
}

func (s *Service) publish(ctx context.Context, ev Event) {
	if s.publisher == nil {
		return
	}
	ev.Timestamp = s.now()
	if err := s.publisher.Publish(ctx, ev); err != nil {
		log.FromContext(ctx).WithComponent(log.ComponentLedger).ErrorContext(ctx, "Failed to publish ledger event",
			"kind", string(ev.Kind),
			log.FieldExpenseID, ev.Expense.ID,
			log.FieldError, err.Error())
	}
}
