package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

// Store keeps records in process memory. It is the backend used by tests and
// by DATA_BACKEND=memory.
type Store struct {
	mu    sync.RWMutex
	items []core.Expense
	now   func() time.Time
}

func New(seed ...core.Expense) *Store {
	return &Store{items: slices.Clone(seed), now: time.Now}
}

// WithClock replaces the time source used for creation timestamps.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) Create(_ context.Context, n core.NewExpense) (core.Expense, error) {
	e, err := store.Build(n, s.now())
	if err != nil {
		return core.Expense{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, e)
	return e, nil
}

func (s *Store) List(_ context.Context) ([]core.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.items), nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = slices.DeleteFunc(s.items, func(e core.Expense) bool { return e.ID == id })
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

var _ store.Store = (*Store)(nil)
