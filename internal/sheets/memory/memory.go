package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"fintrack/internal/core"
	"fintrack/internal/sheets"
)

// Store is an in-process mirror with the same row semantics as the
// spreadsheet.
type Store struct {
	mu   sync.Mutex
	rows [][]any
}

func New() *Store {
	return &Store{}
}

// AppendExpense stores the row and returns a synthetic row reference.
func (s *Store) AppendExpense(_ context.Context, e core.Expense) (string, error) {
	if e.ID == "" {
		return "", core.ErrEmptyID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(e.ID); i >= 0 {
		return fmt.Sprintf("mem:%d", i+1), nil
	}
	s.rows = append(s.rows, sheets.Row(e))
	return fmt.Sprintf("mem:%d", len(s.rows)), nil
}

func (s *Store) DeleteExpense(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = slices.DeleteFunc(s.rows, func(r []any) bool { return r[0] == id })
	return nil
}

func (s *Store) ExpenseIDs(context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, len(s.rows))
	for i, r := range s.rows {
		ids[i] = r[0].(string)
	}
	return ids, nil
}

// Rows returns a copy of the mirrored rows.
func (s *Store) Rows() [][]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]any, len(s.rows))
	for i, r := range s.rows {
		out[i] = slices.Clone(r)
	}
	return out
}

func (s *Store) indexOf(id string) int {
	return slices.IndexFunc(s.rows, func(r []any) bool { return r[0] == id })
}

var _ sheets.Mirror = (*Store)(nil)
