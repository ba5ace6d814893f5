// Package store defines the Record Store ports and the helpers shared by
// its backends.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/core"
)

// Ports implemented by every record store backend.
type (
	ExpenseCreator interface {
		// Create validates n, assigns an id and a creation time, and persists it.
		Create(ctx context.Context, n core.NewExpense) (core.Expense, error)
	}

	ExpenseLister interface {
		// List returns every stored record in insertion order.
		List(ctx context.Context) ([]core.Expense, error)
	}

	ExpenseDeleter interface {
		// Delete removes the record with the given id. Unknown ids are not an error.
		Delete(ctx context.Context, id string) error
	}

	Pinger interface {
		Ping(ctx context.Context) error
	}

	Store interface {
		ExpenseCreator
		ExpenseLister
		ExpenseDeleter
		Pinger
		Close() error
	}
)

// Build validates n and turns it into a record with a fresh UUID. A missing
// date defaults to now.
func Build(n core.NewExpense, now time.Time) (core.Expense, error) {
	if err := n.Validate(); err != nil {
		return core.Expense{}, err
	}
	now = now.UTC()
	date := n.Date
	if !date.Valid() {
		date = core.DateOf(now)
	}
	return core.Expense{
		ID:        uuid.NewString(),
		Name:      n.Name,
		Amount:    n.Amount,
		Category:  n.Category,
		Date:      date,
		CreatedAt: now,
	}, nil
}

// Unavailable wraps a backend failure as a core error of kind unavailable.
func Unavailable(op string, err error) error {
	return core.E(core.KindUnavailable, op, err)
}
