package sheets

import (
	"context"

	"fintrack/internal/core"
)

// Ports for the spreadsheet mirror.
type (
	ExpenseWriter interface {
		// AppendExpense adds a row for e. Appending an id that is already
		// mirrored is a no-op.
		AppendExpense(ctx context.Context, e core.Expense) (rowRef string, err error)
	}

	ExpenseDeleter interface {
		// DeleteExpense removes every row for id. A missing row is not an error.
		DeleteExpense(ctx context.Context, id string) error
	}

	ExpenseIDLister interface {
		// ExpenseIDs returns the ids currently mirrored, in sheet order.
		ExpenseIDs(ctx context.Context) ([]string, error)
	}

	Mirror interface {
		ExpenseWriter
		ExpenseDeleter
		ExpenseIDLister
	}
)

// Row lays out e as a mirror row: id, date, name, amount, category.
func Row(e core.Expense) []any {
	var amount any = ""
	if e.Amount.Valid() {
		amount = e.Amount.Decimal().InexactFloat64()
	}
	date := ""
	if e.Date.Valid() {
		date = e.Date.String()
	}
	return []any{e.ID, date, e.Name, amount, e.Category.String()}
}
