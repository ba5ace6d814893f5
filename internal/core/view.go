package core

import (
	"fmt"
	"slices"
)

// FilterAll is the filter value that keeps every record.
const FilterAll = "All"

const (
	SortLatest    SortOrder = "latest"
	SortLowToHigh SortOrder = "low-to-high"
)

type (
	// SortOrder selects how the display list is ordered.
	SortOrder string

	// ViewState is the UI selection a view is derived from.
	ViewState struct {
		Filter string    // FilterAll or a Category name
		Sort   SortOrder
	}

	// CategoryTotal is the summed amount of one category.
	CategoryTotal struct {
		Category Category `json:"category"`
		Total    Amount   `json:"total"`
	}

	// View is the derived presentation of a record set.
	View struct {
		Items  []Expense
		Totals []CategoryTotal
	}
)

// DefaultViewState shows every category, most recent first.
func DefaultViewState() ViewState {
	return ViewState{Filter: FilterAll, Sort: SortLatest}
}

// Toggle returns the other sort order.
func (s SortOrder) Toggle() SortOrder {
	if s == SortLatest {
		return SortLowToHigh
	}
	return SortLatest
}

// DeriveView filters and stably sorts records for display and sums amounts
// per category over the whole, unfiltered set. records is never modified.
func DeriveView(records []Expense, state ViewState) (View, error) {
	const op = "derive view"

	keep, err := filterFor(state.Filter)
	if err != nil {
		return View{}, E(KindInvalidArgument, op, err)
	}
	cmp, err := comparatorFor(state.Sort)
	if err != nil {
		return View{}, E(KindInvalidArgument, op, err)
	}

	items := make([]Expense, 0, len(records))
	for _, r := range records {
		if keep(r) {
			items = append(items, r)
		}
	}
	slices.SortStableFunc(items, cmp)

	return View{Items: items, Totals: Totals(records)}, nil
}

// Totals returns one entry per known category, in Categories() order.
// Records with an unknown category are ignored; invalid amounts count as 0.
func Totals(records []Expense) []CategoryTotal {
	cats := Categories()
	sums := make(map[Category]Amount, len(cats))
	for _, r := range records {
		if !r.Category.Valid() {
			continue
		}
		sums[r.Category] = sums[r.Category].Add(r.Amount)
	}
	out := make([]CategoryTotal, len(cats))
	for i, c := range cats {
		out[i] = CategoryTotal{Category: c, Total: AmountFromInt(0).Add(sums[c])}
	}
	return out
}

func filterFor(filter string) (func(Expense) bool, error) {
	if filter == FilterAll {
		return func(Expense) bool { return true }, nil
	}
	c := Category(filter)
	if !c.Valid() {
		return nil, fmt.Errorf("unknown filter category %q", filter)
	}
	return func(e Expense) bool { return e.Category == c }, nil
}

func comparatorFor(order SortOrder) (func(a, b Expense) int, error) {
	switch order {
	case SortLatest:
		return compareLatest, nil
	case SortLowToHigh:
		return compareLowToHigh, nil
	default:
		return nil, fmt.Errorf("unknown sort order %q", order)
	}
}

// compareLatest orders by date descending; invalid dates go last.
func compareLatest(a, b Expense) int {
	av, bv := a.Date.Valid(), b.Date.Valid()
	switch {
	case av && bv:
		return b.Date.Compare(a.Date.Time)
	case av:
		return -1
	case bv:
		return 1
	default:
		return 0
	}
}

// compareLowToHigh orders by amount ascending; invalid amounts go last.
func compareLowToHigh(a, b Expense) int {
	av, bv := a.Amount.Valid(), b.Amount.Valid()
	switch {
	case av && bv:
		return a.Amount.Cmp(b.Amount)
	case av:
		return -1
	case bv:
		return 1
	default:
		return 0
	}
}
