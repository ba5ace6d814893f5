// Package storetest holds the behaviour every store.Store backend must share.
package storetest

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

// Run exercises s against the record store contract. s must start empty.
func Run(t *testing.T, s store.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("ping", func(t *testing.T) {
		if err := s.Ping(ctx); err != nil {
			t.Fatalf("ping: %v", err)
		}
	})

	t.Run("create assigns id and keeps fields", func(t *testing.T) {
		amount, _ := core.ParseAmount("12.50")
		e, err := s.Create(ctx, core.NewExpense{
			Name:     "Lunch",
			Amount:   amount,
			Category: core.Food,
			Date:     core.NewDate(2024, 1, 1),
		})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if _, err := uuid.Parse(e.ID); err != nil {
			t.Fatalf("expected uuid id, got %q", e.ID)
		}
		if e.Name != "Lunch" || e.Category != core.Food || !e.Amount.Equal(amount) {
			t.Fatalf("unexpected record %+v", e)
		}
		if e.Date.String() != "2024-01-01" || e.CreatedAt.IsZero() {
			t.Fatalf("unexpected dates %v %v", e.Date, e.CreatedAt)
		}
		mustDelete(t, s, e.ID)
	})

	t.Run("create without date uses creation time", func(t *testing.T) {
		e, err := s.Create(ctx, core.NewExpense{Name: "Bus", Amount: core.AmountFromInt(2), Category: core.Transport})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if !e.Date.Valid() {
			t.Fatalf("expected a store assigned date")
		}
		mustDelete(t, s, e.ID)
	})

	t.Run("create rejects invalid input", func(t *testing.T) {
		_, err := s.Create(ctx, core.NewExpense{Name: "", Amount: core.AmountFromInt(1), Category: core.Food})
		if !errors.Is(err, core.ErrEmptyName) || !core.IsKind(err, core.KindValidation) {
			t.Fatalf("expected validation error, got %v", err)
		}
		_, err = s.Create(ctx, core.NewExpense{Name: "x", Amount: core.AmountFromInt(1), Category: "Gifts"})
		if !errors.Is(err, core.ErrUnknownCategory) {
			t.Fatalf("expected unknown category, got %v", err)
		}
		if got := list(t, s); len(got) != 0 {
			t.Fatalf("rejected creates must not persist, got %d records", len(got))
		}
	})

	t.Run("list keeps insertion order and round trips", func(t *testing.T) {
		names := []string{"first", "second", "third"}
		var created []core.Expense
		for i, n := range names {
			e, err := s.Create(ctx, core.NewExpense{
				Name:     n,
				Amount:   core.AmountFromInt(int64(10 * (i + 1))),
				Category: core.Categories()[i],
				Date:     core.NewDate(2024, 2, 3-i),
			})
			if err != nil {
				t.Fatalf("create %s: %v", n, err)
			}
			created = append(created, e)
		}

		got := list(t, s)
		if len(got) != len(created) {
			t.Fatalf("expected %d records, got %d", len(created), len(got))
		}
		for i := range created {
			w, g := created[i], got[i]
			if g.ID != w.ID || g.Name != w.Name || g.Category != w.Category {
				t.Fatalf("record %d: got %+v, want %+v", i, g, w)
			}
			if !g.Amount.Equal(w.Amount) {
				t.Fatalf("record %d amount: got %s, want %s", i, g.Amount, w.Amount)
			}
			if g.Date.String() != w.Date.String() {
				t.Fatalf("record %d date: got %s, want %s", i, g.Date, w.Date)
			}
		}

		for _, e := range created {
			mustDelete(t, s, e.ID)
		}
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		keep, err := s.Create(ctx, core.NewExpense{Name: "keep", Amount: core.AmountFromInt(1), Category: core.Rent})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		gone, err := s.Create(ctx, core.NewExpense{Name: "gone", Amount: core.AmountFromInt(2), Category: core.Rent})
		if err != nil {
			t.Fatalf("create: %v", err)
		}

		mustDelete(t, s, gone.ID)
		mustDelete(t, s, gone.ID)
		mustDelete(t, s, uuid.NewString())
		mustDelete(t, s, "not-a-uuid")

		got := list(t, s)
		if len(got) != 1 || got[0].ID != keep.ID {
			t.Fatalf("expected only %s to remain, got %v", keep.ID, got)
		}
		mustDelete(t, s, keep.ID)
	})

	t.Run("concurrent creates", func(t *testing.T) {
		const n = 20
		var wg sync.WaitGroup
		errs := make(chan error, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.Create(ctx, core.NewExpense{Name: "c", Amount: core.AmountFromInt(1), Category: core.Utilities})
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			if err != nil {
				t.Fatalf("concurrent create: %v", err)
			}
		}
		got := list(t, s)
		if len(got) != n {
			t.Fatalf("expected %d records, got %d", n, len(got))
		}
		for _, e := range got {
			mustDelete(t, s, e.ID)
		}
	})
}

func list(t *testing.T, s store.Store) []core.Expense {
	t.Helper()
	got, err := s.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	return got
}

func mustDelete(t *testing.T, s store.Store, id string) {
	t.Helper()
	if err := s.Delete(context.Background(), id); err != nil {
		t.Fatalf("delete %s: %v", id, err)
	}
}
