package memory

import (
	"context"
	"testing"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/store/storetest"
)

func TestMemoryStoreContract(t *testing.T) {
	storetest.Run(t, New())
}

func TestMemoryStoreClockAndSeed(t *testing.T) {
	seed := core.Expense{ID: "seed", Name: "old", Amount: core.AmountFromInt(5), Category: core.Food, Date: core.NewDate(2023, 5, 1)}
	fixed := time.Date(2024, 7, 9, 15, 0, 0, 0, time.UTC)
	s := New(seed).WithClock(func() time.Time { return fixed })

	e, err := s.Create(context.Background(), core.NewExpense{Name: "n", Amount: core.AmountFromInt(1), Category: core.Rent})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !e.CreatedAt.Equal(fixed) || e.Date.String() != "2024-07-09" {
		t.Fatalf("unexpected timestamps %v %v", e.CreatedAt, e.Date)
	}

	got, _ := s.List(context.Background())
	if len(got) != 2 || got[0].ID != "seed" || got[1].ID != e.ID {
		t.Fatalf("unexpected list %v", got)
	}

	got[0].Name = "mutated"
	again, _ := s.List(context.Background())
	if again[0].Name != "old" {
		t.Fatalf("List must return a copy")
	}
}
