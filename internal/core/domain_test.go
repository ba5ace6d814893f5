package core

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestNewExpenseValidate(t *testing.T) {
	valid := NewExpense{Name: "Lunch", Amount: AmountFromInt(10), Category: Food}

	tests := []struct {
		name    string
		mutate  func(*NewExpense)
		wantErr error
	}{
		{"ok", func(*NewExpense) {}, nil},
		{"empty name", func(n *NewExpense) { n.Name = "  " }, ErrEmptyName},
		{"long name", func(n *NewExpense) { n.Name = strings.Repeat("x", 201) }, ErrNameTooLong},
		{"missing amount", func(n *NewExpense) { n.Amount = Amount{} }, ErrInvalidAmount},
		{"empty category", func(n *NewExpense) { n.Category = "" }, ErrEmptyCategory},
		{"unknown category", func(n *NewExpense) { n.Category = "Gifts" }, ErrUnknownCategory},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := valid
			tt.mutate(&n)
			err := n.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if !IsKind(err, KindValidation) {
				t.Fatalf("expected validation kind, got %s", KindOf(err))
			}
		})
	}
}

func TestParseCategory(t *testing.T) {
	c, err := ParseCategory(" food ")
	if err != nil || c != Food {
		t.Fatalf("ParseCategory(food) = %q, %v", c, err)
	}
	if _, err := ParseCategory(""); !errors.Is(err, ErrEmptyCategory) {
		t.Fatalf("expected ErrEmptyCategory, got %v", err)
	}
	if _, err := ParseCategory("Gifts"); !errors.Is(err, ErrUnknownCategory) {
		t.Fatalf("expected ErrUnknownCategory, got %v", err)
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-01-05")
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	if d.String() != "2024-01-05" {
		t.Fatalf("String = %s", d)
	}

	tests := []struct {
		in       string
		wantDay  string
		wantHour int
	}{
		{"2024-01-05T10:30:00+02:00", "2024-01-05", 10},
		{"2024-01-05T23:00:00-05:00", "2024-01-05", 23},
		{"2024-01-05T00:30:00+09:00", "2024-01-05", 0},
		{"2024-01-05T23:00:00Z", "2024-01-05", 23},
	}
	for _, tt := range tests {
		d, err := ParseDate(tt.in)
		if err != nil {
			t.Fatalf("ParseDate(%q): %v", tt.in, err)
		}
		if d.String() != tt.wantDay || d.Hour() != tt.wantHour || d.Location() != time.UTC {
			t.Fatalf("ParseDate(%q) = %v, want day %s hour %d in UTC", tt.in, d.Time, tt.wantDay, tt.wantHour)
		}
	}

	// Dates the API returns parse back unchanged.
	created := DateOf(time.Date(2024, 3, 1, 18, 45, 12, 0, time.UTC))
	b, _ := json.Marshal(created)
	var back Date
	if err := json.Unmarshal(b, &back); err != nil || !back.Equal(created.Time) {
		t.Fatalf("round trip %s -> %v, %v", b, back.Time, err)
	}

	if _, err := ParseDate("05/01/2024"); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}

func TestExpenseJSON(t *testing.T) {
	e := Expense{
		ID:       "abc",
		Name:     "Lunch",
		Amount:   AmountFromInt(10),
		Category: Food,
		Date:     NewDate(2024, 1, 1),
	}
	b, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(b)
	for _, want := range []string{`"_id":"abc"`, `"amount":10`, `"category":"Food"`, `"date":"2024-01-01T00:00:00Z"`} {
		if !strings.Contains(s, want) {
			t.Fatalf("expected %s in %s", want, s)
		}
	}

	var back Expense
	if err := json.Unmarshal([]byte(`{"_id":"x","name":"n","amount":"oops","category":"Rent","date":"not a date"}`), &back); err != nil {
		t.Fatalf("tolerant decode failed: %v", err)
	}
	if back.Amount.Valid() || back.Date.Valid() {
		t.Fatalf("expected invalid amount and date, got %s %s", back.Amount, back.Date)
	}
	if back.ID != "x" || back.Category != Rent {
		t.Fatalf("unexpected decode %+v", back)
	}
}
