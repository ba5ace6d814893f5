// Package core holds the expense domain: records, categories, amounts, dates,
// error kinds and the view derivation used by clients.
//
// This file contains the Amount type and its parsing from user input and JSON.
package core

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// Amount is a decimal money value. The zero value is an invalid (missing)
// amount; aggregation treats invalid amounts as 0.
type Amount struct {
	value decimal.Decimal
	valid bool
}

// NewAmount wraps d as a valid amount.
func NewAmount(d decimal.Decimal) Amount {
	return Amount{value: d, valid: true}
}

// AmountFromInt returns a valid amount of n whole units.
func AmountFromInt(n int64) Amount {
	return NewAmount(decimal.NewFromInt(n))
}

// ParseAmount converts a decimal string to an Amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and
// surrounding whitespace. Exponents and signs are passed to decimal parsing
// unchanged, so "-3" is a valid (negative) amount.
//
// Examples:
//
//	ParseAmount("12.34") -> 12.34, nil
//	ParseAmount("12,34") -> 12.34, nil
//	ParseAmount("abc")   -> invalid, ErrInvalidAmount
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Amount{}, ErrInvalidAmount
	}
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, ErrInvalidAmount
	}
	return NewAmount(d), nil
}

// Valid reports whether the amount was supplied and numeric.
func (a Amount) Valid() bool {
	return a.valid
}

// Decimal returns the value, or zero for an invalid amount.
func (a Amount) Decimal() decimal.Decimal {
	if !a.valid {
		return decimal.Zero
	}
	return a.value
}

// Add returns a+b with invalid operands counted as 0. The result is valid.
func (a Amount) Add(b Amount) Amount {
	return NewAmount(a.Decimal().Add(b.Decimal()))
}

// Cmp compares the decimal values of two valid amounts.
func (a Amount) Cmp(b Amount) int {
	return a.Decimal().Cmp(b.Decimal())
}

// Equal reports whether both amounts have the same validity and value.
func (a Amount) Equal(b Amount) bool {
	if a.valid != b.valid {
		return false
	}
	return !a.valid || a.value.Equal(b.value)
}

func (a Amount) String() string {
	if !a.valid {
		return "n/a"
	}
	return a.value.String()
}

// StringFixed renders the value with two decimals for display.
func (a Amount) StringFixed() string {
	return a.Decimal().StringFixed(2)
}

// MarshalJSON emits a bare JSON number, or null for an invalid amount.
func (a Amount) MarshalJSON() ([]byte, error) {
	if !a.valid {
		return []byte("null"), nil
	}
	return []byte(a.value.String()), nil
}

// UnmarshalJSON accepts a JSON number or a numeric string. Anything else
// decodes to an invalid amount without error, the same coercion a browser
// number input applies.
func (a *Amount) UnmarshalJSON(b []byte) error {
	*a = Amount{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
		if parsed, err := ParseAmount(s); err == nil {
			*a = parsed
		}
		return nil
	}
	if d, err := decimal.NewFromString(string(b)); err == nil {
		*a = NewAmount(d)
	}
	return nil
}
