package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Food          Category = "Food"
	Rent          Category = "Rent"
	Utilities     Category = "Utilities"
	Transport     Category = "Transport"
	Entertainment Category = "Entertainment"
)

type (
	// Category is one of the closed set of expense classifications.
	Category string

	// Date is the calendar date of an expense. The zero value is an invalid date.
	Date struct {
		time.Time
	}

	// Expense is a persisted expense record.
	Expense struct {
		ID        string    `json:"_id"`
		Name      string    `json:"name"`
		Amount    Amount    `json:"amount"`
		Category  Category  `json:"category"`
		Date      Date      `json:"date"`
		CreatedAt time.Time `json:"createdAt"`
	}

	// NewExpense carries the user-supplied fields of an expense to be created.
	// A zero Date means the store assigns the creation time.
	NewExpense struct {
		Name     string   `json:"name"`
		Amount   Amount   `json:"amount"`
		Category Category `json:"category"`
		Date     Date     `json:"date"`
	}
)

var (
	ErrEmptyName       = errors.New("empty name")
	ErrNameTooLong     = errors.New("name too long (max 200 characters)")
	ErrInvalidAmount   = errors.New("amount is required and must be numeric")
	ErrEmptyCategory   = errors.New("empty category")
	ErrUnknownCategory = errors.New("unknown category")
	ErrInvalidDate     = errors.New("invalid date")
	ErrEmptyID         = errors.New("empty expense id")
)

// Categories returns the known categories in their fixed display order.
func Categories() []Category {
	return []Category{Food, Rent, Utilities, Transport, Entertainment}
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case Food, Rent, Utilities, Transport, Entertainment:
		return true
	default:
		return false
	}
}

func (c Category) String() string {
	return string(c)
}

// ParseCategory matches s against the known categories, ignoring case and
// surrounding whitespace.
func ParseCategory(s string) (Category, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrEmptyCategory
	}
	for _, c := range Categories() {
		if strings.EqualFold(s, string(c)) {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
}

const dateLayout = "2006-01-02"

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf wraps t as a Date in UTC.
func DateOf(t time.Time) Date {
	if t.IsZero() {
		return Date{}
	}
	return Date{Time: t.UTC()}
}

// ParseDate accepts YYYY-MM-DD or RFC 3339. An RFC 3339 offset is dropped
// rather than applied: the calendar day and clock time written in the input
// are kept and stored as UTC.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(dateLayout, s); err == nil {
		return Date{Time: t}, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		y, m, d := t.Date()
		return Date{Time: time.Date(y, m, d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)}, nil
	}
	return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

// Valid reports whether the date holds a real point in time.
func (d Date) Valid() bool {
	return !d.IsZero()
}

// String returns the date as YYYY-MM-DD, or "invalid date".
func (d Date) String() string {
	if !d.Valid() {
		return "invalid date"
	}
	return d.Time.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if !d.Valid() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Time.UTC().Format(time.RFC3339Nano))
}

// UnmarshalJSON never fails on bad input: anything that is not a parseable
// date string decodes to the invalid date.
func (d *Date) UnmarshalJSON(b []byte) error {
	*d = Date{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return nil
	}
	if parsed, err := ParseDate(s); err == nil {
		*d = parsed
	}
	return nil
}

// Validate checks the fields a create request must carry.
func (n NewExpense) Validate() error {
	const op = "validate expense"
	if len(strings.TrimSpace(n.Name)) == 0 {
		return E(KindValidation, op, ErrEmptyName)
	}
	if len(n.Name) > 200 {
		return E(KindValidation, op, ErrNameTooLong)
	}
	if !n.Amount.Valid() {
		return E(KindValidation, op, ErrInvalidAmount)
	}
	if strings.TrimSpace(string(n.Category)) == "" {
		return E(KindValidation, op, ErrEmptyCategory)
	}
	if !n.Category.Valid() {
		return E(KindValidation, op, fmt.Errorf("%w: %q", ErrUnknownCategory, n.Category))
	}
	return nil
}
