package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"fintrack/internal/core"
)

// maxBodyBytes bounds create request bodies.
const maxBodyBytes = 1 << 20

var errBadBody = errors.New("invalid request body")

// createExpenseRequest is the wire form of a create call. Date stays a raw
// string so a present but unparseable date is rejected instead of being
// treated as absent.
type createExpenseRequest struct {
	Name     string      `json:"name"`
	Amount   core.Amount `json:"amount"`
	Category string      `json:"category"`
	Date     *string     `json:"date"`
}

// parseCreateExpense decodes and normalises a create request. Field
// validation is left to core.NewExpense.Validate.
func parseCreateExpense(w http.ResponseWriter, r *http.Request) (core.NewExpense, error) {
	const op = "parse create expense"

	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)

	var req createExpenseRequest
	if err := dec.Decode(&req); err != nil {
		return core.NewExpense{}, core.E(core.KindValidation, op, errBadBody)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return core.NewExpense{}, core.E(core.KindValidation, op, errBadBody)
	}

	n := core.NewExpense{
		Name:     sanitizeInput(req.Name),
		Amount:   req.Amount,
		Category: core.Category(strings.TrimSpace(req.Category)),
	}
	if c, err := core.ParseCategory(req.Category); err == nil {
		n.Category = c
	}

	if req.Date != nil && strings.TrimSpace(*req.Date) != "" {
		d, err := core.ParseDate(*req.Date)
		if err != nil {
			return core.NewExpense{}, core.E(core.KindValidation, op, fmt.Errorf("%w: expected YYYY-MM-DD", core.ErrInvalidDate))
		}
		n.Date = d
	}

	return n, nil
}

// sanitizeInput trims whitespace and drops control characters other than
// tab and newlines.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}
