// Package backend wires the configured record store, the optional event
// publisher and the listing cache into an expense service.
package backend

import (
	"context"

	"fintrack/internal/services"
)

// CleanupFunc releases everything a backend opened.
type CleanupFunc func() error

// Result is a ready expense service and its cleanup.
type Result struct {
	Service *services.ExpenseService
	Cleanup CleanupFunc
}

type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}
